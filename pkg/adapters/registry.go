package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/adapters/discord"
	"github.com/Shubhamjha-sj/signal/pkg/adapters/email"
	"github.com/Shubhamjha-sj/signal/pkg/adapters/forum"
	"github.com/Shubhamjha-sj/signal/pkg/adapters/github"
	"github.com/Shubhamjha-sj/signal/pkg/adapters/twitter"
	"github.com/Shubhamjha-sj/signal/pkg/adapters/zendesk"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

var (
	ErrUnknownSource    = errors.New("unknown webhook source")
	ErrSourceDisabled   = errors.New("webhook source disabled")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// AllSources lists every supported webhook source in display order
var AllSources = []string{"github", "discord", "zendesk", "email", "twitter", "forum"}

// FeedbackAdapter converts one source payload into feedback messages
type FeedbackAdapter interface {
	ToFeedback() ([]queue.ProcessFeedback, error)
	GetSource() string
}

// CustomerResolver attributes inbound mail and tickets to a known customer
type CustomerResolver interface {
	FindCustomerByDomain(ctx context.Context, domain string) (*types.Customer, error)
}

// Request is a raw webhook delivery
type Request struct {
	Source    string
	Event     string // X-GitHub-Event
	Signature string // X-Hub-Signature-256
	Body      []byte
}

// Result is what a delivery turned into
type Result struct {
	Source   string
	Messages []queue.ProcessFeedback
	Reply    map[string]any // set when the source expects a protocol answer (Discord ping)
	Ignored  string         // reason when a valid delivery produced nothing
}

// SourceStatus describes one webhook endpoint
type SourceStatus struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// Registry manages enabled webhook source adapters
type Registry struct {
	enabledAdapters map[string]bool
	customers       CustomerResolver
	githubSecret    string
	log             *logrus.Entry
}

// NewRegistry creates a registry. An empty list enables every source;
// customers may be nil, in which case no enrichment happens.
func NewRegistry(enabledAdapters []string, customers CustomerResolver, log *logrus.Logger) *Registry {
	if len(enabledAdapters) == 0 {
		enabledAdapters = AllSources
	}

	registry := &Registry{
		enabledAdapters: make(map[string]bool),
		customers:       customers,
		log:             log.WithField("component", "adapters"),
	}
	for _, adapter := range enabledAdapters {
		registry.enabledAdapters[strings.ToLower(strings.TrimSpace(adapter))] = true
	}
	return registry
}

// WithGitHubSecret enables X-Hub-Signature-256 verification
func (r *Registry) WithGitHubSecret(secret string) *Registry {
	r.githubSecret = secret
	return r
}

// IsEnabled checks if an adapter is enabled
func (r *Registry) IsEnabled(adapterName string) bool {
	return r.enabledAdapters[adapterName]
}

// Status reports every supported source
func (r *Registry) Status() map[string]SourceStatus {
	out := make(map[string]SourceStatus, len(AllSources))
	for _, s := range AllSources {
		out[s] = SourceStatus{Enabled: r.IsEnabled(s), Endpoint: "/webhooks/" + s}
	}
	return out
}

// Convert decodes a delivery with the adapter for its source
func (r *Registry) Convert(ctx context.Context, req Request) (*Result, error) {
	source := strings.ToLower(req.Source)
	if !contains(AllSources, source) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, req.Source)
	}
	if !r.IsEnabled(source) {
		return nil, fmt.Errorf("%w: %s", ErrSourceDisabled, source)
	}

	result := &Result{Source: source}
	var (
		adapter FeedbackAdapter
		lookup  string // email address used for customer enrichment
	)

	switch source {
	case "github":
		if err := r.verifyGitHub(req); err != nil {
			return nil, err
		}
		a := &github.Adapter{Event: req.Event}
		if err := decode(req.Body, &a.Webhook); err != nil {
			return nil, err
		}
		adapter = a
	case "discord":
		a := &discord.Adapter{}
		if err := decode(req.Body, &a.Webhook); err != nil {
			return nil, err
		}
		if a.Webhook.IsPing() {
			result.Reply = map[string]any{"type": 1}
			return result, nil
		}
		if a.Webhook.Author.Bot {
			result.Ignored = "bot message"
			return result, nil
		}
		adapter = a
	case "zendesk":
		a := &zendesk.Adapter{}
		if err := decode(req.Body, &a.Webhook); err != nil {
			return nil, err
		}
		adapter, lookup = a, a.RequesterEmail()
	case "email":
		a := &email.Adapter{}
		if err := decode(req.Body, &a.Webhook); err != nil {
			return nil, err
		}
		adapter, lookup = a, a.FromAddress()
	case "twitter":
		a := &twitter.Adapter{}
		if err := decode(req.Body, &a.Webhook); err != nil {
			return nil, err
		}
		adapter = a
	case "forum":
		a := &forum.Adapter{}
		if err := decode(req.Body, &a.Webhook); err != nil {
			return nil, err
		}
		adapter = a
	}

	messages, err := adapter.ToFeedback()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", adapter.GetSource(), err)
	}
	if len(messages) == 0 {
		result.Ignored = "no feedback in event"
		return result, nil
	}

	if lookup != "" {
		r.enrich(ctx, lookup, messages)
	}
	result.Messages = messages
	return result, nil
}

// enrich fills customer fields from the sender's email domain. A failed
// lookup leaves the adapter's defaults in place.
func (r *Registry) enrich(ctx context.Context, address string, messages []queue.ProcessFeedback) {
	if r.customers == nil {
		return
	}
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return
	}
	domain := strings.Trim(address[at+1:], "> ")

	customer, err := r.customers.FindCustomerByDomain(ctx, domain)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			r.log.WithError(err).WithField("domain", domain).Warn("Customer lookup failed")
		}
		return
	}

	for i := range messages {
		messages[i].CustomerID = customer.ID
		messages[i].CustomerName = customer.Name
		messages[i].CustomerTier = customer.Tier
		messages[i].CustomerARR = customer.ARR
	}
}

func (r *Registry) verifyGitHub(req Request) error {
	if r.githubSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(r.githubSecret))
	mac.Write(req.Body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
