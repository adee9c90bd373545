package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Config for the SendGrid v3 mail send API
type Config struct {
	APIKey  string
	BaseURL string
	From    string
	To      []string
	Timeout time.Duration
}

// Address is a SendGrid email address
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []Address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

// SendGridClient emails alerts to a fixed recipient list
type SendGridClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewSendGridClient creates a client; it reports IsConfigured false without a key or recipients
func NewSendGridClient(cfg Config) *SendGridClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SendGridClient{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// Name identifies the channel in notification results
func (c *SendGridClient) Name() string { return "email" }

// IsConfigured reports whether an API key, sender and recipients are set
func (c *SendGridClient) IsConfigured() bool {
	return c.cfg.APIKey != "" && c.cfg.From != "" && len(c.cfg.To) > 0
}

// SendAlert emails the alert to every configured recipient
func (c *SendGridClient) SendAlert(ctx context.Context, alert types.Alert) error {
	if !c.IsConfigured() {
		return fmt.Errorf("email: %w", types.ErrNotConfigured)
	}

	to := make([]Address, 0, len(c.cfg.To))
	for _, addr := range c.cfg.To {
		to = append(to, Address{Email: addr})
	}

	req := mailSendRequest{
		Personalizations: []personalization{{To: to}},
		From:             Address{Email: c.cfg.From, Name: "Signal Alerts"},
		Subject:          subjectFor(alert),
		Content: []content{
			{Type: "text/plain", Value: plainBody(alert)},
		},
		Categories: []string{"signal-alert", string(alert.Type)},
	}
	return c.send(ctx, req)
}

func (c *SendGridClient) send(ctx context.Context, payload mailSendRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func subjectFor(alert types.Alert) string {
	subject := fmt.Sprintf("[%s] Feedback alert", strings.ToUpper(string(alert.Type)))
	if alert.Product != "" {
		subject += " for " + alert.Product
	}
	return subject
}

func plainBody(alert types.Alert) string {
	var b strings.Builder
	b.WriteString(alert.Message)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Type: %s\n", alert.Type)
	if alert.Product != "" {
		fmt.Fprintf(&b, "Product: %s\n", alert.Product)
	}
	if len(alert.FeedbackIDs) > 0 {
		fmt.Fprintf(&b, "Feedback: %s\n", strings.Join(alert.FeedbackIDs, ", "))
	}
	fmt.Fprintf(&b, "Raised: %s\n", alert.CreatedAt.Format(time.RFC1123))
	return b.String()
}
