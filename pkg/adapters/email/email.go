package email

import (
	"strings"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Webhook is an inbound-parse style email payload (Mailgun, SendGrid)
type Webhook struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	From      string `json:"from"`
	Sender    string `json:"sender"`
	MessageID string `json:"message_id"`
}

// Adapter converts emails to feedback messages
type Adapter struct {
	Webhook Webhook
}

// FromAddress returns the sender address
func (a *Adapter) FromAddress() string {
	if a.Webhook.From != "" {
		return a.Webhook.From
	}
	return a.Webhook.Sender
}

// ToFeedback maps one email to one message; the local part of the sender
// stands in for the customer name until the domain lookup resolves one
func (a *Adapter) ToFeedback() ([]queue.ProcessFeedback, error) {
	w := a.Webhook
	body := firstNonEmpty(w.Body, w.Text, w.HTML)
	from := a.FromAddress()

	name := from
	if at := strings.Index(from, "@"); at >= 0 {
		name = from[:at]
	}

	return []queue.ProcessFeedback{{
		Content:      strings.TrimSpace(w.Subject + "\n\n" + body),
		Source:       types.SourceEmail,
		CustomerName: name,
		CustomerTier: types.TierUnknown,
		Metadata: map[string]any{
			"email_from":       from,
			"email_subject":    w.Subject,
			"email_message_id": w.MessageID,
		},
		ReceivedAt: time.Now().UTC(),
	}}, nil
}

// GetSource returns the source identifier
func (a *Adapter) GetSource() string {
	return "email"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
