package zendesk

import (
	"strings"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Webhook is a Zendesk ticket trigger payload
type Webhook struct {
	Ticket struct {
		ID          any      `json:"id"`
		URL         string   `json:"url"`
		Subject     string   `json:"subject"`
		Description string   `json:"description"`
		Priority    string   `json:"priority"`
		Status      string   `json:"status"`
		Tags        []string `json:"tags"`
	} `json:"ticket"`
	Requester struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"requester"`
}

var priorityUrgency = map[string]int{
	"urgent": 9,
	"high":   7,
	"normal": 5,
	"low":    3,
}

// UrgencyHint maps a ticket priority to an urgency hint; unknown priorities are normal
func UrgencyHint(priority string) int {
	if u, ok := priorityUrgency[strings.ToLower(priority)]; ok {
		return u
	}
	return 5
}

// Adapter converts tickets to feedback messages. Customer fields are
// filled from the requester and enriched later by email domain.
type Adapter struct {
	Webhook Webhook
}

// ToFeedback maps one ticket to one message
func (a *Adapter) ToFeedback() ([]queue.ProcessFeedback, error) {
	t := a.Webhook.Ticket
	hint := UrgencyHint(t.Priority)
	return []queue.ProcessFeedback{{
		Content:      strings.TrimSpace(t.Subject + "\n\n" + t.Description),
		Source:       types.SourceSupport,
		CustomerName: a.Webhook.Requester.Name,
		CustomerTier: types.TierUnknown,
		UrgencyHint:  hint,
		Metadata: map[string]any{
			"zendesk_ticket_id":       t.ID,
			"zendesk_ticket_url":      t.URL,
			"zendesk_priority":        t.Priority,
			"zendesk_status":          t.Status,
			"zendesk_tags":            t.Tags,
			"zendesk_requester_email": a.Webhook.Requester.Email,
			"urgency_hint":            hint,
		},
		ReceivedAt: time.Now().UTC(),
	}}, nil
}

// RequesterEmail is used for customer lookup
func (a *Adapter) RequesterEmail() string {
	return a.Webhook.Requester.Email
}

// GetSource returns the source identifier
func (a *Adapter) GetSource() string {
	return "zendesk"
}
