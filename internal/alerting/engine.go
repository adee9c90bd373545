package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const (
	CriticalUrgency   = 9
	CriticalSentiment = -0.7 // enterprise only
	WarningUrgency    = 7
	WarningSentiment  = -0.5

	contentPrefixLen = 150
)

// Options controls what Evaluate returns
type Options struct {
	// IncludeInfo returns an info alert for items below the warning thresholds
	IncludeInfo bool
}

// Engine decides whether a classified item warrants an alert
type Engine struct {
	now   func() time.Time
	newID func() string
}

func NewEngine() *Engine {
	return &Engine{now: time.Now, newID: uuid.NewString}
}

// Classify returns the alert type for the given signals; first match wins
func Classify(urgency int, sentiment float64, tier types.Tier) types.AlertType {
	switch {
	case urgency >= CriticalUrgency || (tier == types.TierEnterprise && sentiment < CriticalSentiment):
		return types.AlertCritical
	case urgency >= WarningUrgency || sentiment < WarningSentiment:
		return types.AlertWarning
	default:
		return types.AlertInfo
	}
}

// Evaluate returns the alert for item, or nil when it is info-level and
// info alerts were not requested
func (e *Engine) Evaluate(item types.FeedbackItem, opts Options) *types.Alert {
	alertType := Classify(item.Urgency, item.Sentiment, item.CustomerTier)
	if alertType == types.AlertInfo && !opts.IncludeInfo {
		return nil
	}

	return &types.Alert{
		ID:          e.newID(),
		Type:        alertType,
		Message:     Message(alertType, item),
		Product:     item.Product,
		FeedbackIDs: []string{item.ID},
		CreatedAt:   e.now().UTC(),
	}
}

// Message renders the alert text for item
func Message(alertType types.AlertType, item types.FeedbackItem) string {
	prefix := ContentPrefix(item.Content)
	name := strings.TrimSpace(item.CustomerName)

	switch alertType {
	case types.AlertCritical:
		switch {
		case name != "" && item.CustomerARR > 0:
			return fmt.Sprintf("Critical issue from %s (%s ARR): %s", name, FormatARR(item.CustomerARR), prefix)
		case name != "":
			return fmt.Sprintf("Critical issue from %s: %s", name, prefix)
		default:
			return "Critical issue reported: " + prefix
		}

	case types.AlertWarning:
		lead := "Negative feedback"
		if item.Urgency >= WarningUrgency {
			lead = "High-urgency feedback"
		}
		if item.CustomerTier == types.TierEnterprise {
			if name != "" {
				return fmt.Sprintf("%s from Enterprise customer %s: %s", lead, name, prefix)
			}
			return fmt.Sprintf("%s from Enterprise customer: %s", lead, prefix)
		}
		if item.Product != "" {
			return fmt.Sprintf("%s on %s: %s", lead, item.Product, prefix)
		}
		return lead + ": " + prefix

	default:
		return "Feedback for review: " + prefix
	}
}

// FormatARR renders ARR in thousands, e.g. 250000 -> "$250k"
func FormatARR(arr int64) string {
	return fmt.Sprintf("$%dk", arr/1000)
}

// ContentPrefix collapses whitespace and truncates content with an ellipsis
func ContentPrefix(content string) string {
	r := []rune(strings.Join(strings.Fields(content), " "))
	if len(r) <= contentPrefixLen {
		return string(r)
	}
	return string(r[:contentPrefixLen]) + "..."
}
