package types

import "time"

// AlertType is the severity class of an alert
type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
)

// Valid reports whether t is a known alert type
func (t AlertType) Valid() bool {
	return t == AlertCritical || t == AlertWarning || t == AlertInfo
}

// Rank orders alert types for listing: critical first
func (t AlertType) Rank() int {
	switch t {
	case AlertCritical:
		return 1
	case AlertWarning:
		return 2
	default:
		return 3
	}
}

// Alert is raised when feedback crosses a severity threshold
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	Message      string    `json:"message"`
	Product      string    `json:"product,omitempty"`
	Acknowledged bool      `json:"acknowledged"`
	FeedbackIDs  []string  `json:"feedback_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

// NotificationResult is the outcome of one notification channel attempt
type NotificationResult struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
