package types

import "time"

// SourceType identifies what a chat source points back to
type SourceType string

const (
	SourceTypeFeedback SourceType = "feedback"
	SourceTypeTheme    SourceType = "theme"
	SourceTypeCustomer SourceType = "customer"
)

// ChatSource is an attribution record behind a generated answer
type ChatSource struct {
	Type      SourceType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Relevance float64    `json:"relevance"`
}

// Role of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
