package types

import (
	"strings"
	"time"
)

// Source is the channel a piece of feedback arrived through
type Source string

const (
	SourceGitHub  Source = "github"
	SourceDiscord Source = "discord"
	SourceTwitter Source = "twitter"
	SourceSupport Source = "support"
	SourceForum   Source = "forum"
	SourceEmail   Source = "email"
)

// Valid reports whether s is one of the known channels
func (s Source) Valid() bool {
	switch s {
	case SourceGitHub, SourceDiscord, SourceTwitter, SourceSupport, SourceForum, SourceEmail:
		return true
	}
	return false
}

// SentimentLabel is derived from the sentiment score via fixed thresholds
type SentimentLabel string

const (
	SentimentPositive   SentimentLabel = "positive"
	SentimentNeutral    SentimentLabel = "neutral"
	SentimentNegative   SentimentLabel = "negative"
	SentimentFrustrated SentimentLabel = "frustrated"
	SentimentConcerned  SentimentLabel = "concerned"
	SentimentAnnoyed    SentimentLabel = "annoyed"
)

// LabelForScore maps a sentiment score in [-1,1] to its label.
// Thresholds are evaluated in order; the first match wins.
func LabelForScore(score float64) SentimentLabel {
	switch {
	case score > 0.3:
		return SentimentPositive
	case score < -0.5:
		return SentimentFrustrated
	case score < -0.3:
		return SentimentConcerned
	case score < -0.1:
		return SentimentAnnoyed
	default:
		return SentimentNeutral
	}
}

// Tier is the customer segment used to weight urgency and alerting
type Tier string

const (
	TierEnterprise Tier = "enterprise"
	TierPro        Tier = "pro"
	TierFree       Tier = "free"
	TierUnknown    Tier = "unknown"
)

// ParseTier normalizes free-form tier input; anything unrecognized is TierUnknown
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierEnterprise:
		return TierEnterprise
	case TierPro:
		return TierPro
	case TierFree:
		return TierFree
	default:
		return TierUnknown
	}
}

// Status is the workflow state of a feedback item
type Status string

const (
	StatusNew          Status = "new"
	StatusInReview     Status = "in_review"
	StatusAcknowledged Status = "acknowledged"
	StatusInProgress   Status = "in_progress"
	StatusResolved     Status = "resolved"
	StatusClosed       Status = "closed"
)

// Valid reports whether s is a known workflow status
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInReview, StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// FeedbackItem is a single classified piece of customer feedback
type FeedbackItem struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Source         Source         `json:"source"`
	Sentiment      float64        `json:"sentiment"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
	Urgency        int            `json:"urgency"`
	Product        string         `json:"product,omitempty"` // empty when no product was detected
	Themes         []string       `json:"themes"`
	CustomerID     string         `json:"customer_id,omitempty"`
	CustomerName   string         `json:"customer_name,omitempty"`
	CustomerTier   Tier           `json:"customer_tier,omitempty"`
	CustomerARR    int64          `json:"customer_arr,omitempty"`
	Status         Status         `json:"status"`
	AssignedTo     string         `json:"assigned_to,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasTheme reports whether the item carries the (already normalized) tag
func (f *FeedbackItem) HasTheme(tag string) bool {
	for _, t := range f.Themes {
		if strings.ToLower(strings.TrimSpace(t)) == tag {
			return true
		}
	}
	return false
}

// CustomerContext is the optional caller-supplied context for classification
type CustomerContext struct {
	Name    string
	Tier    Tier
	ARR     int64
	Product string // pre-known product; skips product detection when set

	// UrgencyHint replaces the tier default when the model cannot score urgency
	UrgencyHint int
}

// Customer is an account that feedback can be attributed to
type Customer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tier        Tier      `json:"tier"`
	ARR         int64     `json:"arr"`
	Domain      string    `json:"domain,omitempty"` // email domain used to attribute inbound mail
	Products    []string  `json:"products"`
	HealthScore float64   `json:"health_score"`
	OpenIssues  int64     `json:"open_issues"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClampUrgency forces an urgency value into [1,10]
func ClampUrgency(u int) int {
	if u < 1 {
		return 1
	}
	if u > 10 {
		return 10
	}
	return u
}
