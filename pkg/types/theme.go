package types

// Theme is a trending topic reconstructed from per-item tags.
// Themes are recomputed per request and never treated as ground truth.
type Theme struct {
	ID        string         `json:"id"`
	Name      string         `json:"theme"`
	Mentions  int            `json:"mentions"`
	Sentiment SentimentLabel `json:"sentiment"`
	Products  []string       `json:"products"`
	IsNew     bool           `json:"is_new"`
	Issues    []FeedbackItem `json:"issues"`
}
