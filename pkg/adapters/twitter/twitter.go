package twitter

import (
	"encoding/json"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Tweet is a mention payload; it may arrive bare or wrapped in {"tweet": ...}
type Tweet struct {
	ID   any    `json:"id"`
	Text string `json:"text"`
	User struct {
		ID             any    `json:"id"`
		ScreenName     string `json:"screen_name"`
		FollowersCount int    `json:"followers_count"`
		Verified       bool   `json:"verified"`
	} `json:"user"`
}

// Webhook accepts both payload shapes
type Webhook struct {
	Tweet Tweet
}

// UnmarshalJSON unwraps an optional "tweet" envelope
func (w *Webhook) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Tweet *Tweet `json:"tweet"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Tweet != nil {
		w.Tweet = *wrapped.Tweet
		return nil
	}
	return json.Unmarshal(data, &w.Tweet)
}

// Adapter converts mentions to feedback messages
type Adapter struct {
	Webhook Webhook
}

// ToFeedback maps one tweet to one message
func (a *Adapter) ToFeedback() ([]queue.ProcessFeedback, error) {
	t := a.Webhook.Tweet
	if t.Text == "" {
		return nil, nil
	}
	return []queue.ProcessFeedback{{
		Content: t.Text,
		Source:  types.SourceTwitter,
		Metadata: map[string]any{
			"twitter_tweet_id":  t.ID,
			"twitter_user":      t.User.ScreenName,
			"twitter_user_id":   t.User.ID,
			"twitter_followers": t.User.FollowersCount,
			"twitter_verified":  t.User.Verified,
		},
		ReceivedAt: time.Now().UTC(),
	}}, nil
}

// GetSource returns the source identifier
func (a *Adapter) GetSource() string {
	return "twitter"
}
