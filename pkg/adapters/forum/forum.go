package forum

import (
	"strings"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Webhook is a Discourse post event
// Reference: https://meta.discourse.org/t/configure-webhooks-that-trigger-on-discourse-events-to-integrate-with-external-services/49045
type Webhook struct {
	Post struct {
		ID       any    `json:"id"`
		Raw      string `json:"raw"`
		Cooked   string `json:"cooked"`
		Username string `json:"username"`
	} `json:"post"`
	Topic struct {
		ID           any    `json:"id"`
		Title        string `json:"title"`
		URL          string `json:"url"`
		CategoryName string `json:"category_name"`
	} `json:"topic"`
}

// Adapter converts forum posts to feedback messages
type Adapter struct {
	Webhook Webhook
}

// ToFeedback prefixes the post with its topic title when present
func (a *Adapter) ToFeedback() ([]queue.ProcessFeedback, error) {
	p, t := a.Webhook.Post, a.Webhook.Topic
	content := p.Raw
	if content == "" {
		content = p.Cooked
	}
	if t.Title != "" {
		content = t.Title + "\n\n" + content
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	return []queue.ProcessFeedback{{
		Content: content,
		Source:  types.SourceForum,
		Metadata: map[string]any{
			"forum_post_id":   p.ID,
			"forum_topic_id":  t.ID,
			"forum_topic_url": t.URL,
			"forum_user":      p.Username,
			"forum_category":  t.CategoryName,
		},
		ReceivedAt: time.Now().UTC(),
	}}, nil
}

// GetSource returns the source identifier
func (a *Adapter) GetSource() string {
	return "forum"
}
