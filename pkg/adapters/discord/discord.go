package discord

import (
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Webhook is a forwarded Discord message event
type Webhook struct {
	Type      int    `json:"type"`
	ID        string `json:"id"`
	Content   string `json:"content"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Author    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Bot      bool   `json:"bot"`
	} `json:"author"`
}

// IsPing reports a Discord interaction PING, which must be answered with {"type":1}
func (w Webhook) IsPing() bool {
	return w.Type == 1 && w.Content == "" && w.Author.ID == ""
}

// Adapter converts Discord messages to feedback messages
type Adapter struct {
	Webhook Webhook
}

// ToFeedback ignores bot authors and empty messages
func (a *Adapter) ToFeedback() ([]queue.ProcessFeedback, error) {
	w := a.Webhook
	if w.Author.Bot || w.Content == "" {
		return nil, nil
	}
	return []queue.ProcessFeedback{{
		Content: w.Content,
		Source:  types.SourceDiscord,
		Metadata: map[string]any{
			"discord_channel_id": w.ChannelID,
			"discord_guild_id":   w.GuildID,
			"discord_message_id": w.ID,
			"discord_user":       w.Author.Username,
			"discord_user_id":    w.Author.ID,
		},
		ReceivedAt: time.Now().UTC(),
	}}, nil
}

// GetSource returns the source identifier
func (a *Adapter) GetSource() string {
	return "discord"
}
