package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const defaultAPIURL = "https://slack.com/api"

// Client posts alert notifications to Slack, through the bot API when a
// token and channel are set and through an incoming webhook otherwise
type Client struct {
	webhookURL   string
	botToken     string
	channelID    string
	apiURL       string
	dashboardURL string
	client       *http.Client
}

// NewClient creates a new Slack client
func NewClient(webhookURL, botToken, channelID string) *Client {
	return &Client{
		webhookURL: webhookURL,
		botToken:   botToken,
		channelID:  channelID,
		apiURL:     defaultAPIURL,
		client:     &http.Client{},
	}
}

// WithAPIURL overrides the Web API base URL
func (c *Client) WithAPIURL(url string) *Client {
	c.apiURL = strings.TrimRight(url, "/")
	return c
}

// WithDashboardURL adds a link back to the alert in the dashboard
func (c *Client) WithDashboardURL(url string) *Client {
	c.dashboardURL = strings.TrimRight(url, "/")
	return c
}

// Name identifies the channel in notification results
func (c *Client) Name() string { return "slack" }

// IsConfigured checks if Slack notifications are configured
func (c *Client) IsConfigured() bool {
	return c.webhookURL != "" || c.HasBotToken()
}

// HasBotToken reports whether the Web API can be used
func (c *Client) HasBotToken() bool {
	return c.botToken != "" && c.channelID != ""
}

// SendAlert posts a Block Kit message describing the alert
func (c *Client) SendAlert(ctx context.Context, alert types.Alert) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack: %w", types.ErrNotConfigured)
	}

	message := c.buildAlertMessage(alert)
	if c.HasBotToken() {
		message.Channel = c.channelID
		_, err := c.postMessage(ctx, message)
		return err
	}
	return c.postWebhook(ctx, message)
}

func (c *Client) postWebhook(ctx context.Context, message Message) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send to Slack: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	// Incoming webhooks answer a bare "ok"
	if strings.TrimSpace(string(body)) == "ok" {
		return nil
	}
	var slackResp Response
	if err := json.Unmarshal(body, &slackResp); err == nil && !slackResp.OK && slackResp.Error != "" {
		return fmt.Errorf("Slack error: %s", slackResp.Error)
	}
	return nil
}

// postMessage sends a message using chat.postMessage and returns its timestamp
func (c *Client) postMessage(ctx context.Context, message Message) (string, error) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat.postMessage", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send to Slack: %w", err)
	}
	defer resp.Body.Close()

	var slackResp Response
	if err := json.NewDecoder(resp.Body).Decode(&slackResp); err != nil {
		return "", fmt.Errorf("failed to parse Slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("Slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

var alertEmoji = map[types.AlertType]string{
	types.AlertCritical: "🚨",
	types.AlertWarning:  "⚠️",
	types.AlertInfo:     "ℹ️",
}

// buildAlertMessage renders the alert as Block Kit blocks
func (c *Client) buildAlertMessage(alert types.Alert) Message {
	product := alert.Product
	if product == "" {
		product = "n/a"
	}

	message := Message{
		Text: fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Type)), truncateForSlack(alert.Message, 150)),
		Blocks: []Block{
			{
				Type: "header",
				Text: &TextObject{
					Type: "plain_text",
					Text: fmt.Sprintf("%s %s feedback alert", alertEmoji[alert.Type], capitalize(string(alert.Type))),
				},
			},
			{
				Type: "section",
				Text: &TextObject{Type: "mrkdwn", Text: truncateForSlack(alert.Message, 2900)},
			},
			{
				Type: "section",
				Fields: []TextObject{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Type:*\n%s", alert.Type)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Product:*\n%s", product)},
				},
			},
		},
	}

	contextText := fmt.Sprintf("Raised: %s", alert.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if len(alert.FeedbackIDs) > 0 {
		contextText += fmt.Sprintf(" | Feedback: `%s`", strings.Join(alert.FeedbackIDs, "`, `"))
	}
	if c.dashboardURL != "" && alert.ID != "" {
		contextText += fmt.Sprintf(" | <%s/alerts/%s|Open in dashboard>", c.dashboardURL, alert.ID)
	}
	message.Blocks = append(message.Blocks,
		Block{Type: "context", Elements: []TextObject{{Type: "mrkdwn", Text: contextText}}},
	)
	return message
}

// truncateForSlack truncates text to maxLen runes, marking the cut
func truncateForSlack(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	return string(r[:maxLen-3]) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
