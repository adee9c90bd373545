package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

// AnthropicProvider implements Provider for Anthropic's Claude models.
// Claude has no embedding endpoint, so pair it with a separate Embedder.
type AnthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the API endpoint
func (p *AnthropicProvider) WithBaseURL(url string) *AnthropicProvider {
	p.baseURL = strings.TrimRight(url, "/")
	return p
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return fmt.Sprintf("Anthropic (%s)", p.model)
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate performs a single messages call. System messages are lifted into the
// top-level system field as the Messages API requires.
func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	system, rest := splitSystem(messages)
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	reqBody := anthropicRequest{
		Model:     p.model,
		System:    system,
		Messages:  rest,
		MaxTokens: maxTokens,
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var resp anthropicResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/messages", headers, reqBody, &resp); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return strings.TrimSpace(out.String()), nil
}

// splitSystem separates system messages from the conversation
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
