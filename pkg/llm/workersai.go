package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const workersAIBaseURL = "https://api.cloudflare.com/client/v4"

// WorkersAIProvider runs models on Cloudflare Workers AI.
// It is the only provider with a dedicated sentiment model.
type WorkersAIProvider struct {
	accountID      string
	apiToken       string
	textModel      string
	embedModel     string
	sentimentModel string
	baseURL        string
	client         *http.Client
}

// NewWorkersAIProvider creates a new Workers AI provider
func NewWorkersAIProvider(accountID, apiToken, textModel, embedModel, sentimentModel string) *WorkersAIProvider {
	if textModel == "" {
		textModel = "@cf/meta/llama-3.1-8b-instruct"
	}
	if embedModel == "" {
		embedModel = "@cf/baai/bge-base-en-v1.5"
	}
	if sentimentModel == "" {
		sentimentModel = "@cf/huggingface/distilbert-sst-2-int8"
	}
	return &WorkersAIProvider{
		accountID:      accountID,
		apiToken:       apiToken,
		textModel:      textModel,
		embedModel:     embedModel,
		sentimentModel: sentimentModel,
		baseURL:        workersAIBaseURL,
		client:         &http.Client{},
	}
}

// WithBaseURL overrides the API endpoint
func (p *WorkersAIProvider) WithBaseURL(url string) *WorkersAIProvider {
	p.baseURL = strings.TrimRight(url, "/")
	return p
}

// Name returns the provider name
func (p *WorkersAIProvider) Name() string {
	return fmt.Sprintf("Workers AI (%s)", p.textModel)
}

type workersEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *WorkersAIProvider) run(ctx context.Context, model string, body, out any) error {
	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", p.baseURL, p.accountID, model)
	headers := map[string]string{"Authorization": "Bearer " + p.apiToken}

	var env workersEnvelope
	if err := postJSON(ctx, p.client, url, headers, body, &env); err != nil {
		return fmt.Errorf("workers ai %s: %w", model, err)
	}

	if !env.Success {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("workers ai %s: %s", model, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("workers ai %s: failed to decode result: %w", model, err)
	}
	return nil
}

// Generate runs the text generation model
func (p *WorkersAIProvider) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	body := map[string]any{
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": 0.7,
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := p.run(ctx, p.textModel, body, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Response), nil
}

// Embed runs the embedding model
func (p *WorkersAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var result struct {
		Data [][]float32 `json:"data"`
	}
	if err := p.run(ctx, p.embedModel, map[string]any{"text": []string{text}}, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 || len(result.Data[0]) == 0 {
		return nil, fmt.Errorf("workers ai: no embeddings returned")
	}
	return result.Data[0], nil
}

// ClassifySentiment runs the sentiment model, which answers POSITIVE/NEGATIVE scores
func (p *WorkersAIProvider) ClassifySentiment(ctx context.Context, text string) ([]SentimentScore, error) {
	var result []SentimentScore
	if err := p.run(ctx, p.sentimentModel, map[string]any{"text": text}, &result); err != nil {
		return nil, err
	}
	return result, nil
}
