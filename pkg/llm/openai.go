package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider and Embedder for OpenAI's API
type OpenAIProvider struct {
	apiKey     string
	model      string
	embedModel string
	baseURL    string
	client     *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model, embedModel string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		model:      model,
		embedModel: embedModel,
		baseURL:    openAIBaseURL,
		client:     &http.Client{},
	}
}

// WithBaseURL points the provider at a compatible endpoint
func (p *OpenAIProvider) WithBaseURL(url string) *OpenAIProvider {
	p.baseURL = strings.TrimRight(url, "/")
	return p
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("OpenAI (%s)", p.model)
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate performs a single chat completion
func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	reqBody := openAIRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}

	var resp openAIResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", p.headers(), reqBody, &resp); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type openAIEmbeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed creates an embedding vector for the given text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp openAIEmbeddingResponse
	reqBody := openAIEmbeddingRequest{Input: text, Model: p.embedModel}
	if err := postJSON(ctx, p.client, p.baseURL+"/embeddings", p.headers(), reqBody, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}
