package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements Provider and Embedder for Google's Gemini models
type GeminiProvider struct {
	apiKey     string
	model      string
	embedModel string
	baseURL    string
	client     *http.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, model, embedModel string) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		model:      model,
		embedModel: embedModel,
		baseURL:    geminiBaseURL,
		client:     &http.Client{},
	}
}

// WithBaseURL overrides the API endpoint
func (p *GeminiProvider) WithBaseURL(url string) *GeminiProvider {
	p.baseURL = strings.TrimRight(url, "/")
	return p
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("Google Gemini (%s)", p.model)
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate performs a single generateContent call
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	system, rest := splitSystem(messages)

	reqBody := geminiRequest{
		GenerationConfig: geminiGenerationConfig{Temperature: 0.7, MaxOutputTokens: maxTokens},
	}
	if system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range rest {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		reqBody.Contents = append(reqBody.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	var resp geminiResponse
	if err := postJSON(ctx, p.client, url, nil, reqBody, &resp); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return strings.TrimSpace(out.String()), nil
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed creates an embedding vector for the given text
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := geminiEmbedRequest{
		Model:   "models/" + p.embedModel,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", p.baseURL, p.embedModel, p.apiKey)
	var resp geminiEmbedResponse
	if err := postJSON(ctx, p.client, url, nil, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}

	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embeddings: no embeddings returned")
	}
	return resp.Embedding.Values, nil
}
