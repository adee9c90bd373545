package llm

import "context"

// Message is one chat message sent to a generation model
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// SentimentScore is one label/score pair from a sentiment model
type SentimentScore struct {
	Label string  `json:"label"` // at least POSITIVE and NEGATIVE when confident
	Score float64 `json:"score"`
}

// Provider is a text generation backend (Workers AI, OpenAI, Claude, Gemini, Ollama, Bedrock)
type Provider interface {
	// Generate returns a single non-streamed completion
	Generate(ctx context.Context, messages []Message, maxTokens int) (string, error)

	// Name returns the provider name (for logging)
	Name() string
}

// Embedder produces vector embeddings. Dimensionality is fixed per deployment.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SentimentClassifier scores text polarity
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) ([]SentimentScore, error)
}

// Config holds configuration for all providers
type Config struct {
	Provider          string // "workersai", "openai", "anthropic", "gemini", "ollama", "bedrock"
	EmbeddingProvider string // defaults to Provider when it can embed

	// Cloudflare Workers AI
	CloudflareAccountID string
	CloudflareAPIToken  string
	WorkersAIBaseURL    string
	WorkersTextModel    string // e.g. "@cf/meta/llama-3.1-8b-instruct"
	WorkersEmbedModel   string // e.g. "@cf/baai/bge-base-en-v1.5"
	WorkersSentiment    string // e.g. "@cf/huggingface/distilbert-sst-2-int8"

	OllamaURL        string
	OllamaModel      string
	OllamaEmbedModel string

	OpenAIAPIKey     string
	OpenAIModel      string // e.g. "gpt-4o-mini"
	OpenAIEmbedModel string // e.g. "text-embedding-3-small"

	AnthropicAPIKey string
	AnthropicModel  string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string

	BedrockRegion     string
	BedrockModel      string // e.g. "anthropic.claude-3-5-sonnet-20241022-v2:0"
	BedrockEmbedModel string // e.g. "amazon.titan-embed-text-v2:0"
}
