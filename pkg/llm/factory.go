package llm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Factory creates providers based on configuration
type Factory struct {
	config Config
	log    *logrus.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config Config, log *logrus.Logger) *Factory {
	return &Factory{config: config, log: log}
}

// CreateProvider creates the configured generation provider
func (f *Factory) CreateProvider(ctx context.Context) (Provider, error) {
	return f.create(ctx, f.config.Provider)
}

// CreateEmbedder creates the embedding backend. With no explicit embedding
// provider the generation provider is reused when it can embed.
func (f *Factory) CreateEmbedder(ctx context.Context, generation Provider) (Embedder, error) {
	name := f.config.EmbeddingProvider
	if name == "" || name == f.config.Provider {
		if e, ok := generation.(Embedder); ok {
			return e, nil
		}
		return nil, fmt.Errorf("provider %s cannot embed; set an embedding provider", f.config.Provider)
	}

	p, err := f.create(ctx, name)
	if err != nil {
		return nil, err
	}
	e, ok := p.(Embedder)
	if !ok {
		return nil, fmt.Errorf("embedding provider %s cannot embed", name)
	}
	return e, nil
}

func (f *Factory) create(ctx context.Context, name string) (Provider, error) {
	c := f.config
	switch name {
	case "workersai", "cloudflare", "":
		if c.CloudflareAccountID == "" || c.CloudflareAPIToken == "" {
			return nil, fmt.Errorf("cloudflare account ID and API token not configured")
		}
		p := NewWorkersAIProvider(c.CloudflareAccountID, c.CloudflareAPIToken, c.WorkersTextModel, c.WorkersEmbedModel, c.WorkersSentiment)
		if c.WorkersAIBaseURL != "" {
			p.WithBaseURL(c.WorkersAIBaseURL)
		}
		f.log.Infof("Using Workers AI provider with model %s", p.textModel)
		return p, nil

	case "ollama":
		if c.OllamaURL == "" {
			return nil, fmt.Errorf("ollama URL not configured")
		}
		f.log.Infof("Using Ollama provider with model %s at %s", c.OllamaModel, c.OllamaURL)
		return NewOllamaProvider(c.OllamaURL, c.OllamaModel, c.OllamaEmbedModel), nil

	case "openai":
		if c.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openAI API key not configured")
		}
		f.log.Infof("Using OpenAI provider with model %s", c.OpenAIModel)
		return NewOpenAIProvider(c.OpenAIAPIKey, c.OpenAIModel, c.OpenAIEmbedModel), nil

	case "anthropic", "claude":
		if c.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key not configured")
		}
		f.log.Infof("Using Anthropic provider with model %s", c.AnthropicModel)
		return NewAnthropicProvider(c.AnthropicAPIKey, c.AnthropicModel), nil

	case "gemini", "google":
		if c.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		f.log.Infof("Using Google Gemini provider with model %s", c.GeminiModel)
		return NewGeminiProvider(c.GeminiAPIKey, c.GeminiModel, c.GeminiEmbedModel), nil

	case "bedrock", "aws":
		f.log.Infof("Using AWS Bedrock provider with model %s in %s", c.BedrockModel, c.BedrockRegion)
		return NewBedrockProvider(ctx, c.BedrockRegion, c.BedrockModel, c.BedrockEmbedModel)

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: workersai, ollama, openai, anthropic, gemini, bedrock)", name)
	}
}
