package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Shubhamjha-sj/signal/pkg/llm"
)

// Config holds all application configuration
type Config struct {
	Port     string
	LogLevel string

	// Model gateway
	LLMProvider           string // "workersai", "ollama", "openai", "anthropic", "gemini", "bedrock"
	EmbeddingProvider     string // empty means same as LLMProvider
	CloudflareAccountID   string
	CloudflareAPIToken    string
	WorkersTextModel      string
	WorkersEmbedModel     string
	WorkersSentimentModel string
	OllamaURL             string
	OllamaModel           string
	OllamaEmbedModel      string
	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIEmbedModel      string
	AnthropicAPIKey       string
	AnthropicModel        string
	GeminiAPIKey          string
	GeminiModel           string
	GeminiEmbedModel      string
	BedrockRegion         string
	BedrockModel          string
	BedrockEmbedModel     string
	GatewayRPS            float64
	GatewayBurst          int
	GatewayMaxAttempts    int

	// Storage
	DatabaseDriver   string // "postgres" or "sqlite"
	DatabaseURL      string
	VectorTable      string
	VectorDimensions int
	RedisURL         string
	ConversationTTL  time.Duration

	// Queue
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Notifications
	SlackWebhookURL string
	SlackBotToken   string
	SlackChannelID  string
	SendGridAPIKey  string
	EmailFrom       string
	EmailTo         []string
	DashboardURL    string

	// HTTP surface
	APIAuthToken        string   // empty disables bearer auth on /api
	WebhookSources      []string // empty enables every adapter
	GitHubWebhookSecret string

	// Engines
	BatchConcurrency  int
	RAGTopK           int
	ThemeNewThreshold int
	RateLimitRPS      float64
	RateLimitBurst    int
}

var knownProviders = map[string]bool{
	"workersai": true, "cloudflare": true,
	"ollama":    true,
	"openai":    true,
	"anthropic": true, "claude": true,
	"gemini": true, "google": true,
	"bedrock": true, "aws": true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("llm.provider", "workersai")
	v.SetDefault("embedding.provider", "")
	v.SetDefault("cloudflare.account.id", "")
	v.SetDefault("cloudflare.api.token", "")
	v.SetDefault("workers.text.model", "@cf/meta/llama-3.1-8b-instruct")
	v.SetDefault("workers.embed.model", "@cf/baai/bge-base-en-v1.5")
	v.SetDefault("workers.sentiment.model", "@cf/huggingface/distilbert-sst-2-int8")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("ollama.embed.model", "nomic-embed-text")
	v.SetDefault("openai.api.key", "")
	v.SetDefault("openai.model", "gpt-4-turbo-preview")
	v.SetDefault("openai.embed.model", "text-embedding-3-small")
	v.SetDefault("anthropic.api.key", "")
	v.SetDefault("anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("gemini.api.key", "")
	v.SetDefault("gemini.model", "gemini-1.5-pro")
	v.SetDefault("gemini.embed.model", "text-embedding-004")
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model", "anthropic.claude-3-5-sonnet-20241022-v2:0")
	v.SetDefault("bedrock.embed.model", "amazon.titan-embed-text-v2:0")
	v.SetDefault("gateway.rps", 10.0)
	v.SetDefault("gateway.burst", 20)
	v.SetDefault("gateway.max.attempts", 3)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("vector.table", "feedback_vectors")
	v.SetDefault("vector.dimensions", 768)
	v.SetDefault("redis.url", "")
	v.SetDefault("conversation.ttl", "24h")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "signal-feedback")
	v.SetDefault("kafka.group.id", "signal")

	v.SetDefault("slack.webhook.url", "")
	v.SetDefault("slack.bot.token", "")
	v.SetDefault("slack.channel.id", "")
	v.SetDefault("sendgrid.api.key", "")
	v.SetDefault("email.from", "alerts@signal.local")
	v.SetDefault("email.to", "")
	v.SetDefault("dashboard.url", "")

	v.SetDefault("api.auth.token", "")
	v.SetDefault("webhook.sources", "")
	v.SetDefault("github.webhook.secret", "")

	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("rag.top.k", 8)
	v.SetDefault("theme.new.threshold", 50)
	v.SetDefault("ratelimit.rps", 20.0)
	v.SetDefault("ratelimit.burst", 40)
}

// LoadConfig reads an optional .env and config.yaml, then the environment.
// Keys map to env names by upper-casing and replacing "." with "_",
// e.g. llm.provider -> LLM_PROVIDER.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development
	_ = godotenv.Load()
	return load(viper.New(), ".")
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log.level"),

		LLMProvider:           strings.ToLower(v.GetString("llm.provider")),
		EmbeddingProvider:     strings.ToLower(v.GetString("embedding.provider")),
		CloudflareAccountID:   v.GetString("cloudflare.account.id"),
		CloudflareAPIToken:    v.GetString("cloudflare.api.token"),
		WorkersTextModel:      v.GetString("workers.text.model"),
		WorkersEmbedModel:     v.GetString("workers.embed.model"),
		WorkersSentimentModel: v.GetString("workers.sentiment.model"),
		OllamaURL:             v.GetString("ollama.url"),
		OllamaModel:           v.GetString("ollama.model"),
		OllamaEmbedModel:      v.GetString("ollama.embed.model"),
		OpenAIAPIKey:          v.GetString("openai.api.key"),
		OpenAIModel:           v.GetString("openai.model"),
		OpenAIEmbedModel:      v.GetString("openai.embed.model"),
		AnthropicAPIKey:       v.GetString("anthropic.api.key"),
		AnthropicModel:        v.GetString("anthropic.model"),
		GeminiAPIKey:          v.GetString("gemini.api.key"),
		GeminiModel:           v.GetString("gemini.model"),
		GeminiEmbedModel:      v.GetString("gemini.embed.model"),
		BedrockRegion:         v.GetString("bedrock.region"),
		BedrockModel:          v.GetString("bedrock.model"),
		BedrockEmbedModel:     v.GetString("bedrock.embed.model"),
		GatewayRPS:            v.GetFloat64("gateway.rps"),
		GatewayBurst:          v.GetInt("gateway.burst"),
		GatewayMaxAttempts:    v.GetInt("gateway.max.attempts"),

		DatabaseDriver:   strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:      v.GetString("database.url"),
		VectorTable:      v.GetString("vector.table"),
		VectorDimensions: v.GetInt("vector.dimensions"),
		RedisURL:         v.GetString("redis.url"),
		ConversationTTL:  v.GetDuration("conversation.ttl"),

		KafkaBrokers: splitList(v.GetString("kafka.brokers")),
		KafkaTopic:   v.GetString("kafka.topic"),
		KafkaGroupID: v.GetString("kafka.group.id"),

		SlackWebhookURL: v.GetString("slack.webhook.url"),
		SlackBotToken:   v.GetString("slack.bot.token"),
		SlackChannelID:  v.GetString("slack.channel.id"),
		SendGridAPIKey:  v.GetString("sendgrid.api.key"),
		EmailFrom:       v.GetString("email.from"),
		EmailTo:         splitList(v.GetString("email.to")),
		DashboardURL:    v.GetString("dashboard.url"),

		APIAuthToken:        v.GetString("api.auth.token"),
		WebhookSources:      splitList(v.GetString("webhook.sources")),
		GitHubWebhookSecret: v.GetString("github.webhook.secret"),

		BatchConcurrency:  v.GetInt("batch.concurrency"),
		RAGTopK:           v.GetInt("rag.top.k"),
		ThemeNewThreshold: v.GetInt("theme.new.threshold"),
		RateLimitRPS:      v.GetFloat64("ratelimit.rps"),
		RateLimitBurst:    v.GetInt("ratelimit.burst"),
	}

	return cfg, nil
}

// splitList parses a comma separated value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports configuration that cannot work at all. Missing optional
// collaborators (slack, email, redis, kafka) are not errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if !knownProviders[c.LLMProvider] {
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLMProvider))
	}
	if c.EmbeddingProvider != "" && !knownProviders[c.EmbeddingProvider] {
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider))
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DatabaseDriver))
	}
	if c.BatchConcurrency < 1 {
		errs = append(errs, errors.New("batch concurrency must be at least 1"))
	}
	if c.RAGTopK < 1 {
		errs = append(errs, errors.New("rag top k must be at least 1"))
	}
	if c.VectorDimensions < 1 {
		errs = append(errs, errors.New("vector dimensions must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// LLMConfig projects the gateway settings for the llm factory
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:            c.LLMProvider,
		EmbeddingProvider:   c.EmbeddingProvider,
		CloudflareAccountID: c.CloudflareAccountID,
		CloudflareAPIToken:  c.CloudflareAPIToken,
		WorkersTextModel:    c.WorkersTextModel,
		WorkersEmbedModel:   c.WorkersEmbedModel,
		WorkersSentiment:    c.WorkersSentimentModel,
		OllamaURL:           c.OllamaURL,
		OllamaModel:         c.OllamaModel,
		OllamaEmbedModel:    c.OllamaEmbedModel,
		OpenAIAPIKey:        c.OpenAIAPIKey,
		OpenAIModel:         c.OpenAIModel,
		OpenAIEmbedModel:    c.OpenAIEmbedModel,
		AnthropicAPIKey:     c.AnthropicAPIKey,
		AnthropicModel:      c.AnthropicModel,
		GeminiAPIKey:        c.GeminiAPIKey,
		GeminiModel:         c.GeminiModel,
		GeminiEmbedModel:    c.GeminiEmbedModel,
		BedrockRegion:       c.BedrockRegion,
		BedrockModel:        c.BedrockModel,
		BedrockEmbedModel:   c.BedrockEmbedModel,
	}
}

// RetryConfig returns the gateway retry policy
func (c *Config) RetryConfig() llm.RetryConfig {
	rc := llm.DefaultRetryConfig()
	if c.GatewayMaxAttempts > 0 {
		rc.MaxAttempts = c.GatewayMaxAttempts
	}
	return rc
}
