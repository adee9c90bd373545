package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Gateway is the Model Gateway: one generation provider plus embedding and
// sentiment backends, behind a shared call budget and retry policy.
// Every failure it returns wraps types.ErrModelUnavailable or types.ErrParseFailure.
type Gateway struct {
	provider  Provider
	embedder  Embedder
	sentiment SentimentClassifier
	limiter   *rate.Limiter
	retry     RetryConfig
	log       *logrus.Entry
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithEmbedder sets the embedding backend
func WithEmbedder(e Embedder) GatewayOption {
	return func(g *Gateway) { g.embedder = e }
}

// WithSentiment sets the sentiment backend
func WithSentiment(s SentimentClassifier) GatewayOption {
	return func(g *Gateway) { g.sentiment = s }
}

// WithCallBudget limits calls to rps per second with the given burst
func WithCallBudget(rps float64, burst int) GatewayOption {
	return func(g *Gateway) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry overrides the retry policy
func WithRetry(cfg RetryConfig) GatewayOption {
	return func(g *Gateway) { g.retry = cfg }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) GatewayOption {
	return func(g *Gateway) { g.log = l.WithField("component", "gateway") }
}

// NewGateway wraps provider. When the provider can also embed or score
// sentiment it is used for those unless overridden; sentiment otherwise
// falls back to prompting the provider.
func NewGateway(provider Provider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider: provider,
		retry:    DefaultRetryConfig(),
		log:      logrus.StandardLogger().WithField("component", "gateway"),
	}
	if e, ok := provider.(Embedder); ok {
		g.embedder = e
	}
	if s, ok := provider.(SentimentClassifier); ok {
		g.sentiment = s
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.sentiment == nil && provider != nil {
		g.sentiment = NewPromptSentimentClassifier(provider)
	}
	return g
}

// Name returns the generation provider name
func (g *Gateway) Name() string {
	if g.provider == nil {
		return "none"
	}
	return g.provider.Name()
}

// Generate returns a single completion
func (g *Gateway) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if g.provider == nil {
		return "", fmt.Errorf("%w: %w", types.ErrModelUnavailable, types.ErrNotConfigured)
	}
	var out string
	err := g.call(ctx, "generate", func() error {
		var err error
		out, err = g.provider.Generate(ctx, messages, maxTokens)
		return err
	})
	return out, err
}

// Embed returns the embedding for text
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider: %w", types.ErrModelUnavailable, types.ErrNotConfigured)
	}
	var out []float32
	err := g.call(ctx, "embed", func() error {
		var err error
		out, err = g.embedder.Embed(ctx, text)
		return err
	})
	return out, err
}

// ClassifySentiment returns label/score pairs for text
func (g *Gateway) ClassifySentiment(ctx context.Context, text string) ([]SentimentScore, error) {
	if g.sentiment == nil {
		return nil, fmt.Errorf("%w: no sentiment provider: %w", types.ErrModelUnavailable, types.ErrNotConfigured)
	}
	var out []SentimentScore
	err := g.call(ctx, "sentiment", func() error {
		var err error
		out, err = g.sentiment.ClassifySentiment(ctx, text)
		return err
	})
	return out, err
}

func (g *Gateway) call(ctx context.Context, op string, fn func() error) error {
	err := retry(ctx, g.retry, g.log, op, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("call budget: %w", err)
			}
		}
		return fn()
	})

	switch {
	case err == nil:
		metrics.GatewayCalls.WithLabelValues(g.Name(), op, "ok").Inc()
		return nil
	case errors.Is(err, types.ErrParseFailure):
		metrics.GatewayCalls.WithLabelValues(g.Name(), op, "parse_failure").Inc()
		return err
	default:
		metrics.GatewayCalls.WithLabelValues(g.Name(), op, "error").Inc()
		return fmt.Errorf("%w: %w", types.ErrModelUnavailable, err)
	}
}
