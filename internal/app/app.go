package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Shubhamjha-sj/signal/internal/alerting"
	"github.com/Shubhamjha-sj/signal/internal/analytics"
	"github.com/Shubhamjha-sj/signal/internal/chat"
	"github.com/Shubhamjha-sj/signal/internal/classifier"
	"github.com/Shubhamjha-sj/signal/internal/config"
	"github.com/Shubhamjha-sj/signal/internal/followup"
	"github.com/Shubhamjha-sj/signal/internal/handler"
	"github.com/Shubhamjha-sj/signal/internal/middleware"
	"github.com/Shubhamjha-sj/signal/internal/processor"
	"github.com/Shubhamjha-sj/signal/internal/rag"
	"github.com/Shubhamjha-sj/signal/internal/search"
	"github.com/Shubhamjha-sj/signal/internal/server"
	"github.com/Shubhamjha-sj/signal/internal/themes"
	"github.com/Shubhamjha-sj/signal/pkg/adapters"
	"github.com/Shubhamjha-sj/signal/pkg/conversation"
	"github.com/Shubhamjha-sj/signal/pkg/email"
	"github.com/Shubhamjha-sj/signal/pkg/llm"
	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/slack"
	"github.com/Shubhamjha-sj/signal/pkg/store"
	"github.com/Shubhamjha-sj/signal/pkg/vectorindex"
)

// vectorIndex is what the app needs from either index backend
type vectorIndex interface {
	vectorindex.Index
	Count(ctx context.Context) (int64, error)
}

// App holds all application dependencies
type App struct {
	Config        *config.Config
	Log           *logrus.Logger
	Gateway       *llm.Gateway
	Store         *store.Store
	Index         vectorIndex
	Conversations conversation.Store
	Publisher     queue.Publisher
	SlackClient   *slack.Client
	EmailClient   *email.SendGridClient
	Dispatcher    *alerting.Dispatcher
	Detector      *alerting.Detector
	Processor     *processor.FeedbackProcessor
	Chat          *chat.Service
	Analytics     *analytics.Service
	Search        *search.Service
	Adapters      *adapters.Registry
	RateLimiter   *middleware.RateLimiter

	consumer *queue.KafkaConsumer
	workers  []func(ctx context.Context)
	checks   map[string]handler.Check
	closers  []func() error
}

// New initializes a new application with all dependencies
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel)
	logger.Set(log)

	a := &App{Config: cfg, Log: log, checks: make(map[string]handler.Check)}

	if err := a.initGateway(ctx); err != nil {
		return nil, err
	}
	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.initQueue()
	a.initServices()

	return a, nil
}

func (a *App) initGateway(ctx context.Context) error {
	factory := llm.NewFactory(a.Config.LLMConfig(), a.Log)
	provider, err := factory.CreateProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to create llm provider: %w", err)
	}

	opts := []llm.GatewayOption{
		llm.WithLogger(a.Log),
		llm.WithCallBudget(a.Config.GatewayRPS, a.Config.GatewayBurst),
		llm.WithRetry(a.Config.RetryConfig()),
	}
	embedder, err := factory.CreateEmbedder(ctx, provider)
	if err != nil {
		a.Log.WithError(err).Warn("No embedding backend; semantic search and retrieval are degraded")
	} else {
		opts = append(opts, llm.WithEmbedder(embedder))
	}

	a.Gateway = llm.NewGateway(provider, opts...)
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	cfg := a.Config

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL, a.Log)
	if err != nil {
		return err
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)
	a.checks["database"] = func(context.Context) error { return st.Ping() }

	if cfg.DatabaseDriver == "postgres" {
		idx, err := vectorindex.Open(cfg.DatabaseURL, cfg.VectorTable, cfg.VectorDimensions, a.Log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, idx.Close)
		if err := idx.EnsureSchema(ctx); err != nil {
			return err
		}
		a.Index = idx
	} else {
		a.Log.Warn("Using in-memory vector index; embeddings are lost on restart")
		a.Index = vectorindex.NewMemoryIndex(cfg.VectorDimensions)
	}

	if cfg.RedisURL != "" {
		rs, err := conversation.NewRedisStore(cfg.RedisURL, cfg.ConversationTTL, a.Log)
		if err != nil {
			return err
		}
		a.Conversations = rs
		a.closers = append(a.closers, rs.Close)
		a.checks["redis"] = rs.Ping
	} else {
		ms := conversation.NewMemoryStore(cfg.ConversationTTL, a.Log)
		a.Conversations = ms
		a.workers = append(a.workers, func(ctx context.Context) { ms.Run(ctx, 10*time.Minute) })
	}
	return nil
}

func (a *App) initQueue() {
	if len(a.Config.KafkaBrokers) > 0 {
		producer := queue.NewKafkaProducer(a.Config.KafkaBrokers, a.Config.KafkaTopic, a.Log)
		a.Publisher = producer
		a.closers = append(a.closers, producer.Close)
		return
	}
	a.Publisher = queue.NewInline(a.Log)
	a.closers = append(a.closers, a.Publisher.Close)
}

func (a *App) initServices() {
	cfg, log := a.Config, a.Log

	a.SlackClient = slack.NewClient(cfg.SlackWebhookURL, cfg.SlackBotToken, cfg.SlackChannelID).
		WithDashboardURL(cfg.DashboardURL)
	a.EmailClient = email.NewSendGridClient(email.Config{
		APIKey: cfg.SendGridAPIKey,
		From:   cfg.EmailFrom,
		To:     cfg.EmailTo,
	})
	a.Dispatcher = alerting.NewDispatcher(log, a.SlackClient, a.EmailClient)
	a.Detector = alerting.NewDetector(a.Store, a.Dispatcher, log)

	a.Processor = processor.NewFeedbackProcessor(processor.Config{
		Classifier:  classifier.New(a.Gateway, log),
		Store:       a.Store,
		Embedder:    a.Gateway,
		Index:       a.Index,
		Engine:      alerting.NewEngine(),
		Dispatcher:  a.Dispatcher,
		Publisher:   a.Publisher,
		Concurrency: cfg.BatchConcurrency,
	}, log)

	switch p := a.Publisher.(type) {
	case *queue.Inline:
		p.SetHandler(a.Processor)
	case *queue.KafkaProducer:
		a.consumer = queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, a.Processor, log)
		a.closers = append(a.closers, a.consumer.Close)
	}

	themeEngine := themes.NewEngine(a.Store, cfg.ThemeNewThreshold, log)
	assembler := rag.NewAssembler(a.Gateway, a.Index, a.Store, themeEngine, a.Store, log)
	a.Chat = chat.NewService(a.Gateway, a.Conversations, followup.New(nil), assembler, a.Store, cfg.RAGTopK, log)
	a.Analytics = analytics.NewService(a.Store, themeEngine, log)
	a.Search = search.NewService(a.Gateway, a.Index, a.Store, log)

	a.Adapters = adapters.NewRegistry(cfg.WebhookSources, a.Store, log).
		WithGitHubSecret(cfg.GitHubWebhookSecret)
	a.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	a.workers = append(a.workers, func(ctx context.Context) { a.RateLimiter.Run(ctx, time.Minute) })
}

// Server builds the HTTP surface over the app's services
func (a *App) Server() *server.Server {
	log := a.Log
	return server.New(server.Options{
		Port:         a.Config.Port,
		APIAuthToken: a.Config.APIAuthToken,
		RateLimiter:  a.RateLimiter,
		Webhooks:     handler.NewWebhookHandler(a.Adapters, a.Publisher, log),
		Health:       handler.NewHealthHandler(a.checks),
		API: []server.Routes{
			handler.NewFeedbackHandler(a.Store, a.Index, a.Processor, a.Search, log),
			handler.NewAlertsHandler(a.Store, a.Dispatcher, a.Detector, log),
			handler.NewAnalyticsHandler(a.Analytics, log),
			handler.NewChatHandler(a.Chat, log),
			handler.NewSearchHandler(a.Search, log),
			handler.NewCustomersHandler(a.Store, log),
		},
	}, log)
}

// Run starts the background workers and the queue consumer, and blocks
// until ctx is done or the consumer fails
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range a.workers {
		w := w
		g.Go(func() error {
			w(ctx)
			return nil
		})
	}
	if a.consumer != nil {
		g.Go(func() error {
			if err := a.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("queue consumer stopped: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// LogStartupInfo logs application startup information
func (a *App) LogStartupInfo() {
	cfg := a.Config
	var sources []string
	for _, s := range adapters.AllSources {
		if a.Adapters.IsEnabled(s) {
			sources = append(sources, s)
		}
	}
	a.Log.WithFields(logrus.Fields{
		"port":      cfg.Port,
		"provider":  a.Gateway.Name(),
		"database":  cfg.DatabaseDriver,
		"webhooks":  sources,
		"rag_top_k": cfg.RAGTopK,
	}).Info("Starting Signal")

	if cfg.APIAuthToken != "" {
		a.Log.Info("API authentication: enabled (Bearer token required)")
	} else {
		a.Log.Warn("API authentication: disabled")
	}
	if cfg.GitHubWebhookSecret == "" {
		a.Log.Warn("GitHub webhook signatures are not verified")
	}

	if a.SlackClient.HasBotToken() {
		a.Log.Info("Slack notifications: enabled (bot token)")
	} else if a.SlackClient.IsConfigured() {
		a.Log.Info("Slack notifications: enabled (webhook)")
	} else {
		a.Log.Info("Slack notifications: disabled")
	}
	if a.EmailClient.IsConfigured() {
		a.Log.WithField("recipients", len(cfg.EmailTo)).Info("Email notifications: enabled")
	} else {
		a.Log.Info("Email notifications: disabled")
	}

	if a.consumer != nil {
		a.Log.WithField("topic", cfg.KafkaTopic).Info("Queue: kafka")
	} else {
		a.Log.Info("Queue: inline")
	}

	if n, err := a.Index.Count(context.Background()); err == nil {
		a.Log.WithField("vectors", n).Info("Vector index ready")
	}
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.WithError(err).Warn("Error during shutdown")
		}
	}
	a.closers = nil
}
