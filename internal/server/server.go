package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/handler"
	"github.com/Shubhamjha-sj/signal/internal/middleware"
)

// Routes is one API area mounted under /api
type Routes interface {
	Register(rg *gin.RouterGroup)
}

// Options configures the HTTP surface
type Options struct {
	Port         string
	APIAuthToken string
	RateLimiter  *middleware.RateLimiter // nil disables rate limiting
	Webhooks     *handler.WebhookHandler
	Health       *handler.HealthHandler
	API          []Routes
}

// Server wraps the HTTP server
type Server struct {
	port   string
	engine *gin.Engine
	http   *http.Server
	log    *logrus.Entry
}

// New creates a new HTTP server with every route registered
func New(opts Options, log *logrus.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger(log))

	s := &Server{
		port:   opts.Port,
		engine: engine,
		log:    log.WithField("component", "server"),
	}
	s.setupRoutes(opts)
	s.http = &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes(opts Options) {
	if opts.Health != nil {
		s.engine.GET("/health", opts.Health.HandleHealth)
	}
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := []gin.HandlerFunc{}
	if opts.RateLimiter != nil {
		limited = append(limited, opts.RateLimiter.Middleware())
	}

	if opts.Webhooks != nil {
		opts.Webhooks.Register(s.engine.Group("", limited...))
	}

	api := s.engine.Group("/api", append(limited, middleware.BearerAuth(opts.APIAuthToken))...)
	for _, r := range opts.API {
		r.Register(api)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.WithField("port", s.port).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
