package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/analytics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type Analytics interface {
	Summary(ctx context.Context, r types.TimeRange) (*analytics.Summary, error)
	Themes(ctx context.Context, r types.TimeRange, limit int) ([]types.Theme, error)
	Products(ctx context.Context, r types.TimeRange) ([]analytics.ProductBreakdown, error)
	Sources(ctx context.Context, r types.TimeRange) ([]analytics.SourceBreakdown, error)
	Sentiment(ctx context.Context, r types.TimeRange) (*analytics.SentimentBreakdown, error)
	Trends(ctx context.Context, r types.TimeRange, metric string) (*analytics.Trend, error)
}

// AnalyticsHandler serves /api/analytics
type AnalyticsHandler struct {
	svc Analytics
	log *logrus.Entry
}

func NewAnalyticsHandler(svc Analytics, log *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, log: log.WithField("component", "analytics-api")}
}

func (h *AnalyticsHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/analytics")
	g.GET("/summary", h.Summary)
	g.GET("/themes", h.Themes)
	g.GET("/products", h.Products)
	g.GET("/sources", h.Sources)
	g.GET("/sentiment", h.Sentiment)
	g.GET("/trends", h.Trends)
}

// serve parses time_range and writes whatever fn returns
func (h *AnalyticsHandler) serve(c *gin.Context, fn func(r types.TimeRange) (any, error)) {
	r, err := timeRange(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := fn(r)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	h.serve(c, func(r types.TimeRange) (any, error) { return h.svc.Summary(c.Request.Context(), r) })
}

func (h *AnalyticsHandler) Themes(c *gin.Context) {
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.serve(c, func(r types.TimeRange) (any, error) {
		themes, err := h.svc.Themes(c.Request.Context(), r, limit)
		return gin.H{"themes": themes}, err
	})
}

func (h *AnalyticsHandler) Products(c *gin.Context) {
	h.serve(c, func(r types.TimeRange) (any, error) {
		products, err := h.svc.Products(c.Request.Context(), r)
		return gin.H{"products": products}, err
	})
}

func (h *AnalyticsHandler) Sources(c *gin.Context) {
	h.serve(c, func(r types.TimeRange) (any, error) {
		sources, err := h.svc.Sources(c.Request.Context(), r)
		return gin.H{"sources": sources}, err
	})
}

func (h *AnalyticsHandler) Sentiment(c *gin.Context) {
	h.serve(c, func(r types.TimeRange) (any, error) { return h.svc.Sentiment(c.Request.Context(), r) })
}

func (h *AnalyticsHandler) Trends(c *gin.Context) {
	h.serve(c, func(r types.TimeRange) (any, error) {
		return h.svc.Trends(c.Request.Context(), r, c.Query("metric"))
	})
}
