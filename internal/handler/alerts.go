package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type AlertStore interface {
	CreateAlert(ctx context.Context, alert *types.Alert) error
	GetAlert(ctx context.Context, id string) (*types.Alert, error)
	ListAlerts(ctx context.Context, filter types.AlertFilter) ([]types.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) (*types.Alert, error)
	AcknowledgeAll(ctx context.Context, filter types.AlertFilter) (int64, error)
	DeleteAlert(ctx context.Context, id string) error
	UnacknowledgedCounts(ctx context.Context) (map[types.AlertType]int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, alert types.Alert) []types.NotificationResult
	Test(ctx context.Context) []types.NotificationResult
}

type AlertDetector interface {
	Run(ctx context.Context) ([]types.Alert, error)
}

// AlertsHandler serves /api/alerts
type AlertsHandler struct {
	store    AlertStore
	notifier Notifier
	detector AlertDetector
	log      *logrus.Entry
}

func NewAlertsHandler(st AlertStore, notifier Notifier, detector AlertDetector, log *logrus.Logger) *AlertsHandler {
	return &AlertsHandler{
		store:    st,
		notifier: notifier,
		detector: detector,
		log:      log.WithField("component", "alerts-api"),
	}
}

func (h *AlertsHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/alerts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/counts", h.Counts)
	g.POST("/acknowledge-all", h.AcknowledgeAll)
	g.POST("/test-notification", h.TestNotification)
	g.POST("/auto-detect", h.AutoDetect)
	g.GET("/:id", h.Get)
	g.POST("/:id/acknowledge", h.Acknowledge)
	g.DELETE("/:id", h.Delete)
}

func alertFilter(c *gin.Context) (types.AlertFilter, error) {
	var f types.AlertFilter
	if t := strings.ToLower(c.Query("type")); t != "" {
		f.Type = types.AlertType(t)
		if !f.Type.Valid() {
			return f, badRequest("unknown alert type %q", t)
		}
	}
	ack, err := boolQuery(c, "acknowledged")
	if err != nil {
		return f, err
	}
	f.Acknowledged = ack
	f.Product = c.Query("product")
	if f.Limit, err = intQuery(c, "limit", 50); err != nil {
		return f, err
	}
	return f, nil
}

// List returns alerts critical first, then newest first
func (h *AlertsHandler) List(c *gin.Context) {
	f, err := alertFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	alerts, err := h.store.ListAlerts(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (h *AlertsHandler) Get(c *gin.Context) {
	alert, err := h.store.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

type createAlertRequest struct {
	Type        types.AlertType `json:"type"`
	Message     string          `json:"message"`
	Product     string          `json:"product"`
	FeedbackIDs []string        `json:"feedback_ids"`
}

// Create stores a manual alert; critical alerts are sent to every channel
func (h *AlertsHandler) Create(c *gin.Context) {
	var req createAlertRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if !req.Type.Valid() {
		respondError(c, h.log, badRequest("unknown alert type %q", req.Type))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, h.log, badRequest("message is required"))
		return
	}

	alert := &types.Alert{
		Type:        req.Type,
		Message:     req.Message,
		Product:     req.Product,
		FeedbackIDs: req.FeedbackIDs,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateAlert(c.Request.Context(), alert); err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := gin.H{"alert": alert}
	if alert.Type == types.AlertCritical {
		resp["notifications"] = h.notifier.Notify(c.Request.Context(), *alert)
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AlertsHandler) Acknowledge(c *gin.Context) {
	alert, err := h.store.AcknowledgeAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// AcknowledgeAll acknowledges every open alert matching type and product
func (h *AlertsHandler) AcknowledgeAll(c *gin.Context) {
	f, err := alertFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	f.Acknowledged, f.Limit = nil, 0

	n, err := h.store.AcknowledgeAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": n})
}

func (h *AlertsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteAlert(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Counts returns open alerts per type
func (h *AlertsHandler) Counts(c *gin.Context) {
	counts, err := h.store.UnacknowledgedCounts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{
		"critical": counts[types.AlertCritical],
		"warning":  counts[types.AlertWarning],
		"info":     counts[types.AlertInfo],
		"total":    total,
	})
}

// TestNotification sends a test alert to every channel
func (h *AlertsHandler) TestNotification(c *gin.Context) {
	results := h.notifier.Test(c.Request.Context())
	out := make(map[string]gin.H, len(results))
	for _, r := range results {
		out[r.Channel] = gin.H{"success": r.Success, "error": r.Error}
	}
	c.JSON(http.StatusOK, out)
}

// AutoDetect sweeps recent feedback for alert patterns
func (h *AlertsHandler) AutoDetect(c *gin.Context) {
	created, err := h.detector.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts_created": len(created), "alerts": created})
}
