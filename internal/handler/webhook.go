package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/adapters"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
)

// maxWebhookBody caps a single delivery
const maxWebhookBody = 1 << 20

type WebhookConverter interface {
	Convert(ctx context.Context, req adapters.Request) (*adapters.Result, error)
	Status() map[string]adapters.SourceStatus
}

// WebhookHandler accepts source webhooks and queues their feedback
type WebhookHandler struct {
	registry  WebhookConverter
	publisher queue.Publisher
	log       *logrus.Entry
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(registry WebhookConverter, publisher queue.Publisher, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry:  registry,
		publisher: publisher,
		log:       log.WithField("component", "webhooks"),
	}
}

func (h *WebhookHandler) Register(r gin.IRouter) {
	g := r.Group("/webhooks")
	g.GET("/status", h.Status)
	g.POST("/:source", h.HandleWebhook)
}

// HandleWebhook converts a delivery and queues each feedback message.
// Processing happens off the request path.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	source := c.Param("source")
	log := h.log.WithField("source", source)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.WithError(err).Warn("Failed to read request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	result, err := h.registry.Convert(c.Request.Context(), adapters.Request{
		Source:    source,
		Event:     c.GetHeader("X-GitHub-Event"),
		Signature: c.GetHeader("X-Hub-Signature-256"),
		Body:      body,
	})
	if err != nil {
		log.WithError(err).Warn("Rejected webhook")
		respondError(c, h.log, err)
		return
	}

	if result.Reply != nil {
		c.JSON(http.StatusOK, result.Reply)
		return
	}
	if result.Ignored != "" {
		log.WithField("reason", result.Ignored).Debug("Ignored webhook")
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": result.Ignored})
		return
	}

	queued := 0
	for _, msg := range result.Messages {
		if err := h.publisher.Publish(c.Request.Context(), msg); err != nil {
			log.WithError(err).Error("Failed to queue feedback")
			continue
		}
		queued++
	}
	if queued == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue feedback"})
		return
	}

	log.WithField("queued", queued).Info("Received webhook")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "queued": queued})
}

// Status lists every source and whether it is enabled
func (h *WebhookHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"adapters": h.registry.Status()})
}
