package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/chat"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type ChatService interface {
	Send(ctx context.Context, conversationID, message string) (*chat.Reply, error)
	History(ctx context.Context, conversationID string) ([]types.Turn, error)
	Clear(ctx context.Context, conversationID string) error
	Summarize(ctx context.Context, ids []string) (*chat.Summary, error)
}

// ChatHandler serves /api/chat
type ChatHandler struct {
	svc ChatService
	log *logrus.Entry
}

func NewChatHandler(svc ChatService, log *logrus.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log.WithField("component", "chat-api")}
}

func (h *ChatHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/chat")
	g.POST("", h.Send)
	g.POST("/summarize", h.Summarize)
	g.GET("/:id/history", h.History)
	g.DELETE("/:id", h.Clear)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req chatRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	reply, err := h.svc.Send(c.Request.Context(), req.ConversationID, req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *ChatHandler) History(c *gin.Context) {
	id := c.Param("id")
	turns, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "messages": turns})
}

func (h *ChatHandler) Clear(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Clear(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": id})
}

type summarizeRequest struct {
	FeedbackIDs []string `json:"feedback_ids"`
}

func (h *ChatHandler) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	sum, err := h.svc.Summarize(c.Request.Context(), req.FeedbackIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
