package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/processor"
	"github.com/Shubhamjha-sj/signal/internal/search"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/store"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type FeedbackStore interface {
	ListFeedback(ctx context.Context, filter types.FeedbackFilter, page types.Page) (types.PageResult[types.FeedbackItem], error)
	GetFeedback(ctx context.Context, id string) (*types.FeedbackItem, error)
	UpdateFeedback(ctx context.Context, id string, upd store.FeedbackUpdate) (*types.FeedbackItem, error)
	DeleteFeedback(ctx context.Context, id string) error
}

type VectorDeleter interface {
	DeleteByIDs(ctx context.Context, ids []string) error
}

// Ingestor is the synchronous side of the ingest pipeline
type Ingestor interface {
	Process(ctx context.Context, msg queue.ProcessFeedback) (*processor.Outcome, error)
	Reclassify(ctx context.Context, id string) (*types.FeedbackItem, error)
	Backfill(ctx context.Context, ids []string) []processor.BackfillResult
}

type SimilarFinder interface {
	Similar(ctx context.Context, id string, limit int) ([]search.Hit, error)
}

// FeedbackHandler serves /api/feedback
type FeedbackHandler struct {
	store    FeedbackStore
	index    VectorDeleter
	ingestor Ingestor
	similar  SimilarFinder
	log      *logrus.Entry
}

// NewFeedbackHandler creates a feedback handler; index may be nil
func NewFeedbackHandler(st FeedbackStore, index VectorDeleter, ingestor Ingestor, similar SimilarFinder, log *logrus.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		store:    st,
		index:    index,
		ingestor: ingestor,
		similar:  similar,
		log:      log.WithField("component", "feedback-api"),
	}
}

func (h *FeedbackHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/feedback")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/backfill", h.Backfill)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/similar", h.Similar)
	g.POST("/:id/reclassify", h.Reclassify)
}

// List returns a filtered page of feedback, newest first
func (h *FeedbackHandler) List(c *gin.Context) {
	filter, err := feedbackFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	p, err := page(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.store.ListFeedback(c.Request.Context(), filter, p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func feedbackFilter(c *gin.Context) (types.FeedbackFilter, error) {
	var f types.FeedbackFilter
	for _, s := range listQuery(c, "source") {
		f.Sources = append(f.Sources, types.Source(strings.ToLower(s)))
	}
	f.Products = listQuery(c, "product")
	for _, s := range listQuery(c, "status") {
		st := types.Status(strings.ToLower(s))
		if !st.Valid() {
			return f, badRequest("unknown status %q", s)
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, t := range listQuery(c, "tier") {
		f.Tiers = append(f.Tiers, types.ParseTier(t))
	}

	var err error
	if f.UrgencyMin, err = intQuery(c, "urgency_min", 0); err != nil {
		return f, err
	}
	if f.UrgencyMax, err = intQuery(c, "urgency_max", 0); err != nil {
		return f, err
	}
	f.Search = strings.TrimSpace(c.Query("search"))
	f.Theme = strings.ToLower(strings.TrimSpace(c.Query("theme")))
	return f, nil
}

func (h *FeedbackHandler) Get(c *gin.Context) {
	item, err := h.store.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type createFeedbackRequest struct {
	Content      string         `json:"content"`
	Source       types.Source   `json:"source"`
	CustomerID   string         `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	CustomerTier string         `json:"customer_tier"`
	CustomerARR  int64          `json:"customer_arr"`
	Product      string         `json:"product"`
	Metadata     map[string]any `json:"metadata"`
}

// Create runs the ingest pipeline synchronously and returns the stored item
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req createFeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	source := types.Source(strings.ToLower(string(req.Source)))
	if !source.Valid() {
		respondError(c, h.log, badRequest("unknown source %q", req.Source))
		return
	}

	out, err := h.ingestor.Process(c.Request.Context(), queue.ProcessFeedback{
		Content:      req.Content,
		Source:       source,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		CustomerTier: types.ParseTier(req.CustomerTier),
		CustomerARR:  req.CustomerARR,
		Product:      req.Product,
		Metadata:     req.Metadata,
		ReceivedAt:   time.Now().UTC(),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type updateFeedbackRequest struct {
	Status     *types.Status `json:"status"`
	AssignedTo *string       `json:"assigned_to"`
	Product    *string       `json:"product"`
	Urgency    *int          `json:"urgency"`
}

func (h *FeedbackHandler) Update(c *gin.Context) {
	var req updateFeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		respondError(c, h.log, badRequest("unknown status %q", *req.Status))
		return
	}
	if req.Urgency != nil && (*req.Urgency < 1 || *req.Urgency > 10) {
		respondError(c, h.log, badRequest("urgency must be between 1 and 10"))
		return
	}

	item, err := h.store.UpdateFeedback(c.Request.Context(), c.Param("id"), store.FeedbackUpdate{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
		Product:    req.Product,
		Urgency:    req.Urgency,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete removes the record and its vector
func (h *FeedbackHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteFeedback(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	if h.index != nil {
		if err := h.index.DeleteByIDs(c.Request.Context(), []string{id}); err != nil {
			h.log.WithError(err).WithField("feedback_id", id).Warn("Failed to delete vector")
		}
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *FeedbackHandler) Similar(c *gin.Context) {
	limit, err := intQuery(c, "limit", 5)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	hits, err := h.similar.Similar(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hits})
}

func (h *FeedbackHandler) Reclassify(c *gin.Context) {
	item, err := h.ingestor.Reclassify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type backfillRequest struct {
	IDs []string `json:"ids"`
}

// Backfill reclassifies a batch; per-item failures are in the results
func (h *FeedbackHandler) Backfill(c *gin.Context) {
	var req backfillRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if len(req.IDs) == 0 {
		respondError(c, h.log, badRequest("ids must not be empty"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.ingestor.Backfill(c.Request.Context(), req.IDs)})
}
