package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/search"
)

type Searcher interface {
	Search(ctx context.Context, query string, limit int, filters search.Filters) ([]search.Hit, error)
}

// SearchHandler serves POST /api/search
type SearchHandler struct {
	svc Searcher
	log *logrus.Entry
}

func NewSearchHandler(svc Searcher, log *logrus.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, log: log.WithField("component", "search-api")}
}

func (h *SearchHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/search", h.Search)
}

type searchRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`
	Filters search.Filters `json:"filters"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.Limit > search.MaxLimit {
		respondError(c, h.log, badRequest("limit must be at most %d", search.MaxLimit))
		return
	}

	hits, err := h.svc.Search(c.Request.Context(), req.Query, req.Limit, req.Filters)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": hits, "total": len(hits)})
}
