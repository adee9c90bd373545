package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/types"
	"github.com/Shubhamjha-sj/signal/pkg/vectorindex"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

var ErrEmptyQuery = errors.New("query must not be empty")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]vectorindex.Match, error)
}

type FeedbackLoader interface {
	GetFeedback(ctx context.Context, id string) (*types.FeedbackItem, error)
	GetFeedbackByIDs(ctx context.Context, ids []string) ([]types.FeedbackItem, error)
}

// Filters restrict a search to matching index metadata
type Filters struct {
	Source       string `json:"source,omitempty"`
	Product      string `json:"product,omitempty"`
	CustomerTier string `json:"customer_tier,omitempty"`
}

func (f Filters) metadata() map[string]any {
	m := make(map[string]any)
	if f.Source != "" {
		m["source"] = f.Source
	}
	if f.Product != "" {
		m["product"] = f.Product
	}
	if f.CustomerTier != "" {
		m["customer_tier"] = f.CustomerTier
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Hit is a resolved feedback item with its similarity score
type Hit struct {
	types.FeedbackItem
	Score float64 `json:"score"`
}

// Service answers semantic queries over the vector index
type Service struct {
	embedder Embedder
	index    VectorIndex
	feedback FeedbackLoader
	log      *logrus.Entry
}

func NewService(embedder Embedder, index VectorIndex, feedback FeedbackLoader, log *logrus.Logger) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		feedback: feedback,
		log:      log.WithField("component", "search"),
	}
}

// Search embeds the query and returns up to limit items, best match first
func (s *Service) Search(ctx context.Context, query string, limit int, filters Filters) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit = clampLimit(limit)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	matches, err := s.index.Query(ctx, vec, limit, filters.metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	return s.resolve(ctx, matches, "")
}

// Similar returns items near an existing one, never the item itself
func (s *Service) Similar(ctx context.Context, id string, limit int) ([]Hit, error) {
	item, err := s.feedback.GetFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	vec, err := s.embedder.Embed(ctx, item.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed feedback %s: %w", id, err)
	}
	// one extra slot since the item usually matches itself
	matches, err := s.index.Query(ctx, vec, limit+1, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	hits, err := s.resolve(ctx, matches, id)
	if err != nil {
		return nil, err
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Service) resolve(ctx context.Context, matches []vectorindex.Match, exclude string) ([]Hit, error) {
	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		if m.ID == exclude {
			continue
		}
		if _, dup := scores[m.ID]; dup {
			continue
		}
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}
	if len(ids) == 0 {
		return []Hit{}, nil
	}

	items, err := s.feedback.GetFeedbackByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	if len(items) < len(ids) {
		s.log.WithFields(logrus.Fields{
			"matches":  len(ids),
			"resolved": len(items),
		}).Warn("Index returned ids missing from the record store")
	}

	hits := make([]Hit, 0, len(items))
	for _, it := range items {
		hits = append(hits, Hit{FeedbackItem: it, Score: scores[it.ID]})
	}
	return hits, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
