package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// WindowStats summarizes feedback volume and severity over a window
type WindowStats struct {
	Total              int64   `json:"total_feedback"`
	AvgSentiment       float64 `json:"avg_sentiment"`
	Critical           int64   `json:"critical"` // items with urgency >= 8
	EnterpriseAffected int64   `json:"enterprise_affected"`
}

// ProductCount is one row of the per-product breakdown
type ProductCount struct {
	Product      string
	Count        int64
	AvgSentiment float64
}

// SourceCount is one row of the per-source breakdown
type SourceCount struct {
	Source string
	Count  int64
}

// SentimentCounts buckets items as positive (> 0.3), negative (< -0.3) or neutral
type SentimentCounts struct {
	Positive int64
	Neutral  int64
	Negative int64
}

// Stats computes WindowStats for the window
func (s *Store) Stats(ctx context.Context, w types.Window) (WindowStats, error) {
	var row struct {
		Total              int64
		AvgSentiment       *float64
		Critical           int64
		EnterpriseAffected int64
	}
	q := s.db.WithContext(ctx).Model(&feedbackRecord{}).Select(`
		COUNT(*) AS total,
		AVG(sentiment) AS avg_sentiment,
		COUNT(CASE WHEN urgency >= 8 THEN 1 END) AS critical,
		COUNT(DISTINCT CASE WHEN customer_tier = 'enterprise' THEN customer_id END) AS enterprise_affected`)
	if err := applyWindow(q, w).Scan(&row).Error; err != nil {
		return WindowStats{}, fmt.Errorf("failed to compute stats: %w", err)
	}

	stats := WindowStats{Total: row.Total, Critical: row.Critical, EnterpriseAffected: row.EnterpriseAffected}
	if row.AvgSentiment != nil {
		stats.AvgSentiment = *row.AvgSentiment
	}
	return stats, nil
}

// ProductCounts groups the window by product, largest first; items without a product are excluded
func (s *Store) ProductCounts(ctx context.Context, w types.Window) ([]ProductCount, error) {
	var rows []ProductCount
	q := s.db.WithContext(ctx).Model(&feedbackRecord{}).
		Select("product, COUNT(*) AS count, AVG(sentiment) AS avg_sentiment").
		Where("product <> ''")
	err := applyWindow(q, w).Group("product").Order("count DESC").Order("product").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group by product: %w", err)
	}
	return rows, nil
}

// SourceCounts groups the window by source, largest first
func (s *Store) SourceCounts(ctx context.Context, w types.Window) ([]SourceCount, error) {
	var rows []SourceCount
	q := s.db.WithContext(ctx).Model(&feedbackRecord{}).Select("source, COUNT(*) AS count")
	if err := applyWindow(q, w).Group("source").Order("count DESC").Order("source").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group by source: %w", err)
	}
	return rows, nil
}

// SentimentCounts buckets the window by sentiment polarity
func (s *Store) SentimentCounts(ctx context.Context, w types.Window) (SentimentCounts, error) {
	var out SentimentCounts
	q := s.db.WithContext(ctx).Model(&feedbackRecord{}).Select(`
		COUNT(CASE WHEN sentiment > 0.3 THEN 1 END) AS positive,
		COUNT(CASE WHEN sentiment >= -0.3 AND sentiment <= 0.3 THEN 1 END) AS neutral,
		COUNT(CASE WHEN sentiment < -0.3 THEN 1 END) AS negative`)
	if err := applyWindow(q, w).Scan(&out).Error; err != nil {
		return out, fmt.Errorf("failed to bucket sentiment: %w", err)
	}
	return out, nil
}

// TopIssue returns the latest item for product with urgency >= 7, or nil
func (s *Store) TopIssue(ctx context.Context, product string, w types.Window) (*types.FeedbackItem, error) {
	var rec feedbackRecord
	q := s.db.WithContext(ctx).Where("product = ? AND urgency >= ?", product, 7)
	err := applyWindow(q, w).Order("created_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load top issue for %s: %w", product, err)
	}
	item := rec.toItem()
	return &item, nil
}
