package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const alertRankOrder = "CASE type WHEN 'critical' THEN 1 WHEN 'warning' THEN 2 ELSE 3 END"

// CreateAlert persists an alert, assigning id and timestamp when unset
func (s *Store) CreateAlert(ctx context.Context, alert *types.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.FeedbackIDs == nil {
		alert.FeedbackIDs = []string{}
	}
	if err := s.db.WithContext(ctx).Create(alertFromType(alert)).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetAlert loads one alert
func (s *Store) GetAlert(ctx context.Context, id string) (*types.Alert, error) {
	var rec alertRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "alert", id)
	}
	a := rec.toAlert()
	return &a, nil
}

// ListAlerts returns alerts ordered critical, warning, info and newest first within a type
func (s *Store) ListAlerts(ctx context.Context, filter types.AlertFilter) ([]types.Alert, error) {
	q := applyAlertFilter(s.db.WithContext(ctx).Model(&alertRecord{}), filter)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []alertRecord
	if err := q.Order(alertRankOrder).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	out := make([]types.Alert, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toAlert())
	}
	return out, nil
}

// AcknowledgeAlert marks a single alert as acknowledged
func (s *Store) AcknowledgeAlert(ctx context.Context, id string) (*types.Alert, error) {
	err := s.db.WithContext(ctx).Model(&alertRecord{}).Where("id = ?", id).Update("acknowledged", true).Error
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	// Acknowledging twice is not an error; a missing id surfaces here
	return s.GetAlert(ctx, id)
}

// AcknowledgeAll acknowledges every open alert matching the filter and returns how many changed
func (s *Store) AcknowledgeAll(ctx context.Context, filter types.AlertFilter) (int64, error) {
	open := false
	filter.Acknowledged = &open
	res := applyAlertFilter(s.db.WithContext(ctx).Model(&alertRecord{}), filter).Update("acknowledged", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to acknowledge alerts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAlert removes an alert
func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&alertRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete alert %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("alert %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// UnacknowledgedCounts returns open alert counts keyed by type; every type is present
func (s *Store) UnacknowledgedCounts(ctx context.Context) (map[types.AlertType]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&alertRecord{}).
		Select("type, COUNT(*) AS count").
		Where("acknowledged = ?", false).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	counts := map[types.AlertType]int64{
		types.AlertCritical: 0,
		types.AlertWarning:  0,
		types.AlertInfo:     0,
	}
	for _, r := range rows {
		counts[types.AlertType(r.Type)] = r.Count
	}
	return counts, nil
}

// HasOpenAlert reports whether an unacknowledged alert of the type exists for product
func (s *Store) HasOpenAlert(ctx context.Context, alertType types.AlertType, product string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&alertRecord{}).
		Where("type = ? AND product = ? AND acknowledged = ?", string(alertType), product, false).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check open alerts: %w", err)
	}
	return n > 0, nil
}

// CountAlertsSince counts alerts of a type created in the window
func (s *Store) CountAlertsSince(ctx context.Context, alertType types.AlertType, w types.Window) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&alertRecord{}).Where("type = ?", string(alertType))
	q = applyWindow(q, w)
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

func applyAlertFilter(q *gorm.DB, f types.AlertFilter) *gorm.DB {
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Acknowledged != nil {
		q = q.Where("acknowledged = ?", *f.Acknowledged)
	}
	if f.Product != "" {
		q = q.Where("product = ?", f.Product)
	}
	return q
}

func applyWindow(q *gorm.DB, w types.Window) *gorm.DB {
	if !w.Since.IsZero() {
		q = q.Where("created_at >= ?", w.Since)
	}
	if !w.Until.IsZero() {
		q = q.Where("created_at < ?", w.Until)
	}
	return q
}
