package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// FeedbackUpdate carries the mutable workflow fields; nil means unchanged
type FeedbackUpdate struct {
	Status     *types.Status
	AssignedTo *string
	Product    *string
	Urgency    *int
	Themes     []string
}

// CreateFeedback persists a new item, assigning id and timestamps when unset
func (s *Store) CreateFeedback(ctx context.Context, item *types.FeedbackItem) error {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = types.StatusNew
	}

	if err := s.db.WithContext(ctx).Create(feedbackFromItem(item)).Error; err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// SaveFeedback overwrites every field of an existing item
func (s *Store) SaveFeedback(ctx context.Context, item *types.FeedbackItem) error {
	item.UpdatedAt = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&feedbackRecord{}).Where("id = ?", item.ID).
		Select("*").Omit("created_at").Updates(feedbackFromItem(item))
	if res.Error != nil {
		return fmt.Errorf("failed to save feedback %s: %w", item.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("feedback %s: %w", item.ID, types.ErrNotFound)
	}
	return nil
}

// GetFeedback loads one item by id
func (s *Store) GetFeedback(ctx context.Context, id string) (*types.FeedbackItem, error) {
	var rec feedbackRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "feedback", id)
	}
	item := rec.toItem()
	return &item, nil
}

// GetFeedbackByIDs loads items preserving the order of ids; unknown ids are skipped
func (s *Store) GetFeedbackByIDs(ctx context.Context, ids []string) ([]types.FeedbackItem, error) {
	if len(ids) == 0 {
		return []types.FeedbackItem{}, nil
	}

	var recs []feedbackRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load feedback batch: %w", err)
	}

	byID := make(map[string]*feedbackRecord, len(recs))
	for i := range recs {
		byID[recs[i].ID] = &recs[i]
	}

	out := make([]types.FeedbackItem, 0, len(recs))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec.toItem())
			delete(byID, id)
		}
	}
	return out, nil
}

// UpdateFeedback applies a partial update and returns the updated item
func (s *Store) UpdateFeedback(ctx context.Context, id string, upd FeedbackUpdate) (*types.FeedbackItem, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Status != nil {
		fields["status"] = string(*upd.Status)
	}
	if upd.AssignedTo != nil {
		fields["assigned_to"] = *upd.AssignedTo
	}
	if upd.Product != nil {
		fields["product"] = *upd.Product
	}
	if upd.Urgency != nil {
		fields["urgency"] = types.ClampUrgency(*upd.Urgency)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec feedbackRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return notFound(err, "feedback", id)
		}
		if upd.Themes != nil {
			rec.Themes = upd.Themes
			if err := tx.Model(&rec).Select("themes").Updates(&rec).Error; err != nil {
				return err
			}
		}
		return tx.Model(&feedbackRecord{}).Where("id = ?", id).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetFeedback(ctx, id)
}

// DeleteFeedback removes an item
func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&feedbackRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete feedback %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("feedback %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// ListFeedback returns one page of items matching the filter, newest first
func (s *Store) ListFeedback(ctx context.Context, filter types.FeedbackFilter, page types.Page) (types.PageResult[types.FeedbackItem], error) {
	page = page.Normalize()
	result := types.PageResult[types.FeedbackItem]{Page: page.Number, PageSize: page.Size, Data: []types.FeedbackItem{}}

	q := applyFeedbackFilter(s.db.WithContext(ctx).Model(&feedbackRecord{}), filter)
	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("failed to count feedback: %w", err)
	}

	var recs []feedbackRecord
	if err := q.Order("created_at DESC").Order("id").Offset(page.Offset()).Limit(page.Size).Find(&recs).Error; err != nil {
		return result, fmt.Errorf("failed to list feedback: %w", err)
	}
	for i := range recs {
		result.Data = append(result.Data, recs[i].toItem())
	}
	result.HasMore = int64(page.Offset()+len(recs)) < result.Total
	return result, nil
}

// FeedbackInWindow returns every item matching the filter, newest first
func (s *Store) FeedbackInWindow(ctx context.Context, filter types.FeedbackFilter) ([]types.FeedbackItem, error) {
	var recs []feedbackRecord
	q := applyFeedbackFilter(s.db.WithContext(ctx).Model(&feedbackRecord{}), filter)
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load feedback window: %w", err)
	}
	out := make([]types.FeedbackItem, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toItem())
	}
	return out, nil
}

// FeedbackWithTheme returns up to limit items tagged with theme, ordered by
// urgency descending then recency descending
func (s *Store) FeedbackWithTheme(ctx context.Context, theme string, filter types.FeedbackFilter, limit int) ([]types.FeedbackItem, error) {
	theme = strings.ToLower(strings.TrimSpace(theme))
	filter.Theme = theme
	var recs []feedbackRecord
	q := applyFeedbackFilter(s.db.WithContext(ctx).Model(&feedbackRecord{}), filter)
	if err := q.Order("urgency DESC").Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load feedback for theme %s: %w", theme, err)
	}

	// The LIKE prefilter can over-match, so confirm on the decoded tags
	out := make([]types.FeedbackItem, 0, limit)
	for i := range recs {
		item := recs[i].toItem()
		if !item.HasTheme(theme) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// FeedbackByCustomer returns a customer's most recent items
func (s *Store) FeedbackByCustomer(ctx context.Context, customerID string, limit int) ([]types.FeedbackItem, error) {
	var recs []feedbackRecord
	q := s.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load feedback for customer %s: %w", customerID, err)
	}
	out := make([]types.FeedbackItem, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toItem())
	}
	return out, nil
}

func applyFeedbackFilter(q *gorm.DB, f types.FeedbackFilter) *gorm.DB {
	if len(f.Sources) > 0 {
		q = q.Where("source IN ?", stringsOf(f.Sources))
	}
	if len(f.Products) > 0 {
		q = q.Where("product IN ?", f.Products)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", stringsOf(f.Statuses))
	}
	if len(f.Tiers) > 0 {
		q = q.Where("customer_tier IN ?", stringsOf(f.Tiers))
	}
	if f.UrgencyMin > 0 {
		q = q.Where("urgency >= ?", f.UrgencyMin)
	}
	if f.UrgencyMax > 0 {
		q = q.Where("urgency <= ?", f.UrgencyMax)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if theme := strings.ToLower(strings.TrimSpace(f.Theme)); theme != "" {
		q = q.Where("LOWER(themes) LIKE ?", "%\""+theme+"\"%")
	}
	if !f.Window.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Window.Since)
	}
	if !f.Window.Until.IsZero() {
		q = q.Where("created_at < ?", f.Window.Until)
	}
	return q
}

func stringsOf[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
