package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	require.NoError(t, err)

	s, err := New(db, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store, items ...types.FeedbackItem) {
	t.Helper()
	for i := range items {
		require.NoError(t, s.CreateFeedback(context.Background(), &items[i]))
	}
}

func TestStore_FeedbackCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := types.FeedbackItem{
		Content:  "Workers deploys are timing out",
		Source:   types.SourceGitHub,
		Urgency:  8,
		Product:  "workers",
		Themes:   []string{"performance", "reliability"},
		Metadata: map[string]any{"issue": float64(42)},
	}
	require.NoError(t, s.CreateFeedback(ctx, &item))
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, types.StatusNew, item.Status)

	got, err := s.GetFeedback(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Content, got.Content)
	assert.Equal(t, []string{"performance", "reliability"}, got.Themes)
	assert.Equal(t, float64(42), got.Metadata["issue"])

	status := types.StatusInProgress
	urgency := 15
	updated, err := s.UpdateFeedback(ctx, item.ID, FeedbackUpdate{Status: &status, Urgency: &urgency})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, updated.Status)
	assert.Equal(t, 10, updated.Urgency)

	require.NoError(t, s.DeleteFeedback(ctx, item.ID))
	_, err = s.GetFeedback(ctx, item.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, s.DeleteFeedback(ctx, item.ID), types.ErrNotFound)
}

func TestStore_ListFeedbackFiltersAndPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	var items []types.FeedbackItem
	for i := 0; i < 5; i++ {
		items = append(items, types.FeedbackItem{
			Content:   fmt.Sprintf("R2 upload failure %d", i),
			Source:    types.SourceDiscord,
			Product:   "r2",
			Urgency:   i + 3,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	items = append(items, types.FeedbackItem{Content: "Love the docs", Source: types.SourceTwitter, Urgency: 2, CreatedAt: base})
	seed(t, s, items...)

	page, err := s.ListFeedback(ctx, types.FeedbackFilter{Products: []string{"r2"}, UrgencyMin: 5}, types.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "R2 upload failure 4", page.Data[0].Content)

	page, err = s.ListFeedback(ctx, types.FeedbackFilter{Search: "DOCS"}, types.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.False(t, page.HasMore)
	assert.Equal(t, 20, page.PageSize)
}

func TestStore_FeedbackWithThemeOrdersByUrgencyThenRecency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed(t, s,
		types.FeedbackItem{ID: "old-high", Content: "a", Urgency: 9, Themes: []string{"bug"}, CreatedAt: now.Add(-3 * time.Hour)},
		types.FeedbackItem{ID: "new-high", Content: "b", Urgency: 9, Themes: []string{"Bug"}, CreatedAt: now.Add(-time.Hour)},
		types.FeedbackItem{ID: "low", Content: "c", Urgency: 2, Themes: []string{"bug", "pricing"}, CreatedAt: now},
		types.FeedbackItem{ID: "other", Content: "d", Urgency: 10, Themes: []string{"debugging"}, CreatedAt: now},
	)

	got, err := s.FeedbackWithTheme(ctx, "bug", types.FeedbackFilter{}, 5)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, f := range got {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"new-high", "old-high", "low"}, ids)
}

func TestStore_GetFeedbackByIDsPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		types.FeedbackItem{ID: "a", Content: "a"},
		types.FeedbackItem{ID: "b", Content: "b"},
	)

	got, err := s.GetFeedbackByIDs(context.Background(), []string{"b", "missing", "a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestStore_Alerts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alerts := []types.Alert{
		{ID: "i1", Type: types.AlertInfo, Message: "info", Product: "workers", CreatedAt: now},
		{ID: "c1", Type: types.AlertCritical, Message: "old critical", Product: "r2", CreatedAt: now.Add(-time.Hour)},
		{ID: "w1", Type: types.AlertWarning, Message: "warn", Product: "r2", CreatedAt: now},
		{ID: "c2", Type: types.AlertCritical, Message: "new critical", Product: "workers", FeedbackIDs: []string{"f1"}, CreatedAt: now},
	}
	for i := range alerts {
		require.NoError(t, s.CreateAlert(ctx, &alerts[i]))
	}

	list, err := s.ListAlerts(ctx, types.AlertFilter{})
	require.NoError(t, err)
	var order []string
	for _, a := range list {
		order = append(order, a.ID)
	}
	assert.Equal(t, []string{"c2", "c1", "w1", "i1"}, order)
	assert.Equal(t, []string{"f1"}, list[0].FeedbackIDs)

	open, err := s.HasOpenAlert(ctx, types.AlertCritical, "r2")
	require.NoError(t, err)
	assert.True(t, open)

	acked, err := s.AcknowledgeAlert(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)

	n, err := s.AcknowledgeAll(ctx, types.AlertFilter{Product: "workers"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := s.UnacknowledgedCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.AlertType]int64{types.AlertCritical: 0, types.AlertWarning: 1, types.AlertInfo: 0}, counts)

	_, err = s.AcknowledgeAlert(ctx, "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	require.NoError(t, s.DeleteAlert(ctx, "w1"))
	assert.ErrorIs(t, s.DeleteAlert(ctx, "w1"), types.ErrNotFound)
}

func TestStore_CustomersAndDomainLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := types.Customer{Name: "Acme", Tier: types.TierEnterprise, ARR: 250000, Domain: "Acme.com"}
	small := types.Customer{Name: "Small Co", Tier: types.TierPro, ARR: 1200}
	require.NoError(t, s.CreateCustomer(ctx, &acme))
	require.NoError(t, s.CreateCustomer(ctx, &small))
	seed(t, s,
		types.FeedbackItem{Content: "x", CustomerID: acme.ID},
		types.FeedbackItem{Content: "y", CustomerID: acme.ID, Status: types.StatusResolved},
	)

	found, err := s.FindCustomerByDomain(ctx, "ACME.com")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, found.ID)

	_, err = s.FindCustomerByDomain(ctx, "nobody.io")
	assert.ErrorIs(t, err, types.ErrNotFound)

	page, err := s.ListCustomers(ctx, "", "", types.Page{})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Acme", page.Data[0].Name)
	assert.Equal(t, int64(1), page.Data[0].OpenIssues)
}

func TestStore_Aggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed(t, s,
		types.FeedbackItem{Content: "a", Source: types.SourceGitHub, Product: "workers", Sentiment: -0.8, Urgency: 9, CustomerID: "c1", CustomerTier: types.TierEnterprise, CreatedAt: now.Add(-time.Hour)},
		types.FeedbackItem{Content: "b", Source: types.SourceGitHub, Product: "workers", Sentiment: 0.6, Urgency: 3, CustomerID: "c1", CustomerTier: types.TierEnterprise, CreatedAt: now.Add(-2 * time.Hour)},
		types.FeedbackItem{Content: "c", Source: types.SourceForum, Product: "r2", Sentiment: 0, Urgency: 5, CreatedAt: now.Add(-3 * time.Hour)},
		types.FeedbackItem{Content: "old", Source: types.SourceForum, Product: "r2", Sentiment: -1, Urgency: 10, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	)
	w := types.Range7d.WindowEndingAt(now.Add(time.Minute))

	stats, err := s.Stats(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Critical)
	assert.Equal(t, int64(1), stats.EnterpriseAffected)
	assert.InDelta(t, -0.0667, stats.AvgSentiment, 0.001)

	products, err := s.ProductCounts(ctx, w)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "workers", products[0].Product)
	assert.Equal(t, int64(2), products[0].Count)

	sentiment, err := s.SentimentCounts(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, SentimentCounts{Positive: 1, Neutral: 1, Negative: 1}, sentiment)

	top, err := s.TopIssue(ctx, "workers", w)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, "a", top.Content)

	none, err := s.TopIssue(ctx, "r2", w)
	require.NoError(t, err)
	assert.Nil(t, none)
}
