package themes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type fakeSource struct {
	items     []types.FeedbackItem
	windowErr error
	themeErr  map[string]error
	narrow    map[string]bool // themes whose second pass finds nothing
}

func (f *fakeSource) FeedbackInWindow(context.Context, types.FeedbackFilter) ([]types.FeedbackItem, error) {
	return f.items, f.windowErr
}

func (f *fakeSource) FeedbackWithTheme(_ context.Context, theme string, _ types.FeedbackFilter, limit int) ([]types.FeedbackItem, error) {
	if err := f.themeErr[theme]; err != nil {
		return nil, err
	}
	if f.narrow[theme] {
		return nil, nil
	}
	var out []types.FeedbackItem
	for _, it := range f.items {
		if it.HasTheme(theme) {
			out = append(out, it)
		}
	}
	sortByUrgencyThenRecency(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByUrgencyThenRecency(items []types.FeedbackItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			a, b := items[j-1], items[j]
			if a.Urgency > b.Urgency || (a.Urgency == b.Urgency && !a.CreatedAt.Before(b.CreatedAt)) {
				break
			}
			items[j-1], items[j] = b, a
		}
	}
}

func performanceScenario() []types.FeedbackItem {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	products := []string{"workers", "r2", "pages"}
	var items []types.FeedbackItem
	for i := 0; i < 12; i++ {
		label := types.SentimentNeutral
		if i < 8 {
			label = types.SentimentFrustrated
		}
		items = append(items, types.FeedbackItem{
			ID:             fmt.Sprintf("p%d", i),
			Themes:         []string{" Performance "},
			Product:        products[i%3],
			SentimentLabel: label,
			Urgency:        1 + i%10,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		})
	}
	items = append(items,
		types.FeedbackItem{ID: "d1", Themes: []string{"documentation", ""}, SentimentLabel: types.SentimentPositive, CreatedAt: base},
		types.FeedbackItem{ID: "none", Themes: []string{"  "}, CreatedAt: base},
	)
	return items
}

func TestEngine_AggregateScenario(t *testing.T) {
	src := &fakeSource{items: performanceScenario()}
	e := NewEngine(src, 0, logger.Discard())

	themes, err := e.Aggregate(context.Background(), types.FeedbackFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, themes, 2)

	perf := themes[0]
	assert.Equal(t, "performance", perf.Name)
	assert.Equal(t, 12, perf.Mentions)
	assert.Equal(t, types.SentimentFrustrated, perf.Sentiment)
	assert.Equal(t, []string{"pages", "r2", "workers"}, perf.Products)
	assert.True(t, perf.IsNew)
	require.Len(t, perf.Issues, IssuesPerTheme)
	assert.Equal(t, 10, perf.Issues[0].Urgency)
	for i := 1; i < len(perf.Issues); i++ {
		assert.GreaterOrEqual(t, perf.Issues[i-1].Urgency, perf.Issues[i].Urgency)
	}

	assert.Equal(t, "documentation", themes[1].Name)
	assert.Equal(t, 1, themes[1].Mentions)
	assert.Empty(t, themes[1].Products)
}

func TestEngine_AggregateIsIdempotent(t *testing.T) {
	src := &fakeSource{items: performanceScenario()}
	e := NewEngine(src, 5, logger.Discard())

	first, err := e.Aggregate(context.Background(), types.FeedbackFilter{}, 10)
	require.NoError(t, err)
	second, err := e.Aggregate(context.Background(), types.FeedbackFilter{}, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, first[0].IsNew, "12 mentions is above a threshold of 5")
}

func TestEngine_EmptyIssuesAreKept(t *testing.T) {
	src := &fakeSource{
		items:    performanceScenario(),
		narrow:   map[string]bool{"documentation": true},
		themeErr: map[string]error{"performance": errors.New("db down")},
	}
	e := NewEngine(src, 0, logger.Discard())

	themes, err := e.Aggregate(context.Background(), types.FeedbackFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, themes, 2)
	assert.NotNil(t, themes[0].Issues)
	assert.Empty(t, themes[0].Issues)
	assert.NotNil(t, themes[1].Issues)
	assert.Empty(t, themes[1].Issues)
}

func TestEngine_WindowErrorIsReturned(t *testing.T) {
	e := NewEngine(&fakeSource{windowErr: errors.New("boom")}, 0, logger.Discard())

	_, err := e.Aggregate(context.Background(), types.FeedbackFilter{}, 10)
	assert.Error(t, err)
}

func TestRank_LimitAndTieBreaks(t *testing.T) {
	items := []types.FeedbackItem{
		{Themes: []string{"bug", "pricing", "BUG"}, Sentiment: -0.6},
		{Themes: []string{"pricing"}, Sentiment: 0.5},
		{Themes: []string{"bug"}, Sentiment: 0.5},
		{Themes: []string{"security"}},
	}

	themes := Rank(items, 2, 50)

	require.Len(t, themes, 2)
	assert.Equal(t, "bug", themes[0].Name, "equal counts fall back to name order")
	assert.Equal(t, 2, themes[0].Mentions, "a tag repeated on one item counts once")
	assert.Equal(t, types.SentimentFrustrated, themes[0].Sentiment, "label tie goes to the earlier precedence entry")
	assert.Equal(t, "pricing", themes[1].Name)
	assert.Equal(t, types.SentimentFrustrated, themes[1].Sentiment)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{" A", "", "b", "a ", "  "}))
	assert.Empty(t, NormalizeTags(nil))
}
