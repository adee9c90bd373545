package themes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const (
	// DefaultNewThreshold marks themes with fewer mentions as new
	DefaultNewThreshold = 50
	// IssuesPerTheme is the number of representative issues kept per theme
	IssuesPerTheme = 5
)

// labelPrecedence breaks ties in the dominant sentiment vote, earliest wins
var labelPrecedence = []types.SentimentLabel{
	types.SentimentFrustrated,
	types.SentimentConcerned,
	types.SentimentNegative,
	types.SentimentAnnoyed,
	types.SentimentNeutral,
	types.SentimentPositive,
}

// ItemSource is the part of the record store the engine reads
type ItemSource interface {
	FeedbackInWindow(ctx context.Context, filter types.FeedbackFilter) ([]types.FeedbackItem, error)
	FeedbackWithTheme(ctx context.Context, theme string, filter types.FeedbackFilter, limit int) ([]types.FeedbackItem, error)
}

// Engine reconstructs trending themes from per-item tags
type Engine struct {
	source       ItemSource
	newThreshold int
	log          *logrus.Entry
}

// NewEngine creates an engine; newThreshold <= 0 uses DefaultNewThreshold
func NewEngine(source ItemSource, newThreshold int, log *logrus.Logger) *Engine {
	if newThreshold <= 0 {
		newThreshold = DefaultNewThreshold
	}
	return &Engine{
		source:       source,
		newThreshold: newThreshold,
		log:          log.WithField("component", "themes"),
	}
}

// Aggregate returns up to limit themes over the filter's window, ranked by
// mention count, each with its representative issues
func (e *Engine) Aggregate(ctx context.Context, filter types.FeedbackFilter, limit int) ([]types.Theme, error) {
	items, err := e.source.FeedbackInWindow(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback for themes: %w", err)
	}

	themes := Rank(items, limit, e.newThreshold)

	// Issues are ordered by urgency, not by mention count, so they come from a separate query
	for i := range themes {
		issues, err := e.source.FeedbackWithTheme(ctx, themes[i].Name, filter, IssuesPerTheme)
		if err != nil {
			metrics.Fallback("themes", "issues")
			e.log.WithError(err).WithField("theme", themes[i].Name).Warn("Failed to load representative issues")
			continue
		}
		if issues != nil {
			themes[i].Issues = issues
		}
	}

	return themes, nil
}

type tally struct {
	count    int
	products map[string]struct{}
	labels   map[types.SentimentLabel]int
}

// Rank counts normalized tags across items and returns the top limit themes.
// Issues are left empty. Output is deterministic for a given item set.
func Rank(items []types.FeedbackItem, limit, newThreshold int) []types.Theme {
	tallies := make(map[string]*tally)

	for i := range items {
		item := &items[i]
		label := item.SentimentLabel
		if label == "" {
			label = types.LabelForScore(item.Sentiment)
		}

		for _, tag := range NormalizeTags(item.Themes) {
			t, ok := tallies[tag]
			if !ok {
				t = &tally{products: make(map[string]struct{}), labels: make(map[types.SentimentLabel]int)}
				tallies[tag] = t
			}
			t.count++
			t.labels[label]++
			if item.Product != "" {
				t.products[item.Product] = struct{}{}
			}
		}
	}

	themes := make([]types.Theme, 0, len(tallies))
	for tag, t := range tallies {
		products := make([]string, 0, len(t.products))
		for p := range t.products {
			products = append(products, p)
		}
		sort.Strings(products)

		themes = append(themes, types.Theme{
			ID:        tag,
			Name:      tag,
			Mentions:  t.count,
			Sentiment: dominantLabel(t.labels),
			Products:  products,
			IsNew:     t.count < newThreshold,
			Issues:    []types.FeedbackItem{},
		})
	}

	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Mentions != themes[j].Mentions {
			return themes[i].Mentions > themes[j].Mentions
		}
		return themes[i].Name < themes[j].Name
	})

	if limit > 0 && len(themes) > limit {
		themes = themes[:limit]
	}
	return themes
}

// NormalizeTags trims and lower-cases tags, dropping empties and duplicates
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func dominantLabel(counts map[types.SentimentLabel]int) types.SentimentLabel {
	best, bestCount := types.SentimentNeutral, 0
	for _, label := range labelPrecedence {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	return best
}
