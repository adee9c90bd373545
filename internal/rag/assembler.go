package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/store"
	"github.com/Shubhamjha-sj/signal/pkg/types"
	"github.com/Shubhamjha-sj/signal/pkg/vectorindex"
)

const (
	// DefaultTopK is the retrieval budget when the caller passes none
	DefaultTopK = 8
	// StatsWindow is the look-back of the summary statistics block
	StatsWindow = 7 * 24 * time.Hour
	// ThemeRelevance is the fixed relevance given to theme sources
	ThemeRelevance = 0.8

	dedupPrefixLen = 50
	themeLimit     = 5
)

// trendWords mark a query as being about trends or recurring issues
var trendWords = []string{"trend", "theme", "issue", "problem", "common", "recurring", "top", "most", "complain"}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorQuerier interface {
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]vectorindex.Match, error)
}

type FeedbackLoader interface {
	GetFeedbackByIDs(ctx context.Context, ids []string) ([]types.FeedbackItem, error)
}

type ThemeAggregator interface {
	Aggregate(ctx context.Context, filter types.FeedbackFilter, limit int) ([]types.Theme, error)
}

type StatsReader interface {
	Stats(ctx context.Context, w types.Window) (store.WindowStats, error)
}

// Context is the evidence handed to the generation step
type Context struct {
	Text    string
	Sources []types.ChatSource
}

// Assembler turns a query into a deduplicated evidence set. Each block
// degrades on its own; Build never fails.
type Assembler struct {
	embedder Embedder
	index    VectorQuerier
	feedback FeedbackLoader
	themes   ThemeAggregator
	stats    StatsReader
	log      *logrus.Entry
	now      func() time.Time
}

// NewAssembler wires the assembler's collaborators. themes and stats may
// be nil, in which case their blocks are never rendered.
func NewAssembler(embedder Embedder, index VectorQuerier, feedback FeedbackLoader, themes ThemeAggregator, stats StatsReader, log *logrus.Logger) *Assembler {
	return &Assembler{
		embedder: embedder,
		index:    index,
		feedback: feedback,
		themes:   themes,
		stats:    stats,
		log:      log.WithField("component", "rag"),
		now:      time.Now,
	}
}

// Build assembles context for query using at most topK retrieved items
func (a *Assembler) Build(ctx context.Context, query string, topK int) Context {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var (
		blocks  []string
		sources []types.ChatSource
	)

	if block, src, err := a.feedbackBlock(ctx, query, topK); err != nil {
		a.degraded("feedback", err)
	} else if block != "" {
		blocks = append(blocks, block)
		sources = append(sources, src...)
	}

	if block, src, err := a.themesBlock(ctx, query); err != nil {
		a.degraded("themes", err)
	} else if block != "" {
		blocks = append(blocks, block)
		sources = append(sources, src...)
	}

	if block, err := a.statsBlock(ctx); err != nil {
		a.degraded("stats", err)
	} else if block != "" {
		blocks = append(blocks, block)
	}

	return Context{Text: strings.Join(blocks, "\n\n"), Sources: sources}
}

func (a *Assembler) degraded(block string, err error) {
	metrics.Fallback("rag", block)
	a.log.WithError(err).WithField("block", block).Warn("Skipping context block")
}

func (a *Assembler) feedbackBlock(ctx context.Context, query string, topK int) (string, []types.ChatSource, error) {
	if a.embedder == nil || a.index == nil || a.feedback == nil {
		return "", nil, nil
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("%w: embed: %w", types.ErrRetrievalDegraded, err)
	}
	matches, err := a.index.Query(ctx, vector, topK, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: vector query: %w", types.ErrRetrievalDegraded, err)
	}
	if len(matches) == 0 {
		return "", nil, nil
	}

	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		if _, dup := scores[m.ID]; dup {
			continue
		}
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}

	items, err := a.feedback.GetFeedbackByIDs(ctx, ids)
	if err != nil {
		return "", nil, fmt.Errorf("%w: load feedback: %w", types.ErrRetrievalDegraded, err)
	}

	items = Dedup(items)
	if len(items) == 0 {
		return "", nil, nil
	}

	var b strings.Builder
	b.WriteString("RELEVANT FEEDBACK:")
	seenCustomers := make(map[string]bool)
	sources := make([]types.ChatSource, 0, len(items))

	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, item.Source, oneLine(item.Content))
		fmt.Fprintf(&b, "\n   Sentiment: %s (%.2f), Urgency: %s (%d/10)",
			labelOf(item), item.Sentiment, UrgencyBucket(item.Urgency), item.Urgency)

		if name := strings.TrimSpace(item.CustomerName); name != "" {
			key := strings.ToLower(name)
			if seenCustomers[key] {
				fmt.Fprintf(&b, "\n   Customer: %s (same customer as above)", name)
			} else {
				seenCustomers[key] = true
				fmt.Fprintf(&b, "\n   Customer: %s", customerLine(item))
			}
		}

		sources = append(sources, types.ChatSource{
			Type:      types.SourceTypeFeedback,
			ID:        item.ID,
			Title:     title(item.Content),
			Relevance: scores[item.ID],
		})
	}

	return b.String(), sources, nil
}

func (a *Assembler) themesBlock(ctx context.Context, query string) (string, []types.ChatSource, error) {
	if a.themes == nil {
		return "", nil, nil
	}

	now := a.now()
	themes, err := a.themes.Aggregate(ctx, types.FeedbackFilter{
		Window: types.Window{Since: now.Add(-StatsWindow), Until: now},
	}, themeLimit)
	if err != nil {
		return "", nil, fmt.Errorf("%w: themes: %w", types.ErrRetrievalDegraded, err)
	}

	q := strings.ToLower(query)
	aboutTrends := containsAny(q, trendWords)

	var (
		b       strings.Builder
		sources []types.ChatSource
		seen    = make(map[string]bool)
	)
	for _, t := range themes {
		if seen[t.ID] || !(aboutTrends || mentionsTheme(q, t)) {
			continue
		}
		seen[t.ID] = true

		if b.Len() == 0 {
			b.WriteString("TRENDING THEMES:")
		}
		fmt.Fprintf(&b, "\n- %s: %d mentions, mostly %s", t.Name, t.Mentions, t.Sentiment)
		if len(t.Products) > 0 {
			fmt.Fprintf(&b, ", products: %s", strings.Join(t.Products, ", "))
		}
		if t.IsNew {
			b.WriteString(" (emerging)")
		}

		sources = append(sources, types.ChatSource{
			Type:      types.SourceTypeTheme,
			ID:        t.ID,
			Title:     t.Name,
			Relevance: ThemeRelevance,
		})
	}

	return b.String(), sources, nil
}

func (a *Assembler) statsBlock(ctx context.Context) (string, error) {
	if a.stats == nil {
		return "", nil
	}

	now := a.now()
	s, err := a.stats.Stats(ctx, types.Window{Since: now.Add(-StatsWindow), Until: now})
	if err != nil {
		return "", fmt.Errorf("%w: stats: %w", types.ErrRetrievalDegraded, err)
	}

	return fmt.Sprintf("SUMMARY STATISTICS (last 7 days):\n- Total feedback: %d\n- Average sentiment: %.2f\n- Critical issues: %d\n- Enterprise customers affected: %d",
		s.Total, s.AvgSentiment, s.Critical, s.EnterpriseAffected), nil
}

// Dedup keeps the first item for each id and for each normalized content prefix
func Dedup(items []types.FeedbackItem) []types.FeedbackItem {
	ids := make(map[string]bool, len(items))
	prefixes := make(map[string]bool, len(items))
	out := make([]types.FeedbackItem, 0, len(items))

	for _, item := range items {
		prefix := ContentKey(item.Content)
		if ids[item.ID] || prefixes[prefix] {
			continue
		}
		ids[item.ID] = true
		prefixes[prefix] = true
		out = append(out, item)
	}
	return out
}

// ContentKey is the case-folded, whitespace-collapsed first 50 characters of content
func ContentKey(content string) string {
	r := []rune(strings.ToLower(strings.Join(strings.Fields(content), " ")))
	if len(r) > dedupPrefixLen {
		r = r[:dedupPrefixLen]
	}
	return string(r)
}

// UrgencyBucket maps urgency to Low (<=3), Medium (4-6) or High (7-10)
func UrgencyBucket(u int) string {
	switch {
	case u <= 3:
		return "Low"
	case u <= 6:
		return "Medium"
	default:
		return "High"
	}
}

func customerLine(item types.FeedbackItem) string {
	line := item.CustomerName
	tier := item.CustomerTier
	if tier == "" {
		tier = types.TierUnknown
	}
	if item.CustomerARR > 0 {
		return fmt.Sprintf("%s (%s, $%dk ARR)", line, tier, item.CustomerARR/1000)
	}
	return fmt.Sprintf("%s (%s)", line, tier)
}

func labelOf(item types.FeedbackItem) types.SentimentLabel {
	if item.SentimentLabel != "" {
		return item.SentimentLabel
	}
	return types.LabelForScore(item.Sentiment)
}

func mentionsTheme(q string, t types.Theme) bool {
	if t.Name != "" && strings.Contains(q, strings.ToLower(t.Name)) {
		return true
	}
	for _, p := range t.Products {
		if p != "" && strings.Contains(q, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func title(content string) string {
	r := []rune(oneLine(content))
	if len(r) <= dedupPrefixLen {
		return string(r)
	}
	return string(r[:dedupPrefixLen]) + "..."
}
