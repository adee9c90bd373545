package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/store"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// ErrInvalidMetric is returned for an unknown trend metric
var ErrInvalidMetric = errors.New("invalid metric (supported: feedback_count, sentiment, urgency)")

const (
	MetricFeedbackCount = "feedback_count"
	MetricSentiment     = "sentiment"
	MetricUrgency       = "urgency"
)

type Store interface {
	Stats(ctx context.Context, w types.Window) (store.WindowStats, error)
	ProductCounts(ctx context.Context, w types.Window) ([]store.ProductCount, error)
	SourceCounts(ctx context.Context, w types.Window) ([]store.SourceCount, error)
	SentimentCounts(ctx context.Context, w types.Window) (store.SentimentCounts, error)
	TopIssue(ctx context.Context, product string, w types.Window) (*types.FeedbackItem, error)
	FeedbackInWindow(ctx context.Context, filter types.FeedbackFilter) ([]types.FeedbackItem, error)
}

type ThemeAggregator interface {
	Aggregate(ctx context.Context, filter types.FeedbackFilter, limit int) ([]types.Theme, error)
}

// Summary is the dashboard headline for a time range
type Summary struct {
	TimeRange           types.TimeRange `json:"time_range"`
	TotalFeedback       int64           `json:"total_feedback"`
	TotalFeedbackChange float64         `json:"total_feedback_change"` // percent vs previous window
	AvgSentiment        float64         `json:"avg_sentiment"`
	SentimentChange     float64         `json:"sentiment_change"`
	CriticalAlerts      int64           `json:"critical_alerts"` // items with urgency >= 8
	AlertsChange        int64           `json:"alerts_change"`
	EnterpriseAffected  int64           `json:"enterprise_affected"`
}

type ProductBreakdown struct {
	Product    string  `json:"product"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
	Sentiment  float64 `json:"sentiment"`
	TopIssue   *string `json:"top_issue"`
}

type SourceBreakdown struct {
	Source     string  `json:"source"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SentimentBreakdown struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

type Trend struct {
	Metric    string          `json:"metric"`
	TimeRange types.TimeRange `json:"time_range"`
	Data      []TrendPoint    `json:"data"`
}

// Service computes dashboard aggregates. Every figure is recomputed from
// the requested window.
type Service struct {
	store  Store
	themes ThemeAggregator
	log    *logrus.Entry
	now    func() time.Time
}

func NewService(st Store, themes ThemeAggregator, log *logrus.Logger) *Service {
	return &Service{store: st, themes: themes, log: log.WithField("component", "analytics"), now: time.Now}
}

// Summary compares the range against the equally long window before it
func (s *Service) Summary(ctx context.Context, r types.TimeRange) (*Summary, error) {
	cur := r.WindowEndingAt(s.now().UTC())

	current, err := s.store.Stats(ctx, cur)
	if err != nil {
		return nil, err
	}
	previous, err := s.store.Stats(ctx, cur.Previous())
	if err != nil {
		return nil, err
	}

	return &Summary{
		TimeRange:           r,
		TotalFeedback:       current.Total,
		TotalFeedbackChange: PercentChange(float64(current.Total), float64(previous.Total)),
		AvgSentiment:        round(current.AvgSentiment, 2),
		SentimentChange:     round(current.AvgSentiment-previous.AvgSentiment, 2),
		CriticalAlerts:      current.Critical,
		AlertsChange:        current.Critical - previous.Critical,
		EnterpriseAffected:  current.EnterpriseAffected,
	}, nil
}

// Themes returns the top themes of the range
func (s *Service) Themes(ctx context.Context, r types.TimeRange, limit int) ([]types.Theme, error) {
	return s.themes.Aggregate(ctx, types.FeedbackFilter{Window: r.WindowEndingAt(s.now().UTC())}, limit)
}

// Products breaks the range down by product, with the latest urgent item per product
func (s *Service) Products(ctx context.Context, r types.TimeRange) ([]ProductBreakdown, error) {
	w := r.WindowEndingAt(s.now().UTC())
	rows, err := s.store.ProductCounts(ctx, w)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}

	out := make([]ProductBreakdown, 0, len(rows))
	for _, row := range rows {
		pb := ProductBreakdown{
			Product:    row.Product,
			Count:      row.Count,
			Percentage: percentOf(row.Count, total),
			Sentiment:  round(row.AvgSentiment, 2),
		}
		issue, err := s.store.TopIssue(ctx, row.Product, w)
		if err != nil {
			s.log.WithError(err).WithField("product", row.Product).Warn("Failed to load top issue")
		} else if issue != nil {
			pb.TopIssue = &issue.Content
		}
		out = append(out, pb)
	}
	return out, nil
}

// Sources breaks the range down by source
func (s *Service) Sources(ctx context.Context, r types.TimeRange) ([]SourceBreakdown, error) {
	rows, err := s.store.SourceCounts(ctx, r.WindowEndingAt(s.now().UTC()))
	if err != nil {
		return nil, err
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}
	out := make([]SourceBreakdown, 0, len(rows))
	for _, row := range rows {
		out = append(out, SourceBreakdown{Source: row.Source, Count: row.Count, Percentage: percentOf(row.Count, total)})
	}
	return out, nil
}

// Sentiment returns the polarity split of the range in percent
func (s *Service) Sentiment(ctx context.Context, r types.TimeRange) (*SentimentBreakdown, error) {
	c, err := s.store.SentimentCounts(ctx, r.WindowEndingAt(s.now().UTC()))
	if err != nil {
		return nil, err
	}
	total := c.Positive + c.Neutral + c.Negative
	return &SentimentBreakdown{
		Positive: percentOf(c.Positive, total),
		Neutral:  percentOf(c.Neutral, total),
		Negative: percentOf(c.Negative, total),
	}, nil
}

// Trends buckets the range per hour (24h) or per day and reports the metric per bucket
func (s *Service) Trends(ctx context.Context, r types.TimeRange, metric string) (*Trend, error) {
	if metric == "" {
		metric = MetricFeedbackCount
	}
	if metric != MetricFeedbackCount && metric != MetricSentiment && metric != MetricUrgency {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}

	items, err := s.store.FeedbackInWindow(ctx, types.FeedbackFilter{Window: r.WindowEndingAt(s.now().UTC())})
	if err != nil {
		return nil, err
	}

	layout := "2006-01-02"
	if r == types.Range24h {
		layout = "2006-01-02 15:00"
	}

	type bucket struct {
		count int
		sum   float64
	}
	buckets := make(map[string]*bucket)
	for _, it := range items {
		period := it.CreatedAt.UTC().Format(layout)
		b, ok := buckets[period]
		if !ok {
			b = &bucket{}
			buckets[period] = b
		}
		b.count++
		switch metric {
		case MetricSentiment:
			b.sum += it.Sentiment
		case MetricUrgency:
			b.sum += float64(it.Urgency)
		}
	}

	data := make([]TrendPoint, 0, len(buckets))
	for period, b := range buckets {
		value := float64(b.count)
		if metric != MetricFeedbackCount {
			value = round(b.sum/float64(b.count), 2)
		}
		data = append(data, TrendPoint{Period: period, Value: value})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Period < data[j].Period })

	return &Trend{Metric: metric, TimeRange: r, Data: data}, nil
}

// PercentChange is (cur-prev)/prev in percent, one decimal; 0 when prev is 0
func PercentChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return round((cur-prev)/prev*100, 1)
}

func percentOf(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(n)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
