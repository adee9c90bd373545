package alerting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const (
	SpikeMinCount          = 5
	FeatureClusterMinCount = 10
	FeatureRequestTheme    = "feature-request"
)

// DetectStore is the part of the record store the sweep needs
type DetectStore interface {
	FeedbackInWindow(ctx context.Context, filter types.FeedbackFilter) ([]types.FeedbackItem, error)
	HasOpenAlert(ctx context.Context, alertType types.AlertType, product string) (bool, error)
	CreateAlert(ctx context.Context, alert *types.Alert) error
}

// Detector sweeps recent feedback for patterns no single item triggers
type Detector struct {
	store      DetectStore
	dispatcher *Dispatcher
	log        *logrus.Entry
	now        func() time.Time
}

// NewDetector creates a sweep; dispatcher may be nil
func NewDetector(store DetectStore, dispatcher *Dispatcher, log *logrus.Logger) *Detector {
	return &Detector{
		store:      store,
		dispatcher: dispatcher,
		log:        log.WithField("component", "auto-detect"),
		now:        time.Now,
	}
}

// Run creates critical, spike and feature-request alerts, at most one
// open alert per type and product, and returns the alerts it created
func (d *Detector) Run(ctx context.Context) ([]types.Alert, error) {
	now := d.now().UTC()
	day := types.Window{Since: now.Add(-24 * time.Hour), Until: now.Add(time.Second)}
	week := types.Window{Since: now.Add(-7 * 24 * time.Hour), Until: now.Add(time.Second)}

	recent, err := d.store.FeedbackInWindow(ctx, types.FeedbackFilter{Window: day})
	if err != nil {
		return nil, fmt.Errorf("failed to load last 24h of feedback: %w", err)
	}
	features, err := d.store.FeedbackInWindow(ctx, types.FeedbackFilter{Window: week, Theme: FeatureRequestTheme})
	if err != nil {
		return nil, fmt.Errorf("failed to load feature requests: %w", err)
	}

	var candidates []types.Alert
	candidates = append(candidates, criticalCandidates(recent, now)...)
	candidates = append(candidates, spikeCandidates(recent, now)...)
	candidates = append(candidates, featureCandidates(features, now)...)

	created := make([]types.Alert, 0, len(candidates))
	for _, alert := range candidates {
		open, err := d.store.HasOpenAlert(ctx, alert.Type, alert.Product)
		if err != nil {
			return created, fmt.Errorf("failed to check open alerts: %w", err)
		}
		if open {
			continue
		}
		if err := d.store.CreateAlert(ctx, &alert); err != nil {
			return created, fmt.Errorf("failed to create %s alert: %w", alert.Type, err)
		}
		metrics.AlertsRaised.WithLabelValues(string(alert.Type)).Inc()
		created = append(created, alert)

		if d.dispatcher != nil && ShouldNotify(alert) {
			d.dispatcher.Notify(ctx, alert)
		}
	}

	d.log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"created":    len(created),
	}).Info("Auto-detect sweep complete")
	return created, nil
}

// items are newest first, so the first item per product leads the message
func criticalCandidates(items []types.FeedbackItem, now time.Time) []types.Alert {
	groups := groupByProduct(items, func(it *types.FeedbackItem) bool {
		return it.Urgency >= CriticalUrgency && it.CustomerTier == types.TierEnterprise
	})

	out := make([]types.Alert, 0, len(groups))
	for _, g := range groups {
		lead := g.items[0]
		msg := Message(types.AlertCritical, lead)
		if g.product != "" {
			msg = fmt.Sprintf("%s [%s]", msg, g.product)
		}
		out = append(out, newAlert(types.AlertCritical, g.product, msg, g.ids(), now))
	}
	return out
}

func spikeCandidates(items []types.FeedbackItem, now time.Time) []types.Alert {
	groups := groupByProduct(items, func(it *types.FeedbackItem) bool {
		return it.Product != "" && it.Sentiment < WarningSentiment
	})

	var out []types.Alert
	for _, g := range groups {
		if len(g.items) < SpikeMinCount {
			continue
		}
		var sum float64
		for _, it := range g.items {
			sum += it.Sentiment
		}
		msg := fmt.Sprintf("Spike in negative feedback for %s: %d complaints in last 24h (avg sentiment: %.2f)",
			g.product, len(g.items), sum/float64(len(g.items)))
		out = append(out, newAlert(types.AlertWarning, g.product, msg, g.ids(), now))
	}
	return out
}

func featureCandidates(items []types.FeedbackItem, now time.Time) []types.Alert {
	groups := groupByProduct(items, func(it *types.FeedbackItem) bool {
		return it.Product != "" && it.HasTheme(FeatureRequestTheme)
	})

	var out []types.Alert
	for _, g := range groups {
		if len(g.items) < FeatureClusterMinCount {
			continue
		}
		msg := fmt.Sprintf("New feature request cluster detected for %s: %d requests in the last 7 days", g.product, len(g.items))
		out = append(out, newAlert(types.AlertInfo, g.product, msg, g.ids(), now))
	}
	return out
}

type productGroup struct {
	product string
	items   []types.FeedbackItem
}

func (g productGroup) ids() []string {
	ids := make([]string, len(g.items))
	for i, it := range g.items {
		ids[i] = it.ID
	}
	return ids
}

// groupByProduct keeps matching items per product, products in name order
func groupByProduct(items []types.FeedbackItem, match func(*types.FeedbackItem) bool) []productGroup {
	byProduct := make(map[string][]types.FeedbackItem)
	for i := range items {
		if match(&items[i]) {
			byProduct[items[i].Product] = append(byProduct[items[i].Product], items[i])
		}
	}

	out := make([]productGroup, 0, len(byProduct))
	for p, its := range byProduct {
		out = append(out, productGroup{product: p, items: its})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].product < out[j].product })
	return out
}

func newAlert(t types.AlertType, product, message string, ids []string, now time.Time) types.Alert {
	return types.Alert{
		ID:          uuid.NewString(),
		Type:        t,
		Message:     message,
		Product:     product,
		FeedbackIDs: ids,
		CreatedAt:   now,
	}
}
