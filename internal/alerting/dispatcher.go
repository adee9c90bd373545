package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Notifier is an external notification channel (email, Slack)
type Notifier interface {
	Name() string
	IsConfigured() bool
	SendAlert(ctx context.Context, alert types.Alert) error
}

// Dispatcher fans an alert out to every channel. Channels are attempted
// independently; one failing never stops the others.
type Dispatcher struct {
	notifiers []Notifier
	log       *logrus.Entry
}

func NewDispatcher(log *logrus.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, log: log.WithField("component", "notifications")}
}

// ShouldNotify reports whether an alert triggers notification fan-out on its own
func ShouldNotify(alert types.Alert) bool {
	return alert.Type == types.AlertCritical
}

// Notify sends alert on every channel and returns one result per channel,
// in registration order
func (d *Dispatcher) Notify(ctx context.Context, alert types.Alert) []types.NotificationResult {
	results := make([]types.NotificationResult, len(d.notifiers))

	var g errgroup.Group
	for i, n := range d.notifiers {
		i, n := i, n
		g.Go(func() error {
			results[i] = d.send(ctx, n, alert)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Test sends a synthetic critical alert on every channel
func (d *Dispatcher) Test(ctx context.Context) []types.NotificationResult {
	return d.Notify(ctx, types.Alert{
		ID:        "test-notification",
		Type:      types.AlertCritical,
		Message:   "Test notification from Signal. If you can read this, alert delivery works.",
		CreatedAt: time.Now().UTC(),
	})
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, alert types.Alert) types.NotificationResult {
	res := types.NotificationResult{Channel: n.Name()}
	if !n.IsConfigured() {
		res.Error = fmt.Sprintf("%s: %v", n.Name(), types.ErrNotConfigured)
		metrics.Notifications.WithLabelValues(n.Name(), "not_configured").Inc()
		return res
	}

	if err := n.SendAlert(ctx, alert); err != nil {
		res.Error = err.Error()
		metrics.Notifications.WithLabelValues(n.Name(), "error").Inc()
		d.log.WithError(err).WithFields(logrus.Fields{
			"channel":  n.Name(),
			"alert_id": alert.ID,
		}).Warn("Failed to send notification")
		return res
	}

	res.Success = true
	metrics.Notifications.WithLabelValues(n.Name(), "ok").Inc()
	return res
}
