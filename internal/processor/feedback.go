package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Shubhamjha-sj/signal/internal/alerting"
	"github.com/Shubhamjha-sj/signal/internal/classifier"
	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// ErrEmptyContent rejects feedback without text
var ErrEmptyContent = errors.New("feedback content is required")

// Store is the part of the record store the pipeline writes to
type Store interface {
	CreateFeedback(ctx context.Context, item *types.FeedbackItem) error
	SaveFeedback(ctx context.Context, item *types.FeedbackItem) error
	GetFeedback(ctx context.Context, id string) (*types.FeedbackItem, error)
	CreateAlert(ctx context.Context, alert *types.Alert) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Indexer interface {
	Insert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
}

type Classifier interface {
	Classify(ctx context.Context, text string, customer *types.CustomerContext) classifier.Result
}

// Outcome is what one ingest produced
type Outcome struct {
	Item  *types.FeedbackItem `json:"feedback"`
	Alert *types.Alert        `json:"alert,omitempty"`
}

// BackfillResult records one reclassified item or why it failed
type BackfillResult struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// FeedbackProcessor runs the ingest pipeline:
// classify, persist, index, evaluate alert, notify, publish
type FeedbackProcessor struct {
	classifier  Classifier
	store       Store
	embedder    Embedder
	index       Indexer
	engine      *alerting.Engine
	dispatcher  *alerting.Dispatcher
	publisher   queue.Publisher
	concurrency int
	log         *logrus.Entry
}

// Config bundles the processor's collaborators. Embedder, Index,
// Dispatcher and Publisher are optional.
type Config struct {
	Classifier  Classifier
	Store       Store
	Embedder    Embedder
	Index       Indexer
	Engine      *alerting.Engine
	Dispatcher  *alerting.Dispatcher
	Publisher   queue.Publisher
	Concurrency int
}

// NewFeedbackProcessor creates a new feedback processor
func NewFeedbackProcessor(cfg Config, log *logrus.Logger) *FeedbackProcessor {
	if cfg.Engine == nil {
		cfg.Engine = alerting.NewEngine()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	return &FeedbackProcessor{
		classifier:  cfg.Classifier,
		store:       cfg.Store,
		embedder:    cfg.Embedder,
		index:       cfg.Index,
		engine:      cfg.Engine,
		dispatcher:  cfg.Dispatcher,
		publisher:   cfg.Publisher,
		concurrency: cfg.Concurrency,
		log:         log.WithField("component", "processor"),
	}
}

// Process classifies and stores one piece of feedback. Only a failure to
// persist the item is returned; indexing, alert and notification problems
// are logged.
func (p *FeedbackProcessor) Process(ctx context.Context, msg queue.ProcessFeedback) (*Outcome, error) {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		metrics.FeedbackProcessed.WithLabelValues(string(msg.Source), "rejected").Inc()
		return nil, ErrEmptyContent
	}

	tier := types.ParseTier(string(msg.CustomerTier))
	res := p.classifier.Classify(ctx, content, &types.CustomerContext{
		Name:        msg.CustomerName,
		Tier:        tier,
		ARR:         msg.CustomerARR,
		Product:     msg.Product,
		UrgencyHint: msg.UrgencyHint,
	})

	item := &types.FeedbackItem{
		Content:        content,
		Source:         msg.Source,
		Sentiment:      res.Sentiment,
		SentimentLabel: res.SentimentLabel,
		Urgency:        types.ClampUrgency(res.Urgency),
		Product:        res.Product,
		Themes:         res.Themes,
		CustomerID:     msg.CustomerID,
		CustomerName:   msg.CustomerName,
		CustomerTier:   tier,
		CustomerARR:    msg.CustomerARR,
		Status:         types.StatusNew,
		Metadata:       msg.Metadata,
		CreatedAt:      msg.ReceivedAt,
	}
	if err := p.store.CreateFeedback(ctx, item); err != nil {
		metrics.FeedbackProcessed.WithLabelValues(string(msg.Source), "error").Inc()
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	metrics.FeedbackProcessed.WithLabelValues(string(msg.Source), "ok").Inc()

	p.log.WithFields(logrus.Fields{
		"feedback_id": item.ID,
		"source":      item.Source,
		"sentiment":   item.SentimentLabel,
		"urgency":     item.Urgency,
		"product":     item.Product,
	}).Info("Processed feedback")

	p.indexItem(ctx, item)

	out := &Outcome{Item: item}
	if alert := p.engine.Evaluate(*item, alerting.Options{}); alert != nil {
		if err := p.store.CreateAlert(ctx, alert); err != nil {
			p.log.WithError(err).WithField("feedback_id", item.ID).Error("Failed to store alert")
			return out, nil
		}
		metrics.AlertsRaised.WithLabelValues(string(alert.Type)).Inc()
		out.Alert = alert
		p.raise(ctx, *alert)
	}

	return out, nil
}

// Reclassify re-runs classification for a stored item and overwrites
// sentiment, urgency, themes and product
func (p *FeedbackProcessor) Reclassify(ctx context.Context, id string) (*types.FeedbackItem, error) {
	item, err := p.store.GetFeedback(ctx, id)
	if err != nil {
		return nil, err
	}

	res := p.classifier.Classify(ctx, item.Content, &types.CustomerContext{
		Name: item.CustomerName,
		Tier: item.CustomerTier,
		ARR:  item.CustomerARR,
	})
	item.Sentiment = res.Sentiment
	item.SentimentLabel = res.SentimentLabel
	item.Urgency = types.ClampUrgency(res.Urgency)
	item.Themes = res.Themes
	item.Product = res.Product

	if err := p.store.SaveFeedback(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save reclassified feedback: %w", err)
	}
	p.indexItem(ctx, item)
	return item, nil
}

// Backfill reclassifies ids with bounded concurrency. Each failure is
// recorded on its own result.
func (p *FeedbackProcessor) Backfill(ctx context.Context, ids []string) []BackfillResult {
	results := make([]BackfillResult, len(ids))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, id := range ids {
		i, id := i, id
		results[i].ID = id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Error = err.Error()
				return nil
			}
			if _, err := p.Reclassify(ctx, id); err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Handle consumes queue messages
func (p *FeedbackProcessor) Handle(ctx context.Context, msg queue.Message) error {
	switch m := msg.(type) {
	case queue.ProcessFeedback:
		_, err := p.Process(ctx, m)
		return err
	case queue.ReclassifyFeedback:
		_, err := p.Reclassify(ctx, m.FeedbackID)
		return err
	case queue.AlertRaised:
		p.log.WithFields(logrus.Fields{
			"alert_id": m.Alert.ID,
			"type":     m.Alert.Type,
			"product":  m.Alert.Product,
		}).Info("Alert raised")
		return nil
	default:
		return fmt.Errorf("%w: %T", queue.ErrUnknownMessage, msg)
	}
}

// IndexMetadata is the metadata stored next to an item's embedding
func IndexMetadata(item *types.FeedbackItem) map[string]any {
	return map[string]any{
		"source":        string(item.Source),
		"product":       item.Product,
		"sentiment":     item.Sentiment,
		"urgency":       item.Urgency,
		"customer_tier": string(item.CustomerTier),
	}
}

func (p *FeedbackProcessor) indexItem(ctx context.Context, item *types.FeedbackItem) {
	if p.embedder == nil || p.index == nil {
		return
	}
	vector, err := p.embedder.Embed(ctx, item.Content)
	if err == nil {
		err = p.index.Insert(ctx, item.ID, vector, IndexMetadata(item))
	}
	if err != nil {
		metrics.Fallback("processor", "index")
		p.log.WithError(err).WithField("feedback_id", item.ID).Warn("Failed to index feedback")
	}
}

func (p *FeedbackProcessor) raise(ctx context.Context, alert types.Alert) {
	if p.dispatcher != nil && alerting.ShouldNotify(alert) {
		for _, r := range p.dispatcher.Notify(ctx, alert) {
			if !r.Success {
				p.log.WithFields(logrus.Fields{"alert_id": alert.ID, "channel": r.Channel}).Warn("Notification not delivered: " + r.Error)
			}
		}
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, queue.AlertRaised{Alert: alert}); err != nil {
			p.log.WithError(err).WithField("alert_id", alert.ID).Warn("Failed to publish alert")
		}
	}
}
