package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjha-sj/signal/internal/alerting"
	"github.com/Shubhamjha-sj/signal/internal/classifier"
	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type fakeClassifier struct {
	result classifier.Result
	seen   []types.CustomerContext
	mu     sync.Mutex
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, cc *types.CustomerContext) classifier.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, *cc)
	return f.result
}

type memStore struct {
	mu       sync.Mutex
	items    map[string]*types.FeedbackItem
	alerts   []types.Alert
	failSave bool
}

func newMemStore() *memStore { return &memStore{items: make(map[string]*types.FeedbackItem)} }

func (m *memStore) CreateFeedback(_ context.Context, item *types.FeedbackItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("fb-%d", len(m.items)+1)
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memStore) SaveFeedback(_ context.Context, item *types.FeedbackItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return types.ErrNotFound
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memStore) GetFeedback(_ context.Context, id string) (*types.FeedbackItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("feedback %s: %w", id, types.ErrNotFound)
	}
	cp := *it
	return &cp, nil
}

func (m *memStore) CreateAlert(_ context.Context, a *types.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *a)
	return nil
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, f.err }

type fakeIndex struct {
	mu   sync.Mutex
	meta map[string]map[string]any
}

func (f *fakeIndex) Insert(_ context.Context, id string, _ []float32, meta map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meta == nil {
		f.meta = make(map[string]map[string]any)
	}
	f.meta[id] = meta
	return nil
}

type recordingPublisher struct{ msgs []queue.Message }

func (r *recordingPublisher) Publish(_ context.Context, msg queue.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}
func (r *recordingPublisher) Close() error { return nil }

type countingNotifier struct {
	name string
	err  error
	sent int
	mu   sync.Mutex
}

func (c *countingNotifier) Name() string       { return c.name }
func (c *countingNotifier) IsConfigured() bool { return true }
func (c *countingNotifier) SendAlert(context.Context, types.Alert) error {
	c.mu.Lock()
	c.sent++
	c.mu.Unlock()
	return c.err
}

func TestFeedbackProcessor_ProcessCritical(t *testing.T) {
	cls := &fakeClassifier{result: classifier.Result{Sentiment: -0.9, SentimentLabel: types.SentimentFrustrated, Urgency: 10, Themes: []string{"reliability"}, Product: "workers"}}
	st := newMemStore()
	idx := &fakeIndex{}
	pub := &recordingPublisher{}
	email := &countingNotifier{name: "email", err: errors.New("bounce")}
	slack := &countingNotifier{name: "slack"}

	p := NewFeedbackProcessor(Config{
		Classifier: cls,
		Store:      st,
		Embedder:   fakeEmbedder{},
		Index:      idx,
		Dispatcher: alerting.NewDispatcher(logger.Discard(), email, slack),
		Publisher:  pub,
	}, logger.Discard())

	out, err := p.Process(context.Background(), queue.ProcessFeedback{
		Content:      "  Production is down, urgent!  ",
		Source:       types.SourceSupport,
		CustomerName: "Acme Corp",
		CustomerTier: "Enterprise",
		CustomerARR:  250000,
		UrgencyHint:  9,
	})
	require.NoError(t, err)

	assert.Equal(t, "Production is down, urgent!", out.Item.Content)
	assert.Equal(t, types.TierEnterprise, out.Item.CustomerTier)
	assert.Equal(t, types.StatusNew, out.Item.Status)
	assert.Equal(t, 9, cls.seen[0].UrgencyHint)

	require.NotNil(t, out.Alert)
	assert.Equal(t, types.AlertCritical, out.Alert.Type)
	assert.Contains(t, out.Alert.Message, "($250k ARR)")
	assert.Equal(t, []string{out.Item.ID}, out.Alert.FeedbackIDs)
	assert.Len(t, st.alerts, 1, "alert is stored even though email failed")
	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 1, slack.sent)

	assert.Equal(t, "workers", idx.meta[out.Item.ID]["product"])
	assert.Equal(t, "enterprise", idx.meta[out.Item.ID]["customer_tier"])

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, out.Alert.ID, pub.msgs[0].(queue.AlertRaised).Alert.ID)
}

func TestFeedbackProcessor_ProcessQuietItem(t *testing.T) {
	cls := &fakeClassifier{result: classifier.Result{Sentiment: 0.6, SentimentLabel: types.SentimentPositive, Urgency: 2, Themes: []string{"documentation"}}}
	st := newMemStore()
	pub := &recordingPublisher{}

	p := NewFeedbackProcessor(Config{Classifier: cls, Store: st, Embedder: fakeEmbedder{err: types.ErrModelUnavailable}, Index: &fakeIndex{}, Publisher: pub}, logger.Discard())

	out, err := p.Process(context.Background(), queue.ProcessFeedback{Content: "Love the docs", Source: types.SourceTwitter})
	require.NoError(t, err, "an indexing failure does not fail ingest")
	assert.Nil(t, out.Alert)
	assert.Empty(t, st.alerts)
	assert.Empty(t, pub.msgs)
	assert.Equal(t, types.TierUnknown, out.Item.CustomerTier)
}

func TestFeedbackProcessor_ProcessErrors(t *testing.T) {
	p := NewFeedbackProcessor(Config{Classifier: &fakeClassifier{}, Store: newMemStore()}, logger.Discard())
	_, err := p.Process(context.Background(), queue.ProcessFeedback{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	st := newMemStore()
	st.failSave = true
	p = NewFeedbackProcessor(Config{Classifier: &fakeClassifier{result: classifier.Result{Urgency: 5}}, Store: st}, logger.Discard())
	_, err = p.Process(context.Background(), queue.ProcessFeedback{Content: "x"})
	assert.Error(t, err)
}

func TestFeedbackProcessor_ReclassifyAndBackfill(t *testing.T) {
	st := newMemStore()
	st.items["a"] = &types.FeedbackItem{ID: "a", Content: "slow builds", Urgency: 3, Themes: []string{"uncategorized"}, CustomerTier: types.TierPro}
	st.items["b"] = &types.FeedbackItem{ID: "b", Content: "flaky deploys", Urgency: 3}
	cls := &fakeClassifier{result: classifier.Result{Sentiment: -0.4, SentimentLabel: types.SentimentConcerned, Urgency: 6, Themes: []string{"performance"}, Product: "pages"}}
	p := NewFeedbackProcessor(Config{Classifier: cls, Store: st, Concurrency: 2}, logger.Discard())

	item, err := p.Reclassify(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Urgency)
	assert.Equal(t, []string{"performance"}, item.Themes)
	assert.Equal(t, "pages", st.items["a"].Product)
	assert.Empty(t, cls.seen[0].Product, "product is detected again")

	results := p.Backfill(context.Background(), []string{"a", "missing", "b"})
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.Contains(t, results[1].Error, "not found")
	assert.Empty(t, results[2].Error)
	assert.Equal(t, "concerned", string(st.items["b"].SentimentLabel))
}

type unknownMessage struct{ queue.ProcessFeedback }

func TestFeedbackProcessor_Handle(t *testing.T) {
	st := newMemStore()
	st.items["a"] = &types.FeedbackItem{ID: "a", Content: "x"}
	p := NewFeedbackProcessor(Config{Classifier: &fakeClassifier{result: classifier.Result{Urgency: 2}}, Store: st}, logger.Discard())
	ctx := context.Background()

	assert.NoError(t, p.Handle(ctx, queue.ProcessFeedback{Content: "hello", Source: types.SourceForum}))
	assert.NoError(t, p.Handle(ctx, queue.ReclassifyFeedback{FeedbackID: "a"}))
	assert.ErrorIs(t, p.Handle(ctx, queue.ReclassifyFeedback{FeedbackID: "zzz"}), types.ErrNotFound)
	assert.NoError(t, p.Handle(ctx, queue.AlertRaised{Alert: types.Alert{ID: "x"}}))
	assert.ErrorIs(t, p.Handle(ctx, unknownMessage{}), queue.ErrUnknownMessage)
	assert.Len(t, st.items, 2)
}
