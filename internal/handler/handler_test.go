package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjha-sj/signal/internal/analytics"
	"github.com/Shubhamjha-sj/signal/internal/chat"
	"github.com/Shubhamjha-sj/signal/internal/processor"
	"github.com/Shubhamjha-sj/signal/internal/search"
	"github.com/Shubhamjha-sj/signal/pkg/adapters"
	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/store"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type registrar interface {
	Register(rg *gin.RouterGroup)
}

func newAPI(h registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r.Group("/api"))
	return r
}

func request(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// feedback

type fakeFeedbackStore struct {
	items     map[string]types.FeedbackItem
	gotFilter types.FeedbackFilter
	gotPage   types.Page
	gotUpdate store.FeedbackUpdate
}

func (f *fakeFeedbackStore) ListFeedback(_ context.Context, filter types.FeedbackFilter, page types.Page) (types.PageResult[types.FeedbackItem], error) {
	f.gotFilter, f.gotPage = filter, page
	return types.PageResult[types.FeedbackItem]{Data: []types.FeedbackItem{}, Page: page.Number, PageSize: page.Size}, nil
}

func (f *fakeFeedbackStore) GetFeedback(_ context.Context, id string) (*types.FeedbackItem, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &it, nil
}

func (f *fakeFeedbackStore) UpdateFeedback(_ context.Context, id string, upd store.FeedbackUpdate) (*types.FeedbackItem, error) {
	f.gotUpdate = upd
	return f.GetFeedback(context.Background(), id)
}

func (f *fakeFeedbackStore) DeleteFeedback(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return types.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeVectors struct{ deleted []string }

func (f *fakeVectors) DeleteByIDs(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeIngestor struct{ got queue.ProcessFeedback }

func (f *fakeIngestor) Process(_ context.Context, msg queue.ProcessFeedback) (*processor.Outcome, error) {
	f.got = msg
	if msg.Content == "" {
		return nil, processor.ErrEmptyContent
	}
	return &processor.Outcome{Item: &types.FeedbackItem{ID: "new", Content: msg.Content, Source: msg.Source}}, nil
}

func (f *fakeIngestor) Reclassify(_ context.Context, id string) (*types.FeedbackItem, error) {
	return &types.FeedbackItem{ID: id}, nil
}

func (f *fakeIngestor) Backfill(_ context.Context, ids []string) []processor.BackfillResult {
	out := make([]processor.BackfillResult, len(ids))
	for i, id := range ids {
		out[i].ID = id
	}
	return out
}

type fakeSimilar struct{}

func (fakeSimilar) Similar(_ context.Context, id string, _ int) ([]search.Hit, error) {
	if id != "a" {
		return nil, types.ErrNotFound
	}
	return []search.Hit{{FeedbackItem: types.FeedbackItem{ID: "b"}, Score: 0.9}}, nil
}

func newFeedbackAPI() (*gin.Engine, *fakeFeedbackStore, *fakeVectors, *fakeIngestor) {
	st := &fakeFeedbackStore{items: map[string]types.FeedbackItem{"a": {ID: "a", Content: "slow"}}}
	vec := &fakeVectors{}
	ing := &fakeIngestor{}
	return newAPI(NewFeedbackHandler(st, vec, ing, fakeSimilar{}, logger.Discard())), st, vec, ing
}

func TestFeedbackHandler_ListFilters(t *testing.T) {
	r, st, _, _ := newFeedbackAPI()

	w := request(r, http.MethodGet, "/api/feedback?source=github,Discord&tier=enterprise&urgency_min=7&page=2&page_size=500&theme=Bug", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []types.Source{types.SourceGitHub, types.SourceDiscord}, st.gotFilter.Sources)
	assert.Equal(t, []types.Tier{types.TierEnterprise}, st.gotFilter.Tiers)
	assert.Equal(t, 7, st.gotFilter.UrgencyMin)
	assert.Equal(t, "bug", st.gotFilter.Theme)
	assert.Equal(t, types.Page{Number: 2, Size: 100}, st.gotPage)

	w = request(r, http.MethodGet, "/api/feedback?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackHandler_GetNotFound(t *testing.T) {
	r, _, _, _ := newFeedbackAPI()

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/feedback/a", nil).Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/feedback/zzz", nil).Code)
}

func TestFeedbackHandler_Create(t *testing.T) {
	r, _, _, ing := newFeedbackAPI()

	w := request(r, http.MethodPost, "/api/feedback", gin.H{"content": "Workers crash", "source": "GitHub", "customer_tier": "Enterprise"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, types.SourceGitHub, ing.got.Source)
	assert.Equal(t, types.TierEnterprise, ing.got.CustomerTier)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/feedback", gin.H{"content": "x", "source": "fax"}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/feedback", gin.H{"content": "", "source": "github"}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/feedback", "{not json").Code)
}

func TestFeedbackHandler_Update(t *testing.T) {
	r, st, _, _ := newFeedbackAPI()

	w := request(r, http.MethodPatch, "/api/feedback/a", gin.H{"status": "resolved", "urgency": 3})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, st.gotUpdate.Status)
	assert.Equal(t, types.StatusResolved, *st.gotUpdate.Status)
	assert.Equal(t, 3, *st.gotUpdate.Urgency)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPatch, "/api/feedback/a", gin.H{"urgency": 11}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPatch, "/api/feedback/a", gin.H{"status": "done"}).Code)
}

func TestFeedbackHandler_DeleteRemovesVector(t *testing.T) {
	r, _, vec, _ := newFeedbackAPI()

	assert.Equal(t, http.StatusOK, request(r, http.MethodDelete, "/api/feedback/a", nil).Code)
	assert.Equal(t, []string{"a"}, vec.deleted)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodDelete, "/api/feedback/a", nil).Code)
}

func TestFeedbackHandler_SimilarAndBackfill(t *testing.T) {
	r, _, _, _ := newFeedbackAPI()

	w := request(r, http.MethodGet, "/api/feedback/a/similar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/feedback/x/similar", nil).Code)

	w = request(r, http.MethodPost, "/api/feedback/backfill", gin.H{"ids": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["results"], 2)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/feedback/backfill", gin.H{"ids": []string{}}).Code)
}

// alerts

type fakeAlertStore struct {
	created  []types.Alert
	ackAll   types.AlertFilter
	counts   map[types.AlertType]int64
	listSeen types.AlertFilter
}

func (f *fakeAlertStore) CreateAlert(_ context.Context, a *types.Alert) error {
	a.ID = "al-1"
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeAlertStore) GetAlert(context.Context, string) (*types.Alert, error) {
	return nil, types.ErrNotFound
}

func (f *fakeAlertStore) ListAlerts(_ context.Context, filter types.AlertFilter) ([]types.Alert, error) {
	f.listSeen = filter
	return []types.Alert{}, nil
}

func (f *fakeAlertStore) AcknowledgeAlert(_ context.Context, id string) (*types.Alert, error) {
	return &types.Alert{ID: id, Acknowledged: true}, nil
}

func (f *fakeAlertStore) AcknowledgeAll(_ context.Context, filter types.AlertFilter) (int64, error) {
	f.ackAll = filter
	return 3, nil
}

func (f *fakeAlertStore) DeleteAlert(context.Context, string) error { return nil }

func (f *fakeAlertStore) UnacknowledgedCounts(context.Context) (map[types.AlertType]int64, error) {
	return f.counts, nil
}

type fakeNotifier struct{ notified int }

func (f *fakeNotifier) Notify(context.Context, types.Alert) []types.NotificationResult {
	f.notified++
	return []types.NotificationResult{{Channel: "slack", Success: true}}
}

func (f *fakeNotifier) Test(context.Context) []types.NotificationResult {
	return []types.NotificationResult{
		{Channel: "slack", Success: true},
		{Channel: "email", Success: false, Error: "email: not configured"},
	}
}

type fakeDetector struct{ err error }

func (f fakeDetector) Run(context.Context) ([]types.Alert, error) {
	return []types.Alert{{ID: "d1", Type: types.AlertWarning}}, f.err
}

func TestAlertsHandler_CreateNotifiesCritical(t *testing.T) {
	st, n := &fakeAlertStore{}, &fakeNotifier{}
	r := newAPI(NewAlertsHandler(st, n, fakeDetector{}, logger.Discard()))

	w := request(r, http.MethodPost, "/api/alerts", gin.H{"type": "warning", "message": "spike"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, n.notified)

	w = request(r, http.MethodPost, "/api/alerts", gin.H{"type": "critical", "message": "outage", "product": "r2"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, n.notified)
	assert.Contains(t, decodeBody(t, w), "notifications")

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/alerts", gin.H{"type": "panic", "message": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/alerts", gin.H{"type": "info", "message": " "}).Code)
}

func TestAlertsHandler_ListAndAcknowledgeAll(t *testing.T) {
	st := &fakeAlertStore{}
	r := newAPI(NewAlertsHandler(st, &fakeNotifier{}, fakeDetector{}, logger.Discard()))

	require.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/alerts?type=critical&acknowledged=false&product=d1", nil).Code)
	assert.Equal(t, types.AlertCritical, st.listSeen.Type)
	require.NotNil(t, st.listSeen.Acknowledged)
	assert.False(t, *st.listSeen.Acknowledged)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodGet, "/api/alerts?acknowledged=maybe", nil).Code)

	w := request(r, http.MethodPost, "/api/alerts/acknowledge-all?type=warning", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeBody(t, w)["acknowledged"])
	assert.Equal(t, types.AlertWarning, st.ackAll.Type)

	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/alerts/missing", nil).Code)
}

func TestAlertsHandler_Counts(t *testing.T) {
	st := &fakeAlertStore{counts: map[types.AlertType]int64{types.AlertCritical: 2, types.AlertWarning: 1, types.AlertInfo: 0}}
	r := newAPI(NewAlertsHandler(st, &fakeNotifier{}, fakeDetector{}, logger.Discard()))

	w := request(r, http.MethodGet, "/api/alerts/counts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["critical"])
	assert.Equal(t, float64(3), body["total"])
}

func TestAlertsHandler_TestNotification(t *testing.T) {
	r := newAPI(NewAlertsHandler(&fakeAlertStore{}, &fakeNotifier{}, fakeDetector{}, logger.Discard()))

	w := request(r, http.MethodPost, "/api/alerts/test-notification", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, map[string]any{"success": true, "error": ""}, body["slack"])
	assert.Equal(t, map[string]any{"success": false, "error": "email: not configured"}, body["email"])
}

func TestAlertsHandler_AutoDetect(t *testing.T) {
	r := newAPI(NewAlertsHandler(&fakeAlertStore{}, &fakeNotifier{}, fakeDetector{}, logger.Discard()))
	w := request(r, http.MethodPost, "/api/alerts/auto-detect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["alerts_created"])

	r = newAPI(NewAlertsHandler(&fakeAlertStore{}, &fakeNotifier{}, fakeDetector{err: errors.New("db down")}, logger.Discard()))
	w = request(r, http.MethodPost, "/api/alerts/auto-detect", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeBody(t, w)["error"])
}

// analytics

type fakeAnalytics struct{ gotRange types.TimeRange }

func (f *fakeAnalytics) Summary(_ context.Context, r types.TimeRange) (*analytics.Summary, error) {
	f.gotRange = r
	return &analytics.Summary{TimeRange: r, TotalFeedback: 4}, nil
}

func (f *fakeAnalytics) Themes(context.Context, types.TimeRange, int) ([]types.Theme, error) {
	return []types.Theme{}, nil
}

func (f *fakeAnalytics) Products(context.Context, types.TimeRange) ([]analytics.ProductBreakdown, error) {
	return nil, nil
}

func (f *fakeAnalytics) Sources(context.Context, types.TimeRange) ([]analytics.SourceBreakdown, error) {
	return nil, nil
}

func (f *fakeAnalytics) Sentiment(context.Context, types.TimeRange) (*analytics.SentimentBreakdown, error) {
	return &analytics.SentimentBreakdown{}, nil
}

func (f *fakeAnalytics) Trends(_ context.Context, r types.TimeRange, metric string) (*analytics.Trend, error) {
	if metric == "revenue" {
		return nil, analytics.ErrInvalidMetric
	}
	return &analytics.Trend{Metric: metric, TimeRange: r}, nil
}

func TestAnalyticsHandler_TimeRange(t *testing.T) {
	svc := &fakeAnalytics{}
	r := newAPI(NewAnalyticsHandler(svc, logger.Discard()))

	w := request(r, http.MethodGet, "/api/analytics/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.Range7d, svc.gotRange)
	assert.Equal(t, float64(4), decodeBody(t, w)["total_feedback"])

	require.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/analytics/summary?time_range=24h", nil).Code)
	assert.Equal(t, types.Range24h, svc.gotRange)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodGet, "/api/analytics/summary?time_range=1y", nil).Code)
}

func TestAnalyticsHandler_Trends(t *testing.T) {
	r := newAPI(NewAnalyticsHandler(&fakeAnalytics{}, logger.Discard()))

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/analytics/trends?metric=urgency", nil).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodGet, "/api/analytics/trends?metric=revenue", nil).Code)
}

// chat

type fakeChat struct{}

func (fakeChat) Send(_ context.Context, id, message string) (*chat.Reply, error) {
	if message == "" {
		return nil, chat.ErrEmptyMessage
	}
	return &chat.Reply{Message: "answer", ConversationID: id, Sources: []types.ChatSource{}}, nil
}

func (fakeChat) History(context.Context, string) ([]types.Turn, error) {
	return nil, types.ErrNotFound
}

func (fakeChat) Clear(context.Context, string) error { return nil }

func (fakeChat) Summarize(_ context.Context, ids []string) (*chat.Summary, error) {
	if len(ids) == 0 {
		return nil, chat.ErrNoFeedbackIDs
	}
	return &chat.Summary{Summary: "s", FeedbackCount: len(ids), FeedbackIDs: ids}, nil
}

func TestChatHandler(t *testing.T) {
	r := newAPI(NewChatHandler(fakeChat{}, logger.Discard()))

	w := request(r, http.MethodPost, "/api/chat", gin.H{"message": "what's trending?", "conversation_id": "c1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", decodeBody(t, w)["conversation_id"])

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/chat", gin.H{"message": ""}).Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/chat/c1/history", nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodDelete, "/api/chat/c1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/chat/summarize", gin.H{"feedback_ids": []string{}}).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/chat/summarize", gin.H{"feedback_ids": []string{"a"}}).Code)
}

// search

type fakeSearcher struct{ gotLimit int }

func (f *fakeSearcher) Search(_ context.Context, query string, limit int, _ search.Filters) ([]search.Hit, error) {
	f.gotLimit = limit
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	return []search.Hit{}, nil
}

func TestSearchHandler(t *testing.T) {
	s := &fakeSearcher{}
	r := newAPI(NewSearchHandler(s, logger.Discard()))

	w := request(r, http.MethodPost, "/api/search", gin.H{"query": "slow deploys", "limit": 20})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, s.gotLimit)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/search", gin.H{"query": "x", "limit": 51}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/search", gin.H{"query": ""}).Code)
}

// customers

type fakeCustomerStore struct {
	created *types.Customer
}

func (f *fakeCustomerStore) ListCustomers(_ context.Context, _ types.Tier, _ string, p types.Page) (types.PageResult[types.Customer], error) {
	return types.PageResult[types.Customer]{Data: []types.Customer{}, Page: p.Number, PageSize: p.Size}, nil
}

func (f *fakeCustomerStore) GetCustomer(_ context.Context, id string) (*types.Customer, error) {
	if id != "c1" {
		return nil, types.ErrNotFound
	}
	return &types.Customer{ID: "c1", Name: "Acme"}, nil
}

func (f *fakeCustomerStore) CreateCustomer(_ context.Context, c *types.Customer) error {
	c.ID = "c2"
	f.created = c
	return nil
}

func (f *fakeCustomerStore) UpdateCustomer(_ context.Context, c *types.Customer) error {
	if c.ID != "c1" {
		return types.ErrNotFound
	}
	return nil
}

func (f *fakeCustomerStore) DeleteCustomer(context.Context, string) error { return nil }

func (f *fakeCustomerStore) FeedbackByCustomer(context.Context, string, int) ([]types.FeedbackItem, error) {
	return []types.FeedbackItem{{ID: "f1"}}, nil
}

func TestCustomersHandler(t *testing.T) {
	st := &fakeCustomerStore{}
	r := newAPI(NewCustomersHandler(st, logger.Discard()))

	w := request(r, http.MethodPost, "/api/customers", gin.H{"name": " Globex ", "tier": "pro", "arr": 1000, "domain": "globex.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Globex", st.created.Name)
	assert.Equal(t, types.TierPro, st.created.Tier)
	assert.Equal(t, []string{}, st.created.Products)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/customers", gin.H{"name": ""}).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/customers", gin.H{"name": "x", "tier": "gold"}).Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodPut, "/api/customers/zz", gin.H{"name": "x"}).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPut, "/api/customers/c1", gin.H{"name": "Acme Inc"}).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/customers/c1/feedback", nil).Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/customers/zz/feedback", nil).Code)
}

// webhooks

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newWebhookRouter(enabled []string, pub queue.Publisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reg := adapters.NewRegistry(enabled, nil, logger.Discard())
	NewWebhookHandler(reg, pub, logger.Discard()).Register(r)
	return r
}

func TestWebhookHandler_GitHubQueued(t *testing.T) {
	pub := &recordingPublisher{}
	r := newWebhookRouter(nil, pub)

	body := `{"action":"opened","issue":{"number":1,"title":"D1 timeouts","body":"Queries hang","user":{"login":"octo"}},"repository":{"full_name":"acme/app"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(body))
	req.Header.Set("X-GitHub-Event", "issues")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, pub.msgs, 1)
	msg, ok := pub.msgs[0].(queue.ProcessFeedback)
	require.True(t, ok)
	assert.Equal(t, types.SourceGitHub, msg.Source)
}

func TestWebhookHandler_DiscordPing(t *testing.T) {
	r := newWebhookRouter(nil, &recordingPublisher{})

	w := request(r, http.MethodPost, "/webhooks/discord", `{"type":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"type":1}`, w.Body.String())
}

func TestWebhookHandler_Errors(t *testing.T) {
	r := newWebhookRouter([]string{"github"}, &recordingPublisher{})

	assert.Equal(t, http.StatusNotFound, request(r, http.MethodPost, "/webhooks/myspace", `{}`).Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/webhooks/twitter", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/webhooks/github", `{oops`).Code)

	r = newWebhookRouter(nil, &recordingPublisher{err: errors.New("broker down")})
	w := request(r, http.MethodPost, "/webhooks/discord", `{"type":0,"content":"Pages builds fail","author":{"id":"1","username":"dev"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhookHandler_Status(t *testing.T) {
	r := newWebhookRouter([]string{"github", "email"}, &recordingPublisher{})

	w := request(r, http.MethodGet, "/webhooks/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Adapters map[string]adapters.SourceStatus `json:"adapters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Adapters["github"].Enabled)
	assert.False(t, body.Adapters["discord"].Enabled)
	assert.Equal(t, "/webhooks/email", body.Adapters["email"].Endpoint)
}

// health

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
	}).HandleHealth)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", nil).Code)

	r = gin.New()
	r.GET("/health", NewHealthHandler(map[string]Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}).HandleHealth)
	w := request(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decodeBody(t, w)["status"])
}
