package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

func TestSendGridClient_SendAlert(t *testing.T) {
	var got mailSendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := NewSendGridClient(Config{APIKey: "SG.key", BaseURL: server.URL, From: "alerts@example.com", To: []string{"a@example.com", "b@example.com"}})
	alert := types.Alert{Type: types.AlertCritical, Message: "Critical issue reported: outage", Product: "r2", FeedbackIDs: []string{"f1"}, CreatedAt: time.Now()}
	require.NoError(t, c.SendAlert(context.Background(), alert))

	assert.Equal(t, "[CRITICAL] Feedback alert for r2", got.Subject)
	require.Len(t, got.Personalizations, 1)
	assert.Len(t, got.Personalizations[0].To, 2)
	assert.Contains(t, got.Content[0].Value, "Critical issue reported: outage")
	assert.Contains(t, got.Content[0].Value, "Feedback: f1")
}

func TestSendGridClient_Errors(t *testing.T) {
	err := NewSendGridClient(Config{APIKey: "k"}).SendAlert(context.Background(), types.Alert{})
	assert.ErrorIs(t, err, types.ErrNotConfigured)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	c := NewSendGridClient(Config{APIKey: "k", BaseURL: server.URL, From: "a@x.io", To: []string{"b@x.io"}})
	err = c.SendAlert(context.Background(), types.Alert{Type: types.AlertWarning})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
