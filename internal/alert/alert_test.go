// SPDX-License-Identifier: MIT

package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlert(level Level) Alert {
	return Alert{
		Level:     level,
		Kind:      KindDown,
		Target:    "GitHub API",
		Message:   "GitHub API is DOWN: request timeout",
		Timestamp: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
	}
}

func TestWebhookDeliversWarningAndCritical(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "GitHub API is DOWN: request timeout", payload["text"])
		assert.Equal(t, "GitHub API", payload["target"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		received.Add(1)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, RatePerMinute: 60})

	require.NoError(t, n.Notify(context.Background(), testAlert(LevelCritical)))
	require.NoError(t, n.Notify(context.Background(), testAlert(LevelWarning)))
	assert.Equal(t, int32(2), received.Load())
}

func TestWebhookSkipsInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("info alerts must not hit the webhook")
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL})
	require.NoError(t, n.Notify(context.Background(), testAlert(LevelInfo)))
}

func TestWebhookRateLimit(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer srv.Close()

	// Burst of 2: the third delivery in quick succession must be dropped.
	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, RatePerMinute: 2})

	require.NoError(t, n.Notify(context.Background(), testAlert(LevelCritical)))
	require.NoError(t, n.Notify(context.Background(), testAlert(LevelCritical)))
	err := n.Notify(context.Background(), testAlert(LevelCritical))
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(2), received.Load())
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL})
	err := n.Notify(context.Background(), testAlert(LevelCritical))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type failingNotifier struct{ calls atomic.Int32 }

func (f *failingNotifier) Name() string { return "failing" }
func (f *failingNotifier) Notify(context.Context, Alert) error {
	f.calls.Add(1)
	return assert.AnError
}

type recordingNotifier struct{ calls atomic.Int32 }

func (r *recordingNotifier) Name() string { return "recording" }
func (r *recordingNotifier) Notify(context.Context, Alert) error {
	r.calls.Add(1)
	return nil
}

func TestDispatcherContinuesPastFailures(t *testing.T) {
	failing := &failingNotifier{}
	recording := &recordingNotifier{}
	d := NewDispatcher(failing, recording)

	d.Dispatch(context.Background(), testAlert(LevelCritical))

	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Equal(t, int32(1), recording.calls.Load(), "later notifiers still run")
}

func TestConsoleNotifierNeverFails(t *testing.T) {
	n := NewConsoleNotifier()
	for _, level := range []Level{LevelInfo, LevelWarning, LevelCritical} {
		require.NoError(t, n.Notify(context.Background(), testAlert(level)))
	}
}
