// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProber() *Prober {
	return New(Options{Timeout: 2 * time.Second})
}

func TestCheckUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apiwatch", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res := newTestProber().Check(context.Background(), config.Target{
		Name: "Test API",
		URL:  srv.URL,
	})

	assert.Equal(t, StatusUp, res.Status)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Empty(t, res.Error)
	assert.Empty(t, res.BodyHash, "hash only computed when track_body is set")
	assert.Greater(t, res.ResponseTime, time.Duration(0))
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Timestamp.IsZero())
}

func TestCheckUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := newTestProber().Check(context.Background(), config.Target{
		Name: "Test API",
		URL:  srv.URL,
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
	assert.Equal(t, "unexpected status code: 500", res.Error)
}

func TestCheckExpectedNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := newTestProber().Check(context.Background(), config.Target{
		Name:           "Test API",
		URL:            srv.URL,
		ExpectedStatus: 204,
	})

	assert.Equal(t, StatusUp, res.Status)
}

func TestCheckConnectionError(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := newTestProber().Check(context.Background(), config.Target{
		Name: "Test API",
		URL:  url,
	})

	assert.Equal(t, StatusDown, res.Status)
	assert.Contains(t, res.Error, "connection error")
	assert.Zero(t, res.HTTPStatus)
}

func TestCheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	res := newTestProber().Check(context.Background(), config.Target{
		Name:    "Slow API",
		URL:     srv.URL,
		Timeout: config.Duration(50 * time.Millisecond),
	})

	assert.Equal(t, StatusDown, res.Status)
	assert.Equal(t, "request timeout", res.Error)
}

func TestCheckBodyHashStableAndChanging(t *testing.T) {
	body := `{"version":1}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	target := config.Target{Name: "Test API", URL: srv.URL, TrackBody: true}
	p := newTestProber()

	first := p.Check(context.Background(), target)
	second := p.Check(context.Background(), target)
	require.NotEmpty(t, first.BodyHash)
	assert.Equal(t, first.BodyHash, second.BodyHash, "identical bodies must hash identically")
	assert.Equal(t, int64(len(body)), first.BodyBytes)

	body = `{"version":2}`
	third := p.Check(context.Background(), target)
	assert.NotEqual(t, first.BodyHash, third.BodyHash, "changed body must change the hash")
}

func TestCheckCustomMethodAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "token abc", r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	res := newTestProber().Check(context.Background(), config.Target{
		Name:    "Test API",
		URL:     srv.URL,
		Method:  "head",
		Headers: map[string]string{"Authorization": "token abc"},
	})
	assert.Equal(t, StatusUp, res.Status)
}

func TestResultJSONRoundTrip(t *testing.T) {
	res := Result{
		ID:           "abc",
		Target:       "Test API",
		URL:          "https://example.com",
		Timestamp:    time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
		Status:       StatusUp,
		HTTPStatus:   200,
		ResponseTime: 1234 * time.Millisecond,
		BodyHash:     "deadbeef",
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"response_time_ms":1234`)
	assert.Contains(t, string(data), `"response_hash":"deadbeef"`)

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res.Status, back.Status)
	assert.Equal(t, res.ResponseTime, back.ResponseTime)
}
