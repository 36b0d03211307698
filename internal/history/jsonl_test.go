// SPDX-License-Identifier: MIT

package history

import (
	"os"
	"testing"
	"time"

	"github.com/ManuGH/apiwatch/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLAppendAndLoad(t *testing.T) {
	w, err := NewJSONLWriter(t.TempDir())
	require.NoError(t, err)

	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	res := probe.Result{
		ID:           "check-1",
		Target:       "GitHub API",
		URL:          "https://api.github.com",
		Timestamp:    ts,
		Status:       probe.StatusUp,
		HTTPStatus:   200,
		ResponseTime: 150 * time.Millisecond,
		BodyHash:     "cafebabe",
	}
	require.NoError(t, w.Append(res))
	require.NoError(t, w.Append(res))

	assert.FileExists(t, w.Path("GitHub API"))
	assert.Contains(t, w.Path("GitHub API"), "github-api.log")

	loaded, err := w.Load("GitHub API")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, probe.StatusUp, loaded[0].Status)
	assert.Equal(t, 150*time.Millisecond, loaded[0].ResponseTime)
	assert.Equal(t, "cafebabe", loaded[0].BodyHash)
}

func TestJSONLLoadSkipsCorruptLines(t *testing.T) {
	w, err := NewJSONLWriter(t.TempDir())
	require.NoError(t, err)

	res := probe.Result{ID: "check-1", Target: "Test API", Status: probe.StatusUp, Timestamp: time.Now()}
	require.NoError(t, w.Append(res))

	f, err := os.OpenFile(w.Path("Test API"), os.O_APPEND|os.O_WRONLY, 0o640)
	require.NoError(t, err)
	_, err = f.WriteString("{not valid json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, w.Append(res))

	loaded, err := w.Load("Test API")
	require.NoError(t, err)
	assert.Len(t, loaded, 2, "corrupt line skipped, valid lines kept")
}

func TestJSONLLoadMissingFile(t *testing.T) {
	w, err := NewJSONLWriter(t.TempDir())
	require.NoError(t, err)

	loaded, err := w.Load("never checked")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GitHub API", "github-api"},
		{"JSONPlaceholder", "jsonplaceholder"},
		{"Über Service", "ueber-service"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"!!!", "target"},
		{"", "target"},
		{"API v2 (staging)", "api-v2-staging"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), "slug of %q", tt.in)
	}
}
