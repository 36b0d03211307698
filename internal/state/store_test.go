// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/apiwatch/internal/probe"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract exercises the behavior every backend must share.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)

	downSince := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	st := TargetState{
		Target:              "GitHub API",
		LastHash:            "cafebabe",
		LastStatus:          probe.StatusDown,
		LastCheckedAt:       downSince.Add(time.Minute),
		DownSince:           &downSince,
		OpenIncidentID:      "inc-1",
		ConsecutiveFailures: 3,
	}
	require.NoError(t, store.Put(ctx, st))

	got, err := store.Get(ctx, "GitHub API")
	require.NoError(t, err)
	assert.Equal(t, st.LastHash, got.LastHash)
	assert.Equal(t, st.LastStatus, got.LastStatus)
	assert.Equal(t, st.OpenIncidentID, got.OpenIncidentID)
	assert.Equal(t, st.ConsecutiveFailures, got.ConsecutiveFailures)
	require.NotNil(t, got.DownSince)
	assert.True(t, got.DownSince.Equal(downSince))

	// Overwrite wins.
	st.LastHash = "deadbeef"
	st.LastStatus = probe.StatusUp
	st.DownSince = nil
	st.OpenIncidentID = ""
	require.NoError(t, store.Put(ctx, st))

	got, err = store.Get(ctx, "GitHub API")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", got.LastHash)
	assert.Nil(t, got.DownSince)

	require.NoError(t, store.Put(ctx, TargetState{Target: "JSONPlaceholder", LastStatus: probe.StatusUp}))
	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer func() { require.NoError(t, store.Close()) }()
	storeContract(t, store)
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()
	storeContract(t, store)
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, TargetState{Target: "GitHub API", LastHash: "cafebabe"}))
	require.NoError(t, store.Close())

	store, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	got, err := store.Get(ctx, "GitHub API")
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", got.LastHash)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store := &redisStore{client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	defer func() { require.NoError(t, store.Close()) }()
	storeContract(t, store)
}

func TestNewRedisStoreConnectionFailure(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
