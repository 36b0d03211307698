// SPDX-License-Identifier: MIT

// Package state persists per-target monitoring state (last body hash, last
// status, incident bookkeeping) between checks and across restarts.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/apiwatch/internal/probe"
)

// ErrNotFound is returned when no state exists for a target yet.
var ErrNotFound = errors.New("state: target not found")

// TargetState is the persisted per-target record.
type TargetState struct {
	Target              string       `json:"target"`
	LastHash            string       `json:"last_hash,omitempty"`
	LastStatus          probe.Status `json:"last_status,omitempty"`
	LastCheckedAt       time.Time    `json:"last_checked_at"`
	DownSince           *time.Time   `json:"down_since,omitempty"`
	OpenIncidentID      string       `json:"open_incident_id,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures,omitempty"`
}

// Store persists target state. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the state for a target, or ErrNotFound.
	Get(ctx context.Context, target string) (TargetState, error)
	// Put stores the state for a target.
	Put(ctx context.Context, st TargetState) error
	// All returns the state of every known target.
	All(ctx context.Context) ([]TargetState, error)
	// Close releases backend resources.
	Close() error
}

// memoryStore is the default in-process implementation. State does not
// survive restarts; use badger or redis for that.
type memoryStore struct {
	mu     sync.RWMutex
	states map[string]TargetState
}

// NewMemoryStore creates an in-memory state store.
func NewMemoryStore() Store {
	return &memoryStore{states: make(map[string]TargetState)}
}

func (s *memoryStore) Get(_ context.Context, target string) (TargetState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[target]
	if !ok {
		return TargetState{}, ErrNotFound
	}
	return st, nil
}

func (s *memoryStore) Put(_ context.Context, st TargetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.Target] = st
	return nil
}

func (s *memoryStore) All(_ context.Context) ([]TargetState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TargetState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	return out, nil
}

func (s *memoryStore) Close() error { return nil }
