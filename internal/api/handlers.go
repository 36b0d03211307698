// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/history"
	"github.com/ManuGH/apiwatch/internal/probe"
	"github.com/ManuGH/apiwatch/internal/state"
	"github.com/go-chi/chi/v5"
)

// defaultStatsWindow bounds stats queries when the caller gives no range.
const defaultStatsWindow = 24 * time.Hour

// targetSummary is one row of the target list.
type targetSummary struct {
	Name                string       `json:"name"`
	URL                 string       `json:"url"`
	LastStatus          probe.Status `json:"last_status,omitempty"`
	LastCheckedAt       *time.Time   `json:"last_checked_at,omitempty"`
	DownSince           *time.Time   `json:"down_since,omitempty"`
	OpenIncidentID      string       `json:"open_incident_id,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures,omitempty"`
}

// targetDetail is the single-target response: live state plus recent checks.
type targetDetail struct {
	targetSummary
	Checks []probe.Result `json:"checks"`
}

// targetStats bundles aggregates with recent incidents.
type targetStats struct {
	Since     time.Time          `json:"since"`
	Stats     history.Stats      `json:"stats"`
	Incidents []history.Incident `json:"incidents"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "1" || r.URL.Query().Get("verbose") == "true"
	s.writeJSON(w, http.StatusOK, s.opts.Health.Health(r.Context(), verbose))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.opts.Health.Ready(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	cfg := s.opts.Holder.Get()

	states, err := s.opts.States.All(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "state_unavailable", err.Error())
		return
	}
	byName := make(map[string]state.TargetState, len(states))
	for _, st := range states {
		byName[st.Target] = st
	}

	out := make([]targetSummary, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		out = append(out, summarize(t.Name, t.URL, byName[t.Name]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	target, ok := s.lookupTarget(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown_target", "no such target: "+name)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			s.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer between 1 and 1000")
			return
		}
		limit = n
	}

	st, err := s.opts.States.Get(r.Context(), name)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		s.writeError(w, http.StatusInternalServerError, "state_unavailable", err.Error())
		return
	}

	checks, err := s.opts.History.QueryChecks(r.Context(), name, time.Time{}, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	if checks == nil {
		checks = []probe.Result{}
	}

	s.writeJSON(w, http.StatusOK, targetDetail{
		targetSummary: summarize(name, target.URL, st),
		Checks:        checks,
	})
}

func (s *Server) handleTargetStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.lookupTarget(name); !ok {
		s.writeError(w, http.StatusNotFound, "unknown_target", "no such target: "+name)
		return
	}

	window := defaultStatsWindow
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_since", "since must be a positive duration like \"24h\"")
			return
		}
		window = d
	}
	since := time.Now().Add(-window)

	stats, err := s.opts.History.TargetStats(r.Context(), name, since)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	incidents, err := s.opts.History.Incidents(r.Context(), name, since, 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	if incidents == nil {
		incidents = []history.Incident{}
	}

	s.writeJSON(w, http.StatusOK, targetStats{
		Since:     since,
		Stats:     stats,
		Incidents: incidents,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Holder.Reload(r.Context()); err != nil {
		s.writeError(w, http.StatusConflict, "reload_failed", err.Error())
		return
	}
	cfg := s.opts.Holder.Get()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reloaded",
		"targets": len(cfg.Targets),
	})
}

// lookupTarget finds a target by name in the current configuration.
func (s *Server) lookupTarget(name string) (config.Target, bool) {
	for _, t := range s.opts.Holder.Get().Targets {
		if t.Name == name {
			return t, true
		}
	}
	return config.Target{}, false
}

func summarize(name, url string, st state.TargetState) targetSummary {
	sum := targetSummary{
		Name:                name,
		URL:                 url,
		LastStatus:          st.LastStatus,
		DownSince:           st.DownSince,
		OpenIncidentID:      st.OpenIncidentID,
		ConsecutiveFailures: st.ConsecutiveFailures,
	}
	if !st.LastCheckedAt.IsZero() {
		ts := st.LastCheckedAt
		sum.LastCheckedAt = &ts
	}
	return sum
}
