// SPDX-License-Identifier: MIT

// Package monitor drives the check loop: it probes every configured target
// on an interval, persists results, tracks downtime incidents, detects
// response changes and dispatches alerts.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/apiwatch/internal/alert"
	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/health"
	"github.com/ManuGH/apiwatch/internal/history"
	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/ManuGH/apiwatch/internal/metrics"
	"github.com/ManuGH/apiwatch/internal/probe"
	"github.com/ManuGH/apiwatch/internal/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options wires the runner's collaborators.
type Options struct {
	Holder  *config.Holder
	Prober  *probe.Prober
	States  state.Store
	History *history.Store
	// JSONL is optional; nil disables the per-target log file mirror.
	JSONL  *history.JSONLWriter
	Alerts *alert.Dispatcher
	// Cycle is optional; when set, completed cycles are reported to it.
	Cycle *health.CycleChecker
}

// Runner executes check cycles until its context is cancelled.
type Runner struct {
	opts   Options
	logger zerolog.Logger

	mu          sync.Mutex
	knownTarget map[string]bool
}

// New creates a runner and subscribes it to config reloads.
func New(opts Options) *Runner {
	r := &Runner{
		opts:        opts,
		logger:      xglog.WithComponent("monitor"),
		knownTarget: make(map[string]bool),
	}
	for _, t := range opts.Holder.Get().Targets {
		r.knownTarget[t.Name] = true
	}
	opts.Holder.OnReload(r.onConfigChange)
	return r
}

// Run blocks, executing one cycle immediately and then one per interval,
// until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.opts.Holder.Get()
	r.logger.Info().
		Str(xglog.FieldEvent, "monitor.started").
		Int("targets", len(cfg.Targets)).
		Dur("interval", cfg.Interval.Std()).
		Msg("monitor started")

	for {
		start := time.Now()
		r.RunCycle(ctx)
		metrics.RecordCycle(time.Since(start))
		if r.opts.Cycle != nil {
			r.opts.Cycle.MarkCycle()
		}

		// The interval is re-read every cycle so reloads take effect
		// without a restart.
		interval := r.opts.Holder.Get().Interval.Std()
		select {
		case <-ctx.Done():
			r.logger.Info().Str(xglog.FieldEvent, "monitor.stopped").Msg("monitor stopped")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// RunCycle checks every configured target once, bounded by the configured
// concurrency.
func (r *Runner) RunCycle(ctx context.Context) {
	cfg := r.opts.Holder.Get()
	if len(cfg.Targets) == 0 {
		r.logger.Warn().
			Str(xglog.FieldEvent, "monitor.no_targets").
			Msg("no targets configured, skipping cycle")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrent)
	for _, target := range cfg.Targets {
		g.Go(func() error {
			t := target
			if t.Timeout.Std() <= 0 {
				t.Timeout = cfg.ProbeTimeout
			}
			res := r.opts.Prober.Check(gctx, t)
			r.process(gctx, cfg, res)
			return nil
		})
	}
	_ = g.Wait()
}

// process persists one result and drives state transitions and alerts.
func (r *Runner) process(ctx context.Context, cfg config.Config, res probe.Result) {
	st, err := r.opts.States.Get(ctx, res.Target)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		r.logger.Error().
			Err(err).
			Str(xglog.FieldTarget, res.Target).
			Msg("state read failed")
	}
	if st.Target == "" {
		st.Target = res.Target
	}

	// A change only counts when a previous hash exists; the first
	// observation just seeds the state.
	changed := res.BodyHash != "" && st.LastHash != "" && st.LastHash != res.BodyHash

	r.persist(ctx, res, changed)

	var recoveredAfter time.Duration
	switch res.Status {
	case probe.StatusDown:
		st.ConsecutiveFailures++
		if st.OpenIncidentID == "" {
			incident := history.Incident{
				ID:       uuid.NewString(),
				Target:   res.Target,
				OpenedAt: res.Timestamp,
				Reason:   res.Error,
			}
			if err := r.opts.History.OpenIncident(ctx, incident); err != nil {
				r.logger.Error().
					Err(err).
					Str(xglog.FieldTarget, res.Target).
					Msg("failed to open incident")
			} else {
				st.OpenIncidentID = incident.ID
				ts := res.Timestamp
				st.DownSince = &ts
				metrics.RecordIncidentOpened(res.Target)
				r.logger.Warn().
					Str(xglog.FieldEvent, "incident.opened").
					Str(xglog.FieldTarget, res.Target).
					Str(xglog.FieldIncidentID, incident.ID).
					Msg("downtime incident opened")
			}
		}
	case probe.StatusError:
		st.ConsecutiveFailures++
	case probe.StatusUp:
		if st.OpenIncidentID != "" {
			if st.DownSince != nil {
				recoveredAfter = res.Timestamp.Sub(*st.DownSince)
			}
			if err := r.opts.History.CloseIncident(ctx, st.OpenIncidentID, res.Timestamp); err != nil {
				r.logger.Error().
					Err(err).
					Str(xglog.FieldTarget, res.Target).
					Str(xglog.FieldIncidentID, st.OpenIncidentID).
					Msg("failed to close incident")
			} else {
				metrics.RecordIncidentClosed()
				r.logger.Info().
					Str(xglog.FieldEvent, "incident.closed").
					Str(xglog.FieldTarget, res.Target).
					Str(xglog.FieldIncidentID, st.OpenIncidentID).
					Dur("outage", recoveredAfter).
					Msg("downtime incident resolved")
			}
			st.OpenIncidentID = ""
			st.DownSince = nil
		}
		st.ConsecutiveFailures = 0
	}

	st.LastStatus = res.Status
	st.LastCheckedAt = res.Timestamp
	if res.BodyHash != "" {
		st.LastHash = res.BodyHash
	}
	if err := r.opts.States.Put(ctx, st); err != nil {
		r.logger.Error().
			Err(err).
			Str(xglog.FieldTarget, res.Target).
			Msg("state write failed")
	}

	metrics.RecordCheck(res.Target, string(res.Status), res.ResponseTime)
	if changed {
		metrics.RecordChange(res.Target)
	}

	r.evaluate(ctx, cfg, res, changed, recoveredAfter)
}

// persist writes the result to sqlite and, when enabled, the JSONL mirror.
func (r *Runner) persist(ctx context.Context, res probe.Result, changed bool) {
	if err := r.opts.History.AppendCheck(ctx, res, changed); err != nil {
		metrics.RecordHistoryWriteError()
		r.logger.Error().
			Err(err).
			Str(xglog.FieldTarget, res.Target).
			Msg("history write failed")
	}
	if r.opts.JSONL != nil {
		if err := r.opts.JSONL.Append(res); err != nil {
			metrics.RecordHistoryWriteError()
			r.logger.Error().
				Err(err).
				Str(xglog.FieldTarget, res.Target).
				Msg("jsonl write failed")
		}
	}
}

// onConfigChange updates the known target set and drops metric series of
// removed targets.
func (r *Runner) onConfigChange(cfg config.Config) {
	current := make(map[string]bool, len(cfg.Targets))
	for _, t := range cfg.Targets {
		current[t.Name] = true
	}

	r.mu.Lock()
	for name := range r.knownTarget {
		if !current[name] {
			metrics.RemoveTarget(name)
			r.logger.Info().
				Str(xglog.FieldEvent, "monitor.target_removed").
				Str(xglog.FieldTarget, name).
				Msg("target removed from configuration")
		}
	}
	r.knownTarget = current
	r.mu.Unlock()
}
