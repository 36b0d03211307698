// SPDX-License-Identifier: MIT

// Package report turns stored check history into uptime and performance
// reports, for the CLI and the admin API.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/apiwatch/internal/history"
	"github.com/google/renameio/v2"
)

// maxIncidentsShown limits how many recent incidents the text report prints.
const maxIncidentsShown = 5

// TargetReport is the analysis result for one target.
type TargetReport struct {
	Stats     history.Stats      `json:"stats"`
	Incidents []history.Incident `json:"incidents,omitempty"`
}

// Report is the full analysis output.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Since       time.Time      `json:"since,omitempty"`
	Targets     []TargetReport `json:"targets"`
}

// Analyzer computes reports from the history store.
type Analyzer struct {
	store *history.Store
}

// NewAnalyzer creates an analyzer over the given store.
func NewAnalyzer(store *history.Store) *Analyzer {
	return &Analyzer{store: store}
}

// AnalyzeTarget builds the report for a single target.
func (a *Analyzer) AnalyzeTarget(ctx context.Context, target string, since time.Time) (TargetReport, error) {
	stats, err := a.store.TargetStats(ctx, target, since)
	if err != nil {
		return TargetReport{}, err
	}
	incidents, err := a.store.Incidents(ctx, target, since, 0)
	if err != nil {
		return TargetReport{}, err
	}
	return TargetReport{Stats: stats, Incidents: incidents}, nil
}

// Analyze builds the report for every target in the history, or for the
// single named target when target is non-empty.
func (a *Analyzer) Analyze(ctx context.Context, target string, since time.Time) (Report, error) {
	rep := Report{GeneratedAt: time.Now().UTC(), Since: since}

	names := []string{target}
	if target == "" {
		var err error
		names, err = a.store.TargetNames(ctx)
		if err != nil {
			return Report{}, err
		}
	}

	for _, name := range names {
		tr, err := a.AnalyzeTarget(ctx, name, since)
		if err != nil {
			return Report{}, err
		}
		rep.Targets = append(rep.Targets, tr)
	}
	return rep, nil
}

// RenderText writes a human-readable report.
func RenderText(w io.Writer, rep Report) error {
	if len(rep.Targets) == 0 {
		_, err := fmt.Fprintln(w, "No checks recorded yet.")
		return err
	}

	for _, tr := range rep.Targets {
		s := tr.Stats
		fmt.Fprintf(w, "============================================================\n")
		fmt.Fprintf(w, "Analysis for: %s\n", s.Target)
		fmt.Fprintf(w, "============================================================\n\n")

		fmt.Fprintf(w, "Uptime Statistics:\n")
		fmt.Fprintf(w, "   Uptime: %.2f%%\n", s.UptimePercent)
		fmt.Fprintf(w, "   Total Checks: %d\n", s.TotalChecks)
		fmt.Fprintf(w, "   Successful: %d\n", s.UpCount)
		fmt.Fprintf(w, "   Failed: %d\n\n", s.DownCount)

		fmt.Fprintf(w, "Performance:\n")
		fmt.Fprintf(w, "   Average Response Time: %.2fms\n", s.AvgResponseMS)
		fmt.Fprintf(w, "   P95 Response Time: %.2fms\n", s.P95ResponseMS)
		if s.ChangeCount > 0 {
			fmt.Fprintf(w, "   Response Changes: %d\n", s.ChangeCount)
		}
		fmt.Fprintln(w)

		if len(tr.Incidents) > 0 {
			shown := tr.Incidents
			if len(shown) > maxIncidentsShown {
				shown = shown[:maxIncidentsShown]
			}
			fmt.Fprintf(w, "Recent Incidents (%d total):\n", len(tr.Incidents))
			for _, inc := range shown {
				status := "resolved"
				if inc.ClosedAt == nil {
					status = "ongoing"
				}
				fmt.Fprintf(w, "   [%s] %s: %s (%s)\n",
					inc.OpenedAt.Format(time.RFC3339), status, inc.Reason,
					inc.Duration(rep.GeneratedAt).Round(time.Second))
			}
		} else {
			fmt.Fprintf(w, "No incidents recorded.\n")
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteJSON writes the report as JSON, atomically, so a crash mid-write
// never leaves a truncated report behind.
func WriteJSON(path string, rep Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
