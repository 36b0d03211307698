// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for apiwatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apiwatch_checks_total",
		Help: "Total number of checks performed per target by outcome",
	}, []string{"target", "status"}) // status=up|down|error

	responseTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apiwatch_response_time_seconds",
		Help:    "Response time of target checks in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
	}, []string{"target"})

	targetUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apiwatch_target_up",
		Help: "Whether the target is up (1) or not (0) as of the last check",
	}, []string{"target"})

	responseChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apiwatch_response_changes_total",
		Help: "Total number of detected response body changes per target",
	}, []string{"target"})

	incidentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apiwatch_incidents_total",
		Help: "Total number of downtime incidents opened per target",
	}, []string{"target"})

	incidentsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apiwatch_incidents_open",
		Help: "Number of currently open downtime incidents",
	})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apiwatch_alerts_total",
		Help: "Total number of alerts dispatched by level and kind",
	}, []string{"level", "kind"})

	alertsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apiwatch_alerts_dropped_total",
		Help: "Total number of alerts dropped (rate limited or delivery failed)",
	})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apiwatch_config_reloads_total",
		Help: "Total number of configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	historyWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apiwatch_history_write_errors_total",
		Help: "Total number of failed history writes (sqlite or jsonl)",
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apiwatch_cycle_duration_seconds",
		Help:    "Wall time of a full check cycle across all targets",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordCheck records the outcome of a single target check.
func RecordCheck(target, status string, rt time.Duration) {
	checksTotal.WithLabelValues(target, status).Inc()
	if rt > 0 {
		responseTime.WithLabelValues(target).Observe(rt.Seconds())
	}
	if status == "up" {
		targetUp.WithLabelValues(target).Set(1)
	} else {
		targetUp.WithLabelValues(target).Set(0)
	}
}

// RecordChange records a detected response body change.
func RecordChange(target string) {
	responseChangesTotal.WithLabelValues(target).Inc()
}

// RecordIncidentOpened records a newly opened downtime incident.
func RecordIncidentOpened(target string) {
	incidentsTotal.WithLabelValues(target).Inc()
	incidentsOpen.Inc()
}

// RecordIncidentClosed records a resolved downtime incident.
func RecordIncidentClosed() {
	incidentsOpen.Dec()
}

// RecordAlert records a dispatched alert.
func RecordAlert(level, kind string) {
	alertsTotal.WithLabelValues(level, kind).Inc()
}

// RecordAlertDropped records an alert that could not be delivered.
func RecordAlertDropped() {
	alertsDroppedTotal.Inc()
}

// RecordConfigReload records a configuration reload attempt.
func RecordConfigReload(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	configReloadsTotal.WithLabelValues(outcome).Inc()
}

// RecordHistoryWriteError records a failed history write.
func RecordHistoryWriteError() {
	historyWriteErrors.Inc()
}

// RecordCycle records the duration of a full check cycle.
func RecordCycle(d time.Duration) {
	cycleDuration.Observe(d.Seconds())
}

// RemoveTarget drops per-target series after a target is removed from the
// configuration, so stale gauges do not linger.
func RemoveTarget(target string) {
	checksTotal.DeletePartialMatch(prometheus.Labels{"target": target})
	responseTime.DeletePartialMatch(prometheus.Labels{"target": target})
	targetUp.DeleteLabelValues(target)
	responseChangesTotal.DeleteLabelValues(target)
	incidentsTotal.DeleteLabelValues(target)
}
