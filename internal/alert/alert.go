// SPDX-License-Identifier: MIT

// Package alert dispatches monitoring alerts to the configured notifiers.
package alert

import (
	"context"
	"time"
)

// Level is the alert severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Kind classifies what happened.
type Kind string

const (
	KindDown           Kind = "down"
	KindRecovered      Kind = "recovered"
	KindSlow           Kind = "slow"
	KindVerySlow       Kind = "very_slow"
	KindStatusMismatch Kind = "status_mismatch"
	KindChanged        Kind = "changed"
	KindHealthy        Kind = "healthy"
)

// Alert is one notification about a target.
type Alert struct {
	Level     Level     `json:"level"`
	Kind      Kind      `json:"kind"`
	Target    string    `json:"target"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers alerts to one channel (console, webhook, ...).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a Alert) error
}
