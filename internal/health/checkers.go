// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Pinger is anything that can verify its backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger (history store, database) into a Checker.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPingChecker creates a checker that pings the given backend.
func NewPingChecker(name string, pinger Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: pinger}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.pinger.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// CycleChecker reports degraded when the monitor loop has not completed a
// cycle recently, which usually means checks are wedged.
type CycleChecker struct {
	maxAge    time.Duration
	lastCycle atomic.Int64 // unix nano of last completed cycle
}

// NewCycleChecker creates a checker that tolerates maxAge between cycles.
func NewCycleChecker(maxAge time.Duration) *CycleChecker {
	c := &CycleChecker{maxAge: maxAge}
	c.lastCycle.Store(time.Now().UnixNano())
	return c
}

// MarkCycle records a completed check cycle.
func (c *CycleChecker) MarkCycle() {
	c.lastCycle.Store(time.Now().UnixNano())
}

func (c *CycleChecker) Name() string { return "monitor" }

func (c *CycleChecker) Check(_ context.Context) CheckResult {
	age := time.Since(time.Unix(0, c.lastCycle.Load()))
	if age > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last check cycle completed %s ago", age.Round(time.Second)),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
