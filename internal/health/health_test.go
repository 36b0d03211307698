// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type staticChecker struct {
	name   string
	result CheckResult
}

func (c staticChecker) Name() string                      { return c.name }
func (c staticChecker) Check(context.Context) CheckResult { return c.result }

func TestHealthWithoutCheckersIsHealthy(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestReadyAggregatesCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(staticChecker{"history", CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(staticChecker{"state", CheckResult{Status: StatusHealthy}})

	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)

	m.RegisterChecker(staticChecker{"monitor", CheckResult{Status: StatusDegraded, Message: "slow"}})
	resp = m.Ready(context.Background())
	assert.True(t, resp.Ready, "degraded still serves traffic")
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(staticChecker{"broken", CheckResult{Status: StatusUnhealthy, Error: "down"}})
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("history", fakePinger{})
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	bad := NewPingChecker("history", fakePinger{err: errors.New("locked")})
	res := bad.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "locked", res.Error)
}

func TestCycleChecker(t *testing.T) {
	c := NewCycleChecker(50 * time.Millisecond)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	time.Sleep(80 * time.Millisecond)
	res := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Message, "last check cycle")

	c.MarkCycle()
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
}
