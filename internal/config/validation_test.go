// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Targets = []Target{
		{Name: "GitHub API", URL: "https://api.github.com"},
	}
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Interval = 0 },
			wantMsg: "interval must be positive",
		},
		{
			name:    "zero probe timeout",
			mutate:  func(c *Config) { c.ProbeTimeout = 0 },
			wantMsg: "probe_timeout must be positive",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.MaxConcurrent = 0 },
			wantMsg: "max_concurrent",
		},
		{
			name: "warning above critical",
			mutate: func(c *Config) {
				c.Thresholds.ResponseTimeWarning = Duration(6 * time.Second)
			},
			wantMsg: "must be below",
		},
		{
			name:    "target without name",
			mutate:  func(c *Config) { c.Targets[0].Name = " " },
			wantMsg: "name is required",
		},
		{
			name:    "target with bad scheme",
			mutate:  func(c *Config) { c.Targets[0].URL = "ftp://example.com" },
			wantMsg: "must use http or https",
		},
		{
			name:    "target with bad method",
			mutate:  func(c *Config) { c.Targets[0].Method = "FETCH" },
			wantMsg: "unsupported method",
		},
		{
			name:    "target with bad status",
			mutate:  func(c *Config) { c.Targets[0].ExpectedStatus = 99 },
			wantMsg: "expected_status",
		},
		{
			name: "duplicate target names",
			mutate: func(c *Config) {
				c.Targets = append(c.Targets, Target{Name: "GitHub API", URL: "https://example.com"})
			},
			wantMsg: "duplicate target name",
		},
		{
			name:    "webhook enabled without url",
			mutate:  func(c *Config) { c.Alerts.WebhookEnabled = true },
			wantMsg: "alerts.webhook_url",
		},
		{
			name:    "redis backend without addr",
			mutate:  func(c *Config) { c.State.Backend = StateRedis },
			wantMsg: "state.redis_addr is required",
		},
		{
			name:    "unknown state backend",
			mutate:  func(c *Config) { c.State.Backend = "etcd" },
			wantMsg: "state.backend",
		},
		{
			name:    "bad sampling rate",
			mutate:  func(c *Config) { c.Telemetry.SamplingRate = 1.5 },
			wantMsg: "sampling_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateAllowsZeroTargets(t *testing.T) {
	cfg := Defaults()
	cfg.Targets = nil
	require.NoError(t, Validate(cfg))
}
