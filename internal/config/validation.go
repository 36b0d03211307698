// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net/url"
	"strings"
)

var allowedMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"DELETE": true, "PATCH": true, "OPTIONS": true,
}

// Validate checks the configuration for consistency. It returns the first
// violation found so the operator gets an actionable error message.
func Validate(cfg Config) error {
	if cfg.Interval.Std() <= 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.ProbeTimeout.Std() <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", cfg.ProbeTimeout)
	}
	if cfg.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", cfg.MaxConcurrent)
	}

	if w, c := cfg.Thresholds.ResponseTimeWarning.Std(), cfg.Thresholds.ResponseTimeCritical.Std(); w > 0 && c > 0 && w >= c {
		return fmt.Errorf("thresholds: response_time_warning (%s) must be below response_time_critical (%s)",
			cfg.Thresholds.ResponseTimeWarning, cfg.Thresholds.ResponseTimeCritical)
	}

	seen := make(map[string]bool, len(cfg.Targets))
	for i, t := range cfg.Targets {
		if err := validateTarget(t); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("targets[%d]: duplicate target name %q", i, t.Name)
		}
		seen[t.Name] = true
	}

	if cfg.Alerts.WebhookEnabled {
		if err := validateHTTPURL(cfg.Alerts.WebhookURL); err != nil {
			return fmt.Errorf("alerts.webhook_url: %w", err)
		}
	}

	switch cfg.State.Backend {
	case StateMemory, StateBadger:
	case StateRedis:
		if strings.TrimSpace(cfg.State.RedisAddr) == "" {
			return fmt.Errorf("state.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("state.backend must be one of memory, badger, redis; got %q", cfg.State.Backend)
	}

	switch cfg.Telemetry.Exporter {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.exporter must be grpc or http, got %q", cfg.Telemetry.Exporter)
	}
	if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_rate must be between 0 and 1, got %g", r)
	}

	return nil
}

func validateTarget(t Target) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateHTTPURL(t.URL); err != nil {
		return err
	}
	if t.Method != "" && !allowedMethods[strings.ToUpper(t.Method)] {
		return fmt.Errorf("unsupported method %q", t.Method)
	}
	if t.ExpectedStatus != 0 && (t.ExpectedStatus < 100 || t.ExpectedStatus > 599) {
		return fmt.Errorf("expected_status must be a valid HTTP status, got %d", t.ExpectedStatus)
	}
	if t.Timeout.Std() < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// Normalized returns a copy of the target with defaults applied.
func (t Target) Normalized() Target {
	out := t
	if out.Method == "" {
		out.Method = "GET"
	} else {
		out.Method = strings.ToUpper(out.Method)
	}
	if out.ExpectedStatus == 0 {
		out.ExpectedStatus = 200
	}
	return out
}
