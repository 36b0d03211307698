// SPDX-License-Identifier: MIT

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicitly requested config file is missing.
var ErrConfigNotFound = errors.New("config file not found")

// Loader loads configuration with precedence ENV > file > defaults.
type Loader struct {
	path    string // optional config file path; empty means ENV+defaults only
	version string
}

// NewLoader creates a loader for the given config file path. An empty path
// skips the file layer entirely.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load builds the effective configuration. The returned config is validated.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.path != "" {
		if err := mergeFile(&cfg, l.path); err != nil {
			return Config{}, err
		}
	}

	mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile decodes a YAML or JSON config file over the current config.
// The format is chosen by file extension; anything not .json is parsed as YAML.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-provided path
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse JSON config %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse YAML config %s: %w", path, err)
		}
	}
	return nil
}

// mergeEnv applies APIWATCH_* environment overrides. Targets can only come
// from the config file.
func mergeEnv(cfg *Config) {
	cfg.Interval = Duration(ParseDuration("APIWATCH_INTERVAL", cfg.Interval.Std()))
	cfg.ProbeTimeout = Duration(ParseDuration("APIWATCH_PROBE_TIMEOUT", cfg.ProbeTimeout.Std()))
	cfg.MaxConcurrent = ParseInt("APIWATCH_MAX_CONCURRENT", cfg.MaxConcurrent)
	cfg.LogLevel = ParseString("APIWATCH_LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = ParseString("APIWATCH_DATA", cfg.DataDir)

	cfg.Thresholds.ResponseTimeWarning = Duration(ParseDuration("APIWATCH_RT_WARNING", cfg.Thresholds.ResponseTimeWarning.Std()))
	cfg.Thresholds.ResponseTimeCritical = Duration(ParseDuration("APIWATCH_RT_CRITICAL", cfg.Thresholds.ResponseTimeCritical.Std()))

	cfg.Alerts.Console = ParseBool("APIWATCH_ALERT_CONSOLE", cfg.Alerts.Console)
	cfg.Alerts.WebhookEnabled = ParseBool("APIWATCH_ALERT_WEBHOOK", cfg.Alerts.WebhookEnabled)
	cfg.Alerts.WebhookURL = ParseString("APIWATCH_ALERT_WEBHOOK_URL", cfg.Alerts.WebhookURL)

	cfg.State.Backend = StateBackend(ParseString("APIWATCH_STATE_BACKEND", string(cfg.State.Backend)))
	cfg.State.BadgerDir = ParseString("APIWATCH_BADGER_DIR", cfg.State.BadgerDir)
	cfg.State.RedisAddr = ParseString("APIWATCH_REDIS_ADDR", cfg.State.RedisAddr)
	cfg.State.RedisPassword = ParseString("APIWATCH_REDIS_PASSWORD", cfg.State.RedisPassword)
	cfg.State.RedisDB = ParseInt("APIWATCH_REDIS_DB", cfg.State.RedisDB)

	cfg.History.SQLitePath = ParseString("APIWATCH_SQLITE_PATH", cfg.History.SQLitePath)
	cfg.History.LogsDir = ParseString("APIWATCH_LOGS_DIR", cfg.History.LogsDir)
	cfg.History.JSONL = ParseBool("APIWATCH_JSONL", cfg.History.JSONL)
	cfg.History.Retention = Duration(ParseDuration("APIWATCH_RETENTION", cfg.History.Retention.Std()))

	cfg.API.ListenAddr = ParseString("APIWATCH_LISTEN", cfg.API.ListenAddr)
	cfg.API.RateLimit = ParseInt("APIWATCH_RATE_LIMIT", cfg.API.RateLimit)

	cfg.Telemetry.Enabled = ParseBool("APIWATCH_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString("APIWATCH_OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString("APIWATCH_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = ParseString("APIWATCH_OTEL_ENVIRONMENT", cfg.Telemetry.Environment)
}
