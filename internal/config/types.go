// SPDX-License-Identifier: MIT

// Package config loads, validates and hot-reloads the apiwatch configuration.
// Precedence: environment > config file > built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use Go duration strings
// ("10s", "1500ms") in both YAML and JSON.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) { return d.String(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Target describes one monitored HTTP endpoint.
type Target struct {
	Name           string            `yaml:"name" json:"name"`
	URL            string            `yaml:"url" json:"url"`
	Method         string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	ExpectedStatus int               `yaml:"expected_status,omitempty" json:"expected_status,omitempty"`
	// TrackBody enables response body hashing for change detection.
	TrackBody bool `yaml:"track_body,omitempty" json:"track_body,omitempty"`
	// Timeout overrides the global probe timeout for this target.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Thresholds define response time levels that escalate alerts.
type Thresholds struct {
	ResponseTimeWarning  Duration `yaml:"response_time_warning" json:"response_time_warning"`
	ResponseTimeCritical Duration `yaml:"response_time_critical" json:"response_time_critical"`
}

// Alerts configures alert delivery.
type Alerts struct {
	Console              bool     `yaml:"console" json:"console"`
	WebhookEnabled       bool     `yaml:"webhook_enabled" json:"webhook_enabled"`
	WebhookURL           string   `yaml:"webhook_url,omitempty" json:"webhook_url,omitempty"`
	WebhookTimeout       Duration `yaml:"webhook_timeout,omitempty" json:"webhook_timeout,omitempty"`
	WebhookRatePerMinute int      `yaml:"webhook_rate_per_minute,omitempty" json:"webhook_rate_per_minute,omitempty"`
}

// StateBackend identifies where per-target state (last hash, incident
// bookkeeping) is persisted between checks.
type StateBackend string

const (
	StateMemory StateBackend = "memory"
	StateBadger StateBackend = "badger"
	StateRedis  StateBackend = "redis"
)

// State configures the target state store.
type State struct {
	Backend       StateBackend `yaml:"backend" json:"backend"`
	BadgerDir     string       `yaml:"badger_dir,omitempty" json:"badger_dir,omitempty"`
	RedisAddr     string       `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisPassword string       `yaml:"redis_password,omitempty" json:"redis_password,omitempty"`
	RedisDB       int          `yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
}

// History configures durable check storage.
type History struct {
	SQLitePath string `yaml:"sqlite_path,omitempty" json:"sqlite_path,omitempty"`
	LogsDir    string `yaml:"logs_dir,omitempty" json:"logs_dir,omitempty"`
	// JSONL mirrors every check into a per-target append-only log file.
	JSONL bool `yaml:"jsonl" json:"jsonl"`
	// Retention prunes checks and incidents older than this age. Zero keeps everything.
	Retention Duration `yaml:"retention,omitempty" json:"retention,omitempty"`
}

// API configures the admin HTTP server.
type API struct {
	ListenAddr string   `yaml:"listen_addr" json:"listen_addr"`
	RateLimit  int      `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	RateWindow Duration `yaml:"rate_window,omitempty" json:"rate_window,omitempty"`
}

// Telemetry configures OpenTelemetry tracing.
type Telemetry struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter,omitempty" json:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty" json:"sampling_rate,omitempty"`
	Environment  string  `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// Config is the root apiwatch configuration.
type Config struct {
	Interval      Duration   `yaml:"interval" json:"interval"`
	ProbeTimeout  Duration   `yaml:"probe_timeout" json:"probe_timeout"`
	MaxConcurrent int        `yaml:"max_concurrent" json:"max_concurrent"`
	LogLevel      string     `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	DataDir       string     `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	Targets       []Target   `yaml:"targets" json:"targets"`
	Thresholds    Thresholds `yaml:"thresholds" json:"thresholds"`
	Alerts        Alerts     `yaml:"alerts" json:"alerts"`
	State         State      `yaml:"state" json:"state"`
	History       History    `yaml:"history" json:"history"`
	API           API        `yaml:"api" json:"api"`
	Telemetry     Telemetry  `yaml:"telemetry" json:"telemetry"`

	// Version is the daemon build version, injected at load time.
	Version string `yaml:"-" json:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Interval:      Duration(60 * time.Second),
		ProbeTimeout:  Duration(10 * time.Second),
		MaxConcurrent: 8,
		LogLevel:      "info",
		DataDir:       "./data",
		Thresholds: Thresholds{
			ResponseTimeWarning:  Duration(2 * time.Second),
			ResponseTimeCritical: Duration(5 * time.Second),
		},
		Alerts: Alerts{
			Console:              true,
			WebhookTimeout:       Duration(5 * time.Second),
			WebhookRatePerMinute: 30,
		},
		State: State{
			Backend: StateMemory,
		},
		History: History{
			JSONL: true,
		},
		API: API{
			ListenAddr: ":8088",
			RateLimit:  60,
			RateWindow: Duration(time.Minute),
		},
		Telemetry: Telemetry{
			Exporter:     "grpc",
			SamplingRate: 1.0,
			Environment:  "development",
		},
	}
}

// EffectiveSQLitePath resolves the sqlite path, defaulting under DataDir.
func (c Config) EffectiveSQLitePath() string {
	if c.History.SQLitePath != "" {
		return c.History.SQLitePath
	}
	return c.DataDir + "/apiwatch.db"
}

// EffectiveLogsDir resolves the JSONL log directory, defaulting under DataDir.
func (c Config) EffectiveLogsDir() string {
	if c.History.LogsDir != "" {
		return c.History.LogsDir
	}
	return c.DataDir + "/logs"
}

// EffectiveBadgerDir resolves the badger directory, defaulting under DataDir.
func (c Config) EffectiveBadgerDir() string {
	if c.State.BadgerDir != "" {
		return c.State.BadgerDir
	}
	return c.DataDir + "/state"
}
