// SPDX-License-Identifier: MIT

// Package history stores check results and downtime incidents durably and
// answers the queries the analyzer and the admin API need.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ManuGH/apiwatch/internal/probe"
	_ "modernc.org/sqlite" // Pure Go driver
)

// SQLiteConfig defines standard SQLite operational parameters.
type SQLiteConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultSQLiteConfig returns the recommended configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 25,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS checks (
	id          TEXT PRIMARY KEY,
	target      TEXT NOT NULL,
	url         TEXT NOT NULL,
	ts_ms       INTEGER NOT NULL,
	status      TEXT NOT NULL,
	http_status INTEGER NOT NULL DEFAULT 0,
	response_ms REAL NOT NULL DEFAULT 0,
	body_hash   TEXT NOT NULL DEFAULT '',
	body_bytes  INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	changed     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_checks_target_ts ON checks(target, ts_ms);

CREATE TABLE IF NOT EXISTS incidents (
	id         TEXT PRIMARY KEY,
	target     TEXT NOT NULL,
	opened_ms  INTEGER NOT NULL,
	closed_ms  INTEGER,
	reason     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_incidents_target ON incidents(target, opened_ms);
`

// Store is the sqlite-backed history store.
type Store struct {
	db *sql.DB
}

// Open initializes a SQLite connection pool with mandatory PRAGMAs (WAL,
// busy_timeout) and creates the schema if needed.
func Open(dbPath string, cfg SQLiteConfig) (*Store, error) {
	// PRAGMAs go into the DSN so they apply to every connection in the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping failed: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// AppendCheck stores one check result. The changed flag marks results whose
// body hash differed from the previous observation.
func (s *Store) AppendCheck(ctx context.Context, res probe.Result, changed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checks (id, target, url, ts_ms, status, http_status, response_ms, body_hash, body_bytes, error, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Target, res.URL, res.Timestamp.UnixMilli(), string(res.Status),
		res.HTTPStatus, res.ResponseMillis(), res.BodyHash, res.BodyBytes, res.Error, boolToInt(changed),
	)
	if err != nil {
		return fmt.Errorf("history: append check: %w", err)
	}
	return nil
}

// QueryChecks returns the most recent checks for a target, newest first.
// A zero since means no lower bound; limit <= 0 defaults to 100.
func (s *Store) QueryChecks(ctx context.Context, target string, since time.Time, limit int) ([]probe.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, url, ts_ms, status, http_status, response_ms, body_hash, body_bytes, error
		FROM checks
		WHERE target = ? AND ts_ms >= ?
		ORDER BY ts_ms DESC
		LIMIT ?`,
		target, since.UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []probe.Result
	for rows.Next() {
		var (
			res        probe.Result
			tsMS       int64
			status     string
			responseMS float64
		)
		if err := rows.Scan(&res.ID, &res.Target, &res.URL, &tsMS, &status,
			&res.HTTPStatus, &responseMS, &res.BodyHash, &res.BodyBytes, &res.Error); err != nil {
			return nil, fmt.Errorf("history: scan check: %w", err)
		}
		res.Timestamp = time.UnixMilli(tsMS).UTC()
		res.Status = probe.Status(status)
		res.ResponseTime = time.Duration(responseMS * float64(time.Millisecond))
		out = append(out, res)
	}
	return out, rows.Err()
}

// TargetNames returns the distinct target names present in the history.
func (s *Store) TargetNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT target FROM checks ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("history: target names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("history: scan target name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Stats holds aggregate statistics for one target.
type Stats struct {
	Target        string  `json:"target"`
	TotalChecks   int     `json:"total_checks"`
	UpCount       int     `json:"up_count"`
	DownCount     int     `json:"down_count"`
	ErrorCount    int     `json:"error_count"`
	UptimePercent float64 `json:"uptime_percent"`
	AvgResponseMS float64 `json:"avg_response_ms"`
	P95ResponseMS float64 `json:"p95_response_ms"`
	ChangeCount   int     `json:"change_count"`
}

// TargetStats computes aggregate statistics for a target since the given time.
func (s *Store) TargetStats(ctx context.Context, target string, since time.Time) (Stats, error) {
	stats := Stats{Target: target}
	sinceMS := since.UnixMilli()

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'up' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'down' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN response_ms > 0 THEN response_ms END), 0),
		       COALESCE(SUM(changed), 0)
		FROM checks WHERE target = ? AND ts_ms >= ?`,
		target, sinceMS,
	).Scan(&stats.TotalChecks, &stats.UpCount, &stats.DownCount, &stats.ErrorCount,
		&stats.AvgResponseMS, &stats.ChangeCount)
	if err != nil {
		return Stats{}, fmt.Errorf("history: target stats: %w", err)
	}

	if stats.TotalChecks > 0 {
		stats.UptimePercent = round2(float64(stats.UpCount) / float64(stats.TotalChecks) * 100)
	}
	stats.AvgResponseMS = round2(stats.AvgResponseMS)

	p95, err := s.percentileResponseMS(ctx, target, sinceMS, 0.95)
	if err != nil {
		return Stats{}, err
	}
	stats.P95ResponseMS = round2(p95)

	return stats, nil
}

// percentileResponseMS computes a response time percentile over measured checks.
func (s *Store) percentileResponseMS(ctx context.Context, target string, sinceMS int64, q float64) (float64, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checks WHERE target = ? AND ts_ms >= ? AND response_ms > 0`,
		target, sinceMS,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: percentile count: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	offset := int(math.Ceil(q*float64(n))) - 1
	if offset < 0 {
		offset = 0
	}

	var v float64
	err = s.db.QueryRowContext(ctx, `
		SELECT response_ms FROM checks
		WHERE target = ? AND ts_ms >= ? AND response_ms > 0
		ORDER BY response_ms
		LIMIT 1 OFFSET ?`,
		target, sinceMS, offset,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("history: percentile select: %w", err)
	}
	return v, nil
}

// Incident is a contiguous downtime window for one target.
type Incident struct {
	ID       string     `json:"id"`
	Target   string     `json:"target"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// Duration returns the incident length, or the time since it opened when
// still unresolved.
func (i Incident) Duration(now time.Time) time.Duration {
	if i.ClosedAt != nil {
		return i.ClosedAt.Sub(i.OpenedAt)
	}
	return now.Sub(i.OpenedAt)
}

// OpenIncident records a new downtime incident.
func (s *Store) OpenIncident(ctx context.Context, inc Incident) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidents (id, target, opened_ms, reason) VALUES (?, ?, ?, ?)`,
		inc.ID, inc.Target, inc.OpenedAt.UnixMilli(), inc.Reason,
	)
	if err != nil {
		return fmt.Errorf("history: open incident: %w", err)
	}
	return nil
}

// CloseIncident marks an incident as resolved.
func (s *Store) CloseIncident(ctx context.Context, id string, closedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET closed_ms = ? WHERE id = ? AND closed_ms IS NULL`,
		closedAt.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("history: close incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history: close incident: no open incident with id %s", id)
	}
	return nil
}

// Incidents returns incidents for a target, newest first. limit <= 0
// defaults to 50.
func (s *Store) Incidents(ctx context.Context, target string, since time.Time, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, opened_ms, closed_ms, reason
		FROM incidents
		WHERE target = ? AND opened_ms >= ?
		ORDER BY opened_ms DESC
		LIMIT ?`,
		target, since.UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Incident
	for rows.Next() {
		var (
			inc      Incident
			openedMS int64
			closedMS sql.NullInt64
		)
		if err := rows.Scan(&inc.ID, &inc.Target, &openedMS, &closedMS, &inc.Reason); err != nil {
			return nil, fmt.Errorf("history: scan incident: %w", err)
		}
		inc.OpenedAt = time.UnixMilli(openedMS).UTC()
		if closedMS.Valid {
			t := time.UnixMilli(closedMS.Int64).UTC()
			inc.ClosedAt = &t
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// Prune deletes checks and resolved incidents older than the cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := cutoff.UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM checks WHERE ts_ms < ?`, ms)
	if err != nil {
		return 0, fmt.Errorf("history: prune checks: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM incidents WHERE closed_ms IS NOT NULL AND closed_ms < ?`, ms); err != nil {
		return n, fmt.Errorf("history: prune incidents: %w", err)
	}
	return n, nil
}

// VerifyIntegrity checks the database file for structural corruption. Mode
// can be "quick" (PRAGMA quick_check) or "full" (PRAGMA integrity_check).
// It returns diagnostic rows if corruption is found, or nil when healthy.
func VerifyIntegrity(path string, mode string) ([]string, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open for verification: %w", err)
	}
	defer func() { _ = db.Close() }()

	pragma := "PRAGMA quick_check;"
	if mode == "full" {
		pragma = "PRAGMA integrity_check;"
	}

	rows, err := db.Query(pragma)
	if err != nil {
		return nil, fmt.Errorf("history: integrity pragma failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("history: scan integrity result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Success is exactly a single row with "ok".
	if len(results) == 1 && strings.ToLower(results[0]) == "ok" {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
