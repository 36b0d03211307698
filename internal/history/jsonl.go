// SPDX-License-Identifier: MIT

package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/ManuGH/apiwatch/internal/probe"
)

// JSONLWriter mirrors check results into per-target append-only log files,
// one JSON object per line: <dir>/<slug>.log
type JSONLWriter struct {
	dir string
}

// NewJSONLWriter creates the log directory if needed and returns a writer.
func NewJSONLWriter(dir string) (*JSONLWriter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("history: create logs dir %s: %w", dir, err)
	}
	return &JSONLWriter{dir: dir}, nil
}

// Dir returns the log directory.
func (w *JSONLWriter) Dir() string { return w.dir }

// Path returns the log file path for a target name.
func (w *JSONLWriter) Path(target string) string {
	return filepath.Join(w.dir, Slug(target)+".log")
}

// Append writes one result to the target's log file.
func (w *JSONLWriter) Append(res probe.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("history: marshal result: %w", err)
	}

	f, err := os.OpenFile(w.Path(res.Target), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) // #nosec G304 -- path derived from slug
	if err != nil {
		return fmt.Errorf("history: open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("history: write log line: %w", err)
	}
	return nil
}

// Load reads all results for a target from its log file. Corrupt lines are
// skipped so a partially written line cannot poison an analysis run.
func (w *JSONLWriter) Load(target string) ([]probe.Result, error) {
	f, err := os.Open(w.Path(target)) // #nosec G304 -- path derived from slug
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	logger := xglog.WithComponent("history")
	var out []probe.Result
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res probe.Result
		if err := json.Unmarshal(line, &res); err != nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldTarget, target).
				Msg("skipping corrupt log line")
			continue
		}
		out = append(out, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("history: read log file: %w", err)
	}
	return out, nil
}
