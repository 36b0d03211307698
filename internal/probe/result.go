// SPDX-License-Identifier: MIT

// Package probe performs HTTP checks against configured targets and
// classifies the outcome.
package probe

import (
	"encoding/json"
	"math"
	"time"
)

// Status classifies the outcome of a check.
type Status string

const (
	// StatusUp means the target responded with the expected status code.
	StatusUp Status = "up"
	// StatusDown means the target could not be reached (timeout or transport error).
	StatusDown Status = "down"
	// StatusError means the target responded, but not as expected.
	StatusError Status = "error"
)

// Result is the record produced by a single check. It is what gets written
// to the history store and the per-target JSONL log.
type Result struct {
	ID           string        `json:"id"`
	Target       string        `json:"target"`
	URL          string        `json:"url"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       Status        `json:"status"`
	HTTPStatus   int           `json:"status_code,omitempty"`
	ResponseTime time.Duration `json:"-"`
	BodyHash     string        `json:"response_hash,omitempty"`
	BodyBytes    int64         `json:"body_bytes,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ResponseMillis returns the response time in milliseconds, rounded to two
// decimal places for log readability.
func (r Result) ResponseMillis() float64 {
	ms := float64(r.ResponseTime) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

type resultJSON struct {
	ID           string    `json:"id"`
	Target       string    `json:"target"`
	URL          string    `json:"url"`
	Timestamp    time.Time `json:"timestamp"`
	Status       Status    `json:"status"`
	HTTPStatus   int       `json:"status_code,omitempty"`
	ResponseMS   float64   `json:"response_time_ms"`
	BodyHash     string    `json:"response_hash,omitempty"`
	BodyBytes    int64     `json:"body_bytes,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// MarshalJSON serializes the response time as milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		ID:         r.ID,
		Target:     r.Target,
		URL:        r.URL,
		Timestamp:  r.Timestamp,
		Status:     r.Status,
		HTTPStatus: r.HTTPStatus,
		ResponseMS: r.ResponseMillis(),
		BodyHash:   r.BodyHash,
		BodyBytes:  r.BodyBytes,
		Error:      r.Error,
	})
}

// UnmarshalJSON restores the response time from milliseconds.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{
		ID:           raw.ID,
		Target:       raw.Target,
		URL:          raw.URL,
		Timestamp:    raw.Timestamp,
		Status:       raw.Status,
		HTTPStatus:   raw.HTTPStatus,
		ResponseTime: time.Duration(raw.ResponseMS * float64(time.Millisecond)),
		BodyHash:     raw.BodyHash,
		BodyBytes:    raw.BodyBytes,
		Error:        raw.Error,
	}
	return nil
}
