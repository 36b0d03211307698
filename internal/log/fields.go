// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldCheckID    = "check_id"
	FieldIncidentID = "incident_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Monitoring fields
	FieldTarget     = "target"
	FieldURL        = "url"
	FieldStatus     = "status"
	FieldHTTPStatus = "http_status"
	FieldResponseMS = "response_ms"
	FieldBodyHash   = "body_hash"
	FieldAlertLevel = "alert_level"
	FieldAlertKind  = "alert_kind"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath = "path"
)
