package errors

import (
	"time"
)

// DiagnosticType tags every structured failure record written by the triggers.
const DiagnosticType = "WEEKLY_MENU_FETCH_ERROR"

// KindUnexpected labels errors that are not part of the fetch taxonomy,
// e.g. a persistence failure.
const KindUnexpected Kind = "UNEXPECTED_ERROR"

// Diagnostic is the structured record logged by the scheduler and the HTTP
// trigger for a failed pipeline run.
type Diagnostic struct {
	Type      string    `json:"type"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
	Message   string    `json:"error"`
}

// Diagnose normalizes any error into a Diagnostic.
func Diagnose(err error, now time.Time) Diagnostic {
	d := Diagnostic{
		Type:      DiagnosticType,
		Kind:      KindUnexpected,
		Timestamp: now.UTC(),
		Retryable: true,
	}
	if err == nil {
		return d
	}

	if mfe, ok := AsMenuFetchError(err); ok {
		d.Kind = mfe.Kind
		d.Retryable = mfe.Retryable()
		d.Message = "Weekly menu fetch failed: " + err.Error()
		return d
	}

	d.Message = "Unexpected error during weekly menu fetch: " + err.Error()
	return d
}

// Fields flattens the diagnostic for the map-field logger.
func (d Diagnostic) Fields() map[string]interface{} {
	return map[string]interface{}{
		"type":      d.Type,
		"kind":      string(d.Kind),
		"timestamp": d.Timestamp.Format(time.RFC3339),
		"retryable": d.Retryable,
		"error":     d.Message,
	}
}
