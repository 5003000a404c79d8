// Package errors provides the menu fetch error taxonomy.
//
// Every failure raised by a menu source or by the retrying fetcher is a
// *MenuFetchError whose Kind decides whether another attempt can succeed.
// Callers branch on Kind or Retryable, never on the message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Error Kinds
// ==========================

// Kind is the standardized code of a menu fetch failure.
type Kind string

const (
	// KindNoData means the source has nothing to fetch, e.g. no attachment on the page.
	KindNoData Kind = "NO_SOURCE_DATA"
	// KindTransport covers network and authentication failures talking to the source.
	KindTransport Kind = "SOURCE_TRANSPORT_FAILED"
	// KindExtractionFailed means the AI extraction call failed or returned no structured calls.
	KindExtractionFailed Kind = "EXTRACTION_FAILED"
	// KindEmptyExtraction means extraction succeeded but produced zero menus.
	KindEmptyExtraction Kind = "EMPTY_EXTRACTION"
	// KindRetryExhausted is raised by the retrying fetcher once its attempt budget is spent.
	KindRetryExhausted Kind = "RETRY_EXHAUSTED"
)

// Retryable reports whether a failure of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool {
	switch k {
	case KindNoData, KindEmptyExtraction:
		return false
	default:
		return true
	}
}

// ==========================
// 2. MenuFetchError
// ==========================

// MenuFetchError is an expected operational failure of the menu pipeline.
type MenuFetchError struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *MenuFetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MenuFetchError) Unwrap() error {
	return e.Cause
}

// Retryable is derived from the kind and cannot be overridden per instance.
func (e *MenuFetchError) Retryable() bool {
	return e.Kind.Retryable()
}

// ==========================
// 3. Constructors
// ==========================

func newError(kind Kind, message string, cause error) *MenuFetchError {
	return &MenuFetchError{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoData creates a non-retryable error for a source without data.
func NewNoData(message string) *MenuFetchError {
	return newError(KindNoData, message, nil)
}

// NewTransport creates a retryable error wrapping a network or auth failure.
func NewTransport(message string, cause error) *MenuFetchError {
	return newError(KindTransport, message, cause)
}

// NewExtractionFailed creates a retryable error for a failed AI extraction call.
func NewExtractionFailed(message string, cause error) *MenuFetchError {
	return newError(KindExtractionFailed, message, cause)
}

// NewEmptyExtraction creates a non-retryable error for a structurally empty result.
func NewEmptyExtraction(message string) *MenuFetchError {
	return newError(KindEmptyExtraction, message, nil)
}

// NewRetryExhausted wraps the last failure once the retry budget of source is spent.
func NewRetryExhausted(source string, attempts int, cause error) *MenuFetchError {
	e := newError(KindRetryExhausted,
		fmt.Sprintf("Failed to fetch weekly menu from %s after %d attempts", source, attempts),
		cause)
	e.Source = source
	e.Attempts = attempts
	return e
}

// ==========================
// 4. Helpers
// ==========================

// AsMenuFetchError extracts the first *MenuFetchError in err's chain.
func AsMenuFetchError(err error) (*MenuFetchError, bool) {
	var mfe *MenuFetchError
	if stderrors.As(err, &mfe) {
		return mfe, true
	}
	return nil, false
}

// IsRetryable reports whether err may succeed on retry. Errors outside the
// taxonomy are treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if mfe, ok := AsMenuFetchError(err); ok {
		return mfe.Retryable()
	}
	return true
}

// KindOf returns the kind of err, or "" when err is not a *MenuFetchError.
func KindOf(err error) Kind {
	if mfe, ok := AsMenuFetchError(err); ok {
		return mfe.Kind
	}
	return ""
}
