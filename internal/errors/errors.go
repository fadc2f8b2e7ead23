package errors

import (
	"errors"
	"fmt"
)

// SearchError is the structured error type for medsearch.
// It carries a stable code plus category and severity derived from it,
// so callers can decide between aborting (config, index corruption)
// and degrading (backend failures).
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_301_EMBED_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Backend, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SearchError.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SearchError from an existing error.
// The error's message becomes the SearchError message.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error (fatal, never retried).
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// BackendUnavailable creates a recoverable backend error. The fusion
// engine contains these as an empty contribution from that backend.
func BackendUnavailable(code string, message string, cause error) *SearchError {
	if categoryFromCode(code) != CategoryBackend {
		code = ErrCodeEmbedUnavailable
	}
	return New(code, message, cause)
}

// IndexCorrupt creates a fatal index-load error. Not recoverable per
// query; the index must be rebuilt.
func IndexCorrupt(message string, cause error) *SearchError {
	return New(ErrCodeIndexCorrupt, message, cause)
}

// MalformedChunk creates a chunk validation error. The offending chunk
// is skipped; the document's remaining chunks still proceed.
func MalformedChunk(message string) *SearchError {
	return New(ErrCodeMalformedChunk, message, nil)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SearchError with Retryable flag set.
func IsRetryable(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsFatal reports whether the error must abort the caller.
func IsFatal(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// CodeOf extracts the code from an error, or "" if it is not a SearchError.
func CodeOf(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
