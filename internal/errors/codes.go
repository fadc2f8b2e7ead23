// Package errors provides structured error handling for medsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index errors (build, load, corruption)
//   - 3XX: Backend errors (embedding service, structured store)
//   - 4XX: Validation errors (documents, chunks)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates index build/load errors.
	CategoryIndex Category = "INDEX"
	// CategoryBackend indicates retrieval backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	// ErrCodeNoBackends: caller disabled every retrieval backend.
	ErrCodeNoBackends = "ERR_103_NO_BACKENDS_ENABLED"
	ErrCodeInvalidK   = "ERR_104_INVALID_RESULT_COUNT"

	// Index errors (200-299)
	ErrCodeIndexCorrupt = "ERR_201_INDEX_CORRUPT"
	ErrCodeIndexLocked  = "ERR_202_INDEX_LOCKED"
	ErrCodeIndexWrite   = "ERR_203_INDEX_WRITE"

	// Backend errors (300-399)
	ErrCodeEmbedUnavailable      = "ERR_301_EMBED_UNAVAILABLE"
	ErrCodeStructuredUnavailable = "ERR_302_STRUCTURED_UNAVAILABLE"
	ErrCodeBackendTimeout        = "ERR_303_BACKEND_TIMEOUT"
	ErrCodeBackendUnavailable    = "ERR_304_BACKEND_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeMalformedChunk    = "ERR_401_MALFORMED_CHUNK"
	ErrCodeInvalidDocument   = "ERR_402_INVALID_DOCUMENT"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the numeric code range.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from the code.
// Configuration and index-corruption errors are fatal; backend and
// chunk validation errors are recoverable by design.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig, CategoryIndex:
		return SeverityFatal
	case CategoryBackend:
		return SeverityWarning
	case CategoryValidation:
		if code == ErrCodeMalformedChunk {
			return SeverityWarning
		}
		return SeverityError
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether operations failing with this code
// may be retried. Only transient backend failures qualify.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedUnavailable, ErrCodeStructuredUnavailable,
		ErrCodeBackendTimeout, ErrCodeBackendUnavailable:
		return true
	default:
		return false
	}
}
