package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
		retry    bool
	}{
		{"config invalid", ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{"no backends", ErrCodeNoBackends, CategoryConfig, SeverityFatal, false},
		{"index corrupt", ErrCodeIndexCorrupt, CategoryIndex, SeverityFatal, false},
		{"embed unavailable", ErrCodeEmbedUnavailable, CategoryBackend, SeverityWarning, true},
		{"backend timeout", ErrCodeBackendTimeout, CategoryBackend, SeverityWarning, true},
		{"malformed chunk", ErrCodeMalformedChunk, CategoryValidation, SeverityWarning, false},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retry, err.Retryable)
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeStructuredUnavailable, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), ErrCodeStructuredUnavailable)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := New(ErrCodeInvalidK, "k must be positive", nil)
	target := New(ErrCodeInvalidK, "different message", nil)

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, New(ErrCodeNoBackends, "", nil)))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ConfigError("bad weights", nil)))
	assert.True(t, IsFatal(IndexCorrupt("truncated artifact", nil)))
	assert.False(t, IsFatal(MalformedChunk("empty text")))
	assert.False(t, IsFatal(fmt.Errorf("plain error")))
}

func TestWithDetail(t *testing.T) {
	err := MalformedChunk("over budget").
		WithDetail("chunk_id", "NCT123#850").
		WithDetail("tokens", "912")

	assert.Equal(t, "NCT123#850", err.Details["chunk_id"])
	assert.Equal(t, "912", err.Details["tokens"])
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeEmbedUnavailable,
		CodeOf(fmt.Errorf("outer: %w", New(ErrCodeEmbedUnavailable, "down", nil))))
	assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
}
