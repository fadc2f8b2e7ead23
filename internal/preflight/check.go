// Package preflight validates the environment before index builds and
// queries: disk space, index directory permissions, artifact health,
// embedder reachability, and the structured trial database.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	output io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input names everything the checks inspect. Zero-value fields skip
// their checks.
type Input struct {
	// IndexDir is the index artifact directory.
	IndexDir string

	// Embedder is probed for availability. Nil skips the check.
	Embedder AvailabilityProber

	// EmbedderName labels the embedder check output.
	EmbedderName string

	// StructuredDBPath is the trial database path. Empty means the
	// structured backend is not configured.
	StructuredDBPath string
}

// AvailabilityProber is the availability slice of an embedding
// provider.
type AvailabilityProber interface {
	Available(ctx context.Context) bool
}

// RunAll runs all preflight checks and returns the results.
func (c *Checker) RunAll(ctx context.Context, in Input) []CheckResult {
	results := []CheckResult{
		c.CheckDiskSpace(in.IndexDir),
		c.CheckIndexDirWritable(in.IndexDir),
		c.CheckArtifacts(in.IndexDir),
	}
	if in.Embedder != nil {
		results = append(results, c.CheckEmbedder(ctx, in.EmbedderName, in.Embedder))
	}
	results = append(results, c.CheckStructuredDB(ctx, in.StructuredDBPath))
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// Report writes a human-readable summary of the results.
func (c *Checker) Report(results []CheckResult) {
	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
	}
}
