package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CPUProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	var s Session
	require.NoError(t, s.StartCPU(path))
	s.Stop()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size(), "CPU profile should not be empty")
}

func TestSession_Trace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.out")

	var s Session
	require.NoError(t, s.StartTrace(path))
	s.Stop()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size(), "trace should not be empty")
}

func TestSession_WriteHeap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")

	var s Session
	require.NoError(t, s.WriteHeap(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSession_StopWithoutStart(t *testing.T) {
	var s Session
	s.Stop()
}

func TestSession_StartCPUBadPath(t *testing.T) {
	var s Session
	assert.Error(t, s.StartCPU(filepath.Join(t.TempDir(), "missing", "cpu.prof")))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{3 * 1024 * 1024, "3.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
