package preflight

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlit/medsearch/internal/embed"
	"github.com/medlit/medsearch/internal/index"
)

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "UNKNOWN", CheckStatus(42).String())
}

func TestCheckResult_IsCritical(t *testing.T) {
	assert.True(t, CheckResult{Required: true, Status: StatusFail}.IsCritical())
	assert.False(t, CheckResult{Required: false, Status: StatusFail}.IsCritical())
	assert.False(t, CheckResult{Required: true, Status: StatusWarn}.IsCritical())
}

func TestCheckDiskSpace(t *testing.T) {
	c := New()
	result := c.CheckDiskSpace(t.TempDir())
	assert.Equal(t, "disk_space", result.Name)
	assert.Contains(t, result.Message, "free")
}

func TestCheckDiskSpace_MissingDirUsesParent(t *testing.T) {
	c := New()
	result := c.CheckDiskSpace(filepath.Join(t.TempDir(), "not", "yet", "created"))
	assert.NotEqual(t, StatusFail, result.Status)
}

func TestCheckIndexDirWritable(t *testing.T) {
	c := New()
	dir := filepath.Join(t.TempDir(), "index")

	result := c.CheckIndexDirWritable(dir)
	assert.Equal(t, StatusPass, result.Status)

	_, err := os.Stat(filepath.Join(dir, ".preflight"))
	assert.True(t, os.IsNotExist(err), "probe file should be removed")
}

func TestCheckArtifacts_NoIndexYet(t *testing.T) {
	c := New()
	result := c.CheckArtifacts(t.TempDir())
	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.IsCritical())
}

func TestCheckEmbedder_StaticAlwaysPasses(t *testing.T) {
	c := New()
	result := c.CheckEmbedder(context.Background(), "static-fnv64", embed.NewStaticEmbedder())
	assert.Equal(t, StatusPass, result.Status)
}

func TestCheckStructuredDB_NotConfigured(t *testing.T) {
	c := New()
	result := c.CheckStructuredDB(context.Background(), "")
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "not configured", result.Message)
}

func TestRunAll_FreshDirectory(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithOutput(&buf))

	results := c.RunAll(context.Background(), Input{
		IndexDir:     filepath.Join(t.TempDir(), "index"),
		Embedder:     embed.NewStaticEmbedder(),
		EmbedderName: "static-fnv64",
	})

	require.NotEmpty(t, results)
	assert.False(t, c.HasCriticalFailures(results))

	c.Report(results)
	out := buf.String()
	assert.Contains(t, out, "disk_space")
	assert.Contains(t, out, "index_artifacts")
	assert.Contains(t, out, "embedder")
}

func TestRunAll_WithBuiltIndex(t *testing.T) {
	dir := t.TempDir()
	embedder := embed.NewStaticEmbedder()

	builder := index.NewBuilder(embedder, index.Config{Dir: dir}, nil)
	_, err := builder.Build(context.Background(), nil)
	require.NoError(t, err)

	c := New()
	results := c.RunAll(context.Background(), Input{IndexDir: dir})

	var artifacts CheckResult
	for _, r := range results {
		if r.Name == "index_artifacts" {
			artifacts = r
		}
	}
	assert.Equal(t, StatusPass, artifacts.Status)
	assert.Contains(t, artifacts.Message, "256-dimensional")
}
