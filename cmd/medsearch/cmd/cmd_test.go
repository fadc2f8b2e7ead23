package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlit/medsearch/internal/config"
)

// execute runs the root command with args and captures combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Keep log files out of the real home directory.
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeTestConfig writes a medsearch.yaml pointing at a temp index dir
// and returns the config directory.
func writeTestConfig(t *testing.T) (configDir, indexDir string) {
	t.Helper()
	configDir = t.TempDir()
	indexDir = filepath.Join(configDir, "index")

	content := "index:\n  dir: " + indexDir + "\nembeddings:\n  provider: static\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.ConfigFileName), []byte(content), 0644))
	return configDir, indexDir
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	corpus := `{"document_id":"NCT001","text":"Pneumothorax occurred in 34 of 128 patients after endobronchial valve placement.","source":"trial"}
{"document_id":"NCT002","text":"FEV1 improved significantly at twelve months in the treatment group.","source":"trial"}
{"document_id":"CHAP-12","text":"Management of pleural effusion includes drainage and pleurodesis.","source":"chapter"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.jsonl"), []byte(corpus), 0644))
	return dir
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "medsearch")
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "search")
}

func TestVersionCmd_Short(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--config-dir", dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.ConfigFileName)

	_, err = execute(t, "--config-dir", dir, "config", "init")
	assert.Error(t, err, "second init without --force should fail")

	out, err = execute(t, "--config-dir", dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "chunk_size: 850")
	assert.Contains(t, out, "provider: static")
}

func TestSearchCmd_NoIndex(t *testing.T) {
	cfgDir, _ := writeTestConfig(t)

	_, err := execute(t, "--config-dir", cfgDir, "search", "pneumothorax")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestIndexThenSearch(t *testing.T) {
	cfgDir, indexDir := writeTestConfig(t)
	docsDir := writeCorpus(t)

	out, err := execute(t, "--config-dir", cfgDir, "index", docsDir, "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "Complete: 3 documents, 3 chunks")

	_, err = os.Stat(filepath.Join(indexDir, "chunks.jsonl"))
	require.NoError(t, err)

	out, err = execute(t, "--config-dir", cfgDir, "search", "pneumothorax", "valve")
	require.NoError(t, err)
	assert.Contains(t, out, "NCT001#0")

	out, err = execute(t, "--config-dir", cfgDir, "search", "pneumothorax", "--json", "-k", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"chunk_id"`)
}

func TestStatsCmd_NoMetrics(t *testing.T) {
	cfgDir, _ := writeTestConfig(t)

	_, err := execute(t, "--config-dir", cfgDir, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query statistics")
}

func TestStatsCmd_AfterSearches(t *testing.T) {
	cfgDir, indexDir := writeTestConfig(t)
	docsDir := writeCorpus(t)

	_, err := execute(t, "--config-dir", cfgDir, "index", docsDir, "--plain")
	require.NoError(t, err)

	_, err = execute(t, "--config-dir", cfgDir, "search", "pneumothorax", "valve")
	require.NoError(t, err)
	_, err = execute(t, "--config-dir", cfgDir, "search", "FEV1", "improvement")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(filepath.Dir(indexDir), "metrics.db"))
	require.NoError(t, err)

	out, err := execute(t, "--config-dir", cfgDir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Intent mix:")
	assert.Contains(t, out, "safety")
	assert.Contains(t, out, "Top query terms:")
	assert.Contains(t, out, "pneumothorax")

	out, err = execute(t, "--config-dir", cfgDir, "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"intent_counts"`)
	assert.Contains(t, out, `"latency_counts"`)
}

func TestIndexCmd_ForceClearsArtifacts(t *testing.T) {
	cfgDir, _ := writeTestConfig(t)
	docsDir := writeCorpus(t)

	_, err := execute(t, "--config-dir", cfgDir, "index", docsDir, "--plain")
	require.NoError(t, err)

	out, err := execute(t, "--config-dir", cfgDir, "index", docsDir, "--plain", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared existing index artifacts")
	assert.Contains(t, out, "Complete: 3 documents, 3 chunks")
}

func TestStatusCmd(t *testing.T) {
	cfgDir, _ := writeTestConfig(t)

	out, err := execute(t, "--config-dir", cfgDir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "missing")

	docsDir := writeCorpus(t)
	_, err = execute(t, "--config-dir", cfgDir, "index", docsDir, "--plain")
	require.NoError(t, err)

	out, err = execute(t, "--config-dir", cfgDir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Chunks: 3")
	assert.Contains(t, out, "Embedding dimensions: 256")
}

func TestDoctorCmd_FreshEnvironment(t *testing.T) {
	cfgDir, _ := writeTestConfig(t)

	out, err := execute(t, "--config-dir", cfgDir, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "disk_space")
	assert.Contains(t, out, "no index built yet")
}

func TestBuildOptions_FlagOverrides(t *testing.T) {
	cfg := config.NewConfig()

	opts := buildOptions(cfg, searchOptions{k: 5, noVector: true, structuredWeight: 0.9}, true)
	assert.Equal(t, 5, opts.K)
	assert.False(t, opts.UseVector)
	assert.True(t, opts.UseLexical)
	assert.True(t, opts.UseStructured)
	assert.Equal(t, 0.9, opts.Weights.Structured)
	assert.Equal(t, cfg.Search.VectorWeight, opts.Weights.Vector)

	opts = buildOptions(cfg, searchOptions{}, false)
	assert.Equal(t, cfg.Search.K, opts.K)
	assert.False(t, opts.UseStructured, "structured backend off when no database configured")
}
