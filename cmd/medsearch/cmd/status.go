package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medlit/medsearch/internal/config"
	"github.com/medlit/medsearch/internal/index"
	"github.com/medlit/medsearch/internal/output"
	"github.com/medlit/medsearch/internal/profiling"
	"github.com/medlit/medsearch/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index artifact status",
		Long:  `Show the index directory, its artifacts, and corpus statistics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	paths := index.ArtifactPaths(cfg.Index.Dir)
	out.Statusf("", "Index directory: %s", cfg.Index.Dir)

	missing := false
	for _, artifact := range []struct {
		name string
		path string
	}{
		{"lexical index", paths.Lexical},
		{"vector index", paths.Vector},
		{"chunk catalog", paths.Catalog},
	} {
		size, ok := pathSize(artifact.path)
		if !ok {
			out.Warningf("%s: missing (%s)", artifact.name, artifact.path)
			missing = true
			continue
		}
		out.Statusf("", "%s: %s", artifact.name, profiling.FormatBytes(uint64(size)))
	}

	if missing {
		out.Newline()
		out.Status("", "Run 'medsearch index <documents-dir>' to build the index.")
		return nil
	}

	dimensions, err := store.ReadHNSWStoreDimensions(paths.Vector)
	if err != nil {
		return fmt.Errorf("failed to read vector metadata: %w", err)
	}

	catalog, err := store.LoadCatalog(paths.Catalog)
	if err != nil {
		return fmt.Errorf("failed to read chunk catalog: %w", err)
	}

	out.Newline()
	out.Statusf("", "Chunks: %d", catalog.Len())
	out.Statusf("", "Embedding dimensions: %d", dimensions)
	if cfg.Structured.DatabasePath != "" {
		if _, err := os.Stat(cfg.Structured.DatabasePath); err != nil {
			out.Warningf("Structured database: missing (%s)", cfg.Structured.DatabasePath)
		} else {
			out.Statusf("", "Structured database: %s", cfg.Structured.DatabasePath)
		}
	} else {
		out.Status("", "Structured database: not configured")
	}

	return nil
}

// pathSize returns the total size of a file, or of a directory's
// direct entries. The bleve index is a directory.
func pathSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	if !info.IsDir() {
		return info.Size(), true
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, false
	}
	var total int64
	for _, e := range entries {
		if fi, err := e.Info(); err == nil {
			total += fi.Size()
		}
	}
	return total, true
}
