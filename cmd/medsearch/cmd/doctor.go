package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medlit/medsearch/internal/config"
	"github.com/medlit/medsearch/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the medsearch environment",
		Long: `Run environment checks: disk space, index directory permissions,
index artifact health, embedder reachability, and the structured
trial database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}

			input := preflight.Input{
				IndexDir:         cfg.Index.Dir,
				StructuredDBPath: cfg.Structured.DatabasePath,
			}

			embedder, err := newEmbedder(cmd.Context(), cfg)
			if err == nil {
				defer func() { _ = embedder.Close() }()
				input.Embedder = embedder
				input.EmbedderName = fmt.Sprintf("%s (%s)", cfg.Embeddings.Provider, embedder.ModelName())
			}

			checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()))
			results := checker.RunAll(cmd.Context(), input)
			checker.Report(results)

			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "[FAIL] embedder: %v\n", err)
				return fmt.Errorf("embedder check failed")
			}
			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}
