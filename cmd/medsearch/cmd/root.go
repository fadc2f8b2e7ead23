// Package cmd provides the CLI commands for medsearch.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medlit/medsearch/internal/logging"
	"github.com/medlit/medsearch/internal/profiling"
	"github.com/medlit/medsearch/pkg/version"
)

// Persistent flags shared by every command.
var (
	configDir string
	debugMode bool

	profileCPU   string
	profileMem   string
	profileTrace string
)

var (
	profiler       profiling.Session
	loggingCleanup func()
)

// NewRootCmd creates the root command for the medsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medsearch",
		Short: "Hybrid retrieval over medical literature",
		Long: `medsearch builds and queries a hybrid retrieval index over medical
literature: clinical trial reports and textbook chapters.

Queries fan out to a BM25 lexical index, a dense vector index, and a
structured trial database, and the results are fused with weighted
score normalization.

Run 'medsearch index <documents-dir>' to build an index, then
'medsearch search "<query>"' to query it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("medsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing medsearch.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts profiling and debug logging if the
// corresponding flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logCfg.WriteToStderr = debugMode

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	loggingCleanup = cleanup

	if profileCPU != "" {
		if err := profiler.StartCPU(profileCPU); err != nil {
			return err
		}
	}
	if profileTrace != "" {
		if err := profiler.StartTrace(profileTrace); err != nil {
			return err
		}
	}
	return nil
}

// stopProfilingAndLogging flushes profiles and the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write memory profile: %v\n", err)
		}
	}
	profiler.Stop()

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
