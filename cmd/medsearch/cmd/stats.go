package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/medlit/medsearch/internal/config"
	"github.com/medlit/medsearch/internal/structured"
	"github.com/medlit/medsearch/internal/telemetry"
)

// statsWindow is how far back the stats report looks.
const statsWindow = 30 * 24 * time.Hour

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show local query statistics",
		Long: `Show query statistics collected from previous searches.

Statistics cover the last 30 days: query intent mix, latency
distribution, most frequent query terms, and recent queries that
returned no results. Everything is stored locally in metrics.db.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")

	return cmd
}

// statsReport is the aggregated view printed by the stats command.
type statsReport struct {
	From              string                            `json:"from"`
	To                string                            `json:"to"`
	IntentCounts      map[structured.Intent]int64       `json:"intent_counts"`
	LatencyCounts     map[telemetry.LatencyBucket]int64 `json:"latency_counts"`
	TopTerms          []telemetry.TermCount             `json:"top_terms"`
	ZeroResultQueries []string                          `json:"zero_result_queries"`
}

func runStats(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	path := metricsPath(cfg)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no query statistics yet, run 'medsearch search' first")
	}

	metricsStore, err := telemetry.OpenStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = metricsStore.Close() }()

	now := time.Now()
	report := statsReport{
		From: now.Add(-statsWindow).Format("2006-01-02"),
		To:   now.Format("2006-01-02"),
	}

	if report.IntentCounts, err = metricsStore.GetIntentCounts(report.From, report.To); err != nil {
		return err
	}
	if report.LatencyCounts, err = metricsStore.GetLatencyCounts(report.From, report.To); err != nil {
		return err
	}
	if report.TopTerms, err = metricsStore.GetTopTerms(10); err != nil {
		return err
	}
	if report.ZeroResultQueries, err = metricsStore.GetZeroResultQueries(10); err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printStats(cmd, report)
	return nil
}

func printStats(cmd *cobra.Command, report statsReport) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Query statistics (%s to %s)\n\n", report.From, report.To)

	fmt.Fprintln(out, "Intent mix:")
	var total int64
	for _, count := range report.IntentCounts {
		total += count
	}
	if total == 0 {
		fmt.Fprintln(out, "  no queries recorded")
	}
	for _, intent := range []structured.Intent{
		structured.IntentSafety,
		structured.IntentOutcomes,
		structured.IntentInterventions,
		structured.IntentNone,
	} {
		if count := report.IntentCounts[intent]; count > 0 {
			fmt.Fprintf(out, "  %-14s %5d  (%.1f%%)\n", intent, count,
				float64(count)/float64(total)*100)
		}
	}

	fmt.Fprintln(out, "\nLatency distribution:")
	for _, b := range []struct {
		bucket telemetry.LatencyBucket
		label  string
	}{
		{telemetry.BucketP10, "< 10ms"},
		{telemetry.BucketP50, "10-50ms"},
		{telemetry.BucketP100, "50-100ms"},
		{telemetry.BucketP500, "100-500ms"},
		{telemetry.BucketP1000, ">= 500ms"},
	} {
		if count := report.LatencyCounts[b.bucket]; count > 0 {
			fmt.Fprintf(out, "  %-10s %5d\n", b.label, count)
		}
	}

	if len(report.TopTerms) > 0 {
		fmt.Fprintln(out, "\nTop query terms:")
		for _, tc := range report.TopTerms {
			fmt.Fprintf(out, "  %-20s %5d\n", tc.Term, tc.Count)
		}
	}

	if len(report.ZeroResultQueries) > 0 {
		fmt.Fprintln(out, "\nRecent zero-result queries:")
		for _, q := range report.ZeroResultQueries {
			fmt.Fprintf(out, "  %s\n", q)
		}
	}
}
