package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repopilot/internal/engine"
	"github.com/fyrsmithlabs/repopilot/internal/history"
	"github.com/fyrsmithlabs/repopilot/internal/telemetry"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [repository]",
	Short: "Run one analysis cycle and report the decision",
	Long: `Run a single read -> cluster -> classify -> decide -> regenerate pass
against the configured repository and print the outcome.

Examples:
  # Analyze the repository from the configuration file
  repopilot analyze --config repopilot.yaml

  # Analyze a repository given on the command line
  repopilot analyze /path/to/repo

  # Machine-readable output
  repopilot analyze --json /path/to/repo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the cycle result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		// The positional repository overrides any configured path so a
		// one-shot run needs no config file at all.
		if err := os.Setenv("REPOPILOT_REPOSITORY_PATH", args[0]); err != nil {
			return err
		}
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	metrics := telemetry.New(prometheus.NewRegistry())
	eng := engine.New(cfg, history.NewReader(), history.NewWriter(), log, metrics)

	result, err := eng.RunCycle(cmd.Context())
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(result engine.CycleResult) {
	fmt.Printf("Outcome:        %s\n", result.Outcome)
	fmt.Printf("Commits:        %d (clusters: %d)\n", result.CommitCount, result.ClusterCount)
	if result.ClusterID != "" {
		fmt.Printf("Cluster:        %s (%s)\n", result.ClusterID[:12], result.Closure)
		fmt.Printf("Classification: %s (confidence %.2f)\n", result.Result.Label, result.Result.Confidence)
	}
	if result.Decision.SkipReason != "" {
		fmt.Printf("Skip reason:    %s\n", result.Decision.SkipReason)
	}
	if len(result.Regenerated) > 0 {
		fmt.Printf("Regenerated:    %s\n", strings.Join(result.Regenerated, ", "))
		fmt.Printf("Commit:         %s\n", result.CommitHash)
	}
}
