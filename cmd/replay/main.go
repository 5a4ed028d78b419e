package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/logging"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/replay"
)

// #region main

// exitDiverged is returned when a replay does not match its fixture.
type exitDiverged struct{ n int }

func (e exitDiverged) Error() string { return fmt.Sprintf("%d cycle(s) diverged", e.n) }

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "replay <fixture.json>",
	Short:         "Replay a fixture through the pipeline and compare with its expected results",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFixtureMode(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level for pipeline output")
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	switch err.(type) {
	case nil:
	case exitDiverged:
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

// #endregion main

// #region output

func runFixtureMode(ctx context.Context, path string) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	roster, err := f.Roster()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{Level: logLevel})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	results := replay.Replay(ctx, roster, f.ToCycles(), f.Config.ToReplayConfig(), logger)
	return printComparison(results, f.ExpectedResults)
}

// printComparison outputs a comparison table and fails when any cycle diverges.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult) error {
	fmt.Printf("%-12s| %-13s| %-13s| %-18s| %-24s| %s\n", "Cycle", "Expected", "Replayed", "Dominant", "Flagged", "Match")
	fmt.Printf("%-12s+%-14s+%-14s+%-19s+%-25s+%s\n",
		"------------", "--------------", "--------------", "-------------------", "-------------------------", "------")

	total := min(len(results), len(expected))
	matches := 0
	for i := 0; i < total; i++ {
		exp, got := expected[i], results[i]
		match := "DIFF"
		if exp.Action == got.Action && exp.DominantPersona == got.DominantPersona && slices.Equal(exp.Flagged, got.Flagged) {
			match = "OK"
			matches++
		}
		fmt.Printf("%-12s| %-13s| %-13s| %-18s| %-24s| %s\n",
			got.TurnID, exp.Action, got.Action, got.DominantPersona, strings.Join(got.Flagged, ","), match)
	}

	s := replay.Summarize(results)
	diverge := total - matches + abs(len(results)-len(expected))
	fmt.Printf("\nSummary: %d cycles, %d analyzed, %d insufficient, %d failed, %d flagged | %d match, %d diverge\n",
		s.TotalCycles, s.Analyzed, s.Insufficient, s.Failed, s.Hallucinations, matches, diverge)

	if diverge > 0 {
		return exitDiverged{n: diverge}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// #endregion output
