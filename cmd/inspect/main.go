package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
)

// #region main

var (
	driver  string
	dbPath  string
	last    int
	jsonOut bool

	store memory.Store
)

var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Browse recorded activation cycles",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" {
			return fmt.Errorf("--db is required")
		}
		s, err := memory.Open(driver, dbPath, nil)
		if err != nil {
			return fmt.Errorf("open %s store: %w", driver, err)
		}
		if s == nil {
			return fmt.Errorf("driver %q keeps no records", driver)
		}
		store = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListMode(cmd, last)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <cycle-id>",
	Short: "Show one cycle with every perspective and analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetailMode(cmd, args[0])
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes <persona-id>",
	Short: "Show a persona's learning notes, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotesMode(cmd, args[0], last)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", memory.DriverSQLite, "Store driver: sqlite or badger")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the store (sqlite file or badger directory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON instead of a table")
	listCmd.Flags().IntVar(&last, "last", 20, "Show N most recent cycles")
	notesCmd.Flags().IntVar(&last, "last", 20, "Show N most recent notes")

	rootCmd.AddCommand(listCmd, showCmd, notesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(cmd *cobra.Command, last int) error {
	cycles, err := store.ListCycles(cmd.Context(), last)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Fprintln(os.Stderr, "no cycles found")
		return nil
	}
	if jsonOut {
		return printJSON(cycles)
	}

	fmt.Printf("%-10s  %-10s  %4s  %4s  %9s  %-18s  %6s  %4s  %s\n",
		"Cycle", "Mode", "OK", "Fail", "Agreement", "Dominant", "Health", "Flag", "Time")
	fmt.Printf("%-10s+-%-10s+-%4s+-%4s+-%9s+-%-18s+-%6s+-%4s+-%s\n",
		"----------", "----------", "----", "----", "---------", "------------------", "------", "----", "--------------------")
	for _, c := range cycles {
		fmt.Printf("%-10s  %-10s  %4d  %4d  %9.2f  %-18s  %6.2f  %4d  %s\n",
			shortID(c.CycleID), c.Mode, c.SuccessCount, c.FailureCount, c.AgreementScore,
			c.DominantPersona, c.OverallHealth, c.HallucinationCount, c.RecordedAt.Format(time.RFC3339))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(cmd *cobra.Command, cycleID string) error {
	rec, err := store.GetCycle(cmd.Context(), cycleID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rec)
	}

	act := rec.Activation
	fmt.Printf("Cycle:     %s\n", rec.CycleID)
	fmt.Printf("Recorded:  %s\n", rec.RecordedAt.Format(time.RFC3339))
	fmt.Printf("Input:     %s\n", act.Input)
	fmt.Printf("Mode:      %s  success=%d failure=%d avg_conf=%.2f duration=%s\n",
		act.Mode, act.SuccessCount, act.FailureCount, act.AverageConfidence, act.Duration)
	for _, e := range act.Errors {
		fmt.Printf("Error:     %s\n", e)
	}

	fmt.Printf("\nConsensus (%s, agreement %.2f, confidence %.2f, outliers %d):\n  %s\n",
		rec.Consensus.DominantPersona, rec.Consensus.AgreementScore, rec.Consensus.Confidence,
		rec.Consensus.OutlierCount, rec.Consensus.Response)

	fmt.Println("\nPerspectives:")
	for _, p := range act.Perspectives {
		fmt.Printf("  %-18s %-28s conf=%.2f\n    %s\n", p.PersonaID, p.BackendID, p.Confidence, oneLine(p.Content))
	}

	fmt.Println("\nAnalyses:")
	for _, a := range rec.Analyses {
		flag := ""
		if a.Hallucinated {
			flag = "  FLAGGED"
		}
		fmt.Printf("  %-18s deviation=%.3f severity=%-8s%s\n", a.PersonaID, a.DeviationScore, a.Severity, flag)
	}
	fmt.Printf("\nHealth: %.2f (%d flagged)\n", rec.OverallHealth, rec.HallucinationCount)
	return nil
}

// #endregion detail-mode

// #region notes-mode

func runNotesMode(cmd *cobra.Command, personaID string, last int) error {
	notes, err := store.LearningNotes(cmd.Context(), personaID, last)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintf(os.Stderr, "no learning notes for %s\n", personaID)
		return nil
	}
	if jsonOut {
		return printJSON(notes)
	}
	for _, n := range notes {
		fmt.Printf("[%s] cycle=%s severity=%s deviation=%.3f\n%s\n\n",
			n.CreatedAt.Format(time.RFC3339), shortID(n.CycleID), n.Severity, n.Deviation, n.Note)
	}
	return nil
}

// #endregion notes-mode

// #region output

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// #endregion output
