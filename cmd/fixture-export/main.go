package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/replay"
)

// #region main

var (
	driver      string
	dbPath      string
	last        int
	outPath     string
	description string
	fallback    bool
)

var rootCmd = &cobra.Command{
	Use:           "fixture-export",
	Short:         "Export recorded cycles as a replay fixture",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" || outPath == "" {
			return fmt.Errorf("--db and --out are required")
		}
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&driver, "driver", memory.DriverSQLite, "Store driver: sqlite or badger")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Path to the store")
	rootCmd.Flags().IntVar(&last, "last", 4, "Number of most recent cycles to export")
	rootCmd.Flags().StringVar(&outPath, "out", "", "Output fixture JSON path")
	rootCmd.Flags().StringVar(&description, "description", "exported from recorded cycles", "Fixture description")
	rootCmd.Flags().BoolVar(&fallback, "fallback", false, "Enable fallback perspectives when the fixture is replayed")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(ctx context.Context) error {
	store, err := memory.Open(driver, dbPath, nil)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if store == nil {
		return fmt.Errorf("driver %q keeps no records", driver)
	}
	defer store.Close()

	summaries, err := store.ListCycles(ctx, last)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no cycles found in %s", dbPath)
	}
	// Summaries are newest first; fixtures read chronologically.
	slices.Reverse(summaries)

	records := make([]memory.CycleRecord, 0, len(summaries))
	for _, s := range summaries {
		rec, err := store.GetCycle(ctx, s.CycleID)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	f := replay.FixtureFromRecords(description, personasOf(records), replay.FixtureConfig{
		Mode:            string(records[len(records)-1].Activation.Mode),
		FallbackEnabled: fallback,
	}, records)
	if err := f.Save(outPath); err != nil {
		return err
	}

	fmt.Printf("Exported %d cycles to %s\n", len(f.Cycles), outPath)
	return nil
}

// personasOf lists every persona that produced a perspective in any record,
// in default roster order.
func personasOf(records []memory.CycleRecord) []string {
	seen := map[string]bool{}
	for _, r := range records {
		for _, p := range r.Activation.Perspectives {
			seen[p.PersonaID] = true
		}
	}
	var ids []string
	for _, id := range crew.DefaultRoster().IDs() {
		if seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// #endregion extract
