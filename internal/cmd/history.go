package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/Iron-Ham/negotiator/internal/history"
	"github.com/Iron-Ham/negotiator/internal/styles"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded negotiation outcomes",
	Long: `List the most recent negotiations from the history ledger, newest first.

With --stats, show totals per outcome and the average number of rounds.`,
	RunE: runHistory,
}

var (
	historyLimit int  // Rows to list
	historyStats bool // Show aggregate statistics instead of rows
	historyJSON  bool // Output as JSON
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", history.DefaultListLimit, "Maximum number of sessions to list")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Show outcome statistics")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !cfg.History.Enabled {
		fmt.Fprintln(out, styles.Muted.Render("History is disabled (history.enabled: false)"))
		return nil
	}

	store, err := history.Open(cfg.History.Driver, cfg.History.ResolveDSN())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if historyStats {
		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(cmd, stats)
		}
		printStats(cmd, stats)
		return nil
	}

	records, err := store.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(cmd, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("No negotiations recorded yet"))
		return nil
	}

	fmt.Fprintln(out, styles.Title.Render("Recent negotiations"))
	for _, r := range records {
		fmt.Fprintf(out, "%s  %-18s %s %s %s %s\n",
			styles.Muted.Render(r.StartedAt.Local().Format(time.DateTime)),
			styles.Outcome(r.Outcome),
			styles.Label.Render(r.Agent),
			styles.Muted.Render(fmt.Sprintf("rounds=%d", r.Rounds)),
			styles.Muted.Render("peer="+shortID(r.PeerID)),
			styles.Muted.Render(fmt.Sprintf("via %s", r.Transport)),
		)
	}
	return nil
}

func printStats(cmd *cobra.Command, stats history.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render("Negotiation statistics"))
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("Total:"), stats.Total)
	fmt.Fprintf(out, "%s %.2f\n", styles.Label.Render("Average rounds:"), stats.AvgRounds)

	outcomes := make([]string, 0, len(stats.ByOutcome))
	for o := range stats.ByOutcome {
		outcomes = append(outcomes, o)
	}
	slices.Sort(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %-18s %d\n", styles.Outcome(o), stats.ByOutcome[o])
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
