package cmd

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/negotiator/internal/negotiation"
	"github.com/Iron-Ham/negotiator/internal/styles"
)

// shortID trims a uuid for display.
func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatResult renders one session on a single line.
func formatResult(n int, res negotiation.Result) string {
	dice := fmt.Sprintf("%d/-", res.SelfDice)
	if res.PeerDice > 0 {
		dice = fmt.Sprintf("%d/%d", res.SelfDice, res.PeerDice)
	}
	return fmt.Sprintf("%s %-18s %s %s %s %s",
		styles.Muted.Render(fmt.Sprintf("#%-3d", n)),
		styles.Outcome(string(res.Outcome)),
		styles.Muted.Render(fmt.Sprintf("rounds=%d", res.Rounds)),
		styles.Muted.Render("peer="+shortID(res.PeerID)),
		styles.Muted.Render("dice="+dice),
		styles.Muted.Render(res.Duration.Round(time.Millisecond).String()),
	)
}

// tally counts outcomes across results.
func tally(results []negotiation.Result) map[negotiation.Outcome]int {
	counts := make(map[negotiation.Outcome]int, 3)
	for _, r := range results {
		counts[r.Outcome]++
	}
	return counts
}

// formatTally renders a one-line outcome summary.
func formatTally(results []negotiation.Result) string {
	counts := tally(results)
	return fmt.Sprintf("%d sessions: %s %d  %s %d  %s %d",
		len(results),
		styles.Outcome(string(negotiation.OutcomeWinner)), counts[negotiation.OutcomeWinner],
		styles.Outcome(string(negotiation.OutcomeLoser)), counts[negotiation.OutcomeLoser],
		styles.Outcome(string(negotiation.OutcomeNoAgreement)), counts[negotiation.OutcomeNoAgreement],
	)
}
