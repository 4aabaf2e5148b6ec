package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/negotiator/internal/agent"
	"github.com/Iron-Ham/negotiator/internal/negotiation"
	"github.com/Iron-Ham/negotiator/internal/styles"
	"github.com/spf13/cobra"
)

var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Negotiate with a peer over the configured transport",
	Long: `Run one or more negotiation sessions against a peer that shares the
configured transport (mailbox directory, redis channel or QUIC peers).

Each session rolls dice, trades offers and ends as winner, loser or
no-agreement. Outcomes are recorded to the history ledger when enabled.`,
	RunE: runNegotiate,
}

var (
	negotiateSessions  int    // Sessions to run; 0 uses negotiation.sessions
	negotiateContext   string // Context used to pick the active profile
	negotiateTransport string // Transport kind override
	negotiateName      string // Agent name override
)

func init() {
	negotiateCmd.Flags().IntVarP(&negotiateSessions, "sessions", "n", 0, "Number of sessions to run (default from config)")
	negotiateCmd.Flags().StringVar(&negotiateContext, "context", "", "Context that selects the active profile")
	negotiateCmd.Flags().StringVarP(&negotiateTransport, "transport", "t", "", "Transport kind: mailbox, redis or quic")
	negotiateCmd.Flags().StringVar(&negotiateName, "name", "", "Agent name recorded in history")
	rootCmd.AddCommand(negotiateCmd)
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if negotiateSessions > 0 {
		cfg.Negotiation.Sessions = negotiateSessions
	}
	if negotiateContext != "" {
		cfg.Profiles.Context = negotiateContext
	}
	if negotiateTransport != "" {
		cfg.Transport.Kind = negotiateTransport
	}
	if negotiateName != "" {
		cfg.Agent.Name = negotiateName
	}
	if err := revalidate(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := agent.New(ctx, cfg, agent.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render(fmt.Sprintf("Negotiating as %s over %s", a.Name(), cfg.Transport.Kind)))

	results, err := a.NegotiateN(ctx, cfg.Negotiation.Sessions, func(i int, res negotiation.Result) {
		fmt.Fprintln(out, formatResult(i+1, res))
	})
	if len(results) > 1 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, formatTally(results))
	}
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	if ctx.Err() != nil && len(results) < cfg.Negotiation.Sessions {
		fmt.Fprintln(out, styles.Warning.Render(fmt.Sprintf("Interrupted after %d of %d sessions", len(results), cfg.Negotiation.Sessions)))
	}
	return nil
}
