package cmd

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Iron-Ham/negotiator/internal/agent"
	"github.com/Iron-Ham/negotiator/internal/history"
	"github.com/Iron-Ham/negotiator/internal/negotiation"
	"github.com/Iron-Ham/negotiator/internal/offer"
	"github.com/Iron-Ham/negotiator/internal/styles"
	"github.com/Iron-Ham/negotiator/internal/transport"
	"github.com/Iron-Ham/negotiator/internal/transport/memory"
	"github.com/Iron-Ham/negotiator/internal/wire"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run two agents against each other in-process",
	Long: `Run a pair of agents on an in-memory channel and print both sides of
every session. Both agents use the configured profiles; offers, dice and
accept margins can be set per side.

Offers are written as task:condition,condition, for example:
  negotiator simulate --offer-a deliver:escort --offer-a clean --offer-b deliver`,
	RunE: runSimulate,
}

var (
	simulateSessions int
	simulateDice     [2]int
	simulateOffers   [2][]string
	simulateMargin   [2]float64
	simulateLatency  time.Duration
	simulateRecord   bool
	simulateSeed     uint64
)

var simulateSides = [2]string{"a", "b"}

func init() {
	simulateCmd.Flags().IntVarP(&simulateSessions, "sessions", "n", 1, "Number of sessions to run")
	for i, side := range simulateSides {
		simulateCmd.Flags().IntVar(&simulateDice[i], "dice-"+side, 0, "Fixed dice for agent "+side+" (0 rolls)")
		simulateCmd.Flags().StringArrayVar(&simulateOffers[i], "offer-"+side, nil, "Offer for agent "+side+", repeatable (default: offers.file)")
		simulateCmd.Flags().Float64Var(&simulateMargin[i], "margin-"+side, 0, "Accept margin for agent "+side+" (default: profiles.accept_margin)")
	}
	simulateCmd.Flags().DurationVar(&simulateLatency, "latency", 0, "Delivery delay of the in-memory channel")
	simulateCmd.Flags().BoolVar(&simulateRecord, "record", false, "Record both sides to the history ledger")
	simulateCmd.Flags().Uint64Var(&simulateSeed, "seed", 0, "Seed for dice rolls (0 uses a random seed)")
	rootCmd.AddCommand(simulateCmd)
}

// parseOffer reads "task:cond1,cond2".
func parseOffer(s string) (offer.Offer, error) {
	task, conds, _ := strings.Cut(s, ":")
	task = strings.TrimSpace(task)
	if task == "" {
		return offer.Offer{}, fmt.Errorf("invalid offer %q: missing task", s)
	}
	o := offer.Offer{Task: task, Conditions: []string{}}
	if conds != "" {
		for _, c := range strings.Split(conds, ",") {
			if c = strings.TrimSpace(c); c != "" {
				o.Conditions = append(o.Conditions, c)
			}
		}
	}
	return o, nil
}

func parseOffers(specs []string) ([]offer.Offer, error) {
	offers := make([]offer.Offer, 0, len(specs))
	for _, s := range specs {
		o, err := parseOffer(s)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// diceRoller returns a fixed roller for a non-zero value, otherwise a
// seeded one when seed is set. A nil roller keeps the engine default.
func diceRoller(fixed int, seed uint64) (func() int, error) {
	if fixed != 0 {
		if fixed < wire.MinDice || fixed > wire.MaxDice {
			return nil, fmt.Errorf("dice %d out of range [%d, %d]", fixed, wire.MinDice, wire.MaxDice)
		}
		return func() int { return fixed }, nil
	}
	if seed == 0 {
		return nil, nil
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	return func() int { return wire.MinDice + rng.IntN(wire.MaxDice-wire.MinDice+1) }, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if simulateSessions < 1 {
		return fmt.Errorf("--sessions must be at least 1")
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	var store *history.Store
	if simulateRecord && cfg.History.Enabled {
		store, err = history.Open(cfg.History.Driver, cfg.History.ResolveDSN())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}
	cfg.History.Enabled = false

	ctx := cmd.Context()
	hub := memory.NewHub(memory.WithLatency(simulateLatency))

	var agents [2]*agent.Agent
	defer func() {
		for _, a := range agents {
			if a != nil {
				a.Close()
			}
		}
	}()
	for i, side := range simulateSides {
		sideCfg := *cfg
		sideCfg.Agent.Name = "agent-" + side

		opts := []agent.Option{
			agent.WithLogger(logger),
			agent.WithTransport(hub.Endpoint(), transport.KindMemory),
		}
		if store != nil {
			opts = append(opts, agent.WithHistory(store))
		}
		if len(simulateOffers[i]) > 0 {
			offers, err := parseOffers(simulateOffers[i])
			if err != nil {
				return err
			}
			opts = append(opts, agent.WithOffers(offers))
		}
		if cmd.Flags().Changed("margin-" + side) {
			opts = append(opts, agent.WithAcceptMargin(simulateMargin[i]))
		}
		seed := simulateSeed
		if seed != 0 {
			seed += uint64(i)
		}
		roll, err := diceRoller(simulateDice[i], seed)
		if err != nil {
			return err
		}
		if roll != nil {
			opts = append(opts, agent.WithDiceRoller(roll))
		}

		agents[i], err = agent.New(ctx, &sideCfg, opts...)
		if err != nil {
			return fmt.Errorf("failed to start agent %s: %w", side, err)
		}
	}

	// Each agent handles one session at a time, so both sides finish a
	// session before either opens the next.
	var results [2][]negotiation.Result
	var errs [2]error
	for range simulateSessions {
		if ctx.Err() != nil {
			break
		}
		var wg conc.WaitGroup
		for i := range agents {
			wg.Go(func() {
				res, err := agents[i].Negotiate(ctx)
				if err != nil && errs[i] == nil {
					errs[i] = err
				}
				results[i] = append(results[i], res)
			})
		}
		wg.Wait()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render(fmt.Sprintf("Simulated %d session(s)", simulateSessions)))
	for n := range min(len(results[0]), len(results[1])) {
		a, b := results[0][n], results[1][n]
		fmt.Fprintf(out, "%s %s\n", styles.Label.Render("agent-a"), formatResult(n+1, a))
		fmt.Fprintf(out, "%s %s\n", styles.Label.Render("agent-b"), formatResult(n+1, b))
	}
	if simulateSessions > 1 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s %s\n", styles.Label.Render("agent-a"), formatTally(results[0]))
		fmt.Fprintf(out, "%s %s\n", styles.Label.Render("agent-b"), formatTally(results[1]))
	}

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("agent %s: failed to record history: %w", simulateSides[i], err)
		}
	}
	return nil
}
