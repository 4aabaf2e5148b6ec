package agent

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Iron-Ham/negotiator/internal/config"
	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/history"
	"github.com/Iron-Ham/negotiator/internal/negotiation"
	"github.com/Iron-Ham/negotiator/internal/offer"
	"github.com/Iron-Ham/negotiator/internal/transport"
	"github.com/Iron-Ham/negotiator/internal/transport/memory"
)

const careProfiles = `
default: standard
context_rules:
  hospital: care
profiles:
  - label: standard
    tasks: {clean: 1}
  - label: care
    tasks: {deliver: 5}
    conditions: {escort: 1}
`

func testConfig(t *testing.T, name string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Agent.Name = name
	cfg.Transport.Kind = "memory"
	cfg.Negotiation.DiceTimeoutMs = 2000
	cfg.Negotiation.ResponseTimeoutMs = 1000
	cfg.History.Enabled = false
	return cfg
}

func newTestAgent(t *testing.T, cfg *config.Config, opts ...Option) *Agent {
	t.Helper()
	a, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New(%s) = %v", cfg.Agent.Name, err)
	}
	t.Cleanup(a.Close)
	return a
}

func fixed(n int) func() int { return func() int { return n } }

// negotiatePair runs one session on both agents concurrently.
func negotiatePair(t *testing.T, a, b *Agent) (negotiation.Result, negotiation.Result) {
	t.Helper()
	var wg sync.WaitGroup
	var ra, rb negotiation.Result
	var errA, errB error
	wg.Go(func() { ra, errA = a.Negotiate(context.Background()) })
	wg.Go(func() { rb, errB = b.Negotiate(context.Background()) })
	wg.Wait()
	if errA != nil || errB != nil {
		t.Fatalf("Negotiate() errors: %v, %v", errA, errB)
	}
	return ra, rb
}

func TestAgent_AcceptingPeerRecordsHistory(t *testing.T) {
	hub := memory.NewHub()
	store, err := history.Open(history.DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	a := newTestAgent(t, testConfig(t, "robot-a"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithHistory(store),
		WithDiceRoller(fixed(50)),
		WithOffers([]offer.Offer{{Task: "deliver", Conditions: []string{"escort"}}}),
	)
	b := newTestAgent(t, testConfig(t, "robot-b"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithHistory(store),
		WithDiceRoller(fixed(20)),
		WithAcceptMargin(1),
	)

	ra, rb := negotiatePair(t, a, b)
	if ra.Outcome != negotiation.OutcomeWinner || rb.Outcome != negotiation.OutcomeLoser {
		t.Fatalf("outcomes = %s/%s, want winner/loser", ra.Outcome, rb.Outcome)
	}
	if ra.Rounds != 1 || rb.Rounds != 1 {
		t.Errorf("rounds = %d/%d, want 1/1", ra.Rounds, rb.Rounds)
	}

	records, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("history has %d records, want 2", len(records))
	}
	byAgent := map[string]history.Record{}
	for _, r := range records {
		byAgent[r.Agent] = r
	}
	if got := byAgent["robot-a"]; got.Outcome != "winner" || got.SelfDice != 50 || got.PeerDice != 20 || got.Transport != "memory" {
		t.Errorf("robot-a record = %+v", got)
	}
	if got := byAgent["robot-b"]; got.Outcome != "loser" || got.PeerID != ra.SessionID {
		t.Errorf("robot-b record = %+v", got)
	}
}

func TestAgent_ProfileDrivesAcceptance(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(profilePath, []byte(careProfiles), 0o644); err != nil {
		t.Fatal(err)
	}

	hub := memory.NewHub()
	bus := event.NewBus()
	var mu sync.Mutex
	var activated []string
	bus.Subscribe(event.TypeProfileActivated, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		activated = append(activated, e.(event.ProfileActivatedEvent).Label)
	})

	a := newTestAgent(t, testConfig(t, "robot-a"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithDiceRoller(fixed(50)),
		WithOffers([]offer.Offer{{Task: "deliver", Conditions: []string{"escort"}}}),
	)

	cfgB := testConfig(t, "robot-b")
	cfgB.Profiles.File = profilePath
	cfgB.Profiles.Context = "hospital"
	b := newTestAgent(t, cfgB,
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithBus(bus),
		WithDiceRoller(fixed(20)),
		WithOffers([]offer.Offer{{Task: "clean"}}),
	)

	active, err := b.Profiles().Active()
	if err != nil || active.Label != "care" {
		t.Fatalf("Active() = %v, %v; want care", active.Label, err)
	}

	ra, rb := negotiatePair(t, a, b)
	if ra.Outcome != negotiation.OutcomeWinner || rb.Outcome != negotiation.OutcomeLoser {
		t.Errorf("outcomes = %s/%s, want winner/loser", ra.Outcome, rb.Outcome)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(activated) == 0 || activated[len(activated)-1] != "care" {
		t.Errorf("activations = %v, want care last", activated)
	}
}

func TestAgent_NegotiateN(t *testing.T) {
	hub := memory.NewHub()
	a := newTestAgent(t, testConfig(t, "robot-a"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithDiceRoller(fixed(50)),
		WithOffers([]offer.Offer{{Task: "deliver"}}),
	)
	b := newTestAgent(t, testConfig(t, "robot-b"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithDiceRoller(fixed(20)),
		WithAcceptMargin(1),
	)

	// Neither side opens a session until both have finished the last one.
	const n = 3
	doneA, doneB := make(chan int, n), make(chan int, n)
	var wg sync.WaitGroup
	var resultsB []negotiation.Result
	wg.Go(func() {
		resultsB, _ = b.NegotiateN(context.Background(), n, func(i int, _ negotiation.Result) {
			doneB <- i
			<-doneA
		})
	})

	var seen []int
	resultsA, err := a.NegotiateN(context.Background(), n, func(i int, _ negotiation.Result) {
		seen = append(seen, i)
		doneA <- i
		<-doneB
	})
	wg.Wait()
	if err != nil {
		t.Fatalf("NegotiateN() = %v", err)
	}
	if len(resultsA) != n || len(resultsB) != n || len(seen) != n {
		t.Fatalf("got %d/%d results and %d callbacks, want %d", len(resultsA), len(resultsB), len(seen), n)
	}

	ids := map[string]bool{}
	for i := range n {
		if resultsA[i].Outcome != negotiation.OutcomeWinner || resultsB[i].Outcome != negotiation.OutcomeLoser {
			t.Errorf("session %d outcomes = %s/%s", i, resultsA[i].Outcome, resultsB[i].Outcome)
		}
		ids[resultsA[i].SessionID] = true
	}
	if len(ids) != n {
		t.Errorf("session ids not fresh per run: %v", ids)
	}
}

func TestAgent_NegotiateNStopsOnCancel(t *testing.T) {
	a := newTestAgent(t, testConfig(t, "robot-a"),
		WithTransport(memory.NewHub().Endpoint(), transport.KindMemory))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := a.NegotiateN(ctx, 5, nil)
	if err != nil || len(results) != 0 {
		t.Errorf("NegotiateN(canceled) = %d results, %v", len(results), err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Run("memory transport needs an endpoint", func(t *testing.T) {
		_, err := New(context.Background(), testConfig(t, "x"))
		if !errors.Is(err, errors.ErrUnsupportedTransport) {
			t.Errorf("New() = %v, want ErrUnsupportedTransport", err)
		}
	})

	t.Run("missing profile file", func(t *testing.T) {
		cfg := testConfig(t, "x")
		cfg.Profiles.File = filepath.Join(t.TempDir(), "missing.yaml")
		if _, err := New(context.Background(), cfg); err == nil {
			t.Error("New() with a missing profile file should fail")
		}
	})

	t.Run("missing offer catalog", func(t *testing.T) {
		cfg := testConfig(t, "x")
		cfg.Offers.File = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := New(context.Background(), cfg, WithTransport(memory.NewHub().Endpoint(), transport.KindMemory))
		if err == nil {
			t.Error("New() with a missing offer catalog should fail")
		}
	})
}

func TestOpenTransport(t *testing.T) {
	t.Run("mailbox", func(t *testing.T) {
		cfg := config.Default().Transport
		cfg.Mailbox.Dir = t.TempDir()
		tr, err := OpenTransport(context.Background(), cfg, nil, nil)
		if err != nil {
			t.Fatalf("OpenTransport(mailbox) = %v", err)
		}
		_ = tr.Close()
	})

	t.Run("quic", func(t *testing.T) {
		cfg := config.Default().Transport
		cfg.Kind = "quic"
		cfg.QUIC.Listen = "127.0.0.1:0"
		cfg.QUIC.Peers = []string{"127.0.0.1:1"}
		tr, err := OpenTransport(context.Background(), cfg, nil, nil)
		if err != nil {
			t.Fatalf("OpenTransport(quic) = %v", err)
		}
		_ = tr.Close()
	})

	for _, kind := range []string{"memory", "smtp"} {
		t.Run(kind, func(t *testing.T) {
			cfg := config.Default().Transport
			cfg.Kind = kind
			if _, err := OpenTransport(context.Background(), cfg, nil, nil); !errors.Is(err, errors.ErrUnsupportedTransport) {
				t.Errorf("OpenTransport(%s) = %v, want ErrUnsupportedTransport", kind, err)
			}
		})
	}
}

func TestAgent_RecordFailureKeepsResult(t *testing.T) {
	hub := memory.NewHub()
	store, err := history.Open(history.DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	a := newTestAgent(t, testConfig(t, "robot-a"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithHistory(store),
		WithDiceRoller(fixed(50)),
		WithOffers([]offer.Offer{{Task: "deliver"}}),
	)
	b := newTestAgent(t, testConfig(t, "robot-b"),
		WithTransport(hub.Endpoint(), transport.KindMemory),
		WithDiceRoller(fixed(20)),
		WithAcceptMargin(1),
	)

	var ra negotiation.Result
	var errA error
	var wg sync.WaitGroup
	wg.Go(func() { ra, errA = a.Negotiate(context.Background()) })
	wg.Go(func() { _, _ = b.Negotiate(context.Background()) })
	wg.Wait()

	if ra.Outcome != negotiation.OutcomeWinner {
		t.Errorf("Outcome = %s, want winner even when recording fails", ra.Outcome)
	}
	var ne *errors.NegotiationError
	if !errors.As(errA, &ne) {
		t.Fatalf("Negotiate() error = %v, want NegotiationError", errA)
	}
	if ne.SessionID != ra.SessionID || ne.PeerID != ra.PeerID || ne.Phase != "history" {
		t.Errorf("NegotiationError = %+v, want session %s peer %s", ne, ra.SessionID, ra.PeerID)
	}
	if got := errors.GetSeverity(errA); got != errors.SeverityWarning {
		t.Errorf("GetSeverity() = %v, want warning: the outcome itself stands", got)
	}
}
