// Package internal contains integration tests that run complete agents
// against each other over a real transport and check that outcomes and
// bus events agree.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/negotiator/internal/agent"
	"github.com/Iron-Ham/negotiator/internal/config"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/negotiation"
	"github.com/Iron-Ham/negotiator/internal/offer"
)

// mailboxConfig returns a config for an agent sharing dir as its mailbox.
func mailboxConfig(dir, name string) *config.Config {
	cfg := config.Default()
	cfg.Agent.Name = name
	cfg.Transport.Kind = "mailbox"
	cfg.Transport.Mailbox.Dir = dir
	cfg.Transport.Mailbox.PollIntervalMs = 10
	cfg.Negotiation.DiceTimeoutMs = 5000
	cfg.Negotiation.ResponseTimeoutMs = 2000
	cfg.History.Enabled = false
	return cfg
}

func startAgent(t *testing.T, cfg *config.Config, opts ...agent.Option) *agent.Agent {
	t.Helper()
	a, err := agent.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("agent.New(%s) failed: %v", cfg.Agent.Name, err)
	}
	t.Cleanup(a.Close)
	return a
}

func runBoth(a, b *agent.Agent) (negotiation.Result, negotiation.Result) {
	var ra, rb negotiation.Result
	var wg sync.WaitGroup
	wg.Go(func() { ra, _ = a.Negotiate(context.Background()) })
	wg.Go(func() { rb, _ = b.Negotiate(context.Background()) })
	wg.Wait()
	return ra, rb
}

// TestMailboxNegotiationIntegration runs two agents through the shared
// mailbox directory and checks the completed events on a shared bus.
func TestMailboxNegotiationIntegration(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus()

	var mu sync.Mutex
	completed := map[string]string{}
	bus.Subscribe(event.TypeNegotiationCompleted, func(e event.Event) {
		ce := e.(event.NegotiationCompletedEvent)
		mu.Lock()
		completed[ce.SessionID] = ce.Outcome
		mu.Unlock()
	})

	a := startAgent(t, mailboxConfig(dir, "alpha"),
		agent.WithBus(bus),
		agent.WithDiceRoller(func() int { return 70 }),
		agent.WithOffers([]offer.Offer{{Task: "deliver", Conditions: []string{"escort"}}}),
	)
	b := startAgent(t, mailboxConfig(dir, "beta"),
		agent.WithBus(bus),
		agent.WithDiceRoller(func() int { return 30 }),
		agent.WithAcceptMargin(1),
	)

	ra, rb := runBoth(a, b)
	if ra.Outcome != negotiation.OutcomeWinner || rb.Outcome != negotiation.OutcomeLoser {
		t.Fatalf("outcomes = %s/%s, want winner/loser", ra.Outcome, rb.Outcome)
	}
	if ra.PeerID != rb.SessionID || rb.PeerID != ra.SessionID {
		t.Errorf("peers not bound to each other: a=%+v b=%+v", ra, rb)
	}

	mu.Lock()
	defer mu.Unlock()
	if completed[ra.SessionID] != "winner" || completed[rb.SessionID] != "loser" {
		t.Errorf("completed events = %v", completed)
	}

	// Both agents append to the same topic log.
	data, err := os.ReadFile(filepath.Join(dir, "negotiation", "index.jsonl"))
	if err != nil {
		t.Fatalf("read mailbox log: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines < 4 {
		t.Errorf("mailbox log has %d lines, want at least 4 (two dice, offer, decision)", lines)
	}
}

// TestMailboxNoAgreementIntegration exhausts both offer lists.
func TestMailboxNoAgreementIntegration(t *testing.T) {
	dir := t.TempDir()

	a := startAgent(t, mailboxConfig(dir, "alpha"),
		agent.WithDiceRoller(func() int { return 10 }),
		agent.WithOffers([]offer.Offer{{Task: "clean"}}),
		agent.WithAcceptMargin(-1),
	)
	b := startAgent(t, mailboxConfig(dir, "beta"),
		agent.WithDiceRoller(func() int { return 20 }),
		agent.WithOffers([]offer.Offer{{Task: "deliver"}}),
		agent.WithAcceptMargin(-1),
	)

	ra, rb := runBoth(a, b)
	if ra.Outcome != negotiation.OutcomeNoAgreement || rb.Outcome != negotiation.OutcomeNoAgreement {
		t.Fatalf("outcomes = %s/%s, want no-agreement on both sides", ra.Outcome, rb.Outcome)
	}
}
