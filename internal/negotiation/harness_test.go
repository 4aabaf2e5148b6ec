package negotiation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// testNet broadcasts every encoded message to every joined engine, the
// sender included, preserving per-receiver order.
type testNet struct {
	mu     sync.RWMutex
	inbox  []chan []byte
	done   chan struct{}
	closed atomic.Bool
}

func newTestNet(t *testing.T) *testNet {
	t.Helper()
	n := &testNet{done: make(chan struct{})}
	t.Cleanup(func() {
		if n.closed.CompareAndSwap(false, true) {
			close(n.done)
		}
	})
	return n
}

func (n *testNet) Send(_ context.Context, msg wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.inbox {
		select {
		case ch <- data:
		case <-n.done:
			return fmt.Errorf("net closed")
		}
	}
	return nil
}

func (n *testNet) join(e *Engine) {
	ch := make(chan []byte, 64)
	n.mu.Lock()
	n.inbox = append(n.inbox, ch)
	n.mu.Unlock()
	go func() {
		for {
			select {
			case data := <-ch:
				e.HandleRaw(data)
			case <-n.done:
				return
			}
		}
	}()
}

// sliceSupply hands out offers in order and resets on demand.
type sliceSupply struct {
	mu     sync.Mutex
	offers []Offer
	next   int
	resets int
}

func newSupply(offers ...Offer) *sliceSupply {
	return &sliceSupply{offers: offers}
}

func (s *sliceSupply) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next < len(s.offers)
}

func (s *sliceSupply) Next() Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.offers[s.next]
	s.next++
	return o
}

func (s *sliceSupply) Max() Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.offers) == 0 {
		return Offer{}
	}
	return s.offers[0]
}

func (s *sliceSupply) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	s.resets++
}

func constScorer(v float64) Scorer {
	return ScorerFunc(func(Offer, Offer) float64 { return v })
}

func fixedDice(n int) Option {
	return WithDiceRoller(func() int { return n })
}

// recorder collects bus events of interest.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func record(bus *event.Bus) *recorder {
	r := &recorder{}
	bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) roles() []event.RoleEnteredEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.RoleEnteredEvent
	for _, e := range r.events {
		if re, ok := e.(event.RoleEnteredEvent); ok {
			out = append(out, re)
		}
	}
	return out
}

func (r *recorder) sent(kind wire.Kind) []event.MessageSentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.MessageSentEvent
	for _, e := range r.events {
		if se, ok := e.(event.MessageSentEvent); ok && se.Kind == string(kind) {
			out = append(out, se)
		}
	}
	return out
}

func (r *recorder) dropped() []event.MessageDroppedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.MessageDroppedEvent
	for _, e := range r.events {
		if de, ok := e.(event.MessageDroppedEvent); ok {
			out = append(out, de)
		}
	}
	return out
}

// runPair runs both engines concurrently and returns their results.
func runPair(t *testing.T, a, b *Engine) (Result, Result) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var ra, rb Result
	var wg sync.WaitGroup
	wg.Go(func() { ra = a.Run(ctx) })
	wg.Go(func() { rb = b.Run(ctx) })
	wg.Wait()
	return ra, rb
}

// quick keeps waits short enough for tests but long enough that a live
// peer always answers in time.
func quick() []Option {
	return []Option{
		WithDiceTimeout(2 * time.Second),
		WithResponseTimeout(2 * time.Second),
	}
}
