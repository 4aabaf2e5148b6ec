package negotiation

import (
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// move is an entry of the offer-or-quit queue.
type move struct {
	offer Offer
	quit  bool
}

// Session is the state of one negotiation attempt. It is owned by an Engine;
// the dispatcher writes peer-side fields and the state loop owns the rest.
type Session struct {
	id        string
	startedAt time.Time

	mu               sync.Mutex
	peerID           string
	peerDice         int
	peerQuitObserved bool
	selfDice         int
	rounds           int

	// Owned by the state loop.
	selfQuit             bool
	peerQuitAcknowledged bool
	reference            Offer

	diceReady chan struct{}
	moves     chan move
	decisions chan wire.Decision
}

func newSession(id string) *Session {
	return &Session{
		id:        id,
		diceReady: make(chan struct{}, diceQueueSize),
		moves:     make(chan move, moveQueueSize),
		decisions: make(chan wire.Decision, decisionQueueSize),
	}
}

// ID returns this agent's identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// PeerID returns the bound peer, or "" before the first peer dice.
func (s *Session) PeerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerID
}

// PeerDice returns the peer's dice, or 0 if none has been received.
func (s *Session) PeerDice() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerDice
}

// SelfDice returns this agent's dice, or 0 before arbitration.
func (s *Session) SelfDice() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfDice
}

// Rounds returns the number of role entries so far.
func (s *Session) Rounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds
}

// PeerQuitObserved reports whether a quit from the bound peer has arrived.
func (s *Session) PeerQuitObserved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerQuitObserved
}

func (s *Session) setSelfDice(n int) {
	s.mu.Lock()
	s.selfDice = n
	s.mu.Unlock()
}

// enterRole increments the round counter and returns the new value.
func (s *Session) enterRole() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds++
	return s.rounds
}

// accept applies an inbound message to the session. It returns nil when the
// message changed state and a drop reason otherwise. It never blocks.
func (s *Session) accept(msg wire.Message) error {
	switch msg.ID {
	case "":
		return fmt.Errorf("%w: missing id", errors.ErrMalformedMessage)
	case s.id:
		return errors.ErrSelfMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peerID == "" && s.peerDice == 0 && msg.Kind == wire.KindDice {
		n, err := msg.Dice()
		if err != nil {
			return err
		}
		s.peerID = msg.ID
		s.peerDice = n
		signal(s.diceReady)
		return nil
	}

	if msg.ID != s.peerID {
		return errors.ErrStaleSender
	}

	switch msg.Kind {
	case wire.KindDice:
		return errors.ErrDuplicateDice
	case wire.KindOffer:
		o, err := msg.Offer()
		if err != nil {
			return err
		}
		return push(s.moves, move{offer: o})
	case wire.KindQuit:
		s.peerQuitObserved = true
		return push(s.moves, move{quit: true})
	case wire.KindDecision:
		d, err := msg.Decision()
		if err != nil {
			return err
		}
		return push(s.decisions, d)
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownKind, msg.Kind)
	}
}

// signal raises a sticky one-shot flag on a buffered channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func push[T any](ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	default:
		return errors.ErrQueueFull
	}
}
