package negotiation

import (
	"context"
	"time"

	"github.com/Iron-Ham/negotiator/internal/wire"
)

// Offer is a proposed task allocation.
type Offer = wire.Offer

// Outcome is the terminal result of a session.
type Outcome string

const (
	// OutcomeWinner means this agent keeps the task: its offer was accepted,
	// or the peer went silent.
	OutcomeWinner Outcome = "winner"
	// OutcomeLoser means this agent accepted the peer's offer.
	OutcomeLoser Outcome = "loser"
	// OutcomeNoAgreement means both agents withdrew.
	OutcomeNoAgreement Outcome = "no-agreement"
)

// State is a node of the per-session state machine.
type State int

const (
	StateInit State = iota
	StateDiceWait
	StateSenderTurn
	StateReceiverTurn
	StateWinner
	StateLoser
	StateNoAgreement
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDiceWait:
		return "dice-wait"
	case StateSenderTurn:
		return "sender"
	case StateReceiverTurn:
		return "receiver"
	case StateWinner:
		return string(OutcomeWinner)
	case StateLoser:
		return string(OutcomeLoser)
	case StateNoAgreement:
		return string(OutcomeNoAgreement)
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the session.
func (s State) Terminal() bool {
	return s == StateWinner || s == StateLoser || s == StateNoAgreement
}

// Outcome maps a terminal state to its outcome. Non-terminal states return "".
func (s State) Outcome() Outcome {
	switch s {
	case StateWinner:
		return OutcomeWinner
	case StateLoser:
		return OutcomeLoser
	case StateNoAgreement:
		return OutcomeNoAgreement
	default:
		return ""
	}
}

// Result describes one finished session.
type Result struct {
	Outcome   Outcome
	Rounds    int
	SessionID string
	PeerID    string // empty when the dice wait timed out
	SelfDice  int
	PeerDice  int
	StartedAt time.Time
	Duration  time.Duration
}

// OfferSupply yields this agent's offers in the order it is willing to make them.
type OfferSupply interface {
	HasNext() bool
	Next() Offer
	// Max returns the offer this agent values most. It is the reference
	// against which incoming offers are scored.
	Max() Offer
}

// Resetter is implemented by supplies that can rewind for a new session.
type Resetter interface {
	Reset()
}

// Scorer rates an incoming offer relative to a reference offer.
// A strictly positive score means accept.
type Scorer interface {
	Score(offer, reference Offer) float64
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(offer, reference Offer) float64

// Score calls f(offer, reference).
func (f ScorerFunc) Score(offer, reference Offer) float64 {
	return f(offer, reference)
}

// Sender delivers an outbound message to the peer (typically by broadcast).
type Sender interface {
	Send(ctx context.Context, msg wire.Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg wire.Message) error

// Send calls f(ctx, msg).
func (f SenderFunc) Send(ctx context.Context, msg wire.Message) error {
	return f(ctx, msg)
}
