// Package wire defines the negotiation message envelope and its JSON codec.
//
// Every protocol message is a single JSON object:
//
//	{"id": "<sender session id>", "key": "dice|offer|decision|quit", "content": ...}
//
// Content depends on the key: an integer in [1,100000] for dice, an
// {"task","conditions"} object for offer, "accept" or "reject" for decision,
// and true for quit.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Iron-Ham/negotiator/internal/errors"
)

// Kind identifies the message category carried in the "key" field.
type Kind string

const (
	KindDice     Kind = "dice"
	KindOffer    Kind = "offer"
	KindDecision Kind = "decision"
	KindQuit     Kind = "quit"
)

// Valid reports whether k is one of the four protocol kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDice, KindOffer, KindDecision, KindQuit:
		return true
	}
	return false
}

// Decision is the receiver's answer to an offer.
type Decision string

const (
	Accept Decision = "accept"
	Reject Decision = "reject"
)

// Dice bounds, inclusive.
const (
	MinDice = 1
	MaxDice = 100000
)

// Offer is a proposed allocation: the task and the conditions attached to it.
type Offer struct {
	Task       string   `json:"task" yaml:"task"`
	Conditions []string `json:"conditions" yaml:"conditions"`
}

// IsZero reports whether o carries no task and no conditions.
func (o Offer) IsZero() bool {
	return o.Task == "" && len(o.Conditions) == 0
}

// Equal reports whether two offers have the same task and conditions in
// the same order.
func (o Offer) Equal(other Offer) bool {
	return o.Task == other.Task && slices.Equal(o.Conditions, other.Conditions)
}

func (o Offer) String() string {
	return fmt.Sprintf("%s%v", o.Task, o.Conditions)
}

// Message is the envelope exchanged between agents.
type Message struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"key"`
	Content json.RawMessage `json:"content"`
}

// NewDice builds a dice message.
func NewDice(id string, value int) Message {
	return Message{ID: id, Kind: KindDice, Content: mustMarshal(value)}
}

// NewOffer builds an offer message. A nil condition list is sent as [].
func NewOffer(id string, o Offer) Message {
	if o.Conditions == nil {
		o.Conditions = []string{}
	}
	return Message{ID: id, Kind: KindOffer, Content: mustMarshal(o)}
}

// NewDecision builds a decision message.
func NewDecision(id string, d Decision) Message {
	return Message{ID: id, Kind: KindDecision, Content: mustMarshal(d)}
}

// NewQuit builds a quit message.
func NewQuit(id string) Message {
	return Message{ID: id, Kind: KindQuit, Content: json.RawMessage("true")}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// ints, strings and Offer always marshal
		panic(fmt.Sprintf("wire: marshal %T: %v", v, err))
	}
	return b
}

// Dice returns the dice value carried by a dice message.
func (m Message) Dice() (int, error) {
	if m.Kind != KindDice {
		return 0, fmt.Errorf("%w: %s message has no dice", errors.ErrMalformedMessage, m.Kind)
	}
	var n int
	if err := json.Unmarshal(m.Content, &n); err != nil {
		return 0, fmt.Errorf("%w: dice content: %v", errors.ErrMalformedMessage, err)
	}
	if n < MinDice || n > MaxDice {
		return 0, errors.NewValidationError("dice out of range").
			WithField("content").WithValue(n).WithCause(errors.ErrMalformedMessage)
	}
	return n, nil
}

// Offer returns the offer carried by an offer message.
func (m Message) Offer() (Offer, error) {
	if m.Kind != KindOffer {
		return Offer{}, fmt.Errorf("%w: %s message has no offer", errors.ErrMalformedMessage, m.Kind)
	}
	var o Offer
	dec := json.NewDecoder(bytes.NewReader(m.Content))
	if err := dec.Decode(&o); err != nil {
		return Offer{}, fmt.Errorf("%w: offer content: %v", errors.ErrMalformedMessage, err)
	}
	if o.Task == "" {
		return Offer{}, errors.NewValidationError("offer without task").
			WithField("content.task").WithCause(errors.ErrMalformedMessage)
	}
	if o.Conditions == nil {
		o.Conditions = []string{}
	}
	return o, nil
}

// Decision returns the verdict carried by a decision message.
func (m Message) Decision() (Decision, error) {
	if m.Kind != KindDecision {
		return "", fmt.Errorf("%w: %s message has no decision", errors.ErrMalformedMessage, m.Kind)
	}
	var d Decision
	if err := json.Unmarshal(m.Content, &d); err != nil {
		return "", fmt.Errorf("%w: decision content: %v", errors.ErrMalformedMessage, err)
	}
	if d != Accept && d != Reject {
		return "", errors.NewValidationError("unknown decision").
			WithField("content").WithValue(string(d)).WithCause(errors.ErrMalformedMessage)
	}
	return d, nil
}

// Validate checks the envelope and the kind-specific content.
// Unknown kinds yield ErrUnknownKind; everything else ErrMalformedMessage.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", errors.ErrMalformedMessage)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", errors.ErrUnknownKind, m.Kind)
	}

	var err error
	switch m.Kind {
	case KindDice:
		_, err = m.Dice()
	case KindOffer:
		_, err = m.Offer()
	case KindDecision:
		_, err = m.Decision()
	case KindQuit:
		var b bool
		if uerr := json.Unmarshal(m.Content, &b); uerr != nil || !b {
			err = fmt.Errorf("%w: quit content must be true", errors.ErrMalformedMessage)
		}
	}
	return err
}

// Encode validates m and renders it as a JSON object.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode parses and validates a JSON message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	if len(m.Content) == 0 {
		return Message{}, fmt.Errorf("%w: missing content", errors.ErrMalformedMessage)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
