// Package event defines the events emitted while agents negotiate.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier such as
	// "negotiation.completed".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// Event type identifiers.
const (
	TypeNegotiationStarted   = "negotiation.started"
	TypeDiceExchanged        = "negotiation.dice_exchanged"
	TypeRoleEntered          = "negotiation.role_entered"
	TypeNegotiationCompleted = "negotiation.completed"
	TypeMessageSent          = "message.sent"
	TypeMessageDropped       = "message.dropped"
	TypeProfileActivated     = "profile.activated"
	TypeProfilesUpdated      = "profile.updated"
	TypeTransportError       = "transport.error"
)

// -----------------------------------------------------------------------------
// Negotiation Lifecycle Events
// -----------------------------------------------------------------------------

// NegotiationStartedEvent is emitted after the local dice has been broadcast.
type NegotiationStartedEvent struct {
	baseEvent
	SessionID string
	SelfDice  int
}

// NewNegotiationStartedEvent creates a NegotiationStartedEvent.
func NewNegotiationStartedEvent(sessionID string, selfDice int) NegotiationStartedEvent {
	return NegotiationStartedEvent{
		baseEvent: newBaseEvent(TypeNegotiationStarted),
		SessionID: sessionID,
		SelfDice:  selfDice,
	}
}

// DiceExchangedEvent is emitted once the peer's dice has been observed.
type DiceExchangedEvent struct {
	baseEvent
	SessionID string
	PeerID    string
	SelfDice  int
	PeerDice  int
}

// NewDiceExchangedEvent creates a DiceExchangedEvent.
func NewDiceExchangedEvent(sessionID, peerID string, selfDice, peerDice int) DiceExchangedEvent {
	return DiceExchangedEvent{
		baseEvent: newBaseEvent(TypeDiceExchanged),
		SessionID: sessionID,
		PeerID:    peerID,
		SelfDice:  selfDice,
		PeerDice:  peerDice,
	}
}

// RoleEnteredEvent is emitted each time the state loop enters the sender or
// receiver role. Round is the counter value after the increment.
type RoleEnteredEvent struct {
	baseEvent
	SessionID string
	Role      string
	Round     int
}

// NewRoleEnteredEvent creates a RoleEnteredEvent.
func NewRoleEnteredEvent(sessionID, role string, round int) RoleEnteredEvent {
	return RoleEnteredEvent{
		baseEvent: newBaseEvent(TypeRoleEntered),
		SessionID: sessionID,
		Role:      role,
		Round:     round,
	}
}

// NegotiationCompletedEvent is emitted when a session reaches a terminal outcome.
type NegotiationCompletedEvent struct {
	baseEvent
	SessionID string
	PeerID    string
	Outcome   string // "winner", "loser" or "no-agreement"
	Rounds    int
	Duration  time.Duration
}

// NewNegotiationCompletedEvent creates a NegotiationCompletedEvent.
func NewNegotiationCompletedEvent(sessionID, peerID, outcome string, rounds int, d time.Duration) NegotiationCompletedEvent {
	return NegotiationCompletedEvent{
		baseEvent: newBaseEvent(TypeNegotiationCompleted),
		SessionID: sessionID,
		PeerID:    peerID,
		Outcome:   outcome,
		Rounds:    rounds,
		Duration:  d,
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessageSentEvent is emitted after a protocol message has been handed to
// the transport.
type MessageSentEvent struct {
	baseEvent
	SessionID string
	Kind      string
	Content   string
}

// NewMessageSentEvent creates a MessageSentEvent.
func NewMessageSentEvent(sessionID, kind, content string) MessageSentEvent {
	return MessageSentEvent{
		baseEvent: newBaseEvent(TypeMessageSent),
		SessionID: sessionID,
		Kind:      kind,
		Content:   content,
	}
}

// MessageDroppedEvent is emitted when the dispatcher discards an inbound message.
type MessageDroppedEvent struct {
	baseEvent
	SessionID string
	SenderID  string
	Kind      string
	Reason    string
}

// NewMessageDroppedEvent creates a MessageDroppedEvent.
func NewMessageDroppedEvent(sessionID, senderID, kind, reason string) MessageDroppedEvent {
	return MessageDroppedEvent{
		baseEvent: newBaseEvent(TypeMessageDropped),
		SessionID: sessionID,
		SenderID:  senderID,
		Kind:      kind,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Profile Events
// -----------------------------------------------------------------------------

// ProfileActivatedEvent is emitted when the active ethics profile changes.
type ProfileActivatedEvent struct {
	baseEvent
	Label   string
	Context string
}

// NewProfileActivatedEvent creates a ProfileActivatedEvent.
func NewProfileActivatedEvent(label, context string) ProfileActivatedEvent {
	return ProfileActivatedEvent{
		baseEvent: newBaseEvent(TypeProfileActivated),
		Label:     label,
		Context:   context,
	}
}

// ProfilesUpdatedEvent is emitted when profile definitions are merged in.
type ProfilesUpdatedEvent struct {
	baseEvent
	Labels []string
}

// NewProfilesUpdatedEvent creates a ProfilesUpdatedEvent.
func NewProfilesUpdatedEvent(labels []string) ProfilesUpdatedEvent {
	return ProfilesUpdatedEvent{
		baseEvent: newBaseEvent(TypeProfilesUpdated),
		Labels:    labels,
	}
}

// -----------------------------------------------------------------------------
// Transport Events
// -----------------------------------------------------------------------------

// TransportErrorEvent is emitted when a transport fails to deliver or receive.
type TransportErrorEvent struct {
	baseEvent
	Transport string
	Err       error
}

// NewTransportErrorEvent creates a TransportErrorEvent.
func NewTransportErrorEvent(transport string, err error) TransportErrorEvent {
	return TransportErrorEvent{
		baseEvent: newBaseEvent(TypeTransportError),
		Transport: transport,
		Err:       err,
	}
}
