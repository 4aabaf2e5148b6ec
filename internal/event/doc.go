// Package event provides a synchronous pub-sub bus and the event types that
// negotiator components publish on it.
//
// The negotiation engine, the profile manager and the transports publish
// events without knowing who consumes them. The CLI subscribes to render
// progress, tests subscribe to observe state transitions.
//
// # Event Categories
//
// Negotiation lifecycle:
//   - [NegotiationStartedEvent]
//   - [DiceExchangedEvent]
//   - [RoleEnteredEvent]
//   - [NegotiationCompletedEvent]
//
// Messages:
//   - [MessageSentEvent]
//   - [MessageDroppedEvent]
//
// Profiles:
//   - [ProfileActivatedEvent]
//   - [ProfilesUpdatedEvent]
//
// Transport:
//   - [TransportErrorEvent]
//
// # Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeNegotiationCompleted, func(e event.Event) {
//	    done := e.(event.NegotiationCompletedEvent)
//	    fmt.Println(done.Outcome, done.Rounds)
//	})
//
// Handlers run synchronously on the publisher's goroutine. A handler panic
// is recovered and logged so one subscriber cannot break delivery to the
// others.
package event
