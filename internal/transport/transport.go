// Package transport defines the publish/subscribe channel negotiation
// messages travel over, and adapts it to the engine's Sender.
//
// All transports broadcast: every subscriber, the publisher included, sees
// every payload. Filtering echoes and strangers is the dispatcher's job.
// Implementations live in sub-packages:
//
//   - memory: in-process hub, for tests and simulations
//   - mailbox: shared-directory JSONL log, for processes on one host
//   - redis: Redis PUBLISH/SUBSCRIBE
//   - quic: direct QUIC streams to configured peers
package transport

import (
	"context"

	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// Kind names a transport implementation in configuration.
type Kind string

const (
	KindMemory  Kind = "memory"
	KindMailbox Kind = "mailbox"
	KindRedis   Kind = "redis"
	KindQUIC    Kind = "quic"
)

// Kinds lists the supported transport kinds.
func Kinds() []Kind {
	return []Kind{KindMemory, KindMailbox, KindRedis, KindQUIC}
}

// Handler receives one raw payload. Handlers must not block for long; they
// run on the transport's delivery goroutine.
type Handler func(data []byte)

// Transport is a broadcast publish/subscribe channel.
type Transport interface {
	// Publish delivers data to every subscriber.
	Publish(ctx context.Context, data []byte) error
	// Subscribe registers handler until cancel is called or the transport
	// is closed. Payloads published after Subscribe returns are delivered
	// in publish order per publisher.
	Subscribe(ctx context.Context, handler Handler) (cancel func(), err error)
	// Close releases the transport. Further calls fail with ErrTransportClosed.
	Close() error
}

// Sender encodes protocol messages and publishes them on a Transport. It
// satisfies negotiation.Sender.
type Sender struct {
	tr   Transport
	name Kind
	bus  *event.Bus
}

// NewSender wraps tr. Publish failures are reported on bus when non-nil.
func NewSender(tr Transport, name Kind, bus *event.Bus) *Sender {
	return &Sender{tr: tr, name: name, bus: bus}
}

// Send encodes msg and publishes it.
func (s *Sender) Send(ctx context.Context, msg wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.tr.Publish(ctx, data); err != nil {
		s.bus.Publish(event.NewTransportErrorEvent(string(s.name), err))
		return err
	}
	return nil
}
