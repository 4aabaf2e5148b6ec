// Package mailbox implements a broadcast transport over a JSONL log in a
// shared directory. Any process that can read and append to the directory
// can take part, which makes it the zero-infrastructure option for agents
// on one host.
package mailbox

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/transport"
)

const defaultPollInterval = 50 * time.Millisecond

// maxWatchErrors is the number of consecutive read errors before a
// subscriber reports a transport error event.
const maxWatchErrors = 5

// Mailbox is a transport.Transport over a Store.
type Mailbox struct {
	store        *Store
	pollInterval time.Duration
	bus          *event.Bus
	logger       *logging.Logger

	mu      sync.Mutex
	closed  bool
	cancels []func()
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithPollInterval sets how often subscribers check for new records.
// Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(m *Mailbox) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithBus reports sustained read failures as TransportErrorEvent.
func WithBus(bus *event.Bus) Option {
	return func(m *Mailbox) { m.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Mailbox) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Mailbox for topic under dir.
func New(dir, topic string, opts ...Option) *Mailbox {
	m := &Mailbox{
		store:        NewStore(dir, topic),
		pollInterval: defaultPollInterval,
		logger:       logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the underlying log.
func (m *Mailbox) Store() *Store {
	return m.store
}

// Publish appends data to the topic log. data must be a JSON document.
func (m *Mailbox) Publish(_ context.Context, data []byte) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return errors.ErrTransportClosed
	}
	if _, err := m.store.Append(data); err != nil {
		return errors.NewTransportError("append", err).
			WithKind(string(transport.KindMailbox)).WithAddress(m.store.Path())
	}
	return nil
}

// Subscribe delivers every record appended after the call returns. The
// starting offset is captured synchronously so nothing published after
// Subscribe is missed.
func (m *Mailbox) Subscribe(ctx context.Context, handler transport.Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.ErrTransportClosed
	}

	offset, err := m.store.Size()
	if err != nil {
		return nil, errors.NewTransportError("snapshot", err).
			WithKind(string(transport.KindMailbox)).WithAddress(m.store.Path())
	}

	var stopped atomic.Bool
	var wg sync.WaitGroup
	wg.Go(func() {
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if stopped.Load() {
				return
			}

			records, next, err := m.store.ReadFrom(offset)
			if err != nil {
				failures++
				if failures >= maxWatchErrors {
					m.logger.Warn("mailbox read failing", "path", m.store.Path(), "error", err.Error())
					m.bus.Publish(event.NewTransportErrorEvent(string(transport.KindMailbox), err))
					failures = 0
				}
				continue
			}
			failures = 0
			offset = next
			for _, rec := range records {
				if stopped.Load() {
					return
				}
				handler(rec.Payload)
			}
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stopped.Store(true)
			wg.Wait()
		})
	}
	m.cancels = append(m.cancels, cancel)
	return cancel, nil
}

// Close stops all subscribers.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}
