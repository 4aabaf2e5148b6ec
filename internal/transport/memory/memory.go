// Package memory provides an in-process broadcast transport.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/transport"
)

// inboxSize bounds each subscriber's backlog; Publish blocks when a
// subscriber falls this far behind.
const inboxSize = 256

// Hub is a shared broadcast medium. Endpoints created from the same Hub
// see each other's publishes.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	latency time.Duration
}

type subscriber struct {
	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLatency delays every delivery by d.
func WithLatency(d time.Duration) HubOption {
	return func(h *Hub) { h.latency = d }
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{subs: make(map[int]*subscriber)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Endpoint returns a new Transport attached to the hub.
func (h *Hub) Endpoint() *Endpoint {
	return &Endpoint{hub: h, subs: make(map[int]struct{})}
}

func (h *Hub) subscribe(handler transport.Handler) (int, *subscriber) {
	sub := &subscriber{inbox: make(chan []byte, inboxSize), done: make(chan struct{})}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case data := <-sub.inbox:
				if h.latency > 0 {
					time.Sleep(h.latency)
				}
				handler(data)
			case <-sub.done:
				return
			}
		}
	}()
	return id, sub
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		sub.stop()
	}
}

func (h *Hub) publish(ctx context.Context, data []byte) error {
	payload := append([]byte(nil), data...)

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.inbox <- payload:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Endpoint is one agent's view of a Hub.
type Endpoint struct {
	hub *Hub

	mu     sync.Mutex
	subs   map[int]struct{}
	closed bool
}

// Publish implements transport.Transport.
func (e *Endpoint) Publish(ctx context.Context, data []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errors.ErrTransportClosed
	}
	return e.hub.publish(ctx, data)
}

// Subscribe implements transport.Transport.
func (e *Endpoint) Subscribe(_ context.Context, handler transport.Handler) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.ErrTransportClosed
	}

	id, _ := e.hub.subscribe(handler)
	e.subs[id] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
		e.hub.unsubscribe(id)
	}, nil
}

// Close detaches every subscription made through this endpoint.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	e.subs = nil
	e.mu.Unlock()

	for _, id := range ids {
		e.hub.unsubscribe(id)
	}
	return nil
}
