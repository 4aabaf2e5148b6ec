// Package redis implements a broadcast transport over Redis
// PUBLISH/SUBSCRIBE. Every agent subscribed to the channel, including the
// publisher, receives each payload once.
package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/transport"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "negotiator"

// Options configures a connection made by Dial.
type Options struct {
	Addr        string
	Password    string
	DB          int
	Channel     string
	DialTimeout time.Duration
}

// Transport is a transport.Transport over a Redis pub/sub channel.
type Transport struct {
	client  *goredis.Client
	channel string
	owned   bool
	logger  *logging.Logger

	mu     sync.Mutex
	closed bool
	subs   []*subscription
}

type subscription struct {
	pubsub *goredis.PubSub
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
		<-s.done
	})
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client *goredis.Client, channel string, logger *logging.Logger) *Transport {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Transport{client: client, channel: channel, logger: logger}
}

// Dial connects to Redis and verifies the connection with PING. The
// returned Transport closes the client on Close.
func Dial(ctx context.Context, opts Options, logger *logging.Logger) (*Transport, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.NewTimeoutError("ping redis", opts.DialTimeout).WithCause(err)
		}
		return nil, transportError("ping", opts.Addr, err)
	}
	t := New(client, opts.Channel, logger)
	t.owned = true
	return t, nil
}

// Channel returns the pub/sub channel name.
func (t *Transport) Channel() string {
	return t.channel
}

// Publish sends data to the channel.
func (t *Transport) Publish(ctx context.Context, data []byte) error {
	if t.isClosed() {
		return errors.ErrTransportClosed
	}
	if err := t.client.Publish(ctx, t.channel, data).Err(); err != nil {
		return transportError("publish", t.client.Options().Addr, err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, so payloads
// published after it returns are not lost.
func (t *Transport) Subscribe(ctx context.Context, handler transport.Handler) (func(), error) {
	if t.isClosed() {
		return nil, errors.ErrTransportClosed
	}

	pubsub := t.client.Subscribe(ctx, t.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, transportError("subscribe", t.client.Options().Addr, err)
	}

	sub := &subscription{pubsub: pubsub, done: make(chan struct{})}
	messages := pubsub.Channel()
	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		sub.stop()
		return nil, errors.ErrTransportClosed
	}
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	t.logger.Debug("redis subscription confirmed", "channel", t.channel)
	return sub.stop, nil
}

// Close stops all subscriptions and closes the client if Dial created it.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	if t.owned {
		return t.client.Close()
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func transportError(op, addr string, cause error) error {
	return errors.NewTransportError(op, cause).
		WithKind(string(transport.KindRedis)).WithAddress(addr)
}
