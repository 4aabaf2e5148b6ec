package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/negotiator/internal/config"
	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/transport"
	"github.com/Iron-Ham/negotiator/internal/transport/mailbox"
	"github.com/Iron-Ham/negotiator/internal/transport/quic"
	"github.com/Iron-Ham/negotiator/internal/transport/redis"
)

// redisDialTimeout bounds the initial connection to the broker.
const redisDialTimeout = 5 * time.Second

// OpenTransport builds the transport named by cfg.Kind. The memory
// transport only exists inside one process and must be supplied with
// WithTransport instead.
func OpenTransport(ctx context.Context, cfg config.TransportConfig, logger *logging.Logger, bus *event.Bus) (transport.Transport, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	switch transport.Kind(cfg.Kind) {
	case transport.KindMailbox:
		return mailbox.New(cfg.Mailbox.ResolveDir(), cfg.Topic,
			mailbox.WithPollInterval(cfg.Mailbox.PollInterval()),
			mailbox.WithBus(bus),
			mailbox.WithLogger(logger),
		), nil

	case transport.KindRedis:
		dialCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		defer cancel()
		tr, err := redis.Dial(dialCtx, redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Channel:     cfg.Topic,
			DialTimeout: redisDialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return tr, nil

	case transport.KindQUIC:
		tr, err := quic.Listen(quic.Options{
			ListenAddr: cfg.QUIC.Listen,
			Peers:      cfg.QUIC.Peers,
			CertSeed:   cfg.QUIC.CertSeed,
			Insecure:   cfg.QUIC.Insecure,
		}, logger)
		if err != nil {
			return nil, err
		}
		return tr, nil

	case transport.KindMemory:
		return nil, fmt.Errorf("%w: the memory transport is only available in-process", errors.ErrUnsupportedTransport)

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedTransport, cfg.Kind)
	}
}
