package quic

import (
	"context"
	"crypto/tls"
	"sync"

	quicgo "github.com/quic-go/quic-go"

	"github.com/Iron-Ham/negotiator/internal/wire"
)

// peer holds the outbound connection to one destination. Frames are
// written under mu so they stay ordered on the single stream.
type peer struct {
	addr string

	mu     sync.Mutex
	conn   *quicgo.Conn
	stream *quicgo.Stream
}

// send writes one frame, dialing on first use. A broken connection is
// dropped and redialed once.
func (p *peer) send(ctx context.Context, cfg *tls.Config, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if p.stream == nil {
			if err = p.dial(ctx, cfg); err != nil {
				return err
			}
		}
		if err = wire.WriteFrame(p.stream, payload); err == nil {
			return nil
		}
		p.reset()
	}
	return err
}

func (p *peer) dial(ctx context.Context, cfg *tls.Config) error {
	conn, err := quicgo.DialAddr(ctx, p.addr, cfg.Clone(), nil)
	if err != nil {
		return err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return err
	}
	p.conn, p.stream = conn, stream
	return nil
}

func (p *peer) reset() {
	if p.conn != nil {
		_ = p.conn.CloseWithError(0, "")
	}
	p.conn, p.stream = nil, nil
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		_ = p.stream.Close()
	}
	p.reset()
}
