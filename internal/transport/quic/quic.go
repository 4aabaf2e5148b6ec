// Package quic implements a broadcast transport over QUIC. Each agent
// listens for frames from its configured peers and keeps one long-lived
// stream open to each peer, so payloads from one publisher arrive in
// order. Publishing also delivers to the agent's own subscribers, matching
// the echo semantics of the other transports.
package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"sync"

	quicgo "github.com/quic-go/quic-go"
	"github.com/sourcegraph/conc/pool"

	negerrors "github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/transport"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

const inboxSize = 256

// Options configures a Transport.
type Options struct {
	// ListenAddr is the UDP address to accept peers on, e.g. ":4242".
	ListenAddr string
	// Peers are the addresses payloads are published to.
	Peers []string
	// CertSeed derives the shared development certificate.
	CertSeed string
	// Insecure skips peer certificate verification.
	Insecure bool
}

// Transport is a transport.Transport over QUIC.
type Transport struct {
	opts      Options
	listener  *quicgo.Listener
	clientTLS *tls.Config
	logger    *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	inbox  chan []byte

	mu       sync.Mutex
	closed   bool
	peers    map[string]*peer
	handlers map[int]transport.Handler
	nextID   int
}

// Listen starts accepting peers on opts.ListenAddr.
func Listen(opts Options, logger *logging.Logger) (*Transport, error) {
	if opts.CertSeed == "" {
		opts.CertSeed = DefaultCertSeed
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	serverConf, err := serverTLSConfig(opts.CertSeed)
	if err != nil {
		return nil, setupError("build server certificate", opts.ListenAddr, err)
	}
	clientConf, err := clientTLSConfig(opts.CertSeed, opts.Insecure)
	if err != nil {
		return nil, setupError("build client certificate", opts.ListenAddr, err)
	}

	listener, err := quicgo.ListenAddr(opts.ListenAddr, serverConf, nil)
	if err != nil {
		return nil, setupError("listen", opts.ListenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		opts:      opts,
		listener:  listener,
		clientTLS: clientConf,
		logger:    logger.With("transport", string(transport.KindQUIC)),
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan []byte, inboxSize),
		peers:     make(map[string]*peer),
		handlers:  make(map[int]transport.Handler),
	}
	for _, addr := range opts.Peers {
		t.peers[addr] = &peer{addr: addr}
	}

	t.wg.Go(t.acceptLoop)
	t.wg.Go(t.deliverLoop)
	t.logger.Info("quic listening", "addr", t.Addr())
	return t, nil
}

// Addr returns the bound listen address.
func (t *Transport) Addr() string {
	return t.listener.Addr().String()
}

// AddPeer adds a publish destination.
func (t *Transport) AddPeer(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if _, ok := t.peers[addr]; !ok {
		t.peers[addr] = &peer{addr: addr}
	}
}

// Publish writes data to every peer and to local subscribers. It fails
// with ErrNoPeers when no peer is configured, and with the joined peer
// errors when any peer could not be reached.
func (t *Transport) Publish(ctx context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return negerrors.ErrTransportClosed
	}
	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()

	if len(peers) == 0 {
		return negerrors.ErrNoPeers
	}

	payload := append([]byte(nil), data...)
	select {
	case t.inbox <- payload:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ctx.Done():
		return negerrors.ErrTransportClosed
	}

	p := pool.New().WithErrors()
	for _, pr := range peers {
		p.Go(func() error {
			if err := pr.send(ctx, t.clientTLS, payload); err != nil {
				return transportError("publish", pr.addr, err)
			}
			return nil
		})
	}
	return p.Wait()
}

// Subscribe registers handler for every payload received or published
// locally. The subscription ends when cancel is called, ctx is done, or
// the transport is closed.
func (t *Transport) Subscribe(ctx context.Context, handler transport.Handler) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, negerrors.ErrTransportClosed
	}

	id := t.nextID
	t.nextID++
	t.handlers[id] = handler

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers, id)
			t.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return func() {
		stop()
		cancel()
	}, nil
}

// Close stops the listener and closes all peer connections.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	peers := t.peers
	t.peers = nil
	t.handlers = nil
	t.mu.Unlock()

	t.cancel()
	err := t.listener.Close()
	for _, p := range peers {
		p.close()
	}
	t.wg.Wait()
	return err
}

func (t *Transport) acceptLoop() {
	for {
		conn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() == nil && !errors.Is(err, quicgo.ErrServerClosed) {
				t.logger.Warn("quic accept failed", "error", err.Error())
			}
			return
		}
		t.wg.Go(func() { t.serveConn(conn) })
	}
}

func (t *Transport) serveConn(conn *quicgo.Conn) {
	defer func() { _ = conn.CloseWithError(0, "") }()
	for {
		stream, err := conn.AcceptStream(t.ctx)
		if err != nil {
			return
		}
		t.wg.Go(func() { t.readStream(stream, conn.RemoteAddr().String()) })
	}
}

// readStream forwards frames in arrival order until the stream ends.
func (t *Transport) readStream(stream *quicgo.Stream, remote string) {
	defer func() { _ = stream.Close() }()
	for {
		data, err := wire.ReadFrame(stream)
		if err != nil {
			if !errors.Is(err, io.EOF) && t.ctx.Err() == nil {
				t.logger.Debug("quic stream ended", "remote", remote, "error", err.Error())
			}
			return
		}
		select {
		case t.inbox <- data:
		case <-t.ctx.Done():
			return
		}
	}
}

func (t *Transport) deliverLoop() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case data := <-t.inbox:
			t.mu.Lock()
			handlers := make([]transport.Handler, 0, len(t.handlers))
			for _, h := range t.handlers {
				handlers = append(handlers, h)
			}
			t.mu.Unlock()
			for _, h := range handlers {
				h(data)
			}
		}
	}
}

func transportError(op, addr string, cause error) *negerrors.TransportError {
	return negerrors.NewTransportError(op, cause).
		WithKind(string(transport.KindQUIC)).WithAddress(addr)
}

// setupError reports a failure to start the local endpoint. Retrying with
// the same options fails the same way.
func setupError(op, addr string, cause error) error {
	return transportError(op, addr, cause).
		WithRetryable(false).WithSeverity(negerrors.SeverityCritical)
}
