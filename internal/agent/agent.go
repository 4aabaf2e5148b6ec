// Package agent assembles a runnable negotiating agent from configuration:
// profiles and offers feed the engine, the transport carries its messages,
// and completed outcomes go to the history ledger.
package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/Iron-Ham/negotiator/internal/config"
	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/history"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/negotiation"
	"github.com/Iron-Ham/negotiator/internal/offer"
	"github.com/Iron-Ham/negotiator/internal/profile"
	"github.com/Iron-Ham/negotiator/internal/transport"
)

// Agent is one negotiating party.
type Agent struct {
	name     string
	kind     transport.Kind
	logger   *logging.Logger
	bus      *event.Bus
	tr       transport.Transport
	engine   *negotiation.Engine
	profiles *profile.Manager
	offers   *offer.Queue
	history  *history.Store

	ownsHistory bool
	unsubscribe func()
	stopWatch   context.CancelFunc
}

type options struct {
	logger       *logging.Logger
	bus          *event.Bus
	tr           transport.Transport
	kind         transport.Kind
	history      *history.Store
	offers       []offer.Offer
	hasOffers    bool
	acceptMargin *float64
	roll         func() int
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBus publishes negotiation, profile and transport events to bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithTransport uses tr instead of opening the configured transport. The
// agent takes ownership and closes tr on Close.
func WithTransport(tr transport.Transport, kind transport.Kind) Option {
	return func(o *options) {
		o.tr = tr
		o.kind = kind
	}
}

// WithHistory records outcomes to a shared store. The caller keeps
// ownership of store.
func WithHistory(store *history.Store) Option {
	return func(o *options) { o.history = store }
}

// WithOffers replaces the configured offer catalog.
func WithOffers(offers []offer.Offer) Option {
	return func(o *options) {
		o.offers = offers
		o.hasOffers = true
	}
}

// WithAcceptMargin overrides profiles.accept_margin.
func WithAcceptMargin(margin float64) Option {
	return func(o *options) { o.acceptMargin = &margin }
}

// WithDiceRoller fixes the dice source, mainly for simulations.
func WithDiceRoller(roll func() int) Option {
	return func(o *options) { o.roll = roll }
}

// New builds an agent from cfg and subscribes it to its transport. Peer
// messages are accepted from the moment New returns.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Agent, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}

	a := &Agent{
		name:   agentName(cfg.Agent.Name),
		kind:   o.kind,
		logger: o.logger,
		bus:    o.bus,
		tr:     o.tr,
	}
	a.logger = a.logger.With("agent", a.name)

	if err := a.loadProfiles(ctx, cfg.Profiles); err != nil {
		a.Close()
		return nil, err
	}

	margin := cfg.Profiles.AcceptMargin
	if o.acceptMargin != nil {
		margin = *o.acceptMargin
	}
	scorer := profile.NewScorer(a.profiles, margin)

	offers := o.offers
	if !o.hasOffers && cfg.Offers.File != "" {
		catalog, err := offer.LoadCatalog(cfg.Offers.File)
		if err != nil {
			a.Close()
			return nil, err
		}
		offers = catalog.Offers
	}
	a.offers = offer.NewQueue(offers, scorer.Value)

	if a.tr == nil {
		tr, err := OpenTransport(ctx, cfg.Transport, a.logger, a.bus)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.tr, a.kind = tr, transport.Kind(cfg.Transport.Kind)
	}

	engineOpts := []negotiation.Option{
		negotiation.WithDiceTimeout(cfg.Negotiation.DiceTimeout()),
		negotiation.WithResponseTimeout(cfg.Negotiation.ResponseTimeout()),
		negotiation.WithLogger(a.logger),
		negotiation.WithBus(a.bus),
	}
	if o.roll != nil {
		engineOpts = append(engineOpts, negotiation.WithDiceRoller(o.roll))
	}
	sender := transport.NewSender(a.tr, a.kind, a.bus)
	a.engine = negotiation.NewEngine(sender, a.offers, scorer, engineOpts...)

	unsubscribe, err := a.tr.Subscribe(ctx, a.engine.HandleRaw)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("subscribe to %s transport: %w", a.kind, err)
	}
	a.unsubscribe = unsubscribe

	a.history = o.history
	if a.history == nil && cfg.History.Enabled {
		store, err := history.Open(cfg.History.Driver, cfg.History.ResolveDSN())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history, a.ownsHistory = store, true
	}

	a.logger.Info("agent ready",
		"transport", string(a.kind),
		"offers", a.offers.Len(),
		"history", a.history != nil)
	return a, nil
}

func (a *Agent) loadProfiles(ctx context.Context, cfg config.ProfilesConfig) error {
	a.profiles = profile.NewManager(
		profile.WithBus(a.bus),
		profile.WithLogger(a.logger),
		profile.WithDefault(cfg.Default),
		profile.WithContextRules(cfg.ContextRules),
	)
	if cfg.File == "" {
		if cfg.Context != "" {
			return a.profiles.SetContext(cfg.Context)
		}
		return nil
	}

	if err := a.profiles.LoadFile(cfg.File); err != nil {
		return err
	}
	if cfg.Context != "" {
		if err := a.profiles.SetContext(cfg.Context); err != nil {
			return err
		}
	}
	if cfg.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		if err := a.profiles.Watch(watchCtx, cfg.File); err != nil {
			cancel()
			return err
		}
		a.stopWatch = cancel
	}
	return nil
}

// agentName falls back to the host name when no name is configured.
func agentName(name string) string {
	if name != "" {
		return name
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "agent"
}

// Name returns the agent's configured or derived name.
func (a *Agent) Name() string {
	return a.name
}

// Engine returns the negotiation engine.
func (a *Agent) Engine() *negotiation.Engine {
	return a.engine
}

// Profiles returns the profile manager.
func (a *Agent) Profiles() *profile.Manager {
	return a.profiles
}

// Negotiate runs one session and records its outcome. The result is valid
// even when recording fails.
func (a *Agent) Negotiate(ctx context.Context) (negotiation.Result, error) {
	res := a.engine.Run(ctx)
	if a.history == nil {
		return res, nil
	}

	rec := history.Record{
		SessionID: res.SessionID,
		Agent:     a.name,
		PeerID:    res.PeerID,
		Outcome:   string(res.Outcome),
		Rounds:    res.Rounds,
		SelfDice:  res.SelfDice,
		PeerDice:  res.PeerDice,
		Transport: string(a.kind),
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if p, err := a.profiles.Active(); err == nil {
		rec.Profile = p.Label
	}
	// ctx may already be done when the session ended by cancellation.
	if err := a.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		a.logger.WithSession(res.SessionID).Warn("failed to record outcome", "error", err.Error())
		return res, errors.NewNegotiationError("record outcome", err).
			WithSessionID(res.SessionID).WithPeerID(res.PeerID).WithPhase("history").
			WithSeverity(errors.SeverityWarning)
	}
	return res, nil
}

// NegotiateN runs up to n sessions back to back, stopping early when ctx
// is done. onResult, when non-nil, is called after each session and before
// the next one opens. Dice the peer sends for its next session while this
// side is still finishing the last one are dropped, so callers that need
// every session to pair up pace both sides from onResult.
func (a *Agent) NegotiateN(ctx context.Context, n int, onResult func(int, negotiation.Result)) ([]negotiation.Result, error) {
	results := make([]negotiation.Result, 0, n)
	var recordErr error
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		res, err := a.Negotiate(ctx)
		if err != nil && recordErr == nil {
			recordErr = err
		}
		results = append(results, res)
		if onResult != nil {
			onResult(i, res)
		}
	}
	return results, recordErr
}

// History returns the outcome ledger, or nil when history is disabled.
func (a *Agent) History() *history.Store {
	return a.history
}

// Close stops the subscription and releases the transport and the
// history store when the agent owns it. It is safe to call on a partially
// built agent.
func (a *Agent) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.tr != nil {
		if err := a.tr.Close(); err != nil {
			a.logger.Warn("failed to close transport", "error", err.Error())
		}
		a.tr = nil
	}
	if a.history != nil && a.ownsHistory {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history", "error", err.Error())
		}
	}
	a.history = nil
}
