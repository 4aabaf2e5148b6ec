package negotiation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

var errSelfEcho = fmt.Errorf("%w: earlier session", errors.ErrSelfMessage)

// Engine runs negotiation sessions for one agent identity. A fresh Session
// exists from construction on, so peer dice that arrive before Run starts
// are not lost. Run may be called repeatedly; calls are serialized.
type Engine struct {
	cfg    engineConfig
	sender Sender
	offers OfferSupply
	scorer Scorer

	runMu sync.Mutex // serializes Run

	mu      sync.RWMutex
	session *Session
	retired []string
}

// NewEngine creates an Engine with a fresh session.
func NewEngine(sender Sender, offers OfferSupply, scorer Scorer, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		cfg:    cfg,
		sender: sender,
		offers: offers,
		scorer: scorer,
	}
	e.session = newSession(cfg.newID())
	return e
}

// Session returns the current session.
func (e *Engine) Session() *Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// reset replaces the current session with a fresh one.
func (e *Engine) reset() {
	next := newSession(e.cfg.newID())

	e.mu.Lock()
	defer e.mu.Unlock()
	e.retired = append(e.retired, e.session.id)
	if len(e.retired) > retiredIDs {
		e.retired = e.retired[len(e.retired)-retiredIDs:]
	}
	e.session = next
}

// Run negotiates once and returns the outcome. It always terminates: every
// wait is bounded by its timeout, and a cancelled ctx resolves pending waits
// as timeouts. After Run returns the engine holds a fresh session.
func (e *Engine) Run(ctx context.Context) Result {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	s := e.Session()
	s.startedAt = time.Now()

	state := StateInit
	for !state.Terminal() {
		state = e.step(ctx, s, state)
	}

	res := Result{
		Outcome:   state.Outcome(),
		Rounds:    s.Rounds(),
		SessionID: s.ID(),
		PeerID:    s.PeerID(),
		SelfDice:  s.SelfDice(),
		PeerDice:  s.PeerDice(),
		StartedAt: s.startedAt,
		Duration:  time.Since(s.startedAt),
	}
	e.reset()

	e.cfg.logger.WithSession(res.SessionID).Info("negotiation completed",
		"outcome", string(res.Outcome), "rounds", res.Rounds,
		"peer_id", res.PeerID, "duration_ms", res.Duration.Milliseconds())
	e.cfg.bus.Publish(event.NewNegotiationCompletedEvent(
		res.SessionID, res.PeerID, string(res.Outcome), res.Rounds, res.Duration))
	return res
}

func (e *Engine) step(ctx context.Context, s *Session, state State) State {
	switch state {
	case StateInit:
		if r, ok := e.offers.(Resetter); ok {
			r.Reset()
		}
		return StateDiceWait
	case StateDiceWait:
		return e.arbitrate(ctx, s)
	case StateSenderTurn:
		return e.senderTurn(ctx, s)
	case StateReceiverTurn:
		return e.receiverTurn(ctx, s)
	default:
		return state
	}
}

// arbitrate rolls and exchanges dice and picks the opening role.
func (e *Engine) arbitrate(ctx context.Context, s *Session) State {
	log := e.cfg.logger.WithSession(s.ID())

	dice := min(max(e.cfg.roll(), wire.MinDice), wire.MaxDice)
	s.setSelfDice(dice)
	e.send(ctx, s, wire.NewDice(s.ID(), dice))
	e.cfg.bus.Publish(event.NewNegotiationStartedEvent(s.ID(), dice))
	log.Info("negotiation started", "dice", dice)

	if !waitSignal(ctx, s.diceReady, e.cfg.diceTimeout) {
		log.Info("no peer dice before timeout", "timeout", e.cfg.diceTimeout.String())
		return StateWinner
	}

	s.reference = e.offers.Max()
	peerID, peerDice := s.PeerID(), s.PeerDice()
	e.cfg.bus.Publish(event.NewDiceExchangedEvent(s.ID(), peerID, dice, peerDice))
	log.WithPeer(peerID).Info("dice exchanged", "self", dice, "peer", peerDice)

	if dice > peerDice {
		return StateSenderTurn
	}
	return StateReceiverTurn
}

func (e *Engine) senderTurn(ctx context.Context, s *Session) State {
	log := e.enterRole(s, StateSenderTurn)

	if !e.offers.HasNext() {
		if !s.selfQuit {
			log.Info("no offers left, withdrawing")
			e.send(ctx, s, wire.NewQuit(s.ID()))
			s.selfQuit = true
		}
		if s.PeerQuitObserved() {
			log.Info("both sides withdrew")
			return StateNoAgreement
		}
		log.Debug("already withdrawn, skipping sender turn")
		return StateReceiverTurn
	}

	offer := e.offers.Next()
	e.send(ctx, s, wire.NewOffer(s.ID(), offer))
	log.Debug("offer sent", "offer", offer.String())

	decision, ok := receive(ctx, s.decisions, e.cfg.responseTimeout)
	switch {
	case !ok:
		log.Info("no decision before timeout")
		return StateWinner
	case decision == wire.Accept:
		log.Info("offer accepted", "offer", offer.String())
		return StateWinner
	default:
		log.Debug("offer rejected")
		return StateReceiverTurn
	}
}

func (e *Engine) receiverTurn(ctx context.Context, s *Session) State {
	log := e.enterRole(s, StateReceiverTurn)

	if s.peerQuitAcknowledged {
		log.Debug("peer withdrew earlier, skipping receiver turn")
		return StateSenderTurn
	}

	mv, ok := receive(ctx, s.moves, e.cfg.responseTimeout)
	if !ok {
		log.Info("no offer before timeout")
		return StateWinner
	}

	if s.PeerQuitObserved() {
		s.peerQuitAcknowledged = true
		if s.selfQuit {
			log.Info("both sides withdrew")
			return StateNoAgreement
		}
		log.Info("peer withdrew")
		return StateSenderTurn
	}

	utility := e.scorer.Score(mv.offer, s.reference)
	if utility > 0 {
		e.send(ctx, s, wire.NewDecision(s.ID(), wire.Accept))
		log.Info("offer accepted", "offer", mv.offer.String(), "utility", utility)
		return StateLoser
	}

	e.send(ctx, s, wire.NewDecision(s.ID(), wire.Reject))
	log.Debug("offer rejected", "offer", mv.offer.String(), "utility", utility)
	return StateSenderTurn
}

func (e *Engine) enterRole(s *Session, role State) *logging.Logger {
	round := s.enterRole()
	e.cfg.bus.Publish(event.NewRoleEnteredEvent(s.ID(), role.String(), round))
	log := e.cfg.logger.WithSession(s.ID()).WithRole(role.String())
	log.Debug("role entered", "round", round)
	return log
}

// send hands msg to the transport. Failures are logged only: the peer's
// timeouts cover a lost message.
func (e *Engine) send(ctx context.Context, s *Session, msg wire.Message) {
	if err := e.sender.Send(ctx, msg); err != nil {
		e.cfg.logger.WithSession(s.ID()).Warn("send failed",
			"kind", string(msg.Kind), "error", err.Error())
		return
	}
	e.cfg.bus.Publish(event.NewMessageSentEvent(s.ID(), string(msg.Kind), string(msg.Content)))
}

// receive waits for the next queued value. It reports false on timeout or
// when ctx is done. A value already queued wins over an expired ctx.
func receive[T any](ctx context.Context, ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v, true
	case <-timer.C:
	case <-ctx.Done():
	}
	var zero T
	return zero, false
}

func waitSignal(ctx context.Context, ch <-chan struct{}, timeout time.Duration) bool {
	_, ok := receive(ctx, ch, timeout)
	return ok
}
