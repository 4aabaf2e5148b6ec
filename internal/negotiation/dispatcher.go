package negotiation

import (
	"slices"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// retiredIDs bounds how many past session ids are remembered so that
// late echoes of our own earlier dice cannot bind us to ourselves.
const retiredIDs = 8

// HandleRaw decodes a raw transport payload and dispatches it. Payloads that
// fail to decode are dropped and logged. Its signature matches the
// transport subscription handler.
func (e *Engine) HandleRaw(data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		e.drop(e.Session(), wire.Message{}, err)
		return
	}
	_ = e.OnMessage(msg)
}

// OnMessage routes an inbound message into the current session. It returns
// nil when the message was accepted, or the reason it was dropped. Drops are
// logged and published; they never change session state and never end it.
func (e *Engine) OnMessage(msg wire.Message) error {
	if err := msg.Validate(); err != nil {
		e.drop(e.Session(), msg, err)
		return err
	}

	e.mu.Lock()
	sess := e.session
	err := e.route(sess, msg)
	e.mu.Unlock()

	if err != nil {
		e.drop(sess, msg, err)
		return err
	}

	log := e.cfg.logger.WithSession(sess.ID())
	if msg.Kind == wire.KindDice {
		log.Info("peer dice received", "peer_id", msg.ID, "content", string(msg.Content))
	} else {
		log.Debug("message queued", "peer_id", msg.ID, "kind", string(msg.Kind))
	}
	return nil
}

func (e *Engine) drop(sess *Session, msg wire.Message, reason error) {
	log := e.cfg.logger.WithSession(sess.ID())
	if errors.IsDropReason(reason) {
		log.Debug("message dropped",
			"sender", msg.ID, "kind", string(msg.Kind), "reason", reason.Error())
	} else {
		log.Warn("message dropped",
			"sender", msg.ID, "kind", string(msg.Kind), "reason", reason.Error())
	}
	e.cfg.bus.Publish(event.NewMessageDroppedEvent(sess.ID(), msg.ID, string(msg.Kind), reason.Error()))
}

// route applies msg to sess. Anything from a stranger while sess is bound
// is dropped, including dice from the peer's next session. Callers hold e.mu.
func (e *Engine) route(sess *Session, msg wire.Message) error {
	if slices.Contains(e.retired, msg.ID) {
		return errSelfEcho
	}
	return sess.accept(msg)
}
