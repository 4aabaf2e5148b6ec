package negotiation

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// Default timeouts.
const (
	DefaultDiceTimeout     = 50 * time.Second
	DefaultResponseTimeout = 5 * time.Second
)

// Inbound queue capacities per signal category.
const (
	diceQueueSize     = 1
	moveQueueSize     = 4
	decisionQueueSize = 2
)

// engineConfig holds optional configuration for an Engine.
type engineConfig struct {
	diceTimeout     time.Duration
	responseTimeout time.Duration
	roll            func() int
	newID           func() string
	logger          *logging.Logger
	bus             *event.Bus
}

func defaultConfig() engineConfig {
	return engineConfig{
		diceTimeout:     DefaultDiceTimeout,
		responseTimeout: DefaultResponseTimeout,
		roll:            RollDice,
		newID:           uuid.NewString,
		logger:          logging.NopLogger(),
	}
}

// RollDice draws uniformly from [wire.MinDice, wire.MaxDice].
func RollDice() int {
	return wire.MinDice + rand.IntN(wire.MaxDice-wire.MinDice+1)
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithDiceTimeout sets how long to wait for the peer's dice.
// Non-positive values keep the default.
func WithDiceTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.diceTimeout = d
		}
	}
}

// WithResponseTimeout sets how long each role waits for an offer or decision.
// Non-positive values keep the default.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.responseTimeout = d
		}
	}
}

// WithDiceRoller replaces the random dice source. Results outside the dice
// range are clamped.
func WithDiceRoller(roll func() int) Option {
	return func(c *engineConfig) {
		if roll != nil {
			c.roll = roll
		}
	}
}

// WithIDGenerator replaces the session identifier source.
func WithIDGenerator(newID func() string) Option {
	return func(c *engineConfig) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *logging.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBus publishes lifecycle events to bus.
func WithBus(bus *event.Bus) Option {
	return func(c *engineConfig) { c.bus = bus }
}
