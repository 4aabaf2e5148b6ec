package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "negotiation.dice_timeout_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidTransportKinds returns the list of valid transport kinds
func ValidTransportKinds() []string {
	return []string{"memory", "mailbox", "redis", "quic"}
}

// ValidHistoryDrivers returns the list of valid history drivers
func ValidHistoryDrivers() []string {
	return []string{"sqlite", "postgres"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateNegotiation()...)
	errors = append(errors, c.validateTransport()...)
	errors = append(errors, c.validateProfiles()...)
	errors = append(errors, c.validateHistory()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateNegotiation validates the NegotiationConfig
func (c *Config) validateNegotiation() []ValidationError {
	var errors []ValidationError

	if c.Negotiation.DiceTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "negotiation.dice_timeout_ms",
			Value:   c.Negotiation.DiceTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Negotiation.ResponseTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "negotiation.response_timeout_ms",
			Value:   c.Negotiation.ResponseTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Negotiation.ResponseTimeoutMs > 0 && c.Negotiation.DiceTimeoutMs > 0 &&
		c.Negotiation.ResponseTimeoutMs > c.Negotiation.DiceTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "negotiation.response_timeout_ms",
			Value:   c.Negotiation.ResponseTimeoutMs,
			Message: fmt.Sprintf("must not exceed negotiation.dice_timeout_ms (%d)", c.Negotiation.DiceTimeoutMs),
		})
	}

	if c.Negotiation.Sessions < 1 {
		errors = append(errors, ValidationError{
			Field:   "negotiation.sessions",
			Value:   c.Negotiation.Sessions,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateTransport validates the TransportConfig
func (c *Config) validateTransport() []ValidationError {
	var errors []ValidationError
	t := c.Transport

	if !slices.Contains(ValidTransportKinds(), t.Kind) {
		errors = append(errors, ValidationError{
			Field:   "transport.kind",
			Value:   t.Kind,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTransportKinds(), ", ")),
		})
	}

	if strings.TrimSpace(t.Topic) == "" || strings.ContainsAny(t.Topic, `/\`) || strings.Contains(t.Topic, "..") {
		errors = append(errors, ValidationError{
			Field:   "transport.topic",
			Value:   t.Topic,
			Message: "must be a non-empty name without path separators",
		})
	}

	switch t.Kind {
	case "mailbox":
		if t.Mailbox.PollIntervalMs <= 0 {
			errors = append(errors, ValidationError{
				Field:   "transport.mailbox.poll_interval_ms",
				Value:   t.Mailbox.PollIntervalMs,
				Message: "must be positive",
			})
		}
	case "redis":
		if strings.TrimSpace(t.Redis.Addr) == "" {
			errors = append(errors, ValidationError{
				Field:   "transport.redis.addr",
				Value:   t.Redis.Addr,
				Message: "is required for the redis transport",
			})
		}
		if t.Redis.DB < 0 {
			errors = append(errors, ValidationError{
				Field:   "transport.redis.db",
				Value:   t.Redis.DB,
				Message: "must be non-negative",
			})
		}
	case "quic":
		if _, _, err := net.SplitHostPort(t.QUIC.Listen); err != nil {
			errors = append(errors, ValidationError{
				Field:   "transport.quic.listen",
				Value:   t.QUIC.Listen,
				Message: "must be a host:port address",
			})
		}
		if len(t.QUIC.Peers) == 0 {
			errors = append(errors, ValidationError{
				Field:   "transport.quic.peers",
				Value:   t.QUIC.Peers,
				Message: "at least one peer is required for the quic transport",
			})
		}
		for i, peer := range t.QUIC.Peers {
			if _, _, err := net.SplitHostPort(peer); err != nil {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("transport.quic.peers[%d]", i),
					Value:   peer,
					Message: "must be a host:port address",
				})
			}
		}
	}

	return errors
}

// validateProfiles validates the ProfilesConfig
func (c *Config) validateProfiles() []ValidationError {
	var errors []ValidationError

	if c.Profiles.Watch && c.Profiles.File == "" {
		errors = append(errors, ValidationError{
			Field:   "profiles.watch",
			Value:   c.Profiles.Watch,
			Message: "requires profiles.file",
		})
	}

	for key, label := range c.Profiles.ContextRules {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(label) == "" {
			errors = append(errors, ValidationError{
				Field:   "profiles.context_rules",
				Value:   fmt.Sprintf("%q: %q", key, label),
				Message: "context keys and profile labels must be non-empty",
			})
		}
	}

	return errors
}

// validateHistory validates the HistoryConfig
func (c *Config) validateHistory() []ValidationError {
	var errors []ValidationError

	if !c.History.Enabled {
		return errors
	}

	if c.History.Driver != "" && !slices.Contains(ValidHistoryDrivers(), c.History.Driver) {
		errors = append(errors, ValidationError{
			Field:   "history.driver",
			Value:   c.History.Driver,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidHistoryDrivers(), ", ")),
		})
	}

	if c.History.Driver == "postgres" && strings.TrimSpace(c.History.DSN) == "" {
		errors = append(errors, ValidationError{
			Field:   "history.dsn",
			Value:   c.History.DSN,
			Message: "is required for the postgres driver",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
