package config

import (
	"strings"
	"testing"
)

func hasFieldError(errs []ValidationError, field string) bool {
	for _, err := range errs {
		if err.Field == field {
			return true
		}
	}
	return false
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "transport.kind", Value: "x", Message: "must be one of: memory"}
	want := "transport.kind: must be one of: memory (got: x)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := ValidationErrors(nil).Error(); got != "" {
		t.Errorf("empty Error() = %q", got)
	}

	one := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if got := one.Error(); got != "a: bad (got: 1)" {
		t.Errorf("single Error() = %q", got)
	}

	two := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	got := two.Error()
	if !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "2. b: worse (got: 2)") {
		t.Errorf("multi Error() = %q", got)
	}
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("Default() should validate, got %v", ValidationErrors(errs))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero dice timeout", func(c *Config) { c.Negotiation.DiceTimeoutMs = 0 }, "negotiation.dice_timeout_ms"},
		{"negative response timeout", func(c *Config) { c.Negotiation.ResponseTimeoutMs = -1 }, "negotiation.response_timeout_ms"},
		{"response longer than dice", func(c *Config) {
			c.Negotiation.DiceTimeoutMs = 1000
			c.Negotiation.ResponseTimeoutMs = 2000
		}, "negotiation.response_timeout_ms"},
		{"zero sessions", func(c *Config) { c.Negotiation.Sessions = 0 }, "negotiation.sessions"},
		{"unknown transport", func(c *Config) { c.Transport.Kind = "smtp" }, "transport.kind"},
		{"empty topic", func(c *Config) { c.Transport.Topic = " " }, "transport.topic"},
		{"topic with separator", func(c *Config) { c.Transport.Topic = "a/b" }, "transport.topic"},
		{"topic escaping dir", func(c *Config) { c.Transport.Topic = ".." }, "transport.topic"},
		{"mailbox poll interval", func(c *Config) { c.Transport.Mailbox.PollIntervalMs = 0 }, "transport.mailbox.poll_interval_ms"},
		{"redis without addr", func(c *Config) {
			c.Transport.Kind = "redis"
			c.Transport.Redis.Addr = ""
		}, "transport.redis.addr"},
		{"redis negative db", func(c *Config) {
			c.Transport.Kind = "redis"
			c.Transport.Redis.DB = -1
		}, "transport.redis.db"},
		{"quic without peers", func(c *Config) { c.Transport.Kind = "quic" }, "transport.quic.peers"},
		{"quic bad listen", func(c *Config) {
			c.Transport.Kind = "quic"
			c.Transport.QUIC.Listen = "4242"
			c.Transport.QUIC.Peers = []string{"10.0.0.2:4242"}
		}, "transport.quic.listen"},
		{"quic bad peer", func(c *Config) {
			c.Transport.Kind = "quic"
			c.Transport.QUIC.Peers = []string{"10.0.0.2"}
		}, "transport.quic.peers[0]"},
		{"watch without file", func(c *Config) { c.Profiles.Watch = true }, "profiles.watch"},
		{"empty context rule", func(c *Config) { c.Profiles.ContextRules = map[string]string{"home": ""} }, "profiles.context_rules"},
		{"unknown history driver", func(c *Config) { c.History.Driver = "mysql" }, "history.driver"},
		{"postgres without dsn", func(c *Config) { c.History.Driver = "postgres" }, "history.dsn"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"uppercase log level", func(c *Config) { c.Logging.Level = "INFO" }, "logging.level"},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = 2000 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if errs := cfg.Validate(); !hasFieldError(errs, tt.field) {
				t.Errorf("expected error for %s, got %v", tt.field, ValidationErrors(errs))
			}
		})
	}
}

func TestConfig_Validate_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory transport", func(c *Config) { c.Transport.Kind = "memory" }},
		{"redis transport", func(c *Config) { c.Transport.Kind = "redis" }},
		{"quic transport", func(c *Config) {
			c.Transport.Kind = "quic"
			c.Transport.QUIC.Peers = []string{"10.0.0.2:4242", "[::1]:4243"}
		}},
		{"history disabled ignores driver", func(c *Config) {
			c.History.Enabled = false
			c.History.Driver = "mysql"
		}},
		{"postgres with dsn", func(c *Config) {
			c.History.Driver = "postgres"
			c.History.DSN = "host=localhost user=negotiator"
		}},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }},
		{"zero backups", func(c *Config) { c.Logging.MaxBackups = 0 }},
		{"watch with file", func(c *Config) {
			c.Profiles.Watch = true
			c.Profiles.File = "profiles.yaml"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if errs := cfg.Validate(); len(errs) != 0 {
				t.Errorf("unexpected errors: %v", ValidationErrors(errs))
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Negotiation.Sessions = 0
	cfg.Logging.Level = "loud"
	cfg.Transport.Kind = "fax"

	if errs := cfg.Validate(); len(errs) < 3 {
		t.Errorf("expected at least 3 errors, got %d: %v", len(errs), ValidationErrors(errs))
	}
}
