package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete negotiator configuration
type Config struct {
	Agent       AgentConfig       `mapstructure:"agent" yaml:"agent"`
	Negotiation NegotiationConfig `mapstructure:"negotiation" yaml:"negotiation"`
	Transport   TransportConfig   `mapstructure:"transport" yaml:"transport"`
	Offers      OffersConfig      `mapstructure:"offers" yaml:"offers"`
	Profiles    ProfilesConfig    `mapstructure:"profiles" yaml:"profiles"`
	History     HistoryConfig     `mapstructure:"history" yaml:"history"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// AgentConfig identifies this agent
type AgentConfig struct {
	// Name labels history records and log lines. Session ids stay random.
	Name string `mapstructure:"name" yaml:"name"`
}

// NegotiationConfig controls the protocol timeouts
type NegotiationConfig struct {
	// DiceTimeoutMs bounds the wait for the peer's dice (default: 50000)
	DiceTimeoutMs int `mapstructure:"dice_timeout_ms" yaml:"dice_timeout_ms"`
	// ResponseTimeoutMs bounds every wait for a peer offer or decision (default: 5000)
	ResponseTimeoutMs int `mapstructure:"response_timeout_ms" yaml:"response_timeout_ms"`
	// Sessions is how many negotiations `negotiate` runs back to back (default: 1)
	Sessions int `mapstructure:"sessions" yaml:"sessions"`
}

// TransportConfig selects and configures the message transport
type TransportConfig struct {
	// Kind is one of "memory", "mailbox", "redis", "quic" (default: "mailbox")
	Kind string `mapstructure:"kind" yaml:"kind"`
	// Topic names the mailbox directory and the redis channel (default: "negotiation")
	Topic   string        `mapstructure:"topic" yaml:"topic"`
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	QUIC    QUICConfig    `mapstructure:"quic" yaml:"quic"`
}

// MailboxConfig configures the shared-directory transport
type MailboxConfig struct {
	// Dir is the shared directory; empty means <config dir>/mailbox
	Dir            string `mapstructure:"dir" yaml:"dir"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// RedisConfig configures the redis pub/sub transport
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// QUICConfig configures the QUIC transport
type QUICConfig struct {
	Listen   string   `mapstructure:"listen" yaml:"listen"`
	Peers    []string `mapstructure:"peers" yaml:"peers"`
	Insecure bool     `mapstructure:"insecure" yaml:"insecure"`
	// CertSeed derives the development certificate; peers must share it
	// unless Insecure is set.
	CertSeed string `mapstructure:"cert_seed" yaml:"cert_seed"`
}

// OffersConfig points at the offer catalog
type OffersConfig struct {
	// File is a YAML catalog; empty means this agent has nothing to offer
	File string `mapstructure:"file" yaml:"file"`
}

// ProfilesConfig controls ethics profiles and scoring
type ProfilesConfig struct {
	// File is the YAML profile table
	File string `mapstructure:"file" yaml:"file"`
	// Default is the profile label used when the file names no default
	Default string `mapstructure:"default" yaml:"default"`
	// Context is the initial context key resolved through the rules
	Context string `mapstructure:"context" yaml:"context"`
	// Watch reloads File when it changes
	Watch bool `mapstructure:"watch" yaml:"watch"`
	// AcceptMargin is added to every score when no profile is active
	AcceptMargin float64 `mapstructure:"accept_margin" yaml:"accept_margin"`
	// ContextRules map context keys to profile labels; the file's rules take precedence
	ContextRules map[string]string `mapstructure:"context_rules" yaml:"context_rules"`
}

// HistoryConfig controls the completed-outcome ledger
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Driver is "sqlite" or "postgres" (default: "sqlite")
	Driver string `mapstructure:"driver" yaml:"driver"`
	// DSN is the data source; empty sqlite DSN means <config dir>/history.db
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory; empty means <config dir>/logs
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name: "",
		},
		Negotiation: NegotiationConfig{
			DiceTimeoutMs:     50000,
			ResponseTimeoutMs: 5000,
			Sessions:          1,
		},
		Transport: TransportConfig{
			Kind:  "mailbox",
			Topic: "negotiation",
			Mailbox: MailboxConfig{
				Dir:            "", // Empty means <config dir>/mailbox
				PollIntervalMs: 50,
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			QUIC: QUICConfig{
				Listen: ":4242",
				Peers:  []string{},
			},
		},
		Profiles: ProfilesConfig{
			ContextRules: map[string]string{},
		},
		History: HistoryConfig{
			Enabled: true,
			Driver:  "sqlite",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DiceTimeout returns the dice timeout as a time.Duration
func (c *NegotiationConfig) DiceTimeout() time.Duration {
	return time.Duration(c.DiceTimeoutMs) * time.Millisecond
}

// ResponseTimeout returns the response timeout as a time.Duration
func (c *NegotiationConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutMs) * time.Millisecond
}

// PollInterval returns the mailbox poll interval as a time.Duration
func (c *MailboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ResolveDir returns the mailbox directory, defaulting under ConfigDir.
func (c *MailboxConfig) ResolveDir() string {
	if c.Dir == "" {
		return filepath.Join(ConfigDir(), "mailbox")
	}
	return expandHome(c.Dir)
}

// ResolveDir returns the log directory, defaulting under ConfigDir.
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(c.Dir)
}

// ResolveDSN returns the data source, defaulting the sqlite file under ConfigDir.
func (c *HistoryConfig) ResolveDSN() string {
	if c.DSN != "" {
		if c.Driver == "" || c.Driver == "sqlite" {
			return expandHome(c.DSN)
		}
		return c.DSN
	}
	if c.Driver == "" || c.Driver == "sqlite" {
		return filepath.Join(ConfigDir(), "history.db")
	}
	return ""
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Agent defaults
	viper.SetDefault("agent.name", defaults.Agent.Name)

	// Negotiation defaults
	viper.SetDefault("negotiation.dice_timeout_ms", defaults.Negotiation.DiceTimeoutMs)
	viper.SetDefault("negotiation.response_timeout_ms", defaults.Negotiation.ResponseTimeoutMs)
	viper.SetDefault("negotiation.sessions", defaults.Negotiation.Sessions)

	// Transport defaults
	viper.SetDefault("transport.kind", defaults.Transport.Kind)
	viper.SetDefault("transport.topic", defaults.Transport.Topic)
	viper.SetDefault("transport.mailbox.dir", defaults.Transport.Mailbox.Dir)
	viper.SetDefault("transport.mailbox.poll_interval_ms", defaults.Transport.Mailbox.PollIntervalMs)
	viper.SetDefault("transport.redis.addr", defaults.Transport.Redis.Addr)
	viper.SetDefault("transport.redis.password", defaults.Transport.Redis.Password)
	viper.SetDefault("transport.redis.db", defaults.Transport.Redis.DB)
	viper.SetDefault("transport.quic.listen", defaults.Transport.QUIC.Listen)
	viper.SetDefault("transport.quic.peers", defaults.Transport.QUIC.Peers)
	viper.SetDefault("transport.quic.insecure", defaults.Transport.QUIC.Insecure)
	viper.SetDefault("transport.quic.cert_seed", defaults.Transport.QUIC.CertSeed)

	// Offer defaults
	viper.SetDefault("offers.file", defaults.Offers.File)

	// Profile defaults
	viper.SetDefault("profiles.file", defaults.Profiles.File)
	viper.SetDefault("profiles.default", defaults.Profiles.Default)
	viper.SetDefault("profiles.context", defaults.Profiles.Context)
	viper.SetDefault("profiles.watch", defaults.Profiles.Watch)
	viper.SetDefault("profiles.accept_margin", defaults.Profiles.AcceptMargin)
	viper.SetDefault("profiles.context_rules", defaults.Profiles.ContextRules)

	// History defaults
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.driver", defaults.History.Driver)
	viper.SetDefault("history.dsn", defaults.History.DSN)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "negotiator")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".negotiator"
	}
	return filepath.Join(home, ".config", "negotiator")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteFile writes c as YAML to path. It refuses to overwrite an existing
// file unless force is set.
func (c *Config) WriteFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
