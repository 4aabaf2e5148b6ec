package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/negotiator/internal/config"
	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/logging"
	"github.com/Iron-Ham/negotiator/internal/styles"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "negotiator",
	Short: "Two-agent task negotiation over a shared channel",
	Long: `Negotiator runs an agent that settles who performs a task with a single
peer. The agents roll dice to decide who proposes first, then trade offers
until one side accepts or both run out of offers.

Offers are ranked by the active ethics profile, which is chosen from the
current context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var cfgFile string

// Execute runs the root command and prints any error it returns
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// printError reports err with a hint drawn from its classification.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, styles.Error.Render("Error:"), err.Error())
	switch {
	case errors.IsRetryable(err):
		fmt.Fprintln(w, styles.Muted.Render("The failure looks transient; check that the peer or broker is reachable and try again."))
	case errors.GetSeverity(err) >= errors.SeverityCritical:
		fmt.Fprintln(w, styles.Warning.Render("See negotiator.log in the log directory for details."))
	case !errors.IsUserFacing(err):
		fmt.Fprintln(w, styles.Muted.Render("Run with logging.level=debug for details."))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/negotiator/config.yaml)")
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NEGOTIATOR")
	// NEGOTIATOR_TRANSPORT_KIND for transport.kind
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig returns the validated configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// revalidate checks cfg again after flags have overridden it.
func revalidate(cfg *config.Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return errors.Wrap(config.ValidationErrors(errs), "invalid configuration")
	}
	return nil
}

// newLogger builds the file logger described by cfg. Disabled logging
// returns a logger that discards everything.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLoggerWithRotation(cfg.ResolveDir(), cfg.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}
