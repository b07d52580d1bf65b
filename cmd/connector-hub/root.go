package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/cli"
	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/hub"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "connector-hub",
	Short: "Connector Hub - one interface to many LLM providers",
	Long: `Connector Hub sends completion requests to OpenAI, Anthropic and other
providers through a single interface.

Every request passes through a configurable pipeline:
  - Per-caller rate limits and concurrency caps
  - Response caching (memory, SQLite, bbolt or Redis)
  - Retries with backoff and per provider/model circuit breakers
  - Periodic provider health probes

Without --config the built-in defaults and CONNECTOR_HUB_* environment
variables are used.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// error kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "text", "output format: text, json, csv")
}

// loadConfig reads --config, or builds the defaults when it is empty.
// Environment overrides apply in both cases.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		cfg := config.Default()
		config.ApplyEnvOverrides(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, cli.NewConfigError("", err.Error())
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}

// newHub loads the configuration and builds a hub logging to the command's
// stderr.
func newHub(cmd *cobra.Command, opts ...hub.Option) (*hub.Hub, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logCfg := logging.FromConfig(&cfg.Telemetry.Logging)
	logCfg.Writer = cmd.ErrOrStderr()
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	h, err := hub.New(cfg, append([]hub.Option{hub.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return h, cfg, nil
}

// formatter returns the formatter selected by --format.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}
