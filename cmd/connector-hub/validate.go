package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/cli"
	"llm-dev-ops/connector-hub/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Long: `Parse a configuration file, apply defaults and environment overrides, and
report every invalid field.

The file is the argument, or --config when no argument is given.

Examples:
  connector-hub validate hub.yaml
  connector-hub validate --config /etc/connector-hub/hub.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return cli.NewConfigError("", "no configuration file given")
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s is valid\n", path)
	fmt.Fprintf(out, "  providers: %v\n", cfg.ProviderNames())
	fmt.Fprintf(out, "  pipeline:  %v\n", cfg.Pipeline.Stages)
	if cfg.Cache.IsEnabled() {
		fmt.Fprintf(out, "  cache:     %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.DefaultTTL)
	} else {
		fmt.Fprintln(out, "  cache:     disabled")
	}
	return nil
}
