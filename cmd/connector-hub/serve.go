package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/cli"
	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/server"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hub with its ops endpoints",
	Long: `Start the hub, its health monitor and cache sweeper, and an HTTP listener
exposing:
  /metrics   Prometheus metrics
  /snapshot  merged provider, cache, routing and rate limit state (JSON)
  /healthz   liveness
  /readyz    readiness from the latest provider probes
  /version   build information

With --config the file is watched: log level and health settings apply
without a restart, other changes are logged.

Examples:
  # Start with defaults
  connector-hub serve

  # Start with a config file and a public listener
  connector-hub serve --config hub.yaml --listen 0.0.0.0:9090

  # Validate config and build the hub without serving
  connector-hub serve --config hub.yaml --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "build the hub and exit")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	h, cfg, err := newHub(cmd)
	if err != nil {
		return err
	}
	defer h.Close()

	if serveFlags.logLevel != "" {
		if err := h.Logger().SetLevel(serveFlags.logLevel); err != nil {
			return cli.NewConfigError("log-level", err.Error())
		}
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Providers initialized (%d providers)\n", len(h.Registry().Names()))
	if cfg.Cache.IsEnabled() {
		fmt.Fprintf(out, "✓ Cache ready (%s)\n", cfg.Cache.Backend)
	}
	fmt.Fprintf(out, "✓ Pipeline: %v\n", h.Router().Stages())

	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if err := h.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	if cfgFile != "" && !serveFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, cfg, h.Logger().Slog())
		if err != nil {
			h.Logger().Warn("config watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
			go func() {
				if err := h.Watch(ctx, watcher); err != nil {
					h.Logger().Warn("config watcher stopped", "error", err)
				}
			}()
		}
	}

	srv := server.New(cfg.Server, h, server.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})
	if err := srv.Listen(); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintf(out, "✓ Listening on %s\n", srv.Addr())

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}
