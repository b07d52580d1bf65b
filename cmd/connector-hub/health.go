package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/cli"
	"llm-dev-ops/connector-hub/pkg/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every provider once",
	Long: `Run one health probe against every configured provider and print the
results. The command fails when any provider is unhealthy.

Examples:
  connector-hub health --config hub.yaml
  connector-hub health -o json`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// healthReport is the probe result of every provider.
type healthReport []health.ProviderHealth

func (r healthReport) Table() *cli.Table {
	t := &cli.Table{Header: []string{"PROVIDER", "STATUS", "LATENCY", "ERROR"}}
	for _, ph := range r {
		status := "up"
		if !ph.Healthy {
			status = "down"
		}
		t.Append(ph.Provider, status, ph.Latency.Round(time.Millisecond).String(), ph.LastError)
	}
	return t
}

func runHealth(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	h, _, err := newHub(cmd)
	if err != nil {
		return err
	}
	defer h.Close()

	report := healthReport(h.CheckHealth(cmd.Context()))
	if err := f.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	unhealthy := 0
	for _, ph := range report {
		if !ph.Healthy {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		return cli.NewCommandError("health", fmt.Errorf("%d of %d providers unhealthy", unhealthy, len(report)))
	}
	return nil
}
