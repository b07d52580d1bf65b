package main

import (
	"sort"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/cli"
)

var modelsFlags struct {
	refresh bool
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models per provider",
	Long: `List the models each configured provider serves.

By default the configured or cached model lists are shown. --refresh asks
every provider for its current list first.

Examples:
  connector-hub models --config hub.yaml
  connector-hub models --refresh -o json`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsFlags.refresh, "refresh", false, "query providers for their model lists")
}

// modelList maps provider ids to model ids.
type modelList map[string][]string

func (m modelList) Table() *cli.Table {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &cli.Table{Header: []string{"PROVIDER", "MODEL"}}
	for _, name := range names {
		if len(m[name]) == 0 {
			t.Append(name, "*")
			continue
		}
		for _, model := range m[name] {
			t.Append(name, model)
		}
	}
	return t
}

func runModels(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	h, _, err := newHub(cmd)
	if err != nil {
		return err
	}
	defer h.Close()

	models := h.Models()
	if modelsFlags.refresh {
		refreshed, err := h.RefreshModels(cmd.Context())
		if err != nil {
			h.Logger().Warn("some providers failed to list models", "error", err)
		}
		for name, list := range refreshed {
			models[name] = list
		}
	}

	return f.FormatTo(cmd.OutOrStdout(), modelList(models))
}
