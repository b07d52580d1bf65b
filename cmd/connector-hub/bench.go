package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/bench"
	"llm-dev-ops/connector-hub/pkg/cli"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
)

var benchFlags struct {
	target     string
	iterations int
	warmup     int
	parallel   int
	outputDir  string
	noProgress bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the micro-benchmarks",
	Long: `Measure the hub's hot paths in process, against mock providers:
  provider-resolution     model to provider lookup
  request-transformation  OpenAI and Anthropic wire encoding
  middleware-pipeline     a full Complete through every stage
  cache-operations        fingerprint and memory get/set
  stream-parsing          SSE decoding

Raw results go to <output>/raw and a Markdown table to <output>/summary.md.

Examples:
  # Everything with the configured iteration counts
  connector-hub bench

  # Only the cache target, more iterations
  connector-hub bench --target cache --iterations 10000`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVarP(&benchFlags.target, "target", "t", "", "run targets whose id starts with this prefix")
	benchCmd.Flags().IntVarP(&benchFlags.iterations, "iterations", "n", 0, "iterations per target (config default if 0)")
	benchCmd.Flags().IntVar(&benchFlags.warmup, "warmup", -1, "warmup iterations (config default if negative)")
	benchCmd.Flags().IntVar(&benchFlags.parallel, "parallel", 1, "targets run at once")
	benchCmd.Flags().StringVar(&benchFlags.outputDir, "output", "", "results directory (config default if empty)")
	benchCmd.Flags().BoolVar(&benchFlags.noProgress, "no-progress", false, "disable the progress bar")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := bench.Options{Iterations: cfg.Bench.Iterations, Warmup: cfg.Bench.Warmup}
	if benchFlags.iterations > 0 {
		opts.Iterations = benchFlags.iterations
	}
	if benchFlags.warmup >= 0 {
		opts.Warmup = benchFlags.warmup
	}
	outputDir := cfg.Bench.OutputDir
	if benchFlags.outputDir != "" {
		outputDir = benchFlags.outputDir
	}

	targets := bench.Targets(opts)
	if benchFlags.target != "" {
		targets = bench.ByPrefix(targets, benchFlags.target)
		if len(targets) == 0 {
			return cli.NewCommandError("bench", fmt.Errorf("no target matches %q", benchFlags.target))
		}
	}

	var progress cli.ProgressReporter
	if !benchFlags.noProgress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(len(targets))
		for i, t := range targets {
			run := t.Run
			targets[i].Run = func(ctx context.Context) (map[string]float64, error) {
				defer progress.Step(t.ID)
				return run(ctx)
			}
		}
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	runner := &bench.Runner{Parallel: benchFlags.parallel, Logger: quietLogger(cmd)}
	results, err := runner.Run(ctx, targets)
	if err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("bench", err)
	}
	if progress != nil {
		progress.Finish()
	}

	path, err := bench.WriteResults(outputDir, results)
	if err != nil {
		return cli.NewCommandError("bench", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Results written to %s\n\n", path)

	var failed []string
	for _, r := range results {
		if !r.Success() {
			failed = append(failed, r.TargetID)
		}
	}

	f, err := formatter()
	if err != nil {
		return err
	}
	if err := f.FormatTo(out, resultTable(results)); err != nil {
		return err
	}

	if len(failed) > 0 {
		return cli.NewCommandError("bench", fmt.Errorf("targets failed: %s", strings.Join(failed, ", ")))
	}
	return nil
}

// resultTable renders results with latencies in microseconds.
type resultTable []bench.Result

func (r resultTable) Table() *cli.Table {
	t := &cli.Table{Header: []string{"TARGET", "MEAN_US", "P50_US", "P95_US", "P99_US", "OPS_PER_SEC", "ERROR"}}
	us := func(ns float64) string { return fmt.Sprintf("%.2f", ns/1e3) }
	for _, res := range r {
		if !res.Success() {
			t.Append(res.TargetID, "-", "-", "-", "-", "-", res.Error)
			continue
		}
		m := res.Metrics
		t.Append(res.TargetID,
			us(m[bench.MetricMeanNs]),
			us(m[bench.MetricP50Ns]),
			us(m[bench.MetricP95Ns]),
			us(m[bench.MetricP99Ns]),
			fmt.Sprintf("%.0f", m[bench.MetricThroughputOps]),
			"",
		)
	}
	return t
}

// quietLogger reports only failures unless --verbose is set.
func quietLogger(cmd *cobra.Command) *slog.Logger {
	level := "warn"
	if verbose {
		level = "info"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: "text", Writer: cmd.ErrOrStderr()})
	if err != nil {
		return slog.Default()
	}
	return logger.Slog()
}
