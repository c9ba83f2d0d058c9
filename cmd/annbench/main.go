// Command annbench benchmarks nearest-neighbour search over a grid of
// datasets, shard counts, k values and algorithms, writing one JSON report
// per configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/23skdu/annreports/internal/dataset"
	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/harness"
	"github.com/23skdu/annreports/internal/logging"
	"github.com/23skdu/annreports/internal/measure"
	"github.com/23skdu/annreports/internal/report"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// run executes one benchmark and returns the process exit code: 0 when every
// configuration produced a report or was skipped, 1 otherwise.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	flags := flag.NewFlagSet("annbench", flag.ContinueOnError)
	flags.SetOutput(stdout)
	envFile := flags.String("env", ".env", "Optional dotenv file applied before reading ANNBENCH_* variables")
	datasets := flags.String("datasets", "", "Comma-separated name:metric list (overrides ANNBENCH_DATASETS)")
	reportsDir := flags.String("reports", "", "Directory reports are written to (overrides ANNBENCH_REPORTS_DIR)")
	dataDir := flags.String("data", "", "Directory dataset files are read from (overrides ANNBENCH_DATA_DIR)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(stdout, "annbench: failed to load configuration: %v\n", err)
		return 1
	}
	if *datasets != "" {
		cfg.Datasets = splitList(*datasets)
	}
	if *reportsDir != "" {
		cfg.ReportsDir = *reportsDir
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := ValidateConfig(&cfg); err != nil {
		fmt.Fprintf(stdout, "annbench: invalid configuration: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: stdout})
	if err != nil {
		fmt.Fprintf(stdout, "annbench: %v\n", err)
		return 1
	}

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	reports, err := report.Open(cfg.ReportsDir)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.ReportsDir).Msg("Cannot open reports directory")
		return 1
	}
	specs, err := harness.ParseDatasetSpecs(cfg.Datasets)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid dataset list")
		return 1
	}

	reader := dataset.Chain{
		dataset.Synthetic{Seed: cfg.Seed, QueryFraction: cfg.QueryFraction},
		dataset.FileReader{Dir: cfg.DataDir, Alloc: memory.NewGoAllocator()},
	}
	plan, err := cfg.Plan()
	if err != nil {
		logger.Error().Err(err).Msg("Invalid algorithm list")
		return 1
	}
	h := harness.New(reader, reports, measure.NewDriver(cfg.Workers, logger), logger, plan)

	logger.Info().
		Strs("datasets", cfg.Datasets).
		Int("max_shards", cfg.MaxShards).
		Ints("k_values", cfg.KValues).
		Str("reports_dir", reports.Path()).
		Msg("annbench starting")

	start := time.Now()
	summary, err := h.Run(ctx, specs)
	if err != nil {
		ev := logger.Error().Err(err)
		if bencherr.IsFatal(err) {
			ev = ev.Bool("fatal", true)
		}
		if errors.Is(err, context.Canceled) {
			ev = ev.Bool("interrupted", true)
		}
		ev.Msg("Benchmark aborted")
		return 1
	}

	logger.Info().
		Int("reports", len(summary.Reports)).
		Int("skipped", len(summary.Skipped)).
		Int("failures", len(summary.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Benchmark complete")

	if summary.Failed() {
		for _, f := range summary.Failures {
			logger.Error().Err(f.Err).Str("dataset", f.Dataset).Str("stage", f.Stage).Msg("Configuration failed")
		}
		return 1
	}
	return 0
}

//nolint:gocritic // Logger passed by value
func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("address", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Failed to start metrics server")
		}
	}()
	return srv
}
