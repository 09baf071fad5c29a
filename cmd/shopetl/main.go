// Command shopetl cleans the retail shopping-behavior CSV once: load, clean,
// write the cleaned CSV (and optionally Parquet), then replace the database
// table with the result. All settings come from the environment and .env.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopetl/internal/config"
	"shopetl/internal/logging"
	"shopetl/internal/metrics"
	"shopetl/internal/metrics/datadog"
	"shopetl/internal/parser/csv"
	"shopetl/internal/sink"
	"shopetl/internal/storage"
	"shopetl/internal/transformer"

	// register all backends with the storage factory.
	_ "shopetl/internal/storage/all"
)

const dotEnvPath = ".env"

// appDeps holds the side-effecting seams runMain needs so tests can replace them.
type appDeps struct {
	loadDotEnv  func(paths ...string) error
	getenv      func(string) string
	initMetrics func(ctx context.Context, cfg config.MetricsConfig, runID string, logger *slog.Logger) (func(), error)
	newRepo     sink.RepoFactory
}

func defaultDeps() appDeps {
	return appDeps{
		loadDotEnv:  config.LoadDotEnv,
		getenv:      os.Getenv,
		initMetrics: initMetrics,
		newRepo:     storage.New,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// runMain executes one pipeline run and returns the process exit code:
// 0 when the cleaned file was written (even if the upload failed), 1 otherwise.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, d appDeps) int {
	if len(args) > 0 {
		fmt.Fprintln(stderr, "usage: shopetl (takes no arguments; configure with environment variables or .env)")
		return 1
	}

	if err := d.loadDotEnv(dotEnvPath); err != nil {
		fmt.Fprintf(stderr, "dotenv: %v\n", err)
		return 1
	}
	cfg, err := config.LoadFrom(d.getenv)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	logger, runID := logging.WithRun(logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format))
	logger.Debug("config loaded", "config", cfg.String())

	cleanup, err := d.initMetrics(ctx, cfg.Metrics, runID, logger)
	if err != nil {
		logger.Warn("metrics disabled", "backend", cfg.Metrics.Backend, "err", err)
		cleanup = func() {}
	}
	defer cleanup()

	start := time.Now()

	raw, err := csv.ReadFile(cfg.Paths.Input, csv.Options{})
	if err != nil {
		logger.Error("load failed", "path", cfg.Paths.Input, "err", err)
		return 1
	}
	metrics.RecordRows(metrics.KindRead, raw.Len())
	logger.Info("data loaded", "path", cfg.Paths.Input, "rows", raw.Len(), "columns", raw.Width())

	cleaned, rep := transformer.Run(raw, func(step string, elapsed time.Duration) {
		metrics.RecordStep(step, "ok", elapsed)
		logger.Debug("step finished", "step", step, "elapsed", elapsed)
	})
	recordReport(rep)
	if len(rep.DuplicateNames) > 0 {
		logger.Warn("columns share a normalized name; only the first is used", "names", rep.DuplicateNames)
	}
	logger.Info("data cleaned",
		"rows_in", rep.RowsIn,
		"rows_out", rep.RowsOut,
		"duplicates", rep.DuplicatesDropped,
		"capped", rep.Capped,
		"cap_low", rep.CapLow,
		"cap_high", rep.CapHigh,
		"high_value_threshold", rep.HighValueThreshold,
	)

	if err := csv.WriteFile(cfg.Paths.Output, cleaned); err != nil {
		logger.Error("write failed", "path", cfg.Paths.Output, "err", err)
		return 1
	}
	metrics.RecordRows(metrics.KindWritten, cleaned.Len())
	logger.Info("cleaned data saved", "path", cfg.Paths.Output, "rows", cleaned.Len())

	if cfg.Paths.Parquet != "" {
		if err := sink.WriteParquet(cfg.Paths.Parquet, cleaned); err != nil {
			logger.Error("parquet export failed", "path", cfg.Paths.Parquet, "err", err)
		} else {
			logger.Info("parquet copy saved", "path", cfg.Paths.Parquet)
		}
	}

	u := sink.NewUploader(d.newRepo, storage.Config{Kind: cfg.Database.Kind, DSN: cfg.Database.DSN()})
	uploaded := sink.UploadAndReport(ctx, logger, u, cleaned, cfg.Database.Table)

	logger.Info("run complete", "elapsed", time.Since(start).Truncate(time.Millisecond), "uploaded", uploaded)
	fmt.Fprintf(stdout, "cleaned %d of %d rows into %s\n", cleaned.Len(), raw.Len(), cfg.Paths.Output)
	return 0
}

// recordReport turns the cleaning report into record counters.
func recordReport(r transformer.Report) {
	metrics.RecordRows(metrics.KindDuplicate, r.DuplicatesDropped)
	metrics.RecordRows(metrics.KindCoercedMissing, sum(r.CoercedMissing))
	metrics.RecordRows(metrics.KindImputed, sum(r.Imputed))
	metrics.RecordRows(metrics.KindCapped, r.Capped)
	metrics.RecordRows(metrics.KindHighValue, r.HighValueRows)
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// initMetrics installs the configured metrics backend and returns its
// shutdown hook. "none" keeps the no-op backend.
func initMetrics(ctx context.Context, cfg config.MetricsConfig, runID string, logger *slog.Logger) (func(), error) {
	switch cfg.Backend {
	case "", "none":
		return func() {}, nil

	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName: cfg.JobName,
			RunID:   runID,
			Tags:    cfg.Tags,
		})
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
		logger.Info("metrics enabled", "backend", cfg.Backend, "job", cfg.JobName, "tags", cfg.Tags)

		// Close stops the flush loop and submits what is still buffered.
		return func() {
			if err := b.Close(); err != nil {
				logger.Warn("metrics flush failed", "err", err)
			}
			metrics.SetBackend(nil)
		}, nil

	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Backend)
	}
}
