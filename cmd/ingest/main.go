// Command ingest loads the raw CSV exports of every configured run into
// their bronze tables. It is a thin composition layer: flags and the
// pipeline config come from internal/config, the sink from the storage
// factory, and the work itself from internal/etl.
//
// With no arguments it ingests <data>/raw_sales/*.csv into raw_sales and
// <data>/inventory/*.csv into raw_inventory on the default Postgres DSN.
// Skipped files never change the exit status; an invalid config, an
// unreachable sink, a failed reset or an aborted run exit 1.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bronze/internal/config"
	"bronze/internal/etl"
	"bronze/internal/metrics"
	"bronze/internal/metrics/datadog"
	"bronze/internal/metrics/prompush"
	pcsv "bronze/internal/parser/csv"
	"bronze/internal/skiplog"
	"bronze/internal/storage"

	// register all backends with the storage factory.
	_ "bronze/internal/storage/all"
)

const defaultPushgatewayURL = "http://localhost:9091"

// errInvalidConfig is returned when validation reports at least one error.
var errInvalidConfig = errors.New("invalid configuration")

// Deps holds the side-effecting boundaries of run so tests can replace them.
type Deps struct {
	OpenRepo   func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	NewMetrics func(f *config.Flags, job, runID string) (metrics.Backend, error)
	NewRunID   func() string
}

// defaultDeps wires production implementations.
func defaultDeps() Deps {
	return Deps{
		OpenRepo:   storage.New,
		NewMetrics: newMetricsBackend,
		NewRunID:   uuid.NewString,
	}
}

// run resolves and validates the pipeline, opens the sink and executes every
// run. The returned error is nil when every run completed, skips included.
func run(ctx context.Context, f *config.Flags, deps Deps) error {
	p, err := config.Resolve(f)
	if err != nil {
		return err
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		log.Printf("config: %s: %s: %s", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errInvalidConfig
	}
	if f.ValidateOnly {
		log.Printf("config: pipeline %q is valid (%d runs, storage=%s)", p.Job, len(p.Runs), p.Storage.Kind)
		return nil
	}

	runID := deps.NewRunID()
	if b, err := deps.NewMetrics(f, p.Job, runID); err != nil {
		log.Printf("metrics: init %s backend: %v; metrics disabled", f.MetricsBackend, err)
	} else if b != nil {
		metrics.SetBackend(b)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}()
	}

	runs, err := runConfigs(p)
	if err != nil {
		return err
	}

	start := time.Now()
	repo, err := deps.OpenRepo(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DSN})
	metrics.RecordStep(p.Job, "connect", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("open storage %s: %w", p.Storage.Kind, err)
	}
	defer repo.Close()

	dialect, err := storage.DialectFor(p.Storage.Kind)
	if err != nil {
		return err
	}
	sink := storage.NewTableSink(repo, dialect, storage.SinkOptions{
		CopyRows:      p.Runtime.CopyRows,
		RetryAttempts: p.Runtime.RetryAttempts,
		RetryInitial:  time.Duration(p.Runtime.RetryInitialMS) * time.Millisecond,
	})

	var skips *skiplog.Stats
	if f.SkippedFile != "" {
		s, cleanup, err := skiplog.NewSkipStats(f.SkippedFile, runID)
		if err != nil {
			return err
		}
		skips = s
		defer func() {
			if err := cleanup(); err != nil {
				log.Printf("ingest: close skip report: %v", err)
			}
		}()
	}

	pipe := &etl.Pipeline{
		Runs:       runs,
		Sink:       sink,
		Parser:     pcsv.NewParser(p.Parser.CSVOptions()),
		Reset:      p.ResetTables(),
		Concurrent: p.Runtime.ConcurrentRuns,
		Verbose:    f.Verbose,
		OnSkip: func(run string, s etl.Skip) {
			skips.Add(run, s.Path, etl.SkipReason(s.Err), s.Err.Error())
		},
	}

	log.Printf("ingest: run_id=%s job=%s storage=%s runs=%d reset=%t",
		runID, p.Job, p.Storage.Kind, len(runs), pipe.Reset)
	reports, err := pipe.Run(ctx)

	var rows, skipped int64
	for _, r := range reports {
		rows += r.Progress.Rows
		skipped += r.Progress.Skipped
	}
	log.Printf("ingest: run_id=%s finished rows=%s skipped_files=%s elapsed=%s",
		runID, humanize.Comma(rows), humanize.Comma(skipped), time.Since(start).Truncate(time.Millisecond))
	if reasons := skips.Summary(); len(reasons) > 0 {
		log.Printf("ingest: skip reasons %v (report: %s)", reasons, f.SkippedFile)
	}
	return err
}

// runConfigs maps the configured runs onto loader run configs.
func runConfigs(p config.Pipeline) ([]etl.RunConfig, error) {
	out := make([]etl.RunConfig, 0, len(p.Runs))
	for _, r := range p.Runs {
		renames, err := r.Renames()
		if err != nil {
			return nil, err
		}
		out = append(out, etl.RunConfig{
			Name:      r.Name,
			Pattern:   r.Pattern,
			FilesFrom: r.FilesFrom,
			Table:     r.Table,
			Renames:   renames,
			BatchSize: p.Runtime.BatchSize,
			Workers:   p.Runtime.ParseWorkers,
		})
	}
	return out, nil
}

// newMetricsBackend builds the backend named by f. A nil backend with a nil
// error keeps the no-op default.
func newMetricsBackend(f *config.Flags, job, runID string) (metrics.Backend, error) {
	switch f.MetricsBackend {
	case "", "none":
		return nil, nil

	case "pushgateway":
		url := f.PushgatewayURL
		if url == "" {
			url = defaultPushgatewayURL
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			return nil, err
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", url, job)
		return b.WithRunID(runID), nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       f.DatadogAddr,
			Namespace:  "bronze.",
			GlobalTags: []string{"job:" + job, "run_id:" + runID},
		})
		if err != nil {
			return nil, err
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", f.DatadogAddr, job)
		return b, nil

	default:
		return nil, fmt.Errorf("unknown metrics backend %q", f.MetricsBackend)
	}
}

// main is intentionally tiny. It parses flags, installs signal handling and
// delegates to run.
func main() {
	f, err := config.LoadFlags()
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, f, defaultDeps())
	stop()
	if err != nil {
		log.Printf("ingest: %v", err)
		os.Exit(1)
	}
}
