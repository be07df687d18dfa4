package etl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"bronze/internal/metrics"
	"bronze/internal/parser"
)

// Pipeline is one invocation: a reset of every target table followed by the
// configured runs.
type Pipeline struct {
	Runs   []RunConfig
	Sink   Sink
	Parser parser.Parser

	// Reset drops every run's table once before the first run.
	Reset bool
	// Concurrent executes runs in parallel, one loader goroutine per run.
	Concurrent bool
	Verbose    bool

	// OnSkip, when set, receives every skipped file with its run name. It
	// may be called from several goroutines when Concurrent is set.
	OnSkip func(run string, s Skip)
}

// Report is the outcome of one run.
type Report struct {
	Run      string
	Progress Progress
	Err      error
}

// Run resets the target tables and executes every run. A failed reset is
// returned before any run starts. A failed run does not stop the others;
// the returned error joins the failures of all runs, and the reports cover
// every run in configuration order.
func (p *Pipeline) Run(ctx context.Context) ([]Report, error) {
	if p.Reset {
		if err := p.reset(ctx); err != nil {
			return nil, err
		}
	}

	reports := make([]Report, len(p.Runs))
	runOne := func(i int) {
		rc := p.Runs[i]
		l := NewLoader(rc, p.Sink, p.Parser)
		l.Verbose = p.Verbose
		if p.OnSkip != nil {
			l.OnSkip = func(s Skip) { p.OnSkip(rc.Name, s) }
		}
		err := l.Run(ctx)
		if err != nil {
			log.Printf("ingest: run=%s aborted: %v", rc.Name, err)
		}
		reports[i] = Report{Run: rc.Name, Progress: l.Progress(), Err: err}
	}

	if p.Concurrent {
		var g errgroup.Group
		for i := range p.Runs {
			i := i
			g.Go(func() error { runOne(i); return nil })
		}
		_ = g.Wait()
	} else {
		for i := range p.Runs {
			runOne(i)
		}
	}

	var errs []error
	for _, r := range reports {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return reports, errors.Join(errs...)
}

// reset drops each distinct target table once, in run order.
func (p *Pipeline) reset(ctx context.Context) error {
	start := time.Now()
	dropped := make(map[string]struct{}, len(p.Runs))
	for _, rc := range p.Runs {
		if _, dup := dropped[rc.Table]; dup {
			continue
		}
		dropped[rc.Table] = struct{}{}
		if err := p.Sink.DropTable(ctx, rc.Table); err != nil {
			metrics.RecordStep("ingest", "reset", err, time.Since(start))
			return fmt.Errorf("reset table %s: %w", rc.Table, err)
		}
		log.Printf("ingest: dropped table %s", rc.Table)
	}
	metrics.RecordStep("ingest", "reset", nil, time.Since(start))
	return nil
}
