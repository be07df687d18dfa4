package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"bronze/internal/datasource"
	"bronze/internal/datasource/file"
	"bronze/internal/metrics"
	"bronze/internal/parser"
	pcsv "bronze/internal/parser/csv"
	"bronze/internal/records"
	"bronze/internal/schema"
)

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	discoverFn     = file.Discover
	discoverListFn = file.DiscoverList
	openSourceFn   = func(path string) datasource.Source { return file.NewLocal(path) }
)

// Loader executes one ingestion run. A Loader is single-use: call Run once.
type Loader struct {
	cfg    RunConfig
	sink   Sink
	parser parser.Parser

	// OnSkip, when set, is called for every skipped file.
	OnSkip func(Skip)
	// OnProgress, when set, is called after every processed file.
	OnProgress func(Progress)
	// Verbose logs one line per file.
	Verbose bool

	c     counters
	skips *skipAgg
}

// NewLoader returns a Loader for cfg writing to sink and parsing with p.
func NewLoader(cfg RunConfig, sink Sink, p parser.Parser) *Loader {
	return &Loader{cfg: cfg, sink: sink, parser: p, skips: newSkipAgg(10)}
}

// Progress returns a snapshot of the run counters. Safe for concurrent use.
func (l *Loader) Progress() Progress { return l.c.snapshot() }

// fileResult is the outcome of reading one file: either a cast record set
// or the reason the file was skipped.
type fileResult struct {
	path      string
	set       *records.Set
	malformed int
	sum       uint64
	size      int64
	err       error
}

// Run processes every input file in enumeration order and flushes batches to
// the sink. It returns nil when all batches were written, even if files were
// skipped. A discovery error, a failed flush or a cancelled context aborts
// the run; batches flushed before the failure stay in the sink.
func (l *Loader) Run(ctx context.Context) error {
	start := time.Now()
	err := l.run(ctx)
	metrics.RecordStep(l.cfg.Name, "run", err, time.Since(start))

	p := l.Progress()
	l.skips.log(l.cfg.Name)
	log.Printf("loader: run=%s done files=%s ingested=%s skipped=%s malformed_rows=%s rows=%s flushes=%d elapsed=%s",
		l.cfg.Name,
		humanize.Comma(p.Processed), humanize.Comma(p.Ingested), humanize.Comma(p.Skipped),
		humanize.Comma(p.Malformed), humanize.Comma(p.Rows), p.Flushes,
		time.Since(start).Truncate(time.Millisecond))
	if err != nil {
		return fmt.Errorf("run %s: %w", l.cfg.Name, err)
	}
	return nil
}

func (l *Loader) run(ctx context.Context) error {
	paths, err := l.discover()
	if err != nil {
		return err
	}
	l.c.discovered.Store(int64(len(paths)))
	if len(paths) == 0 {
		log.Printf("loader: run=%s no input files for %q", l.cfg.Name, l.cfg.source())
		return nil
	}
	log.Printf("loader: run=%s table=%s files=%d batch=%d workers=%d",
		l.cfg.Name, l.cfg.Table, len(paths), l.cfg.batchSize(), max(l.cfg.Workers, 1))

	size := l.cfg.batchSize()
	window := 1
	if l.cfg.Workers > 1 {
		window = size
	}

	batch := make([]*records.Set, 0, min(size, len(paths)))
	for lo := 0; lo < len(paths); lo += window {
		hi := min(lo+window, len(paths))
		results, err := l.readWindow(ctx, paths[lo:hi])
		if err != nil {
			return err
		}
		for i, res := range results {
			if set := l.consume(res); set != nil {
				batch = append(batch, set)
			}
			last := lo+i == len(paths)-1
			if len(batch) >= size || last {
				if err := l.flush(ctx, batch); err != nil {
					return err
				}
				clear(batch)
				batch = batch[:0]
			}
		}
	}
	return nil
}

func (l *Loader) discover() ([]string, error) {
	if l.cfg.FilesFrom != "" {
		return discoverListFn(l.cfg.FilesFrom)
	}
	return discoverFn(l.cfg.Pattern)
}

// readWindow reads paths and returns their results in input order. With more
// than one worker the files are parsed concurrently. A cancelled context
// stops the window before any result is consumed.
func (l *Loader) readWindow(ctx context.Context, paths []string) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	if len(paths) == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[0] = l.readFile(ctx, paths[0])
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(l.cfg.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = l.readFile(ctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// readFile opens, parses, normalizes and casts one file. It never fails:
// problems are reported in the result and turn into a skip.
func (l *Loader) readFile(ctx context.Context, path string) fileResult {
	res := fileResult{path: path}

	rc, err := openSourceFn(path).Open(ctx)
	if err != nil {
		res.err = err
		return res
	}
	defer rc.Close()

	hr := &hashReader{r: rc, h: xxh3.New()}
	raw, malformed, err := l.parser.Parse(hr)
	res.sum, res.size = hr.h.Sum64(), hr.n
	// A read that fails before the first byte keeps its own cause.
	if hr.n == 0 && (err == nil || errors.Is(err, pcsv.ErrNoHeader)) {
		res.err = ErrEmptyFile
		return res
	}
	if err != nil {
		res.err = fmt.Errorf("parse: %w", err)
		return res
	}

	plan := schema.Normalize(raw.Columns, l.cfg.Renames)
	collisions := plan.Collisions(raw.Columns)
	for _, c := range collisions {
		log.Printf("loader: run=%s file=%s column %q dropped: %q already maps to %q",
			l.cfg.Name, path, c.Column, c.Winner, c.Target)
	}
	if len(collisions) > 0 || !plan.IsIdentity() {
		raw = plan.Apply(raw)
	}
	res.set = records.CastRaw(raw)
	res.malformed = malformed
	return res
}

// consume updates the counters for res and returns its record set, or nil
// when the file was skipped.
func (l *Loader) consume(res fileResult) *records.Set {
	defer func() {
		if l.OnProgress != nil {
			l.OnProgress(l.Progress())
		}
	}()
	l.c.processed.Add(1)

	if res.err != nil {
		s := Skip{Path: res.path, Err: res.err}
		l.c.skipped.Add(1)
		l.skips.add(s)
		metrics.RecordFile(l.cfg.Name, "skipped")
		log.Printf("loader: run=%s skipping %s: %v", l.cfg.Name, res.path, res.err)
		if l.OnSkip != nil {
			l.OnSkip(s)
		}
		return nil
	}

	l.c.ingested.Add(1)
	l.c.malformed.Add(int64(res.malformed))
	metrics.RecordFile(l.cfg.Name, "ingested")
	metrics.RecordRow(l.cfg.Name, "malformed", int64(res.malformed))
	if l.Verbose {
		log.Printf("loader: run=%s file=%s bytes=%s rows=%d malformed=%d xxh3=%016x",
			l.cfg.Name, res.path, humanize.Bytes(uint64(res.size)), res.set.Len(), res.malformed, res.sum)
	}
	return res.set
}

// flush reconciles batch into one wide record set and appends it to the
// run's table. An empty batch is a no-op.
func (l *Loader) flush(ctx context.Context, batch []*records.Set) error {
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	wide := schema.Reconcile(batch)
	err := l.sink.Append(ctx, l.cfg.Table, wide)
	metrics.RecordStep(l.cfg.Name, "flush", err, time.Since(start))
	n := l.c.flushes.Load() + 1
	if err != nil {
		return fmt.Errorf("flush batch %d (%d files) into %s: %w", n, len(batch), l.cfg.Table, err)
	}

	l.c.flushes.Add(1)
	total := l.c.rows.Add(int64(wide.Len()))
	metrics.RecordBatches(l.cfg.Name, 1)
	metrics.RecordRow(l.cfg.Name, "inserted", int64(wide.Len()))

	p := l.Progress()
	log.Printf("loader: run=%s batch=%d files=%d/%d columns=%d rows=%s total_rows=%s elapsed=%s",
		l.cfg.Name, n, p.Processed, p.Discovered, len(wide.Columns),
		humanize.Comma(int64(wide.Len())), humanize.Comma(total),
		time.Since(start).Truncate(time.Millisecond))
	return nil
}

// hashReader fingerprints and counts the bytes the parser consumes.
type hashReader struct {
	r io.Reader
	h *xxh3.Hasher
	n int64
}

func (r *hashReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		_, _ = r.h.Write(p[:n])
		r.n += int64(n)
	}
	return n, err
}
