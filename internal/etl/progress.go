package etl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	pcsv "bronze/internal/parser/csv"
)

// Progress is a point-in-time snapshot of a run's counters.
type Progress struct {
	Discovered int64 // files returned by discovery
	Processed  int64 // files attempted, ingested or skipped
	Ingested   int64 // files added to a batch
	Skipped    int64 // files skipped as recoverable failures
	Malformed  int64 // rows dropped by the parser inside ingested files
	Flushes    int64 // successful sink writes
	Rows       int64 // rows written to the sink
}

// counters holds the run statistics. Fields are updated atomically so
// Progress can be called from any goroutine while the run is in flight.
type counters struct {
	discovered atomic.Int64
	processed  atomic.Int64
	ingested   atomic.Int64
	skipped    atomic.Int64
	malformed  atomic.Int64
	flushes    atomic.Int64
	rows       atomic.Int64
}

func (c *counters) snapshot() Progress {
	return Progress{
		Discovered: c.discovered.Load(),
		Processed:  c.processed.Load(),
		Ingested:   c.ingested.Load(),
		Skipped:    c.skipped.Load(),
		Malformed:  c.malformed.Load(),
		Flushes:    c.flushes.Load(),
		Rows:       c.rows.Load(),
	}
}

// skipAgg aggregates skip causes by class and keeps the first few messages
// for the end-of-run summary.
type skipAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newSkipAgg(limit int) *skipAgg {
	return &skipAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *skipAgg) add(s Skip) {
	a.mu.Lock()
	a.buckets[SkipReason(s.Err)]++
	if a.count < a.limit {
		a.first = append(a.first, s.Error())
	}
	a.count++
	a.mu.Unlock()
}

func (a *skipAgg) log(run string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	reasons := make([]string, 0, len(a.buckets))
	for r := range a.buckets {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		log.Printf("loader: run=%s skipped reason=%s files=%d", run, r, a.buckets[r])
	}
	for i, s := range a.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
	if a.count > len(a.first) {
		log.Printf("  ... and %d more", a.count-len(a.first))
	}
}

// SkipReason classifies a skip cause into a short label used in logs,
// metrics and the skip report.
func SkipReason(err error) string {
	var pe *os.PathError
	switch {
	case errors.Is(err, ErrEmptyFile):
		return "empty"
	case errors.Is(err, pcsv.ErrNoHeader):
		return "no_header"
	case errors.Is(err, os.ErrNotExist):
		return "missing"
	case errors.Is(err, os.ErrPermission):
		return "permission"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &pe):
		return "io"
	case err == nil:
		return "none"
	default:
		return "parse"
	}
}

func (p Progress) String() string {
	return fmt.Sprintf("files=%d/%d ingested=%d skipped=%d rows=%d flushes=%d",
		p.Processed, p.Discovered, p.Ingested, p.Skipped, p.Rows, p.Flushes)
}
