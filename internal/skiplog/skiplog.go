// Package skiplog writes the per-file skip report of an ingestion invocation
// as CSV and keeps per-reason counts for the end-of-run summary.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Header is the first row of every skip report.
var Header = []string{"run_id", "run", "path", "reason", "detail"}

// Stats records skipped files. A nil *Stats is valid and only discards.
// Methods are safe for concurrent use.
type Stats struct {
	mu      sync.Mutex
	runID   string
	reasons map[string]int
	w       *csv.Writer
	f       *os.File
}

// NewSkipStats creates (or truncates) the CSV report at path, creating parent
// directories as needed, and writes the header. The returned cleanup flushes
// and closes the file; it is safe to call more than once.
func NewSkipStats(path, runID string) (*Stats, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("skiplog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("skiplog: open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("skiplog: write header: %w", err)
	}
	s := &Stats{runID: runID, reasons: make(map[string]int), w: w, f: f}
	return s, s.close, nil
}

// Add records one skipped file.
func (s *Stats) Add(run, path, reason, detail string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons[reason]++
	if s.w != nil {
		_ = s.w.Write([]string{s.runID, run, path, reason, detail})
	}
}

// Reasons returns a copy of the per-reason counts.
func (s *Stats) Reasons() map[string]int {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.reasons))
	for k, v := range s.reasons {
		out[k] = v
	}
	return out
}

// Summary renders the counts as "reason=n" pairs sorted by reason.
func (s *Stats) Summary() []string {
	r := s.Reasons()
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s=%d", k, r[k])
	}
	return out
}

func (s *Stats) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	err := s.w.Error()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f, s.w = nil, nil
	return err
}
