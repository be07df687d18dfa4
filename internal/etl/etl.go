// Package etl implements the bronze batch loader. A run discovers its input
// files, parses each one into a record set, renames drifted columns, casts
// every value to text and appends the sets to a sink table in batches.
//
// Failures are split in two classes. A file that cannot be opened or parsed
// is skipped and reported (Skip); the run continues. A sink write that fails
// aborts the run; earlier flushes stay committed and other runs still go.
package etl

import (
	"context"
	"errors"
	"fmt"

	"bronze/internal/records"
	"bronze/internal/schema"
)

// DefaultBatchSize is the number of record sets accumulated before a flush.
const DefaultBatchSize = 500

// ErrEmptyFile marks a zero-byte input file.
var ErrEmptyFile = errors.New("empty file")

// Sink is the write side of a run. Append adds the rows of set to table,
// creating the table or adding missing columns as needed. DropTable removes
// table and must succeed when it does not exist.
type Sink interface {
	Append(ctx context.Context, table string, set *records.Set) error
	DropTable(ctx context.Context, table string) error
}

// RunConfig describes one ingestion run: one logical source feeding one
// table.
type RunConfig struct {
	Name string

	// Pattern is a filepath.Glob pattern selecting the input files.
	Pattern string
	// FilesFrom, when set, names a list file (one path per line) used instead
	// of Pattern.
	FilesFrom string

	Table   string
	Renames schema.RenameTable

	// BatchSize is the flush threshold in record sets. <= 0 means
	// DefaultBatchSize.
	BatchSize int
	// Workers > 1 parses the files of a batch concurrently. Results are
	// still consumed in enumeration order.
	Workers int
}

func (c RunConfig) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

func (c RunConfig) source() string {
	if c.FilesFrom != "" {
		return c.FilesFrom
	}
	return c.Pattern
}

// Skip records an input file that was left out of a run.
type Skip struct {
	Path string
	Err  error
}

func (s Skip) Error() string { return fmt.Sprintf("skip %s: %v", s.Path, s.Err) }

func (s Skip) Unwrap() error { return s.Err }
