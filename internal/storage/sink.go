package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bronze/internal/ddl"
	"bronze/internal/records"
)

// Defaults for SinkOptions zero values.
const (
	DefaultCopyRows      = 10000
	DefaultRetryAttempts = 3
	DefaultRetryInitial  = 200 * time.Millisecond
)

// SinkOptions tunes how a TableSink writes.
type SinkOptions struct {
	// CopyRows caps the rows sent to the backend per CopyFrom call.
	CopyRows int
	// RetryAttempts is the total number of tries per chunk, first included.
	RetryAttempts int
	// RetryInitial is the first backoff interval between tries.
	RetryInitial time.Duration
}

func (o SinkOptions) withDefaults() SinkOptions {
	if o.CopyRows <= 0 {
		o.CopyRows = DefaultCopyRows
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = DefaultRetryInitial
	}
	return o
}

// TableSink appends bronze record sets to tables of a Repository. Tables are
// created on first use with one text column per record column; columns that
// appear later are added with ALTER TABLE. All columns are nullable so rows
// from narrower files land with NULLs.
//
// TableSink is safe for concurrent use. Schema changes are serialized; copies
// are not.
type TableSink struct {
	repo    Repository
	dialect ddl.Dialect
	opt     SinkOptions

	mu    sync.Mutex
	known map[string]map[string]struct{} // table -> column keys
}

// NewTableSink returns a sink writing through repo with the given dialect.
func NewTableSink(repo Repository, d ddl.Dialect, opt SinkOptions) *TableSink {
	return &TableSink{
		repo:    repo,
		dialect: d,
		opt:     opt.withDefaults(),
		known:   make(map[string]map[string]struct{}),
	}
}

// Append writes the rows of set into table. The table is created or widened
// first, so an empty set with columns still materializes the table.
func (s *TableSink) Append(ctx context.Context, table string, set *records.Set) error {
	if set == nil || len(set.Columns) == 0 {
		return nil
	}
	set = s.foldColumns(table, set)
	if err := s.ensureColumns(ctx, table, set.Columns); err != nil {
		return err
	}
	if set.Len() == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, s.opt.CopyRows)
	go func() {
		defer close(in)
		for _, row := range set.Rows {
			vals := make([]any, len(row))
			for j, v := range row {
				vals[j] = v.Any()
			}
			select {
			case in <- vals:
			case <-ctx.Done():
				return
			}
		}
	}()

	n, err := LoadBatches(ctx, set.Columns, in, s.opt.CopyRows,
		func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
			return s.copyWithRetry(ctx, table, cols, rows)
		})
	if err != nil {
		return fmt.Errorf("append to %s (%d of %d rows written): %w", table, n, set.Len(), err)
	}
	if n != int64(set.Len()) {
		return fmt.Errorf("append to %s: backend reported %d rows, want %d", table, n, set.Len())
	}
	return nil
}

// DropTable drops table if it exists and forgets its cached columns.
func (s *TableSink) DropTable(ctx context.Context, table string) error {
	stmt, err := s.dialect.BuildDropTableSQL(table)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	delete(s.known, table)
	return nil
}

// ensureColumns creates table or adds the columns it lacks.
func (s *TableSink) ensureColumns(ctx context.Context, table string, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known, ok := s.known[table]
	if !ok {
		existing, err := s.repo.Columns(ctx, table)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		if len(existing) == 0 {
			return s.createLocked(ctx, table, columns)
		}
		known = make(map[string]struct{}, len(existing))
		for _, c := range existing {
			known[s.dialect.ColumnKey(c)] = struct{}{}
		}
		s.known[table] = known
	}

	for _, col := range columns {
		key := s.dialect.ColumnKey(col)
		if _, ok := known[key]; ok {
			continue
		}
		stmt, err := s.dialect.BuildAddColumnSQL(table, ddl.ColumnDef{Name: col, SQLType: s.dialect.TextType, Nullable: true})
		if err != nil {
			return err
		}
		if err := s.repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("add column %q to %s: %w", col, table, err)
		}
		known[key] = struct{}{}
		log.Printf("sink: added column %q to %s", col, table)
	}
	return nil
}

func (s *TableSink) createLocked(ctx context.Context, table string, columns []string) error {
	stmt, err := s.dialect.BuildCreateTableSQL(ddl.TableDef{FQN: table, Columns: s.dialect.TextColumns(columns)})
	if err != nil {
		return err
	}
	if err := s.repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[s.dialect.ColumnKey(c)] = struct{}{}
	}
	s.known[table] = known
	log.Printf("sink: created table %s with %d columns", table, len(columns))
	return nil
}

// foldColumns drops the columns of set that a case-insensitive backend
// would see as duplicates. The leftmost spelling wins, like a repeated
// header; later ones are logged and dropped with their data.
func (s *TableSink) foldColumns(table string, set *records.Set) *records.Set {
	if !s.dialect.CaseInsensitive {
		return set
	}
	seen := make(map[string]string, len(set.Columns))
	keep := make([]int, 0, len(set.Columns))
	for i, c := range set.Columns {
		k := s.dialect.ColumnKey(c)
		if prev, dup := seen[k]; dup {
			log.Printf("sink: table %s: column %q dropped: collides with %q on %s", table, c, prev, s.dialect.Name)
			continue
		}
		seen[k] = c
		keep = append(keep, i)
	}
	if len(keep) == len(set.Columns) {
		return set
	}

	out := &records.Set{Columns: make([]string, len(keep)), Rows: make([][]records.Value, len(set.Rows))}
	for j, i := range keep {
		out.Columns[j] = set.Columns[i]
	}
	for r, row := range set.Rows {
		vals := make([]records.Value, len(keep))
		for j, i := range keep {
			if i < len(row) {
				vals[j] = row[i]
			}
		}
		out.Rows[r] = vals
	}
	return out
}

// copyWithRetry sends one chunk, retrying transient failures with
// exponential backoff. Each try is a whole transaction on the backend, so a
// failed try leaves nothing behind.
func (s *TableSink) copyWithRetry(ctx context.Context, table string, cols []string, rows [][]any) (int64, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opt.RetryInitial
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.opt.RetryAttempts-1)), ctx)

	op := func() (int64, error) {
		n, err := s.repo.CopyFrom(ctx, table, cols, rows)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return 0, backoff.Permanent(err)
		default:
			return 0, err
		}
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("sink: copy into %s failed, retrying in %s: %v", table, wait.Truncate(time.Millisecond), err)
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}
