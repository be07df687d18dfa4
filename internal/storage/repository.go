// Package storage contains the storage-agnostic contracts used by the bronze
// sink: the Repository a backend implements, a factory keyed on storage kind,
// a registry of per-kind DDL dialects, and the TableSink that appends record
// sets to tables through them.
package storage

import "context"

// Repository is the minimal surface a SQL backend provides. Table names are
// possibly schema-qualified ("bronze.raw_sales"); backends quote them.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns into table in one
	// transaction and returns the number of rows written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Columns returns the column names of table in ordinal order, or an
	// empty slice when the table does not exist.
	Columns(ctx context.Context, table string) ([]string, error)

	Close()
}
