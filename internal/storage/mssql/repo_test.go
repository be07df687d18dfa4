package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
)

// TestCopyFromEmptyRows verifies that CopyFrom short-circuits when no rows
// are provided and does not require a live database connection.
func TestCopyFromEmptyRows(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	got, err := r.CopyFrom(context.Background(), "dbo.raw_sales", []string{"store_id"}, nil)
	if err != nil || got != 0 {
		t.Fatalf("CopyFrom(nil rows) = %d, %v; want 0, nil", got, err)
	}
}

func TestSplitSchema(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, schema, table string
	}{
		{"raw_sales", "", "raw_sales"},
		{"dbo.raw_sales", "dbo", "raw_sales"},
		{"greengrocer.bronze.raw_sales", "bronze", "raw_sales"},
		{"dbo..raw_sales", "dbo", "raw_sales"},
	}
	for _, tc := range cases {
		s, tbl := splitSchema(tc.in)
		if s != tc.schema || tbl != tc.table {
			t.Errorf("splitSchema(%q) = %q, %q; want %q, %q", tc.in, s, tbl, tc.schema, tc.table)
		}
	}
}

// --- Test driver plumbing for exercising the repository without a real DB --

type errDriver struct{}

type errConn struct{}

func (d *errDriver) Open(name string) (driver.Conn, error) {
	return &errConn{}, nil
}

func (c *errConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("unexpected Prepare call")
}

func (c *errConn) Close() error { return nil }

func (c *errConn) Begin() (driver.Tx, error) {
	return nil, errors.New("begin (legacy) should not be called")
}

// BeginTx always fails, to exercise the error path in Repository.CopyFrom.
func (c *errConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New("begin failed")
}

// ExecContext always fails, to exercise the error path in Repository.Exec.
func (c *errConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return nil, errors.New("exec failed")
}

// QueryContext always fails, to exercise the error path in Repository.Columns.
func (c *errConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return nil, errors.New("query failed")
}

var (
	testDriverOnce sync.Once
	testDriverName = "mssql_test_err"
)

// openErrDB registers and opens a test driver whose every call fails.
func openErrDB(t *testing.T) *sql.DB {
	t.Helper()

	testDriverOnce.Do(func() {
		sql.Register(testDriverName, &errDriver{})
	})
	db, err := sql.Open(testDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open(%q) error = %v", testDriverName, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRepository_DriverErrors(t *testing.T) {
	t.Parallel()

	r := &Repository{db: openErrDB(t)}
	ctx := context.Background()

	if err := r.Exec(ctx, "SELECT 1"); err == nil || !strings.Contains(err.Error(), "exec failed") {
		t.Fatalf("Exec() error = %v, want driver error", err)
	}

	n, err := r.CopyFrom(ctx, "dbo.raw_sales", []string{"store_id", "quantity"}, [][]any{{"STORE_001", "3"}})
	if err == nil || n != 0 {
		t.Fatalf("CopyFrom() = %d, %v; want 0 and an error", n, err)
	}
	if !strings.Contains(err.Error(), "begin tx:") {
		t.Fatalf("CopyFrom() error = %q, want it wrapped with 'begin tx:'", err)
	}

	if _, err := r.Columns(ctx, "dbo.raw_sales"); err == nil || !strings.Contains(err.Error(), "columns of dbo.raw_sales") {
		t.Fatalf("Columns() error = %v, want wrapped query error", err)
	}
}
