//go:build integration

package mssql

import (
	"context"
	"os"
	"testing"
	"time"

	"bronze/internal/records"
	"bronze/internal/storage"
	msddl "bronze/internal/storage/mssql/ddl"
)

// getTestDSN reads the MSSQL_TEST_DSN environment variable.
// If it is empty, the caller should skip the test.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestTableSinkIntegration creates, widens and drops a table on a real
// SQL Server through the generic sink.
func TestTableSinkIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	repo := &wrappedRepo{Repository: r, closeFn: closeFn}
	defer repo.Close()

	const table = "dbo.bronze_sink_integration"
	sink := storage.NewTableSink(repo, msddl.Dialect, storage.SinkOptions{})
	if err := sink.DropTable(ctx, table); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	defer sink.DropTable(ctx, table)

	sets := []*records.Set{
		{Columns: []string{"store_id"}, Rows: [][]records.Value{{records.Text("STORE_001")}}},
		{Columns: []string{"store_id", "quantity"}, Rows: [][]records.Value{{records.Text("STORE_002"), records.Text("3")}}},
	}
	for _, s := range sets {
		if err := sink.Append(ctx, table, s); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	cols, err := repo.Columns(ctx, table)
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 2 || cols[1] != "quantity" {
		t.Fatalf("Columns = %v, want [store_id quantity]", cols)
	}
}
