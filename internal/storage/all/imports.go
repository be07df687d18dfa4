// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories and DDL dialects with the storage package. After importing
// it the following storage kinds are available:
//
//   - "postgres" (bronze/internal/storage/postgres)
//   - "mssql"    (bronze/internal/storage/mssql)
//   - "mysql"    (bronze/internal/storage/mysql)
//   - "sqlite"   (bronze/internal/storage/sqlite)
//
// Typical usage in a wiring layer such as cmd/ingest:
//
//	import _ "bronze/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DSN})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//	d, err := storage.DialectFor(p.Storage.Kind)
//	sink := storage.NewTableSink(repo, d, storage.SinkOptions{})
package all

import (
	_ "bronze/internal/storage/mssql"
	_ "bronze/internal/storage/mysql"
	_ "bronze/internal/storage/postgres"
	_ "bronze/internal/storage/sqlite"
)
