// Package ddl holds the Postgres DDL dialect: double-quoted identifiers,
// CREATE TABLE IF NOT EXISTS and ADD COLUMN IF NOT EXISTS, so every
// statement the sink issues is safe to repeat.
package ddl

import (
	"strings"

	gddl "bronze/internal/ddl"
)

// Dialect is registered for storage.kind "postgres".
var Dialect = gddl.Dialect{
	Name:        "postgres",
	TextType:    "TEXT",
	QuoteIdent:  quoteIdent,
	CreateTable: "CREATE TABLE IF NOT EXISTS %[1]s (\n  %[2]s\n);",
	AddColumn:   "ALTER TABLE %[1]s ADD COLUMN IF NOT EXISTS %[2]s;",
	DropTable:   "DROP TABLE IF EXISTS %[1]s;",
}

// quoteIdent safely quotes a single identifier segment for Postgres.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
