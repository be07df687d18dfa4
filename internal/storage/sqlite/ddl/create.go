// Package ddl holds the SQLite DDL dialect. SQLite has no
// ADD COLUMN IF NOT EXISTS, so callers check the schema before widening.
package ddl

import (
	"strings"

	gddl "bronze/internal/ddl"
)

// Dialect is registered for storage.kind "sqlite".
var Dialect = gddl.Dialect{
	Name:            "sqlite",
	TextType:        "TEXT",
	QuoteIdent:      quoteIdent,
	CaseInsensitive: true,
	CreateTable:     "CREATE TABLE IF NOT EXISTS %[1]s (\n  %[2]s\n);",
	AddColumn:       "ALTER TABLE %[1]s ADD COLUMN %[2]s;",
	DropTable:       "DROP TABLE IF EXISTS %[1]s;",
}

// quoteIdent wraps an identifier in double quotes, doubling embedded quotes.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
