// Package ddl holds the MySQL DDL dialect: backtick identifiers and LONGTEXT
// columns. Column names are case-insensitive in MySQL.
package ddl

import (
	"strings"

	gddl "bronze/internal/ddl"
)

// Dialect is registered for storage.kind "mysql".
var Dialect = gddl.Dialect{
	Name:            "mysql",
	TextType:        "LONGTEXT",
	QuoteIdent:      quoteIdent,
	CaseInsensitive: true,
	CreateTable:     "CREATE TABLE IF NOT EXISTS %[1]s (\n  %[2]s\n) DEFAULT CHARSET=utf8mb4;",
	AddColumn:       "ALTER TABLE %[1]s ADD COLUMN %[2]s;",
	DropTable:       "DROP TABLE IF EXISTS %[1]s;",
}

func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
