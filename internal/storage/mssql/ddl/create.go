// Package ddl holds the SQL Server DDL dialect.
//
// T-SQL has no CREATE TABLE IF NOT EXISTS, so creation and dropping are
// guarded with OBJECT_ID. Text columns are NVARCHAR(MAX) so any UTF-8 input
// survives, and identifiers use bracket quoting.
package ddl

import (
	"strings"

	gddl "bronze/internal/ddl"
)

// Dialect is registered for storage.kind "mssql".
var Dialect = gddl.Dialect{
	Name:            "mssql",
	TextType:        "NVARCHAR(MAX)",
	QuoteIdent:      quoteIdent,
	CaseInsensitive: true,
	CreateTable:     "IF OBJECT_ID(N'%[1]s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %[1]s (\n  %[2]s\n  );\nEND;",
	AddColumn:       "ALTER TABLE %[1]s ADD %[2]s;",
	DropTable:       "IF OBJECT_ID(N'%[1]s', N'U') IS NOT NULL DROP TABLE %[1]s;",
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
