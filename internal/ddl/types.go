package ddl

// ColumnDef is one column of a table as the dialect builders render it.
// Name is unquoted; the dialect quotes it. Bronze tables only ever use
// nullable text columns (see Dialect.TextColumns), but the builders accept
// NOT NULL, defaults and primary keys for callers that need them.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef is a table to create. FQN is "table" or "schema.table" and is
// quoted per segment at render time.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
