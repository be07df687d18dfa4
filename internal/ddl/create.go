// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// the handful of statements the bronze sink needs: CREATE TABLE, ADD COLUMN
// and DROP TABLE.
//
// Backends describe their syntax with a Dialect (identifier quoting, the text
// column type and statement layouts); the builders here validate the model and
// do the rendering so every backend produces column definitions the same way.
// ColumnDef.Default is emitted as raw SQL; callers own its correctness.
package ddl

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect captures the syntax differences between SQL backends.
//
// The statement layouts are fmt templates: %[1]s is the quoted table name and
// %[2]s is the rendered column list (CreateTable) or a single column
// definition (AddColumn).
type Dialect struct {
	Name string

	// TextType is the column type used for untyped text columns.
	TextType string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string

	// CaseInsensitive reports whether the backend treats column names that
	// differ only in case as the same column.
	CaseInsensitive bool

	CreateTable string
	AddColumn   string
	DropTable   string
}

// Validate reports whether every field a builder needs is set.
func (d Dialect) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("ddl: dialect name is empty"))
	}
	if d.TextType == "" {
		errs = append(errs, fmt.Errorf("ddl: dialect %q has no text type", d.Name))
	}
	if d.QuoteIdent == nil {
		errs = append(errs, fmt.Errorf("ddl: dialect %q has no identifier quoting", d.Name))
	}
	if d.CreateTable == "" || d.AddColumn == "" || d.DropTable == "" {
		errs = append(errs, fmt.Errorf("ddl: dialect %q is missing a statement layout", d.Name))
	}
	return errors.Join(errs...)
}

// QuoteFQN quotes a possibly schema-qualified name segment by segment:
//
//	"public.raw_sales" -> "public"."raw_sales"   (postgres)
//	"dbo.raw_sales"    -> [dbo].[raw_sales]      (mssql)
//
// Empty segments are dropped.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// ColumnKey returns the key under which the backend considers a column name
// unique.
func (d Dialect) ColumnKey(name string) string {
	if d.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// TextColumns builds nullable columns of the dialect's text type, in order.
func (d Dialect) TextColumns(names []string) []ColumnDef {
	out := make([]ColumnDef, len(names))
	for i, n := range names {
		out[i] = ColumnDef{Name: n, SQLType: d.TextType, Nullable: true}
	}
	return out
}

// BuildCreateTableSQL renders the dialect's CREATE TABLE statement for t.
//
// Rules:
//
//   - t.FQN must be non-empty.
//   - At least one column is required, and each column needs a Name and SQLType.
//   - A column is rendered as <quoted name> <SQLType> [NOT NULL] [DEFAULT <Default>].
//   - Columns with PrimaryKey set are collected into a trailing
//     PRIMARY KEY (...) clause.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def, err := d.columnSQL(fqn, c)
		if err != nil {
			return "", err
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(strings.TrimSpace(c.Name)))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(d.CreateTable, d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// BuildAddColumnSQL renders the statement that adds column c to table.
// Primary keys cannot be added this way.
func (d Dialect) BuildAddColumnSQL(table string, c ColumnDef) (string, error) {
	fqn := strings.TrimSpace(table)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if c.PrimaryKey {
		return "", fmt.Errorf("%s ddl: cannot add primary key column %s to %s", d.Name, c.Name, fqn)
	}
	def, err := d.columnSQL(fqn, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(d.AddColumn, d.QuoteFQN(fqn), def), nil
}

// BuildDropTableSQL renders the statement that drops table if it exists.
func (d Dialect) BuildDropTableSQL(table string) (string, error) {
	fqn := strings.TrimSpace(table)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	return fmt.Sprintf(d.DropTable, d.QuoteFQN(fqn)), nil
}

func (d Dialect) columnSQL(table string, c ColumnDef) (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, table)
	}
	typ := strings.TrimSpace(c.SQLType)
	if typ == "" {
		return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
	}

	var sb strings.Builder
	sb.WriteString(d.QuoteIdent(name))
	sb.WriteByte(' ')
	sb.WriteString(typ)
	if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if def := strings.TrimSpace(c.Default); def != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(def)
	}
	return sb.String(), nil
}
