// Package records defines the in-memory shapes rows take on their way from an
// input file to the bronze tables.
//
// A Raw set is what a parser produces: ordered column names plus positional
// rows of loosely typed values. A Set is the bronze form of the same data:
// every cell is a Value, which is either text or an explicit absence. Sets are
// what get batched, reconciled and written to storage.
package records

// Value is a single bronze cell. The zero value is Absent.
//
// Absence is distinct from the empty string: an empty CSV field is Text(""),
// while a column that a row's source file never had is Absent and is written
// to storage as SQL NULL.
type Value struct {
	s     string
	valid bool
}

// Absent marks a cell with no value.
var Absent = Value{}

// Text returns a present Value holding s.
func Text(s string) Value { return Value{s: s, valid: true} }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return !v.valid }

// Text returns the text held by v and whether it is present.
func (v Value) Text() (string, bool) { return v.s, v.valid }

// String renders v for logs; Absent renders as "<absent>".
func (v Value) String() string {
	if !v.valid {
		return "<absent>"
	}
	return v.s
}

// Any returns v in the form database drivers expect: nil for Absent and a
// string otherwise.
func (v Value) Any() any {
	if !v.valid {
		return nil
	}
	return v.s
}

// Raw is a parsed record set before normalization and casting. Every row has
// len(Columns) values, aligned by position.
type Raw struct {
	Columns []string
	Rows    [][]any
}

// Set is a bronze record set. Every row has len(Columns) values, aligned by
// position.
type Set struct {
	Columns []string
	Rows    [][]Value
}

// Len returns the number of rows in s. A nil Set has no rows.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// AnyRows converts the rows of s into the [][]any form used by bulk loaders.
func (s *Set) AnyRows() [][]any {
	out := make([][]any, len(s.Rows))
	for i, row := range s.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v.Any()
		}
		out[i] = vals
	}
	return out
}
