package schema

import "bronze/internal/records"

// Plan maps each source column name to its output name.
type Plan map[string]string

// Normalize builds the rename plan for columns. Every column maps to exactly
// one output name: the table's value when the column is a key of renames,
// otherwise the column itself. A nil or empty table yields the identity plan.
func Normalize(columns []string, renames RenameTable) Plan {
	p := make(Plan, len(columns))
	for _, c := range columns {
		if to, ok := renames[c]; ok && to != "" {
			p[c] = to
			continue
		}
		p[c] = c
	}
	return p
}

// Target returns the output name for column c; unknown columns map to
// themselves.
func (p Plan) Target(c string) string {
	if to, ok := p[c]; ok {
		return to
	}
	return c
}

// IsIdentity reports whether p renames nothing.
func (p Plan) IsIdentity() bool {
	for from, to := range p {
		if from != to {
			return false
		}
	}
	return true
}

// Collision describes a source column dropped because an earlier column
// already produced the same output name.
type Collision struct {
	Column string // dropped source column
	Target string // output name both columns map to
	Winner string // earlier source column that kept Target
}

// Collisions lists the columns Apply would drop, in column order.
//
// Collisions are resolved first-wins by position: the leftmost column that
// produces an output name keeps it, and every later column producing the same
// name is dropped together with its data. This also covers files with a
// repeated header.
func (p Plan) Collisions(columns []string) []Collision {
	var out []Collision
	owner := make(map[string]string, len(columns))
	for _, c := range columns {
		to := p.Target(c)
		if w, taken := owner[to]; taken {
			out = append(out, Collision{Column: c, Target: to, Winner: w})
			continue
		}
		owner[to] = c
	}
	return out
}

// Apply returns raw with its columns renamed by p. Colliding columns are
// resolved first-wins (see Collisions), so the result may have fewer
// columns than raw. raw is not modified; rows are copied only when a column
// is dropped.
func (p Plan) Apply(raw *records.Raw) *records.Raw {
	if raw == nil {
		return nil
	}
	cols := make([]string, 0, len(raw.Columns))
	keep := make([]int, 0, len(raw.Columns))
	seen := make(map[string]struct{}, len(raw.Columns))
	for i, c := range raw.Columns {
		to := p.Target(c)
		if _, dup := seen[to]; dup {
			continue
		}
		seen[to] = struct{}{}
		cols = append(cols, to)
		keep = append(keep, i)
	}

	if len(keep) == len(raw.Columns) {
		return &records.Raw{Columns: cols, Rows: raw.Rows}
	}

	rows := make([][]any, len(raw.Rows))
	for r, row := range raw.Rows {
		vals := make([]any, len(keep))
		for j, i := range keep {
			if i < len(row) {
				vals[j] = row[i]
			}
		}
		rows[r] = vals
	}
	return &records.Raw{Columns: cols, Rows: rows}
}
