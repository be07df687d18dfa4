package schema

import "bronze/internal/records"

// UnionColumns returns the ordered union of the column names of sets: columns
// appear in order of first appearance, scanning sets in order.
func UnionColumns(sets []*records.Set) []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, c := range s.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cols = append(cols, c)
		}
	}
	return cols
}

// Reconcile stacks sets into one wide set over UnionColumns(sets). Rows keep
// their order (set by set, row by row). A cell whose column is missing from
// the row's source set is records.Absent; no row is dropped or truncated.
func Reconcile(sets []*records.Set) *records.Set {
	cols := UnionColumns(sets)
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i
	}

	total := 0
	for _, s := range sets {
		total += s.Len()
	}

	out := &records.Set{Columns: cols, Rows: make([][]records.Value, 0, total)}
	for _, s := range sets {
		if s == nil {
			continue
		}
		// A repeated column inside one set keeps its first occurrence, the
		// same policy Plan.Apply uses.
		idx := make([]int, len(s.Columns))
		used := make(map[int]struct{}, len(s.Columns))
		for j, c := range s.Columns {
			idx[j] = -1
			if _, dup := used[pos[c]]; !dup {
				idx[j] = pos[c]
				used[pos[c]] = struct{}{}
			}
		}
		for _, row := range s.Rows {
			wide := make([]records.Value, len(cols))
			for j, v := range row {
				if j < len(idx) && idx[j] >= 0 {
					wide[idx[j]] = v
				}
			}
			out.Rows = append(out.Rows, wide)
		}
	}
	return out
}
