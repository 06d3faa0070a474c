// Package table implements the sparse tabular representation produced by
// the export operations: flat rows with dynamically discovered columns,
// merged across pages with union-of-columns semantics.
package table

import (
	"sort"
)

// Row is one flattened record. Rows are sparse: a column absent from the
// map means the record had no value there.
type Row map[string]any

// Table is an ordered sequence of rows with a unified column set.
// Columns is the union of every contributing row's keys; a column appears
// once, in the order it was first observed.
type Table struct {
	Columns []string
	Rows    []Row
}

// New builds a table from rows, deriving the column union.
// Keys within a row are visited in sorted order so the derived column
// order is deterministic.
func New(rows ...Row) Table {
	t := Table{Rows: rows}
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
	}
	return t
}

// Merge concatenates tables in order into a single table. The column set is
// the union over all inputs, preserving each input's column order and the
// order of the inputs themselves. Rows lacking a column stay sparse there.
func Merge(tables ...Table) Table {
	var merged Table
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, col := range t.Columns {
			if !seen[col] {
				seen[col] = true
				merged.Columns = append(merged.Columns, col)
			}
		}
		merged.Rows = append(merged.Rows, t.Rows...)
	}
	return merged
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Cell returns the value at a row/column position. The second return value
// is false when the row has no value for that column.
func (t Table) Cell(row int, column string) (any, bool) {
	if row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	v, ok := t.Rows[row][column]
	return v, ok
}

// HasColumn reports whether the table's column set contains the column.
func (t Table) HasColumn(column string) bool {
	for _, col := range t.Columns {
		if col == column {
			return true
		}
	}
	return false
}
