package trigalign

import (
	"fmt"
	"math"
	"sort"
)

// Table is an arena of named float64 columns sharing one row index. Cells can
// be absent (a stream with fewer channels, or an as-of merge that found no
// match), so each column carries an explicit presence slice. Column order is
// preserved: it becomes the column order of any CSV written from the table.
type Table struct {
	names []string
	cols  map[string][]float64
	valid map[string][]bool
	nrow  int
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		cols:  make(map[string][]float64),
		valid: make(map[string][]bool),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.nrow }

// ColumnNames returns the column names in order. The caller must not modify
// the returned slice.
func (t *Table) ColumnNames() []string { return t.names }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// SetColumn adds or replaces a column. If valid is nil, every cell is treated
// as present. The first column added fixes the table's row count.
func (t *Table) SetColumn(name string, values []float64, valid []bool) error {
	if len(t.names) > 0 && len(values) != t.nrow {
		return fmt.Errorf("column %q has %d rows, table has %d", name, len(values), t.nrow)
	}
	if valid != nil && len(valid) != len(values) {
		return fmt.Errorf("column %q has %d values but %d validity flags", name, len(values), len(valid))
	}
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	if _, exists := t.cols[name]; !exists {
		t.names = append(t.names, name)
	}
	t.cols[name] = values
	t.valid[name] = valid
	t.nrow = len(values)
	return nil
}

// Column returns the values of the named column. Absent cells hold NaN.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("no column named %q (have %v)", name, t.names)
	}
	return col, nil
}

// Valid returns the presence flags of the named column.
func (t *Table) Valid(name string) ([]bool, error) {
	v, ok := t.valid[name]
	if !ok {
		return nil, fmt.Errorf("no column named %q (have %v)", name, t.names)
	}
	return v, nil
}

// DropColumn removes the named column. Dropping a nonexistent column is an error.
func (t *Table) DropColumn(name string) error {
	if _, ok := t.cols[name]; !ok {
		return fmt.Errorf("no column named %q (have %v)", name, t.names)
	}
	delete(t.cols, name)
	delete(t.valid, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
	return nil
}

// SortAscending stably reorders all rows by increasing value of the named
// column. Absent cells in the sort column sort first.
func (t *Table) SortAscending(name string) error {
	key, ok := t.cols[name]
	if !ok {
		return fmt.Errorf("no column named %q (have %v)", name, t.names)
	}
	kvalid := t.valid[name]
	perm := make([]int, t.nrow)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		i, j := perm[a], perm[b]
		if !kvalid[i] {
			return kvalid[j]
		}
		if !kvalid[j] {
			return false
		}
		return key[i] < key[j]
	})
	for _, n := range t.names {
		col, valid := t.cols[n], t.valid[n]
		ncol := make([]float64, t.nrow)
		nvalid := make([]bool, t.nrow)
		for i, p := range perm {
			ncol[i] = col[p]
			nvalid[i] = valid[p]
		}
		t.cols[n], t.valid[n] = ncol, nvalid
	}
	return nil
}

// FillAbsent replaces every absent cell of the named column with the given
// value and marks it present.
func (t *Table) FillAbsent(name string, value float64) error {
	col, ok := t.cols[name]
	if !ok {
		return fmt.Errorf("no column named %q (have %v)", name, t.names)
	}
	valid := t.valid[name]
	for i := range col {
		if !valid[i] {
			col[i] = value
			valid[i] = true
		}
	}
	return nil
}

// CoerceInt rounds every present cell of the named column to the nearest
// integer value. Markers are inherently discrete; this undoes the float
// representation they acquire in transit.
func (t *Table) CoerceInt(name string) error {
	col, ok := t.cols[name]
	if !ok {
		return fmt.Errorf("no column named %q (have %v)", name, t.names)
	}
	valid := t.valid[name]
	for i := range col {
		if valid[i] {
			col[i] = math.Round(col[i])
		}
	}
	return nil
}

// Rows converts the table to one slice per row, with NaN in absent cells.
// Column order follows ColumnNames.
func (t *Table) Rows() [][]float64 {
	rows := make([][]float64, t.nrow)
	for i := range rows {
		row := make([]float64, len(t.names))
		for j, n := range t.names {
			if t.valid[n][i] {
				row[j] = t.cols[n][i]
			} else {
				row[j] = math.NaN()
			}
		}
		rows[i] = row
	}
	return rows
}

// TableFromRows builds a Table from per-row slices, the inverse of Rows.
// NaN cells are recorded as absent.
func TableFromRows(names []string, rows [][]float64) (*Table, error) {
	t := NewTable()
	for j, name := range names {
		col := make([]float64, len(rows))
		valid := make([]bool, len(rows))
		for i, row := range rows {
			if j >= len(row) {
				return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(names))
			}
			col[i] = row[j]
			valid[i] = !math.IsNaN(row[j])
		}
		if err := t.SetColumn(name, col, valid); err != nil {
			return nil, err
		}
	}
	return t, nil
}
