// Package table holds the in-memory tabular structure passed between the
// loaders, the normalization pipeline and the writers: an ordered list of
// named columns, every column holding one string value per row.
package table

import (
	"errors"
	"fmt"
	"strings"
)

var ErrLengthMismatch = errors.New("column length does not match table length")

// Table is column-major. Blank and null are the same thing: "".
type Table struct {
	names []string
	index map[string]int
	cols  [][]string
	rows  int
}

// New returns an empty table with the given columns. Repeated names keep
// only their first occurrence.
func New(columns ...string) *Table {
	t := &Table{index: map[string]int{}}
	for _, name := range columns {
		if _, ok := t.index[name]; ok {
			continue
		}
		t.index[name] = len(t.names)
		t.names = append(t.names, name)
		t.cols = append(t.cols, nil)
	}
	return t
}

// FromRows builds a table from a header and row-major records. Short records
// are padded with blanks, cells past the header width are dropped.
func FromRows(header []string, records [][]string) *Table {
	t := New(header...)
	for _, rec := range records {
		t.appendAligned(header, rec)
	}
	return t
}

func (t *Table) appendAligned(header []string, rec []string) {
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if seen[name] {
			continue
		}
		seen[name] = true
		v := ""
		if i < len(rec) {
			v = rec[i]
		}
		idx := t.index[name]
		t.cols[idx] = append(t.cols[idx], v)
	}
	t.rows++
}

func (t *Table) Len() int { return t.rows }

func (t *Table) Width() int { return len(t.names) }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// IndexOf returns the position of a column or -1.
func (t *Table) IndexOf(name string) int {
	if idx, ok := t.index[name]; ok {
		return idx
	}
	return -1
}

// Value returns the cell at row for column name; missing columns read as blank.
func (t *Table) Value(row int, name string) string {
	idx, ok := t.index[name]
	if !ok || row < 0 || row >= t.rows {
		return ""
	}
	return t.cols[idx][row]
}

// Set writes one cell. It is a no-op for unknown columns or rows.
func (t *Table) Set(row int, name, value string) {
	idx, ok := t.index[name]
	if !ok || row < 0 || row >= t.rows {
		return
	}
	t.cols[idx][row] = value
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, t.rows)
	copy(out, t.cols[idx])
	return out, true
}

// SetColumn replaces the values of a column, appending it at the end when
// it does not exist yet.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != t.rows {
		return fmt.Errorf("%w: column %q has %d values, table has %d rows", ErrLengthMismatch, name, len(values), t.rows)
	}
	col := make([]string, len(values))
	copy(col, values)
	if idx, ok := t.index[name]; ok {
		t.cols[idx] = col
		return nil
	}
	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	t.cols = append(t.cols, col)
	return nil
}

// Ensure appends a blank column when name is missing and reports whether it
// had to create it.
func (t *Table) Ensure(name string) bool {
	if t.Has(name) {
		return false
	}
	_ = t.SetColumn(name, make([]string, t.rows))
	return true
}

// Fill sets every row of a column to value, creating the column if needed.
func (t *Table) Fill(name, value string) {
	col := make([]string, t.rows)
	for i := range col {
		col[i] = value
	}
	_ = t.SetColumn(name, col)
}

func (t *Table) Drop(name string) {
	idx, ok := t.index[name]
	if !ok {
		return
	}
	t.names = append(t.names[:idx], t.names[idx+1:]...)
	t.cols = append(t.cols[:idx], t.cols[idx+1:]...)
	t.reindex()
}

// Reorder sets the column order. Names in order that do not exist are
// ignored; existing columns not named keep their relative order after the
// named ones.
func (t *Table) Reorder(order []string) {
	names := make([]string, 0, len(t.names))
	cols := make([][]string, 0, len(t.cols))
	placed := map[string]bool{}
	for _, name := range order {
		idx, ok := t.index[name]
		if !ok || placed[name] {
			continue
		}
		placed[name] = true
		names = append(names, name)
		cols = append(cols, t.cols[idx])
	}
	for i, name := range t.names {
		if placed[name] {
			continue
		}
		names = append(names, name)
		cols = append(cols, t.cols[i])
	}
	t.names = names
	t.cols = cols
	t.reindex()
}

// MoveBefore moves the given columns, in the given order, so that they sit
// immediately before anchor. It reports false and appends them at the end
// when anchor is missing.
func (t *Table) MoveBefore(anchor string, moved ...string) bool {
	return t.move(anchor, 0, moved)
}

// MoveAfter is MoveBefore for the slot immediately after anchor.
func (t *Table) MoveAfter(anchor string, moved ...string) bool {
	return t.move(anchor, 1, moved)
}

func (t *Table) move(anchor string, offset int, moved []string) bool {
	skip := map[string]bool{}
	present := make([]string, 0, len(moved))
	for _, name := range moved {
		if t.Has(name) && !skip[name] {
			skip[name] = true
			present = append(present, name)
		}
	}
	rest := make([]string, 0, len(t.names))
	for _, name := range t.names {
		if !skip[name] {
			rest = append(rest, name)
		}
	}
	at := -1
	for i, name := range rest {
		if name == anchor {
			at = i + offset
			break
		}
	}
	found := at >= 0
	if !found {
		at = len(rest)
	}
	order := make([]string, 0, len(t.names))
	order = append(order, rest[:at]...)
	order = append(order, present...)
	order = append(order, rest[at:]...)
	t.Reorder(order)
	return found
}

// Select returns a new table with exactly the given columns in order;
// columns absent from t are created blank.
func (t *Table) Select(columns ...string) *Table {
	out := New(columns...)
	out.rows = t.rows
	for i, name := range out.names {
		col := make([]string, t.rows)
		if idx, ok := t.index[name]; ok {
			copy(col, t.cols[idx])
		}
		out.cols[i] = col
	}
	return out
}

// Row returns a copy of one row in column order.
func (t *Table) Row(row int) []string {
	out := make([]string, len(t.names))
	if row < 0 || row >= t.rows {
		return out
	}
	for i := range t.cols {
		out[i] = t.cols[i][row]
	}
	return out
}

// AppendRow adds a row given in column order; short rows are padded.
func (t *Table) AppendRow(values []string) {
	t.appendAligned(t.names, values)
}

// AppendRecord adds a row given by column name; unknown names are ignored.
func (t *Table) AppendRecord(record map[string]string) {
	for i, name := range t.names {
		t.cols[i] = append(t.cols[i], record[name])
	}
	t.rows++
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := New(t.names...)
	for r := 0; r < t.rows; r++ {
		if !keep(r) {
			continue
		}
		for i := range t.cols {
			out.cols[i] = append(out.cols[i], t.cols[i][r])
		}
		out.rows++
	}
	return out
}

// Concat appends the rows of other, matching columns by name. Columns other
// lacks are filled blank; columns only other has are ignored.
func (t *Table) Concat(other *Table) {
	for i, name := range t.names {
		idx, ok := other.index[name]
		if ok {
			t.cols[i] = append(t.cols[i], other.cols[idx]...)
			continue
		}
		t.cols[i] = append(t.cols[i], make([]string, other.rows)...)
	}
	t.rows += other.rows
}

// DropDuplicates removes rows identical in every column, keeping the first.
// It returns the number of rows removed.
func (t *Table) DropDuplicates() int {
	seen := make(map[string]struct{}, t.rows)
	keep := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		key := t.rowKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}
	removed := t.rows - len(keep)
	if removed > 0 {
		t.retain(keep)
	}
	return removed
}

// DropBlankRows removes rows that are blank in every column.
func (t *Table) DropBlankRows() int {
	keep := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		for i := range t.cols {
			if strings.TrimSpace(t.cols[i][r]) != "" {
				keep = append(keep, r)
				break
			}
		}
	}
	removed := t.rows - len(keep)
	if removed > 0 {
		t.retain(keep)
	}
	return removed
}

// Replace rewrites every cell for which fn returns true.
func (t *Table) Replace(fn func(value string) (string, bool)) int {
	changed := 0
	for i := range t.cols {
		for r, v := range t.cols[i] {
			if nv, ok := fn(v); ok {
				t.cols[i][r] = nv
				changed++
			}
		}
	}
	return changed
}

// IsBlank reports whether a column is missing or blank in every row.
func (t *Table) IsBlank(name string) bool {
	idx, ok := t.index[name]
	if !ok {
		return true
	}
	for _, v := range t.cols[idx] {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Distinct returns the distinct values of a column in first-seen order.
func (t *Table) Distinct(name string) []string {
	idx, ok := t.index[name]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, v := range t.cols[idx] {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return t.Select(t.names...)
}

// Records returns the rows in row-major form, header excluded.
func (t *Table) Records() [][]string {
	out := make([][]string, t.rows)
	for r := range out {
		out[r] = t.Row(r)
	}
	return out
}

func (t *Table) rowKey(r int) string {
	var b strings.Builder
	for i := range t.cols {
		v := t.cols[i][r]
		fmt.Fprintf(&b, "%d:%s|", len(v), v)
	}
	return b.String()
}

func (t *Table) retain(rows []int) {
	for i := range t.cols {
		col := make([]string, len(rows))
		for j, r := range rows {
			col[j] = t.cols[i][r]
		}
		t.cols[i] = col
	}
	t.rows = len(rows)
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.names))
	for i, name := range t.names {
		t.index[name] = i
	}
}
