package pipeline

import "permitnorm/internal/table"

// EnforceSchema returns a table with exactly the given columns in order.
// Missing columns are created blank, others are dropped, and rows that end
// up identical in every column collapse to one. The second result is the
// number of rows removed that way.
func EnforceSchema(t *table.Table, columns []string) (*table.Table, int) {
	out := t.Select(columns...)
	removed := out.DropDuplicates()
	return out, removed
}
