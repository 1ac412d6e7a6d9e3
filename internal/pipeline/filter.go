package pipeline

import (
	"errors"
	"fmt"

	"permitnorm/internal/table"
	"permitnorm/internal/util"
)

var ErrUnknownColumn = errors.New("unknown column")

// FilterRows keeps the rows whose value in column is one of keep, compared
// on trimmed lower-case text. It returns the filtered table and the number
// of rows removed.
func FilterRows(t *table.Table, column string, keep ...string) (*table.Table, int, error) {
	if !t.Has(column) {
		return nil, 0, fmt.Errorf("filter %q: %w", column, ErrUnknownColumn)
	}
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[util.NormalizeKey(k)] = true
	}
	out := t.Filter(func(r int) bool {
		return allowed[util.NormalizeKey(t.Value(r, column))]
	})
	return out, t.Len() - out.Len(), nil
}
