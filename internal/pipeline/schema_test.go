package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitnorm/internal/table"
)

func TestEnforceSchemaShapesAnyInput(t *testing.T) {
	inputs := map[string]*table.Table{
		"empty":     table.New(),
		"extras":    table.FromRows([]string{"zzz", ColAddress, "yyy"}, [][]string{{"1", "a st", "2"}}),
		"reordered": table.FromRows(append([]string{"junk"}, reverse(StandardColumns)...), [][]string{{"x"}}),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			out, _ := EnforceSchema(in, StandardColumns)
			assert.Equal(t, StandardColumns, out.Columns())
			assert.Equal(t, in.Len(), out.Len())
		})
	}
}

func TestEnforceSchemaKeepsValuesAndCollapsesDuplicates(t *testing.T) {
	in := table.FromRows([]string{"extra", ColPermitID, ColAddress}, [][]string{
		{"a", "P1", "1 Main"},
		{"b", "P1", "1 Main"},
		{"c", "P2", "2 Main"},
	})
	out, removed := EnforceSchema(in, StandardColumns)
	assert.Equal(t, 1, removed)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "2 Main", out.Value(1, ColAddress))
	assert.Equal(t, "", out.Value(1, ColFailedOnce))
	assert.Len(t, StandardColumns, 43)
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
