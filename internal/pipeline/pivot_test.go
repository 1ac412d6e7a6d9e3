package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitnorm/internal/table"
)

var longHeader = []string{ColPermitID, ColAddress, ColPermitStatus, ColStatusLast, ColDateLast, ColNotesLast}

func TestPivotOrdersChronologically(t *testing.T) {
	failed := []string{"P1", "1 Main", "issued", "failed", "2023-03-01", "third"}
	passed := []string{"P1", "2 Main", "issued", "passed", "2023-01-01", "first"}
	canceled := []string{"P1", "3 Main", "issued", "canceled", "2023-02-01", "second"}

	orders := []struct {
		name string
		rows [][]string
	}{
		{"failed passed canceled", [][]string{failed, passed, canceled}},
		{"failed canceled passed", [][]string{failed, canceled, passed}},
		{"passed failed canceled", [][]string{passed, failed, canceled}},
		{"passed canceled failed", [][]string{passed, canceled, failed}},
		{"canceled failed passed", [][]string{canceled, failed, passed}},
		{"canceled passed failed", [][]string{canceled, passed, failed}},
	}
	for _, tc := range orders {
		t.Run(tc.name, func(t *testing.T) {
			tb := table.FromRows(longHeader, tc.rows)
			require.True(t, NeedsPivot(tb))

			res := PivotInspections(tb, PivotSlots)

			require.Equal(t, 1, res.Table.Len())
			assert.Equal(t, "last", res.Source)
			assert.Equal(t, 3, res.Events)
			out := res.Table
			// permit columns come from the first row seen
			assert.Equal(t, tc.rows[0][1], out.Value(0, ColAddress))
			assert.Equal(t, "passed", out.Value(0, StatusCol(1)))
			assert.Equal(t, "2023-01-01", out.Value(0, DateCol(1)))
			assert.Equal(t, "first", out.Value(0, NotesCol(1)))
			assert.Equal(t, "canceled", out.Value(0, StatusCol(2)))
			assert.Equal(t, "2023-02-01", out.Value(0, DateCol(2)))
			assert.Equal(t, "failed", out.Value(0, StatusCol(3)))
			assert.Equal(t, "2023-03-01", out.Value(0, DateCol(3)))
			assert.Equal(t, "third", out.Value(0, NotesCol(3)))
			assert.Equal(t, "", out.Value(0, StatusCol(4)))
			assert.Equal(t, append(append([]string{}, PermitColumns...), SlotColumns(PivotSlots)...), out.Columns())
		})
	}
}

func TestPivotMixedDateFormatsAndTies(t *testing.T) {
	tb := table.FromRows(longHeader, [][]string{
		{"P1", "", "", "b", "2/1/2023", ""},
		{"P1", "", "", "a", "2023-01-15", ""},
		{"P1", "", "", "c", "2023-02-01", ""},
	})
	out := PivotInspections(tb, PivotSlots).Table
	assert.Equal(t, "a", out.Value(0, StatusCol(1)))
	assert.Equal(t, "b", out.Value(0, StatusCol(2)))
	assert.Equal(t, "c", out.Value(0, StatusCol(3)))
}

func TestPivotOneRowPerPermit(t *testing.T) {
	tb := table.FromRows(longHeader, [][]string{
		{"P2", "", "", "passed", "2023-01-01", ""},
		{"P1", "", "", "", "", ""},
		{"P2", "", "", "failed", "", "undated"},
		{"P3", "", "", "failed", "2023-01-01", ""},
		{"P1", "", "", "", "", ""},
	})

	res := PivotInspections(tb, PivotSlots)

	require.Equal(t, 3, res.Table.Len())
	assert.Equal(t, []string{"P2", "P1", "P3"}, column(t, res.Table, ColPermitID))
	assert.Equal(t, "", res.Table.Value(1, StatusCol(1)))
	assert.Equal(t, 1, res.Undated)
	assert.Equal(t, 2, res.Events)
}

func TestPivotDropsOverflow(t *testing.T) {
	var records [][]string
	for i := 11; i >= 1; i-- {
		records = append(records, []string{"P1", "", "", fmt.Sprintf("s%d", i), fmt.Sprintf("2023-01-%02d", i), ""})
	}
	res := PivotInspections(table.FromRows(longHeader, records), PivotSlots)

	assert.Equal(t, 3, res.Dropped)
	assert.Equal(t, "s1", res.Table.Value(0, StatusCol(1)))
	assert.Equal(t, "s8", res.Table.Value(0, StatusCol(8)))
	assert.False(t, res.Table.Has(StatusCol(9)))
}

func TestPivotPrefersFirstSlotTriple(t *testing.T) {
	tb := table.FromRows([]string{ColPermitID, StatusCol(1), DateCol(1), NotesCol(1), ColStatusLast, ColDateLast}, [][]string{
		{"P1", "failed", "2023-05-01", "n2", "x", "1999-01-01"},
		{"P1", "passed", "2023-04-01", "n1", "y", "1999-01-02"},
	})
	res := PivotInspections(tb, PivotSlots)
	assert.Equal(t, "1", res.Source)
	assert.Equal(t, "passed", res.Table.Value(0, StatusCol(1)))
	assert.Equal(t, "failed", res.Table.Value(0, StatusCol(2)))
}

func TestNeedsPivot(t *testing.T) {
	cases := []struct {
		name string
		tb   *table.Table
		want bool
	}{
		{
			name: "unique ids",
			tb:   table.FromRows(longHeader, [][]string{{"P1", "", "", "passed", "", ""}, {"P2", "", "", "passed", "", ""}}),
		},
		{
			name: "no inspection data",
			tb:   table.FromRows(longHeader, [][]string{{"P1", "", "", "", "", ""}, {"P1", "", "", "", "", ""}}),
		},
		{
			name: "long format",
			tb:   table.FromRows(longHeader, [][]string{{"P1", "", "", "", "2023-01-01", ""}, {"P1", "", "", "", "", ""}}),
			want: true,
		},
		{
			name: "no permit id",
			tb:   table.FromRows([]string{ColStatusLast}, [][]string{{"passed"}, {"passed"}}),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NeedsPivot(tc.tb))
		})
	}
}
