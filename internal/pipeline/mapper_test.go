package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitnorm/internal/table"
	"permitnorm/internal/vocab"
)

func TestMapColumnReplacesKnownAndKeepsUnknown(t *testing.T) {
	v := defaultVocab(t).Get(vocab.PermitStatus)
	tb := table.FromRows([]string{ColPermitStatus}, [][]string{
		{" Closed/Final "}, {"ACTIVE"}, {"pending"}, {"On Hold"}, {""}, {"on hold"}, {"On Hold"},
	})

	report := MapColumn(tb, ColPermitStatus, v)

	assert.Equal(t, []string{"finaled", "issued", "", "On Hold", "", "on hold", "On Hold"}, column(t, tb, ColPermitStatus))
	assert.False(t, report.Missing)
	assert.Equal(t, []string{"finaled", "issued", "On Hold", "on hold"}, report.Distinct)
	require.Len(t, report.Unmapped, 2)
	assert.Equal(t, ValueCount{Value: "On Hold", Count: 2}, report.Unmapped[0])
	assert.Equal(t, ValueCount{Value: "on hold", Count: 1}, report.Unmapped[1])
	assert.True(t, report.NeedsReview())
}

func TestMapColumnSuppressionKeepsRow(t *testing.T) {
	v := defaultVocab(t).Get(vocab.PermitStatus)
	tb := table.FromRows([]string{ColPermitID, ColPermitStatus}, [][]string{{"P1", "Pending"}})

	MapColumn(tb, ColPermitStatus, v)

	require.Equal(t, 1, tb.Len())
	assert.Equal(t, "", tb.Value(0, ColPermitStatus))
	assert.Equal(t, "P1", tb.Value(0, ColPermitID))
}

func TestMapColumnIsIdempotent(t *testing.T) {
	set := defaultVocab(t)
	for _, d := range vocab.Domains {
		t.Run(string(d), func(t *testing.T) {
			v := set.Get(d)
			var records [][]string
			for _, e := range v.Entries() {
				records = append(records, []string{e[0]})
			}
			records = append(records, []string{"something nobody listed"}, []string{"  "})
			tb := table.FromRows([]string{"value"}, records)

			MapColumn(tb, "value", v)
			once := column(t, tb, "value")
			MapColumn(tb, "value", v)
			assert.Equal(t, once, column(t, tb, "value"))
		})
	}
}

func TestMapColumnMissingIsNoop(t *testing.T) {
	tb := table.FromRows([]string{"other"}, [][]string{{"x"}})
	report := MapColumn(tb, ColProjectType, defaultVocab(t).Get(vocab.ProjectType))
	assert.True(t, report.Missing)
	assert.False(t, tb.Has(ColProjectType))
}
