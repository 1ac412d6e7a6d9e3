package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"permitnorm/internal/table"
	"permitnorm/internal/vocab"
)

func defaultVocab(t *testing.T) *vocab.Set {
	t.Helper()
	set, err := vocab.Default()
	require.NoError(t, err)
	return set
}

func column(t *testing.T, tb *table.Table, name string) []string {
	t.Helper()
	values, ok := tb.Column(name)
	require.True(t, ok, "missing column %s", name)
	return values
}
