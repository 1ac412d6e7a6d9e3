package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		input string
	}{
		{name: "iso", input: "2023-03-01"},
		{name: "iso with time", input: "2023-03-01 00:00:00"},
		{name: "us long year", input: "3/1/2023"},
		{name: "us padded", input: "03/01/2023"},
		{name: "us short year", input: "3/1/23"},
		{name: "excel default format", input: "03-01-23"},
		{name: "excel serial", input: "44986"},
		{name: "spelled out", input: "Mar 1, 2023"},
		{name: "surrounding spaces", input: "  2023-03-01 "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.input)
			require.True(t, ok)
			assert.True(t, got.Equal(want), "got %v", got)
		})
	}
}

func TestParseDateRejectsText(t *testing.T) {
	for _, in := range []string{"", "  ", "pending", "n/a", "2023", "1999", "12", "0.5"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestCompareDates(t *testing.T) {
	assert.Negative(t, CompareDates("2023-01-01", "2023-02-01"))
	assert.Positive(t, CompareDates("3/1/2023", "2023-02-01"))
	assert.Zero(t, CompareDates("2023-02-01", "2/1/2023"))
	assert.Negative(t, CompareDates("2023-02-01", "someday"))
	assert.Positive(t, CompareDates("someday", "2023-02-01"))
	assert.Negative(t, CompareDates("a-day", "b-day"))
	assert.Positive(t, CompareDates("2023", "1/1/1990"))
}

func TestParseDateSerialBounds(t *testing.T) {
	got, ok := ParseDate("20000")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(1954, 10, 3, 0, 0, 0, 0, time.UTC)), "got %v", got)

	got, ok = ParseDate("44986.5")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)), "got %v", got)

	_, ok = ParseDate("19999")
	assert.False(t, ok)
	_, ok = ParseDate("100000")
	assert.False(t, ok)
}
