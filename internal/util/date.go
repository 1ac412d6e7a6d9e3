package util

import (
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/06",
	"1/2/06 15:04",
	"1-2-06",
	"1-2-06 15:04",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"20060102",
}

// Excel stores dates as days since 1899-12-30.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serial day numbers are only trusted between 1954-10-03 and 2173-10-13, so
// a bare year such as "2023" is not read as a day in 1905.
const (
	minExcelSerial = 20000
	maxExcelSerial = 100000
)

// ParseDate parses the date spellings found in AHJ exports, including Excel
// serial day numbers.
func ParseDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial < maxExcelSerial {
		days := int(serial)
		frac := serial - float64(days)
		t := excelEpoch.AddDate(0, 0, days).Add(time.Duration(frac * float64(24*time.Hour)))
		return t, true
	}
	return time.Time{}, false
}

// CompareDates orders two date cells chronologically. Parseable dates come
// before unparseable ones; unparseable ones compare as text.
func CompareDates(a, b string) int {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
	}
}
