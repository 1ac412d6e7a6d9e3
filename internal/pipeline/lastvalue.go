package pipeline

import (
	"permitnorm/internal/table"
	"permitnorm/internal/util"
)

// LastValue scans candidates from last to first and returns the first
// non-blank value of the row, or "".
func LastValue(t *table.Table, row int, candidates []string) string {
	for i := len(candidates) - 1; i >= 0; i-- {
		if v := t.Value(row, candidates[i]); !util.IsBlank(v) {
			return v
		}
	}
	return ""
}

// ResolveLast writes the last non-blank candidate of every row into target.
// A target that already holds any non-blank value is left alone. It
// reports whether target was written.
func ResolveLast(t *table.Table, candidates []string, target string) bool {
	if !t.IsBlank(target) {
		return false
	}
	values := make([]string, t.Len())
	for r := range values {
		values[r] = LastValue(t, r, candidates)
	}
	_ = t.SetColumn(target, values)
	return true
}

// AssignLastInspectionFields derives the *_last triple from the numbered
// slots, derives inspt_failed_once when it is absent or blank, and moves
// the four derived columns right before inspt_status_1.
func AssignLastInspectionFields(t *table.Table) []Notice {
	const stage = "last_inspection"
	var notices []Notice

	for _, col := range SlotColumns(InspectionSlots) {
		t.Ensure(col)
	}

	targets := []struct {
		target     string
		candidates []string
	}{
		{ColStatusLast, StatusColumns(InspectionSlots)},
		{ColDateLast, DateColumns(InspectionSlots)},
		{ColNotesLast, NotesColumns(InspectionSlots)},
	}
	for _, tc := range targets {
		if ResolveLast(t, tc.candidates, tc.target) {
			notices = append(notices, info(stage, "%s derived from last non-empty slot", tc.target))
		}
	}

	if t.IsBlank(ColFailedOnce) {
		if !DeriveFailedOnce(t) {
			notices = append(notices, warn(stage, "%s appended at the end: %s not found", ColFailedOnce, ColIssuanceDate))
		}
	} else {
		notices = append(notices, info(stage, "%s already populated, kept", ColFailedOnce))
	}

	if !t.MoveBefore(StatusCol(1), LastColumns...) {
		notices = append(notices, warn(stage, "derived columns appended at the end: %s not found", StatusCol(1)))
	}
	return notices
}
