package pipeline

import "permitnorm/internal/table"

const (
	FailedYes = "Yes"
	FailedNo  = "No"
)

// FailedOnce classifies one row: Yes when any status slot (including the
// last one) failed, No when the permit finaled on a passed inspection, and
// blank when there is not enough to tell.
func FailedOnce(t *table.Table, row int) string {
	if t.Value(row, ColStatusLast) == StatusFailed {
		return FailedYes
	}
	for i := 1; i <= InspectionSlots; i++ {
		if t.Value(row, StatusCol(i)) == StatusFailed {
			return FailedYes
		}
	}
	if t.Value(row, ColPermitStatus) == PermitFinaled && t.Value(row, ColStatusLast) == StatusPassed {
		return FailedNo
	}
	return ""
}

// DeriveFailedOnce fills inspt_failed_once for every row and places it right
// after permit_issuance_date. It returns false when that anchor is missing,
// in which case the column is left at the end.
func DeriveFailedOnce(t *table.Table) bool {
	values := make([]string, t.Len())
	for r := range values {
		values[r] = FailedOnce(t, r)
	}
	_ = t.SetColumn(ColFailedOnce, values)
	return t.MoveAfter(ColIssuanceDate, ColFailedOnce)
}
