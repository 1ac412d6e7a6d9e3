package pipeline

import "fmt"

const (
	ColSolarAPPOrTraditional = "solarAPP_or_traditional"
	ColAHJ                   = "AHJ"
	ColPermitID              = "permit_ID"
	ColSolarAPPID            = "solarAPP_ID"
	ColAddress               = "address"
	ColProjectType           = "project_type"
	ColPermitStatus          = "permit_status"
	ColSubmissionDate        = "permit_submission_date"
	ColIssuanceDate          = "permit_issuance_date"
	ColFailedOnce            = "inspt_failed_once"
	ColStatusLast            = "inspt_status_last"
	ColDateLast              = "inspt_date_last"
	ColNotesLast             = "inspt_notes_last"

	// ColDescription is the free-text work description some AHJs export
	// instead of a project type or a solarAPP flag.
	ColDescription = "DESCRIPTION"
)

const (
	// InspectionSlots is the number of numbered inspection triples in the
	// standard layout.
	InspectionSlots = 10
	// PivotSlots caps how many chronological inspections the pivot keeps
	// per permit; later ones are dropped and counted.
	PivotSlots = 8
)

// Canonical categories the derivations depend on.
const (
	StatusPassed   = "passed"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"

	PermitFinaled = "finaled"
	PermitIssued  = "issued"

	SolarAPP    = "solarAPP"
	Traditional = "traditional"
)

func StatusCol(i int) string { return fmt.Sprintf("inspt_status_%d", i) }
func DateCol(i int) string   { return fmt.Sprintf("inspt_date_%d", i) }
func NotesCol(i int) string  { return fmt.Sprintf("inspt_notes_%d", i) }

// PermitColumns are the permit-level fields, in output order.
var PermitColumns = []string{
	ColSolarAPPOrTraditional, ColAHJ, ColPermitID, ColSolarAPPID, ColAddress,
	ColProjectType, ColPermitStatus, ColSubmissionDate, ColIssuanceDate,
}

// LastColumns are the derived columns placed right before inspt_status_1.
var LastColumns = []string{ColFailedOnce, ColStatusLast, ColDateLast, ColNotesLast}

// StandardColumns is the output schema.
var StandardColumns = standardColumns()

func standardColumns() []string {
	cols := make([]string, 0, len(PermitColumns)+len(LastColumns)+3*InspectionSlots)
	cols = append(cols, PermitColumns...)
	cols = append(cols, LastColumns...)
	return append(cols, SlotColumns(InspectionSlots)...)
}

// SlotColumns lists status, date and notes for slots 1..n, grouped by slot.
func SlotColumns(n int) []string {
	out := make([]string, 0, 3*n)
	for i := 1; i <= n; i++ {
		out = append(out, StatusCol(i), DateCol(i), NotesCol(i))
	}
	return out
}

func StatusColumns(n int) []string { return numbered(n, StatusCol) }
func DateColumns(n int) []string   { return numbered(n, DateCol) }
func NotesColumns(n int) []string  { return numbered(n, NotesCol) }

func numbered(n int, name func(int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = name(i + 1)
	}
	return out
}
