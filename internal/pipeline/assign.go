package pipeline

import (
	"strings"

	"permitnorm/internal/table"
	"permitnorm/internal/util"
	"permitnorm/internal/vocab"
)

// storageHints mark a description as a PV plus storage job.
var storageHints = []string{"ess", "bat", "storage"}

// AssignAHJ sets the authority name on every row.
func AssignAHJ(t *table.Table, ahj string) Notice {
	t.Fill(ColAHJ, ahj)
	return info("ahj", "%s set to %q", ColAHJ, ahj)
}

// TrimPermitIDs strips surrounding whitespace from permit_ID so that the
// duplicate test compares the IDs people see.
func TrimPermitIDs(t *table.Table) int {
	ids, ok := t.Column(ColPermitID)
	if !ok {
		return 0
	}
	changed := 0
	for i, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != id {
			ids[i] = trimmed
			changed++
		}
	}
	_ = t.SetColumn(ColPermitID, ids)
	return changed
}

// descriptionColumn finds the free-text description column regardless of
// the case the export used for its header.
func descriptionColumn(t *table.Table) (string, bool) {
	if t.Has(ColDescription) {
		return ColDescription, true
	}
	for _, name := range t.Columns() {
		if strings.EqualFold(strings.TrimSpace(name), ColDescription) {
			return name, true
		}
	}
	return "", false
}

// usable treats the literal "nan" some exports carry as blank.
func usable(v string) bool {
	k := util.NormalizeKey(v)
	return k != "" && k != "nan"
}

// AssignSolarAPPOrTraditional classifies each permit. An already populated
// column is kept. Otherwise a usable solarAPP_ID marks the row solarAPP, and
// when no row has one the description is searched for "solarapp".
func AssignSolarAPPOrTraditional(t *table.Table) Notice {
	const stage = "solarapp"
	if values, ok := t.Column(ColSolarAPPOrTraditional); ok {
		for _, v := range values {
			if usable(v) {
				return info(stage, "%s already provided, kept", ColSolarAPPOrTraditional)
			}
		}
	}

	if ids, ok := t.Column(ColSolarAPPID); ok {
		out := make([]string, len(ids))
		found := false
		for i, id := range ids {
			out[i] = Traditional
			if usable(id) {
				out[i] = SolarAPP
				found = true
			}
		}
		if found {
			_ = t.SetColumn(ColSolarAPPOrTraditional, out)
			return info(stage, "%s assigned from %s", ColSolarAPPOrTraditional, ColSolarAPPID)
		}
	}

	if desc, ok := descriptionColumn(t); ok {
		values, _ := t.Column(desc)
		for i, v := range values {
			values[i] = Traditional
			if strings.Contains(strings.ToLower(v), "solarapp") {
				values[i] = SolarAPP
			}
		}
		_ = t.SetColumn(ColSolarAPPOrTraditional, values)
		return info(stage, "%s assigned from %s", ColSolarAPPOrTraditional, desc)
	}
	return warn(stage, "%s not assigned: no %s or %s column", ColSolarAPPOrTraditional, ColSolarAPPID, ColDescription)
}

// AssignProjectType maps project_type through the vocabulary, or derives it
// from the description when the column is absent.
func AssignProjectType(t *table.Table, v *vocab.Vocabulary) (MappingReport, Notice) {
	const stage = "project_type"
	if t.Has(ColProjectType) {
		return MapColumn(t, ColProjectType, v), info(stage, "%s mapped", ColProjectType)
	}
	desc, ok := descriptionColumn(t)
	if !ok {
		return MappingReport{Domain: v.Domain, Columns: []string{ColProjectType}, Missing: true},
			info(stage, "no %s or %s column, nothing to do", ColProjectType, ColDescription)
	}
	values, _ := t.Column(desc)
	for i, d := range values {
		switch {
		case util.IsBlank(d):
			values[i] = ""
		case util.ContainsAny(d, storageHints):
			values[i] = "PV+ST"
		default:
			values[i] = "PV"
		}
	}
	_ = t.SetColumn(ColProjectType, values)
	return MappingReport{Domain: v.Domain, Columns: []string{ColProjectType}, Distinct: nonBlank(t.Distinct(ColProjectType))},
		info(stage, "%s derived from %s", ColProjectType, desc)
}

// ReclassifyFailedNotes forces the status of an inspection to failed when
// its notes say the inspector could not get in. Notes are kept; status
// columns that do not exist are left alone. It returns the number of
// statuses rewritten.
func ReclassifyFailedNotes(t *table.Table, phrases []string) int {
	pairs := [][2]string{{ColNotesLast, ColStatusLast}}
	for i := 1; i <= InspectionSlots; i++ {
		pairs = append(pairs, [2]string{NotesCol(i), StatusCol(i)})
	}
	changed := 0
	for _, p := range pairs {
		notes, ok := t.Column(p[0])
		if !ok || !t.Has(p[1]) {
			continue
		}
		for r, n := range notes {
			if !util.ContainsAny(n, phrases) {
				continue
			}
			if t.Value(r, p[1]) != StatusFailed {
				t.Set(r, p[1], StatusFailed)
				changed++
			}
		}
	}
	return changed
}

// StandardizeInspectionStatus makes sure status slots 1..10 exist, applies
// the failed-note phrases, creates inspt_status_last from the slots when it
// is absent and finally maps every status column. Reclassification happens
// on raw values so that mapping sees the forced failures.
func StandardizeInspectionStatus(t *table.Table, v *vocab.Set) (MappingReport, int, []Notice) {
	const stage = "inspection_status"
	var notices []Notice
	for _, col := range StatusColumns(InspectionSlots) {
		t.Ensure(col)
	}
	reclassified := ReclassifyFailedNotes(t, v.FailedNotePhrases)
	if reclassified > 0 {
		notices = append(notices, info(stage, "%d inspections set to %s from their notes", reclassified, StatusFailed))
	}
	if !t.Has(ColStatusLast) {
		ResolveLast(t, StatusColumns(InspectionSlots), ColStatusLast)
		notices = append(notices, info(stage, "%s created from last non-empty status", ColStatusLast))
	}
	columns := append([]string{ColStatusLast}, StatusColumns(InspectionSlots)...)
	return MapColumns(t, columns, v.Get(vocab.InspectionStatus)), reclassified, notices
}

// AssignPermitStatus maps permit_status when it carries any value, and
// otherwise infers it row by row from the last inspection and the
// submission date.
func AssignPermitStatus(t *table.Table, v *vocab.Vocabulary) (MappingReport, []Notice) {
	const stage = "permit_status"
	var notices []Notice
	if !t.IsBlank(ColPermitStatus) {
		report := MapColumn(t, ColPermitStatus, v)
		if t.Has(ColStatusLast) {
			filled := 0
			for r := 0; r < t.Len(); r++ {
				if t.Value(r, ColPermitStatus) == PermitFinaled && util.IsBlank(t.Value(r, ColStatusLast)) {
					t.Set(r, ColStatusLast, StatusPassed)
					filled++
				}
			}
			if filled > 0 {
				notices = append(notices, info(stage, "%s set to %s on %d finaled permits", ColStatusLast, StatusPassed, filled))
			}
		}
		return report, notices
	}

	values := make([]string, t.Len())
	for r := range values {
		values[r] = InferPermitStatus(t.Value(r, ColStatusLast), t.Value(r, ColSubmissionDate))
	}
	_ = t.SetColumn(ColPermitStatus, values)
	notices = append(notices, info(stage, "%s inferred from inspections and submission date", ColPermitStatus))
	return MappingReport{Domain: v.Domain, Columns: []string{ColPermitStatus}, Distinct: nonBlank(t.Distinct(ColPermitStatus))}, notices
}

// InferPermitStatus derives a permit status from a canonical last
// inspection status and the submission date.
func InferPermitStatus(lastStatus, submitted string) string {
	switch lastStatus {
	case StatusPassed:
		return PermitFinaled
	case StatusFailed, StatusCanceled:
		return PermitIssued
	}
	if !util.IsBlank(submitted) {
		return PermitIssued
	}
	return ""
}

func nonBlank(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
