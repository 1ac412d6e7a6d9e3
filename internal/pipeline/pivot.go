package pipeline

import (
	"slices"

	"permitnorm/internal/table"
	"permitnorm/internal/util"
)

// PivotResult is the wide table plus what the pivot had to discard.
type PivotResult struct {
	Table *table.Table
	// Source is "1" when events were read from the inspt_*_1 triple and
	// "last" when read from the inspt_*_last triple.
	Source  string
	Events  int
	Undated int
	Dropped int
}

type event struct {
	row    int
	status string
	date   string
	notes  string
}

// NeedsPivot reports whether the table is in long format: permit_ID repeats
// and the last-inspection triple carries data somewhere.
func NeedsPivot(t *table.Table) bool {
	return hasDuplicatePermitIDs(t) && !(t.IsBlank(ColStatusLast) && t.IsBlank(ColDateLast) && t.IsBlank(ColNotesLast))
}

func hasDuplicatePermitIDs(t *table.Table) bool {
	ids, ok := t.Column(ColPermitID)
	if !ok {
		return false
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// PivotInspections reshapes one-row-per-inspection data into one row per
// permit_ID. Permit-level fields come from the first row of each permit.
// Dated events are ranked chronologically (stable on input order) into
// slots 1..maxSlots; events past maxSlots are dropped. Permits without a
// dated event keep blank slots.
func PivotInspections(t *table.Table, maxSlots int) PivotResult {
	status, date, notes, source := StatusCol(1), DateCol(1), NotesCol(1), "1"
	if t.IsBlank(date) && t.Has(ColDateLast) {
		status, date, notes, source = ColStatusLast, ColDateLast, ColNotesLast, "last"
	}
	res := PivotResult{Source: source}

	var order []string
	firstRow := map[string]int{}
	events := map[string][]event{}
	for r := 0; r < t.Len(); r++ {
		id := t.Value(r, ColPermitID)
		if _, ok := firstRow[id]; !ok {
			firstRow[id] = r
			order = append(order, id)
		}
		d := t.Value(r, date)
		if util.IsBlank(d) {
			if !util.IsBlank(t.Value(r, status)) || !util.IsBlank(t.Value(r, notes)) {
				res.Undated++
			}
			continue
		}
		events[id] = append(events[id], event{row: r, status: t.Value(r, status), date: d, notes: t.Value(r, notes)})
		res.Events++
	}

	slotCols := SlotColumns(maxSlots)
	out := table.New(append(slices.Clone(PermitColumns), slotCols...)...)
	for _, id := range order {
		record := make(map[string]string, len(PermitColumns)+len(slotCols))
		for _, col := range PermitColumns {
			record[col] = t.Value(firstRow[id], col)
		}
		record[ColPermitID] = id

		evs := events[id]
		slices.SortStableFunc(evs, func(a, b event) int {
			return util.CompareDates(a.date, b.date)
		})
		for rank, ev := range evs {
			slot := rank + 1
			if slot > maxSlots {
				res.Dropped++
				continue
			}
			record[StatusCol(slot)] = ev.status
			record[DateCol(slot)] = ev.date
			record[NotesCol(slot)] = ev.notes
		}
		out.AppendRecord(record)
	}

	res.Table = out
	return res
}
