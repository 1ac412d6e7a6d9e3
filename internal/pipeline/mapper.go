package pipeline

import (
	"sort"

	"permitnorm/internal/table"
	"permitnorm/internal/util"
	"permitnorm/internal/vocab"
)

// MapColumn replaces every value of column with its canonical category.
// Values the vocabulary does not know are kept verbatim and listed in the
// report for review. A missing column is a no-op with Missing set.
func MapColumn(t *table.Table, column string, v *vocab.Vocabulary) MappingReport {
	return MapColumns(t, []string{column}, v)
}

// MapColumns is MapColumn over several columns sharing one vocabulary.
func MapColumns(t *table.Table, columns []string, v *vocab.Vocabulary) MappingReport {
	report := MappingReport{Domain: v.Domain}
	unmapped := map[string]int{}
	var order []string
	seen := map[string]bool{}

	for _, name := range columns {
		values, ok := t.Column(name)
		if !ok {
			continue
		}
		report.Columns = append(report.Columns, name)
		for r, raw := range values {
			switch canonical, found := v.Lookup(raw); {
			case found:
				values[r] = canonical
			case util.IsBlank(raw):
				values[r] = ""
			default:
				if unmapped[raw] == 0 {
					order = append(order, raw)
				}
				unmapped[raw]++
			}
			if out := values[r]; out != "" && !seen[out] {
				seen[out] = true
				report.Distinct = append(report.Distinct, out)
			}
		}
		_ = t.SetColumn(name, values)
	}

	if len(report.Columns) == 0 {
		report.Columns = columns
		report.Missing = true
		return report
	}
	for _, raw := range order {
		report.Unmapped = append(report.Unmapped, ValueCount{Value: raw, Count: unmapped[raw]})
	}
	sort.SliceStable(report.Unmapped, func(i, j int) bool {
		return report.Unmapped[i].Count > report.Unmapped[j].Count
	})
	return report
}
