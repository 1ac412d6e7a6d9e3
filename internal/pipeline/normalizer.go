package pipeline

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"permitnorm/internal/table"
	"permitnorm/internal/vocab"
)

var ErrMissingAHJ = errors.New("authority name is required")

// Normalizer turns one raw AHJ export into the standard schema. It holds no
// per-run state, so one value can serve concurrent runs.
type Normalizer struct {
	vocab  *vocab.Set
	logger *zap.Logger
}

func NewNormalizer(set *vocab.Set, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{vocab: set, logger: logger.Named("pipeline")}
}

// Run normalizes a copy of raw for the given authority. The input table is
// not modified.
func (n *Normalizer) Run(raw *table.Table, ahj string) (*table.Table, Report, error) {
	ahj = strings.TrimSpace(ahj)
	report := Report{AHJ: ahj, RowsIn: raw.Len()}
	if ahj == "" {
		return nil, report, ErrMissingAHJ
	}
	t := raw.Clone()

	report.add(AssignAHJ(t, ahj), n.logger)
	if trimmed := TrimPermitIDs(t); trimmed > 0 {
		report.add(info("permit_id", "%d permit IDs trimmed", trimmed), n.logger)
	}
	report.add(AssignSolarAPPOrTraditional(t), n.logger)

	mapping, notice := AssignProjectType(t, n.vocab.Get(vocab.ProjectType))
	report.add(notice, n.logger)
	report.addMapping(mapping, n.logger)

	mapping, reclassified, notices := StandardizeInspectionStatus(t, n.vocab)
	report.NotesReclassified = reclassified
	for _, nt := range notices {
		report.add(nt, n.logger)
	}
	report.addMapping(mapping, n.logger)

	mapping, notices = AssignPermitStatus(t, n.vocab.Get(vocab.PermitStatus))
	for _, nt := range notices {
		report.add(nt, n.logger)
	}
	report.addMapping(mapping, n.logger)

	if NeedsPivot(t) {
		res := PivotInspections(t, PivotSlots)
		t = res.Table
		report.Pivoted = true
		report.PivotSource = res.Source
		report.OverflowDropped = res.Dropped
		report.add(info("pivot", "%d inspections from the %s triple merged into %d permits", res.Events, res.Source, t.Len()), n.logger)
		if res.Dropped > 0 {
			report.add(warn("pivot", "%d inspections past slot %d dropped", res.Dropped, PivotSlots), n.logger)
		}
		if res.Undated > 0 {
			report.add(warn("pivot", "%d inspections without a date skipped", res.Undated), n.logger)
		}
	} else {
		report.add(info("pivot", "no merge needed: permit IDs unique or no inspection data"), n.logger)
	}

	for _, nt := range AssignLastInspectionFields(t) {
		report.add(nt, n.logger)
	}

	out, removed := EnforceSchema(t, StandardColumns)
	report.DuplicatesRemoved = removed
	report.RowsOut = out.Len()
	n.logger.Info("normalized",
		zap.String("ahj", ahj),
		zap.Int("rows_in", report.RowsIn),
		zap.Int("rows_out", report.RowsOut),
		zap.Bool("pivoted", report.Pivoted),
		zap.Int("duplicates_removed", removed))
	return out, report, nil
}
