package pipeline

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"permitnorm/internal/vocab"
)

// Notice is a non-fatal event worth showing to whoever reviews the run.
type Notice struct {
	Stage   string
	Level   zapcore.Level
	Message string
}

func info(stage, format string, args ...any) Notice {
	return Notice{Stage: stage, Level: zapcore.InfoLevel, Message: fmt.Sprintf(format, args...)}
}

func warn(stage, format string, args ...any) Notice {
	return Notice{Stage: stage, Level: zapcore.WarnLevel, Message: fmt.Sprintf(format, args...)}
}

type ValueCount struct {
	Value string
	Count int
}

// MappingReport describes one vocabulary pass. Unmapped lists the original
// strings that were kept verbatim because no vocabulary entry matched.
type MappingReport struct {
	Domain   vocab.Domain
	Columns  []string
	Missing  bool
	Distinct []string
	Unmapped []ValueCount
}

func (m MappingReport) NeedsReview() bool { return len(m.Unmapped) > 0 }

// Report summarizes one orchestrated run.
type Report struct {
	AHJ               string
	RowsIn            int
	RowsOut           int
	Pivoted           bool
	PivotSource       string
	OverflowDropped   int
	DuplicatesRemoved int
	NotesReclassified int
	Mappings          []MappingReport
	Notices           []Notice
}

func (r *Report) add(n Notice, logger *zap.Logger) {
	r.Notices = append(r.Notices, n)
	if ce := logger.Check(n.Level, n.Message); ce != nil {
		ce.Write(zap.String("stage", n.Stage), zap.String("ahj", r.AHJ))
	}
}

func (r *Report) addMapping(m MappingReport, logger *zap.Logger) {
	r.Mappings = append(r.Mappings, m)
	if m.Missing {
		return
	}
	fields := []zap.Field{
		zap.String("ahj", r.AHJ),
		zap.String("domain", string(m.Domain)),
		zap.Strings("columns", m.Columns),
		zap.Strings("distinct", m.Distinct),
	}
	if !m.NeedsReview() {
		logger.Info("column standardized", fields...)
		return
	}
	unmapped := make([]string, 0, len(m.Unmapped))
	for _, u := range m.Unmapped {
		unmapped = append(unmapped, u.Value)
	}
	logger.Warn("unmapped values need review", append(fields, zap.Strings("unmapped", unmapped))...)
}

// Unmapped flattens the review values of every mapping pass.
func (r *Report) Unmapped() []ReviewValue {
	var out []ReviewValue
	for _, m := range r.Mappings {
		for _, u := range m.Unmapped {
			out = append(out, ReviewValue{Domain: m.Domain, Value: u.Value, Count: u.Count})
		}
	}
	return out
}

type ReviewValue struct {
	Domain vocab.Domain
	Value  string
	Count  int
}
