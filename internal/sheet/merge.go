package sheet

import (
	"slices"

	"go.uber.org/zap"

	"permitnorm/internal/table"
)

type FileStatus string

const (
	FileLoaded   FileStatus = "loaded"
	FileMismatch FileStatus = "header_mismatch"
	FileFailed   FileStatus = "failed"
)

// FileResult is the outcome for one input of a merge.
type FileResult struct {
	Path     string
	Status   FileStatus
	Rows     int
	Expected []string
	Found    []string
	Err      error
}

// Merged is the concatenation of every input whose header matched the
// first file that loaded.
type Merged struct {
	Table   *table.Table
	Files   []FileResult
	Cleaned CleanStats
	Warning string
}

// Loaded lists the paths whose rows made it into the table.
func (m *Merged) Loaded() []string {
	var out []string
	for _, f := range m.Files {
		if f.Status == FileLoaded {
			out = append(out, f.Path)
		}
	}
	return out
}

// LoadFiles loads and merges exports. No single file can fail the merge:
// unreadable or unsupported files and files whose header differs from the
// first loaded one are skipped and reported. Without any loadable input
// the result is an empty table with a warning.
func LoadFiles(paths []string, logger *zap.Logger) *Merged {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Merged{}
	var header []string
	for _, path := range paths {
		format, err := FormatOf(path)
		if err != nil {
			m.fail(path, err, logger)
			continue
		}
		t, err := loadRaw(path, format)
		if err != nil {
			m.fail(path, err, logger)
			continue
		}
		if m.Table == nil {
			header = t.Columns()
			m.Table = t
			m.Files = append(m.Files, FileResult{Path: path, Status: FileLoaded, Rows: t.Len()})
			logger.Info("file loaded", zap.String("path", path), zap.Int("rows", t.Len()))
			continue
		}
		if found := t.Columns(); !slices.Equal(found, header) {
			m.Files = append(m.Files, FileResult{Path: path, Status: FileMismatch, Expected: header, Found: found})
			logger.Warn("column mismatch, file skipped",
				zap.String("path", path), zap.Strings("expected", header), zap.Strings("found", found))
			continue
		}
		m.Table.Concat(t)
		m.Files = append(m.Files, FileResult{Path: path, Status: FileLoaded, Rows: t.Len()})
		logger.Info("file loaded", zap.String("path", path), zap.Int("rows", t.Len()))
	}

	if m.Table == nil {
		m.Table = table.New()
		m.Warning = "no files loaded"
		logger.Warn(m.Warning, zap.Int("inputs", len(paths)))
		return m
	}
	m.Cleaned = Clean(m.Table)
	logger.Info("files merged",
		zap.Int("files", len(m.Loaded())),
		zap.Int("rows", m.Table.Len()),
		zap.Int("blank_rows_dropped", m.Cleaned.BlankRows),
		zap.Int("duplicates_dropped", m.Cleaned.Duplicates))
	return m
}

func (m *Merged) fail(path string, err error, logger *zap.Logger) {
	m.Files = append(m.Files, FileResult{Path: path, Status: FileFailed, Err: err})
	logger.Warn("file skipped", zap.String("path", path), zap.Error(err))
}
