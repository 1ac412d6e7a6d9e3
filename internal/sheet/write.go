package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"permitnorm/internal/table"
)

const DefaultSheet = "Clean"

// Write saves t to path, choosing the writer by extension.
func Write(t *table.Table, path, sheet string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(t, path, sheet)
	case ".csv":
		return WriteCSV(t, path)
	}
	return fmt.Errorf("%w: cannot write %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// WriteXLSX writes t as the only sheet of a new workbook: header row, then
// data rows, all as text.
func WriteXLSX(t *table.Table, path, sheet string) error {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	if err := setRow(f, sheet, 1, t.Columns()); err != nil {
		return err
	}
	for r := 0; r < t.Len(); r++ {
		if err := setRow(f, sheet, r+2, t.Row(r)); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// WriteCSV writes t as comma-separated text with a header row.
func WriteCSV(t *table.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write(t.Columns()); err != nil {
		out.Close()
		return err
	}
	if err := w.WriteAll(t.Records()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
