package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"permitnorm/internal/table"
)

func writeXLSXFixture(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func writeText(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.xlsx")
	writeXLSXFixture(t, path, [][]string{
		{"permit_ID", "Status", "", "Status"},
		{"P1", "Issued", "x", "NA"},
		{"", "", "", ""},
		{"P1", "Issued", "x", "NA"},
		{"P2", "NULL"},
	})

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"permit_ID", "Status", "column_3", "Status.1"}, tb.Columns())
	require.Equal(t, 2, tb.Len())
	assert.Equal(t, []string{"P1", "Issued", "x", ""}, tb.Row(0))
	assert.Equal(t, []string{"P2", "", "", ""}, tb.Row(1))
}

func TestLoadCSVWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.csv")
	writeText(t, path, "\ufeffpermit_ID,address\nP1,\"1 Main, Unit \"\"B\"\"\"\nP2\n")

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"permit_ID", "address"}, tb.Columns())
	assert.Equal(t, `1 Main, Unit "B"`, tb.Value(0, "address"))
	assert.Equal(t, "", tb.Value(1, "address"))
}

func TestLoadHTMLDisguisedAsXLS(t *testing.T) {
	dir := t.TempDir()
	html := filepath.Join(dir, "portal.xls")
	writeText(t, html, `<html><body><table>
<tr><th>Permit #</th><th>Status</th></tr>
<tr><td> B-100 </td><td>Final
  Inspection Done</td></tr>
</table></body></html>`)

	tb, err := Load(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"Permit #", "Status"}, tb.Columns())
	assert.Equal(t, "B-100", tb.Value(0, "Permit #"))
	assert.Equal(t, "Final Inspection Done", tb.Value(0, "Status"))

	binary := filepath.Join(dir, "legacy.xls")
	writeText(t, binary, "\xd0\xcf\x11\xe0 not really a workbook")
	_, err = Load(binary)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestUnsupportedExtension(t *testing.T) {
	_, err := Load("report.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, Supported("notes.txt"))
	assert.True(t, Supported("A.XLSX"))
}

func TestLoadFilesMergesAndReports(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.xlsx")
	c := filepath.Join(dir, "c.csv")
	writeText(t, a, "permit_ID,status\nP1,issued\nP2,finaled\n")
	writeXLSXFixture(t, b, [][]string{{"permit_ID", "status"}, {"P2", "finaled"}, {"P3", "issued"}})
	writeText(t, c, "status,permit_ID\nissued,P9\n")
	missing := filepath.Join(dir, "gone.csv")
	pdf := filepath.Join(dir, "scan.pdf")

	core, logs := observer.New(zapcore.InfoLevel)
	m := LoadFiles([]string{missing, a, pdf, b, c}, zap.New(core))

	require.Equal(t, 3, m.Table.Len(), "duplicate row across files kept once")
	assert.Equal(t, []string{"P1", "P2", "P3"}, mustColumn(t, m.Table, "permit_ID"))
	assert.Equal(t, []string{a, b}, m.Loaded())
	assert.Equal(t, 1, m.Cleaned.Duplicates)

	require.Len(t, m.Files, 5)
	assert.Equal(t, FileFailed, m.Files[0].Status)
	assert.Equal(t, FileFailed, m.Files[2].Status)
	assert.ErrorIs(t, m.Files[2].Err, ErrUnsupportedFormat)
	assert.Equal(t, FileMismatch, m.Files[4].Status)
	assert.Equal(t, []string{"permit_ID", "status"}, m.Files[4].Expected)
	assert.Equal(t, []string{"status", "permit_ID"}, m.Files[4].Found)

	assert.Equal(t, 1, logs.FilterMessage("column mismatch, file skipped").Len())
	assert.Equal(t, 2, logs.FilterMessage("file skipped").Len())
}

func TestLoadFilesEmpty(t *testing.T) {
	m := LoadFiles(nil, nil)
	assert.Equal(t, 0, m.Table.Len())
	assert.NotEmpty(t, m.Warning)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.xlsx", "~$a.xlsx", "notes.txt", "C.CSV"} {
		writeText(t, filepath.Join(dir, name), "x")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "C.CSV"),
		filepath.Join(dir, "a.xlsx"),
		filepath.Join(dir, "b.csv"),
	}, files)

	files, err = ListFiles(dir, "txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, files)
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tb := table.FromRows([]string{"permit_ID", "inspt_date_1"}, [][]string{{"007", "2023-01-01"}, {"P2", ""}})

	xlsx := filepath.Join(dir, "out", "Clean.xlsx")
	require.NoError(t, Write(tb, xlsx, ""))
	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	back, err := Load(xlsx)
	require.NoError(t, err)
	assert.Equal(t, tb.Records(), back.Records())

	csvPath := filepath.Join(dir, "Clean.csv")
	require.NoError(t, Write(tb, csvPath, ""))
	back, err = Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, tb.Columns(), back.Columns())
	assert.Equal(t, "007", back.Value(0, "permit_ID"))

	assert.ErrorIs(t, Write(tb, filepath.Join(dir, "x.json"), ""), ErrUnsupportedFormat)
}

func mustColumn(t *testing.T, tb *table.Table, name string) []string {
	t.Helper()
	v, ok := tb.Column(name)
	require.True(t, ok)
	return v
}
