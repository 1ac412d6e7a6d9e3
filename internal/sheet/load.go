package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"permitnorm/internal/table"
	"permitnorm/internal/util"
)

// nullMarkers are literal cell values that mean "no value" in exports.
var nullMarkers = map[string]bool{"NA": true, "NULL": true}

// Load reads one export file. The first row of the first sheet (or table)
// is the header. The result is cleaned the same way merged files are.
func Load(path string) (*table.Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	t, err := loadRaw(path, format)
	if err != nil {
		return nil, err
	}
	Clean(t)
	return t, nil
}

func loadRaw(path string, format Format) (*table.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(content, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes raw file content of the given format without cleaning it.
func Parse(content []byte, format Format) (*table.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(content)
	case FormatCSV:
		rows, err = readCSV(content)
	case FormatHTML:
		rows, err = readHTML(content)
	case FormatXLS:
		if !looksLikeHTML(content) {
			return nil, fmt.Errorf("%w: binary .xls workbook, save it as .xlsx", ErrUnsupportedFormat)
		}
		rows, err = readHTML(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return table.New(), nil
	}
	return table.FromRows(HeaderNames(rows[0]), rows[1:]), nil
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

func readCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readHTML(content []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var rows [][]string
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := []string{}
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows, nil
}

func looksLikeHTML(content []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(bytes.TrimPrefix(content, []byte("\ufeff"))))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<")) && bytes.Contains(head, []byte("<table")) ||
		bytes.HasPrefix(head, []byte("<html")) || bytes.HasPrefix(head, []byte("<!doctype html"))
}

// HeaderNames trims header cells, names blank ones column_<n> and
// suffixes repeats with .1, .2 so that every column name is unique.
func HeaderNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := map[string]int{}
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		base := name
		for seen[name] > 0 {
			name = base + "." + strconv.Itoa(seen[base])
			seen[base]++
		}
		seen[name]++
		out[i] = name
	}
	return out
}

// CleanStats counts what Clean changed.
type CleanStats struct {
	NullsBlanked int
	BlankRows    int
	Duplicates   int
}

// Clean blanks NA/NULL markers, drops rows blank in every column and then
// collapses identical rows, in that order.
func Clean(t *table.Table) CleanStats {
	var s CleanStats
	s.NullsBlanked = t.Replace(func(v string) (string, bool) {
		if nullMarkers[strings.TrimSpace(v)] {
			return "", true
		}
		return v, false
	})
	s.BlankRows = t.DropBlankRows()
	s.Duplicates = t.DropDuplicates()
	return s
}
