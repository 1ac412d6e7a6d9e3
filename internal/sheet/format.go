// Package sheet reads AHJ permit exports into tables and writes the
// normalized result back out.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	// FormatXLS is accepted only for the HTML tables some permit portals
	// save with an .xls extension. Binary BIFF workbooks are refused.
	FormatXLS Format = "xls"
)

// DefaultExtensions are the extensions picked up when scanning a folder.
var DefaultExtensions = []string{".xlsx", ".csv"}

// AllExtensions are every extension FormatOf accepts.
var AllExtensions = []string{".xlsx", ".xlsm", ".csv", ".html", ".htm", ".xls"}

// FormatOf maps a file name to its format by extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".xls":
		return FormatXLS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Supported reports whether path has an extension the loaders accept.
func Supported(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}
