// Package tabular turns uploaded file bytes (delimited text or spreadsheet
// workbook) into an ordered table of raw rows. It is the first stage of the
// bulk import pipeline; everything downstream works on the Table it produces.
package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Errors surfaced to the caller. The API layer maps these onto the
// user-facing upload messages.
var (
	// ErrUnsupportedFormat is returned before any decoding is attempted
	// when the filename extension is not one of .csv, .xlsx, .xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoDataRows is returned when the decoded table has a header but no
	// data rows (or no rows at all).
	ErrNoDataRows = errors.New("file contains no data rows")
)

// ParseError wraps a decoder failure for the declared format.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s input: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row is one data row, positional. Cells align with Table.Columns; duplicate
// column names therefore remain distinct positions.
type Row []string

// Table is the parsed file: the header row verbatim, then the data rows in
// file order. Immutable once parsed.
type Table struct {
	Columns []string
	Rows    []Row
}

// Get returns the first cell of r under the named column, or "" when the
// column does not exist. Mapping-aware callers index by position instead.
func (t *Table) Get(r Row, column string) string {
	for i, c := range t.Columns {
		if c == column && i < len(r) {
			return r[i]
		}
	}
	return ""
}

// Parse decodes raw file bytes according to the declared filename extension.
// The first sheet/table only; the first row is taken verbatim as the column
// names. Unsupported extensions fail before any decoding.
func Parse(data []byte, filename string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseWorkbook(data)
	case ".xls":
		return parseLegacyWorkbook(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// fitRow pads a short row with empty cells or truncates a long one so that
// it aligns with the header width.
func fitRow(cells []string, width int) Row {
	if len(cells) == width {
		return Row(cells)
	}
	fitted := make(Row, width)
	copy(fitted, cells)
	return fitted
}
