package tabular

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseWorkbook decodes spreadsheet-workbook bytes and reads the first sheet
// only. Cell values are taken as formatted strings, which matches what the
// user sees in their spreadsheet application.
func parseWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: "workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoDataRows
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Format: "workbook", Err: err}
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	headers := rows[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: headers}
	for _, cells := range rows[1:] {
		table.Rows = append(table.Rows, fitRow(cells, len(headers)))
	}

	if len(table.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return table, nil
}
