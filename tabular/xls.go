package tabular

import (
	"bytes"
	"errors"
	"strings"

	"github.com/extrame/xls"
)

// maxLegacyRows bounds how much of a legacy workbook is read; the BIFF
// format itself caps a sheet at 65536 rows.
const maxLegacyRows = 65536

// parseLegacyWorkbook decodes binary (BIFF) workbook bytes. Modern zip-based
// workbooks are regularly uploaded under a .xls name, so a stream the legacy
// decoder rejects gets one retry through parseWorkbook before failing.
func parseLegacyWorkbook(data []byte) (*Table, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		table, zerr := parseWorkbook(data)
		if zerr == nil || errors.Is(zerr, ErrNoDataRows) {
			return table, zerr
		}
		return nil, &ParseError{Format: "workbook", Err: err}
	}

	rows := wb.ReadAllCells(maxLegacyRows)
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
