package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// parseCSV decodes delimited-text bytes. Real-world exports are messy, so the
// reader is permissive: variable field counts are fitted to the header width
// and lazy quotes are accepted.
func parseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoDataRows
		}
		return nil, &ParseError{Format: "csv", Err: err}
	}

	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	// Excel-style exports prefix the first header with a UTF-8 BOM.
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}

	table := &Table{Columns: headers}
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Format: "csv", Err: err}
		}
		table.Rows = append(table.Rows, fitRow(cells, len(headers)))
	}

	if len(table.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return table, nil
}
