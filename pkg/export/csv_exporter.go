package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is a tabular export. Headers fixes both the column set and the
// column order; each row maps header names to cell values. The downstream
// consumers of these files key on exact header names, so a row carrying a
// key absent from Headers indicates a renamed column and fails the export.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders datasets into RFC 4180 CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset. Cells missing from a row render empty.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	known := make(map[string]bool, len(data.Headers))
	for _, h := range data.Headers {
		known[h] = true
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}

	record := make([]string, len(data.Headers))
	for i, row := range data.Rows {
		for key := range row {
			if !known[key] {
				return nil, fmt.Errorf("csv row %d has unknown column %q", i+1, key)
			}
		}
		for j, header := range data.Headers {
			record[j] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
