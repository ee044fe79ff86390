package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor handles CSV files by rendering rows as labeled text.
type CSVExtractor struct{}

func (p *CSVExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return singleSection("", filename), nil
	}

	// First row is headers; each data row becomes a "header: cell" line.
	headers := records[0]

	var out strings.Builder
	out.WriteString("Headers: " + strings.Join(headers, ", "))
	for _, row := range records[1:] {
		out.WriteString("\n")
		for j, cell := range row {
			if j > 0 {
				out.WriteString(", ")
			}
			if j < len(headers) {
				out.WriteString(headers[j] + ": " + cell)
			} else {
				out.WriteString(cell)
			}
		}
	}

	return singleSection(out.String(), filename), nil
}
