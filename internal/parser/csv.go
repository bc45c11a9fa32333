package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/hematrace/labxtract/internal/ocr"
)

// CSVParser handles CSV lab exports: each record becomes one recognized
// line with its cells joined by spaces, so "Hemoglobin,13.5,g/dL" reads as
// a normal report row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*ocr.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var lines []string
	for _, record := range records {
		line := strings.TrimSpace(strings.Join(record, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}

	return docFromPages([][]string{lines}), nil
}
