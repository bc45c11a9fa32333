package parser

import (
	"bufio"
	"io"

	"github.com/hematrace/labxtract/internal/ocr"
)

// TextParser handles plain text files: every non-empty line becomes one
// recognized line.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*ocr.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return docFromPages([][]string{lines}), nil
}
