package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hematrace/labxtract/internal/ocr"
)

// Parser extracts the text a document already carries (text layer, markup)
// into the recognized-document shape, so reports with embedded text never
// need a provider round trip.
type Parser interface {
	Parse(r io.Reader, filename string) (*ocr.Document, error)
}

// localExtensions are formats parsed in-process.
var localExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// providerExtensions are image formats that always go to the OCR provider.
var providerExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
}

// ForFile returns the appropriate local parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("no local parser for extension: %s", ext)
	}
}

// HasLocalParser reports whether the file can be parsed without the provider.
func HasLocalParser(filename string) bool {
	return localExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsSupportedExtension checks whether the service accepts the file at all,
// locally or via the provider.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return localExtensions[ext] || providerExtensions[ext]
}

// docFromPages builds a Document from per-page line texts with synthetic
// positions: X stays 0 and Y is the line index, so row grouping preserves
// source order.
func docFromPages(pages [][]string) *ocr.Document {
	doc := &ocr.Document{}
	for i, lines := range pages {
		page := ocr.Page{Number: i + 1}
		for j, text := range lines {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			page.Lines = append(page.Lines, ocr.Line{Text: text, Y: float64(j)})
		}
		if len(page.Lines) > 0 {
			doc.Pages = append(doc.Pages, page)
		}
	}
	return doc
}
