// Package ocr defines the recognized-document model shared by the local
// parsers and the cloud provider client, and the provider client itself.
package ocr

import (
	"context"
	"errors"
	"strings"
)

// Document is the provider-neutral OCR output: ordered pages of recognized
// lines, optionally with table cells. The extraction engine treats it as
// read-only input.
type Document struct {
	Pages []Page
}

// Page holds one page's recognized lines and, when the provider detected
// tabular structure, its table cells.
type Page struct {
	Number int
	Lines  []Line
	Cells  []TableCell
}

// Line is a recognized text line with the top-left corner of its bounding
// region. Locally parsed documents carry synthetic positions (X=0,
// Y=line index).
type Line struct {
	Text string
	X    float64
	Y    float64
}

// CellKind tags a table cell as a header or data cell.
type CellKind string

const (
	CellHeader CellKind = "header"
	CellData   CellKind = "data"
)

// TableCell is one cell of a recognized table.
type TableCell struct {
	Text   string
	Row    int
	Column int
	Kind   CellKind
}

// Provider turns raw document bytes into a recognized Document.
type Provider interface {
	Analyze(ctx context.Context, data []byte, filename string) (*Document, error)
}

// ErrNoTextExtracted means the provider call succeeded but recognized no
// content. It is a per-document failure; sibling documents in a batch are
// unaffected.
var ErrNoTextExtracted = errors.New("no text recognized in document")

// Empty reports whether the document carries no recognized lines or cells.
func (d *Document) Empty() bool {
	if d == nil {
		return true
	}
	for _, p := range d.Pages {
		if len(p.Lines) > 0 || len(p.Cells) > 0 {
			return false
		}
	}
	return true
}

// Text joins every recognized line across pages, in reading order.
func (d *Document) Text() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(l.Text)
		}
	}
	return sb.String()
}
