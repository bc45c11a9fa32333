package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hematrace/labxtract/internal/ocr"
)

// MarkdownParser handles markdown OCR exports (some OCR services emit pages
// as markdown). Headings and block text are flattened to recognized lines
// with the markup stripped.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*ocr.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var lines []string
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Heading:
				if t := string(node.Text(src)); t != "" {
					lines = append(lines, t)
				}
			default:
				if c.Type() == ast.TypeBlock {
					if c.HasChildren() && isContainerBlock(c) {
						walk(c)
						continue
					}
					for _, line := range strings.Split(blockText(c, src), "\n") {
						if strings.TrimSpace(line) != "" {
							lines = append(lines, line)
						}
					}
				}
			}
		}
	}
	walk(doc)

	return docFromPages([][]string{lines}), nil
}

func isContainerBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.List, *ast.ListItem, *ast.Blockquote:
		return true
	}
	return false
}

// blockText gets the text content of a goldmark AST block node with inline
// markup stripped.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(blockText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
