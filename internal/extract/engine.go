package extract

import (
	"github.com/hematrace/labxtract/internal/ocr"
	"github.com/hematrace/labxtract/internal/template"
)

// Engine locates values for every template parameter in a recognized
// document and assembles them into a Result. It is stateless across
// documents and safe for concurrent use.
type Engine struct {
	tmpl        *template.Template
	terms       *template.Terms
	keysByName  map[string][]template.Key
	subsections []string

	strictTableContext bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrictTableContext restricts table-based matching to the subsection
// activated by the most recent header cell, instead of the default of
// matching data cells against every parameter.
func WithStrictTableContext() Option {
	return func(e *Engine) { e.strictTableContext = true }
}

func NewEngine(tmpl *template.Template, terms *template.Terms, opts ...Option) *Engine {
	e := &Engine{
		tmpl:       tmpl,
		terms:      terms,
		keysByName: make(map[string][]template.Key),
	}
	seenSub := make(map[string]bool)
	for _, k := range tmpl.Keys() {
		e.keysByName[k.Parameter] = append(e.keysByName[k.Parameter], k)
		if !seenSub[k.Subsection] {
			seenSub[k.Subsection] = true
			e.subsections = append(e.subsections, k.Subsection)
		}
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract produces one Result for one recognized document. Pages with
// table structure run the table pass first; the line pass then fills
// parameters still unresolved. Parameters without a match anywhere are
// set to the NotFound sentinel, never omitted.
func (e *Engine) Extract(doc *ocr.Document) *Result {
	values := make(map[template.Key]string)
	resolved := make(map[template.Key]bool)
	tried := make(map[template.Key]bool)

	for _, page := range doc.Pages {
		if len(page.Cells) > 0 {
			e.locateTables(page.Cells, values, resolved)
		}
		if len(page.Lines) > 0 {
			e.locateLines(RowTexts(page.Lines), values, resolved, tried)
		}
	}

	return Assemble(e.tmpl, values, ReportDate(doc.Text()))
}

// ExtractText runs the line-based algorithm over flat text with no layout
// information, for inputs that never had positions (plain text uploads).
func (e *Engine) ExtractText(text string) *Result {
	values := make(map[template.Key]string)
	resolved := make(map[template.Key]bool)
	tried := make(map[template.Key]bool)

	e.locateLines(SplitLines(text), values, resolved, tried)
	return Assemble(e.tmpl, values, ReportDate(text))
}
