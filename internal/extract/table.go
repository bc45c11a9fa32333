package extract

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/hematrace/labxtract/internal/ocr"
	"github.com/hematrace/labxtract/internal/template"
)

// locateTables runs the table-based algorithm over one page's cells.
// A header cell naming a subsection activates that subsection context;
// data cells are matched against parameter aliases and the value is taken
// from the first cell in the same row, to the right, that yields a numeric
// capture. By default context does not restrict which parameters a data
// cell may match; with StrictTableContext only the active subsection's
// parameters are candidates.
func (e *Engine) locateTables(cells []ocr.TableCell, values map[template.Key]string, resolved map[template.Key]bool) {
	byRow := make(map[int][]ocr.TableCell)
	for _, c := range cells {
		byRow[c.Row] = append(byRow[c.Row], c)
	}
	for _, row := range byRow {
		sort.SliceStable(row, func(i, j int) bool { return row[i].Column < row[j].Column })
	}

	activeSubsection := ""
	for _, cell := range cells {
		switch cell.Kind {
		case ocr.CellHeader:
			if sub := e.matchSubsection(cell.Text); sub != "" {
				activeSubsection = sub
			}
		case ocr.CellData:
			for _, m := range e.terms.Occurrences(cell.Text) {
				for _, key := range e.keysByName[m.Parameter] {
					if resolved[key] {
						continue
					}
					if e.strictTableContext && activeSubsection != "" && key.Subsection != activeSubsection {
						continue
					}
					v, ok := rowValueAfter(byRow[cell.Row], cell.Column)
					if !ok {
						continue
					}
					values[key] = v
					resolved[key] = true
				}
			}
		}
	}
}

// rowValueAfter scans cells with a strictly greater column index, in column
// order, for the first numeric capture.
func rowValueAfter(row []ocr.TableCell, column int) (string, bool) {
	for _, c := range row {
		if c.Column <= column {
			continue
		}
		if v, ok := firstValue(c.Text); ok {
			return v, true
		}
	}
	return "", false
}

// matchSubsection reports which subsection a header cell names, if any.
// Exact containment is tried first; a fuzzy match absorbs OCR noise such
// as dropped characters in the header text.
func (e *Engine) matchSubsection(cellText string) string {
	text := strings.ToLower(strings.TrimSpace(cellText))
	if text == "" {
		return ""
	}
	for _, sub := range e.subsections {
		if strings.Contains(text, strings.ToLower(sub)) {
			return sub
		}
	}
	for _, sub := range e.subsections {
		if fuzzy.MatchNormalizedFold(text, sub) {
			return sub
		}
	}
	return ""
}
