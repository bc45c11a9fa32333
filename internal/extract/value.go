package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hematrace/labxtract/internal/ocr"
	"github.com/hematrace/labxtract/internal/template"
)

// NotFound is the sentinel for a parameter that was searched but has no
// match in the document. It is a value, not an error.
const NotFound = "N/A"

// scanWindow is how many lines below an alias match are searched for a value.
const scanWindow = 3

// valueRe captures a plain number, a low-high range, a x10^n exponent
// suffix and a trailing unit. OCR variants of the dash and multiplication
// sign are accepted and normalized afterwards.
var valueRe = regexp.MustCompile(`[-+]?\d*\.?\d+(?:\s*[-–]\s*\d*\.?\d+)?(?:\s*[x×]\s*10\s*\^\s*\d+)?(?:\s*[a-zA-Z/%]+)?`)

// firstValue returns the first numeric-pattern capture in s, normalized.
func firstValue(s string) (string, bool) {
	m := valueRe.FindString(s)
	if m == "" {
		return "", false
	}
	return normalizeValue(m), true
}

func normalizeValue(v string) string {
	v = strings.ReplaceAll(v, "–", "-")
	v = strings.ReplaceAll(v, "×", "x")
	return strings.TrimSpace(v)
}

// RowTexts groups recognized lines into visual rows: lines are bucketed by
// their rounded vertical coordinate (tolerating slight misalignment),
// rows ordered top to bottom, and lines within a row ordered left to right
// before being joined into one text.
func RowTexts(lines []ocr.Line) []string {
	if len(lines) == 0 {
		return nil
	}

	rows := make(map[int][]ocr.Line)
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		y := int(math.Round(l.Y))
		rows[y] = append(rows[y], l)
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Ints(ys)

	out := make([]string, 0, len(ys))
	for _, y := range ys {
		row := rows[y]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		parts := make([]string, 0, len(row))
		for _, l := range row {
			parts = append(parts, strings.TrimSpace(l.Text))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

// SplitLines turns flat recognized text into non-empty trimmed lines,
// preserving order.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// aliasEnd returns the byte offset in line immediately after the first
// case-insensitive occurrence of alias (alias is already lower-case), or -1.
// Lowering is done rune by rune with source offsets tracked: lowercase forms
// can differ in byte length, so an index into a ToLower copy must not be
// used to slice the original.
func aliasEnd(line, alias string) int {
	var lower strings.Builder
	lower.Grow(len(line))
	offsets := make([]int, 0, len(line)+1)
	for i, r := range line {
		lr := unicode.ToLower(r)
		for n := 0; n < utf8.RuneLen(lr); n++ {
			offsets = append(offsets, i)
		}
		lower.WriteRune(lr)
	}
	offsets = append(offsets, len(line))

	pos := strings.Index(lower.String(), alias)
	if pos < 0 {
		return -1
	}
	return offsets[pos+len(alias)]
}

// Locate finds the most plausible value for a single parameter in flat
// line-based text: on the first line containing any alias it searches the
// remainder of that line after the alias, then up to the next 3 lines, for
// the first numeric capture. Only the first matching line is considered;
// no alias match or no value within the window yields NotFound.
func Locate(lines []string, aliases []string) string {
	for i, line := range lines {
		end := -1
		for _, a := range aliases {
			if e := aliasEnd(line, a); e >= 0 {
				end = e
				break
			}
		}
		if end < 0 {
			continue
		}
		if v, ok := firstValue(line[end:]); ok {
			return v
		}
		for j := i + 1; j <= i+scanWindow && j < len(lines); j++ {
			if v, ok := firstValue(lines[j]); ok {
				return v
			}
		}
		return NotFound
	}
	return NotFound
}

// locateLines runs the line-based algorithm for every template parameter in
// one pass over the rows, using the precompiled alias matcher. Semantics
// match Locate: a parameter is consumed by its first matching row whether
// or not a value was found there.
func (e *Engine) locateLines(rows []string, values map[template.Key]string, resolved, tried map[template.Key]bool) {
	for i, row := range rows {
		for _, m := range e.terms.Occurrences(row) {
			keys := e.keysByName[m.Parameter]
			end := aliasEnd(row, m.Alias)
			if end < 0 {
				continue
			}

			value := ""
			found := false
			if v, ok := firstValue(row[end:]); ok {
				value, found = v, true
			}
			for j := i + 1; !found && j <= i+scanWindow && j < len(rows); j++ {
				if v, ok := firstValue(rows[j]); ok {
					value, found = v, true
				}
			}

			for _, key := range keys {
				if resolved[key] || tried[key] {
					continue
				}
				tried[key] = true
				if found {
					values[key] = value
					resolved[key] = true
				}
			}
		}
	}
}
