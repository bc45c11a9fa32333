package extract

import (
	"bytes"
	"encoding/json"

	"github.com/hematrace/labxtract/internal/template"
)

// Result is one document's extraction outcome: a report date plus a value
// (or the NotFound sentinel) for every template parameter. A merged
// multi-document result has the identical shape.
type Result struct {
	tmpl   *template.Template
	Date   string
	values map[template.Key]string
}

// Assemble builds a Result from per-parameter lookups, filling NotFound
// for every template key absent from values.
func Assemble(tmpl *template.Template, values map[template.Key]string, date string) *Result {
	r := &Result{
		tmpl:   tmpl,
		Date:   date,
		values: make(map[template.Key]string),
	}
	for _, k := range tmpl.Keys() {
		v, ok := values[k]
		if !ok || v == "" {
			v = NotFound
		}
		r.values[k] = v
	}
	return r
}

// Value returns the extracted value for a template key.
func (r *Result) Value(k template.Key) string {
	v, ok := r.values[k]
	if !ok {
		return NotFound
	}
	return v
}

// Merge folds b into a and returns the combined result, leaving both inputs
// untouched. Per parameter the running value is kept unless it is absent or
// the sentinel while the new value is concrete: the first concrete value
// seen wins, later documents never overwrite it. The metadata date is the
// chronologically larger of the two (lexicographic on ISO dates). Merge is
// associative, so folding per-document results in document-list order gives
// a deterministic combined result regardless of completion order.
func Merge(a, b *Result) *Result {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	out := &Result{
		tmpl:   a.tmpl,
		Date:   maxDate(a.Date, b.Date),
		values: make(map[template.Key]string, len(a.values)),
	}
	for _, k := range a.tmpl.Keys() {
		out.values[k] = mergeValue(a.Value(k), b.Value(k))
	}
	return out
}

func mergeValue(running, next string) string {
	if running == "" || running == NotFound {
		if next != "" {
			return next
		}
		return NotFound
	}
	return running
}

func maxDate(a, b string) string {
	if b > a {
		return b
	}
	return a
}

// MarshalJSON emits {"metadata":{"date":...},Section:{Subsection:{Parameter:
// value}}} with every level in template order. The shape is fixed and field
// order matters for reproducible output, so the object is written by hand.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"metadata":{"date":`)
	if err := writeString(&buf, r.Date); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	for _, sec := range r.tmpl.Sections {
		buf.WriteByte(',')
		if err := writeString(&buf, sec.Name); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, sub := range sec.Subsections {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(&buf, sub.Name); err != nil {
				return nil, err
			}
			buf.WriteString(":{")
			for p, param := range sub.Parameters {
				if p > 0 {
					buf.WriteByte(',')
				}
				if err := writeString(&buf, param); err != nil {
					return nil, err
				}
				buf.WriteByte(':')
				if err := writeString(&buf, r.Value(template.Key{Section: sec.Name, Subsection: sub.Name, Parameter: param})); err != nil {
					return nil, err
				}
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
