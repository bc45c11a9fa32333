package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Template is the fixed three-level hierarchy of clinical parameters to
// extract: Section -> Subsection -> ordered parameter names. It is loaded
// once at startup and never mutated; its ordering defines output key order.
type Template struct {
	Sections []Section
}

type Section struct {
	Name        string
	Subsections []Subsection
}

type Subsection struct {
	Name       string
	Parameters []string
}

// Key addresses a single parameter slot in the hierarchy.
type Key struct {
	Section    string
	Subsection string
	Parameter  string
}

// ConfigError reports a missing or malformed template definition.
// A template that fails to load is always fatal to the caller; there is
// no degraded empty-template mode.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("template: %v", e.Err)
	}
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// templateSchema constrains the definition file to an object of objects of
// non-empty string arrays. An optional top-level "metadata" key is stripped
// before validation; some template files carry one as an output skeleton.
const templateSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "object",
    "minProperties": 1,
    "additionalProperties": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("template.schema.json", templateSchema)

// Load reads and validates a template definition file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	t, err := Parse(data)
	if err != nil {
		var cfgErr *ConfigError
		if ok := asConfigError(err, &cfgErr); ok {
			cfgErr.Path = path
			return nil, cfgErr
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	return t, nil
}

func asConfigError(err error, target **ConfigError) bool {
	ce, ok := err.(*ConfigError)
	if ok {
		*target = ce
	}
	return ok
}

// Parse validates and decodes a template definition, preserving the key
// order of the source document.
func Parse(data []byte) (*Template, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if m, ok := doc.(map[string]any); ok {
		delete(m, "metadata")
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("schema: %w", err)}
	}

	t, err := parseOrdered(data)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := t.validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return t, nil
}

// parseOrdered walks the JSON token stream so that section, subsection and
// parameter order match the file. encoding/json maps would lose it.
func parseOrdered(data []byte) (*Template, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	t := &Template{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if name == "metadata" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("metadata: %w", err)
			}
			continue
		}
		sec, err := parseSection(dec, name)
		if err != nil {
			return nil, err
		}
		t.Sections = append(t.Sections, sec)
	}
	return t, nil
}

func parseSection(dec *json.Decoder, name string) (Section, error) {
	sec := Section{Name: name}
	if err := expectDelim(dec, '{'); err != nil {
		return sec, fmt.Errorf("section %q: %w", name, err)
	}
	for dec.More() {
		sub, err := readKey(dec)
		if err != nil {
			return sec, fmt.Errorf("section %q: %w", name, err)
		}
		var params []string
		if err := dec.Decode(&params); err != nil {
			return sec, fmt.Errorf("section %q, subsection %q: %w", name, sub, err)
		}
		sec.Subsections = append(sec.Subsections, Subsection{Name: sub, Parameters: params})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return sec, fmt.Errorf("section %q: %w", name, err)
	}
	return sec, nil
}

func expectDelim(dec *json.Decoder, want rune) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || rune(d) != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

func (t *Template) validate() error {
	if len(t.Sections) == 0 {
		return fmt.Errorf("no sections defined")
	}
	for _, sec := range t.Sections {
		for _, sub := range sec.Subsections {
			seen := make(map[string]bool, len(sub.Parameters))
			for _, p := range sub.Parameters {
				if seen[p] {
					return fmt.Errorf("duplicate parameter %q in %s/%s", p, sec.Name, sub.Name)
				}
				seen[p] = true
			}
		}
	}
	return nil
}

// Keys returns every (section, subsection, parameter) triple in template order.
func (t *Template) Keys() []Key {
	var keys []Key
	for _, sec := range t.Sections {
		for _, sub := range sec.Subsections {
			for _, p := range sub.Parameters {
				keys = append(keys, Key{Section: sec.Name, Subsection: sub.Name, Parameter: p})
			}
		}
	}
	return keys
}

// ParameterNames returns the distinct parameter names in first-seen template
// order. The same name may occur in more than one subsection.
func (t *Template) ParameterNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, k := range t.Keys() {
		if !seen[k.Parameter] {
			seen[k.Parameter] = true
			names = append(names, k.Parameter)
		}
	}
	return names
}

// MarshalJSON emits the hierarchy with keys in template order. A plain map
// would serialize alphabetically.
func (t *Template) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range t.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, sec.Name); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, sub := range sec.Subsections {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(&buf, sub.Name); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			params, err := json.Marshal(sub.Parameters)
			if err != nil {
				return nil, err
			}
			buf.Write(params)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
