package extract

import (
	"encoding/json"
	"testing"

	"github.com/hematrace/labxtract/internal/template"
)

const assembleTestTemplate = `{"CHEMISTRY": {"Basic": ["Glucose", "Sodium"]}}`

func testKeys() (glucose, sodium template.Key) {
	glucose = template.Key{Section: "CHEMISTRY", Subsection: "Basic", Parameter: "Glucose"}
	sodium = template.Key{Section: "CHEMISTRY", Subsection: "Basic", Parameter: "Sodium"}
	return
}

func TestAssemble_FillsNotFound(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	glucose, sodium := testKeys()

	r := Assemble(tmpl, map[template.Key]string{glucose: "99 mg/dL"}, "2024-03-07")
	if got := r.Value(glucose); got != "99 mg/dL" {
		t.Errorf("Glucose = %q", got)
	}
	if got := r.Value(sodium); got != NotFound {
		t.Errorf("Sodium = %q, want %q", got, NotFound)
	}
	if r.Date != "2024-03-07" {
		t.Errorf("Date = %q", r.Date)
	}
}

func TestResult_MarshalJSON_ExactShape(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	glucose, _ := testKeys()

	r := Assemble(tmpl, map[template.Key]string{glucose: "99 mg/dL"}, "2024-03-07")
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"metadata":{"date":"2024-03-07"},"CHEMISTRY":{"Basic":{"Glucose":"99 mg/dL","Sodium":"N/A"}}}`
	if string(out) != want {
		t.Errorf("serialized result:\n got %s\nwant %s", out, want)
	}
}

func TestMerge_FirstConcreteValueWins(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	glucose, sodium := testKeys()

	a := Assemble(tmpl, map[template.Key]string{glucose: "250"}, "2024-01-01")
	b := Assemble(tmpl, map[template.Key]string{glucose: "300", sodium: "140"}, "2024-03-05")

	m := Merge(a, b)
	if got := m.Value(glucose); got != "250" {
		t.Errorf("Glucose = %q, want first concrete value %q", got, "250")
	}
	if got := m.Value(sodium); got != "140" {
		t.Errorf("Sodium = %q, want %q filled from second document", got, "140")
	}
	if m.Date != "2024-03-05" {
		t.Errorf("Date = %q, want chronological max", m.Date)
	}
}

func TestMerge_SentinelIsReplaceable(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	glucose, _ := testKeys()

	a := Assemble(tmpl, nil, "2024-01-01")
	b := Assemble(tmpl, map[template.Key]string{glucose: "250"}, "2024-01-01")

	if got := Merge(a, b).Value(glucose); got != "250" {
		t.Errorf("Glucose = %q, want sentinel replaced", got)
	}
}

func TestMerge_NilOperands(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	r := Assemble(tmpl, nil, "2024-01-01")

	if Merge(nil, r) != r {
		t.Error("Merge(nil, r) should return r")
	}
	if Merge(r, nil) != r {
		t.Error("Merge(r, nil) should return r")
	}
	if Merge(nil, nil) != nil {
		t.Error("Merge(nil, nil) should be nil")
	}
}

func TestMerge_InputsUntouched(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	glucose, _ := testKeys()

	a := Assemble(tmpl, nil, "2024-01-01")
	b := Assemble(tmpl, map[template.Key]string{glucose: "250"}, "2024-03-05")
	Merge(a, b)

	if got := a.Value(glucose); got != NotFound {
		t.Errorf("left operand mutated: Glucose = %q", got)
	}
	if a.Date != "2024-01-01" {
		t.Errorf("left operand date mutated: %q", a.Date)
	}
}

func TestMerge_Associative(t *testing.T) {
	tmpl, err := template.Parse([]byte(assembleTestTemplate))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	glucose, sodium := testKeys()

	a := Assemble(tmpl, map[template.Key]string{glucose: "250"}, "2024-01-01")
	b := Assemble(tmpl, map[template.Key]string{sodium: "140"}, "2024-02-01")
	c := Assemble(tmpl, map[template.Key]string{glucose: "300", sodium: "145"}, "2024-03-01")

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))

	for _, k := range tmpl.Keys() {
		if left.Value(k) != right.Value(k) {
			t.Errorf("%v: %q != %q", k, left.Value(k), right.Value(k))
		}
	}
	if left.Date != right.Date {
		t.Errorf("dates differ: %q != %q", left.Date, right.Date)
	}
}
