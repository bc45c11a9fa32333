package template

import (
	"strings"
	"testing"
)

const sampleTemplate = `{
  "HAEMATOLOGY": {
    "Complete Blood Count": ["WBC Count", "RBC Count", "Hemoglobin"],
    "Differential Count": ["Neutrophils", "Lymphocytes"],
    "Prothrombin Time": ["Test", "Control", "INR"]
  },
  "BIOCHEMISTRY": {
    "Electrolytes": ["Sodium", "Potassium"]
  }
}`

func TestParse_PreservesOrder(t *testing.T) {
	tmpl, err := Parse([]byte(sampleTemplate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tmpl.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(tmpl.Sections))
	}
	if tmpl.Sections[0].Name != "HAEMATOLOGY" || tmpl.Sections[1].Name != "BIOCHEMISTRY" {
		t.Errorf("section order not preserved: %q, %q", tmpl.Sections[0].Name, tmpl.Sections[1].Name)
	}

	subs := tmpl.Sections[0].Subsections
	if len(subs) != 3 {
		t.Fatalf("expected 3 subsections, got %d", len(subs))
	}
	wantSubs := []string{"Complete Blood Count", "Differential Count", "Prothrombin Time"}
	for i, w := range wantSubs {
		if subs[i].Name != w {
			t.Errorf("subsection[%d]: expected %q, got %q", i, w, subs[i].Name)
		}
	}

	wantParams := []string{"WBC Count", "RBC Count", "Hemoglobin"}
	for i, w := range wantParams {
		if subs[0].Parameters[i] != w {
			t.Errorf("parameter[%d]: expected %q, got %q", i, w, subs[0].Parameters[i])
		}
	}
}

func TestParse_SkipsMetadata(t *testing.T) {
	data := `{"metadata": {"date": ""}, "HAEMATOLOGY": {"CBC": ["Hemoglobin"]}}`
	tmpl, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(tmpl.Sections))
	}
	if tmpl.Sections[0].Name != "HAEMATOLOGY" {
		t.Errorf("expected section HAEMATOLOGY, got %q", tmpl.Sections[0].Name)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"HAEMATOLOGY": `},
		{"empty object", `{}`},
		{"section not object", `{"HAEMATOLOGY": ["Hemoglobin"]}`},
		{"params not array", `{"HAEMATOLOGY": {"CBC": {"Hemoglobin": ""}}}`},
		{"empty param list", `{"HAEMATOLOGY": {"CBC": []}}`},
		{"empty param name", `{"HAEMATOLOGY": {"CBC": [""]}}`},
		{"duplicate param in subsection", `{"HAEMATOLOGY": {"CBC": ["Hemoglobin", "Hemoglobin"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if _, ok := err.(*ConfigError); !ok {
				t.Errorf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestParse_SameParamInDifferentSubsections(t *testing.T) {
	// The same name in different subsections is legal.
	data := `{"HAEMATOLOGY": {"A": ["Control"], "B": ["Control"]}}`
	tmpl, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(tmpl.Keys()); got != 2 {
		t.Errorf("expected 2 keys, got %d", got)
	}
	if got := len(tmpl.ParameterNames()); got != 1 {
		t.Errorf("expected 1 distinct name, got %d", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("does-not-exist.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Path != "does-not-exist.json" {
		t.Errorf("expected path in error, got %q", cfgErr.Path)
	}
}

func TestKeys(t *testing.T) {
	tmpl, err := Parse([]byte(sampleTemplate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := tmpl.Keys()
	if len(keys) != 10 {
		t.Fatalf("expected 10 keys, got %d", len(keys))
	}
	first := Key{Section: "HAEMATOLOGY", Subsection: "Complete Blood Count", Parameter: "WBC Count"}
	if keys[0] != first {
		t.Errorf("expected first key %+v, got %+v", first, keys[0])
	}
	last := Key{Section: "BIOCHEMISTRY", Subsection: "Electrolytes", Parameter: "Potassium"}
	if keys[len(keys)-1] != last {
		t.Errorf("expected last key %+v, got %+v", last, keys[len(keys)-1])
	}
}

func TestMarshalJSON_TemplateOrder(t *testing.T) {
	tmpl, err := Parse([]byte(sampleTemplate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := tmpl.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"HAEMATOLOGY":{"Complete Blood Count":["WBC Count","RBC Count","Hemoglobin"]`) {
		t.Errorf("unexpected serialization: %s", s)
	}
	if strings.Index(s, "HAEMATOLOGY") > strings.Index(s, "BIOCHEMISTRY") {
		t.Error("sections serialized out of template order")
	}

	// Round trip: the serialized form must parse back to the same hierarchy.
	back, err := Parse(out)
	if err != nil {
		t.Fatalf("round trip parse: %v", err)
	}
	if len(back.Sections) != len(tmpl.Sections) {
		t.Errorf("round trip lost sections: %d != %d", len(back.Sections), len(tmpl.Sections))
	}
}
