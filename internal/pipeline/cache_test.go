package pipeline

import (
	"testing"

	"github.com/hematrace/labxtract/internal/extract"
	"github.com/hematrace/labxtract/internal/template"
)

func testResult(t *testing.T) *extract.Result {
	t.Helper()
	tmpl, err := template.Parse([]byte(`{"S": {"A": ["Glucose"]}}`))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	return extract.Assemble(tmpl, nil, "2024-01-01")
}

func TestResultCache(t *testing.T) {
	c, err := NewResultCache(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := testResult(t)
	key := ContentHashHex([]byte("report bytes"))

	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Add(key, r)
	got, ok := c.Get(key)
	if !ok || got != r {
		t.Fatal("expected cached result back")
	}
}

func TestResultCache_EvictsLRU(t *testing.T) {
	c, err := NewResultCache(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := testResult(t)

	c.Add("a", r)
	c.Add("b", r)
	c.Get("a") // refresh a
	c.Add("c", r)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a retained")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestResultCache_InvalidCapacity(t *testing.T) {
	if _, err := NewResultCache(0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestContentHashHex(t *testing.T) {
	a := ContentHashHex([]byte("report"))
	b := ContentHashHex([]byte("report"))
	c := ContentHashHex([]byte("other"))

	if a != b {
		t.Error("same bytes must hash equal")
	}
	if a == c {
		t.Error("different bytes must hash different")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
