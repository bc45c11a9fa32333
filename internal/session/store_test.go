package session

import (
	"errors"
	"testing"
	"time"

	"github.com/hematrace/labxtract/internal/extract"
	"github.com/hematrace/labxtract/internal/template"
)

func testResult(t *testing.T, value, date string) *extract.Result {
	t.Helper()
	tmpl, err := template.Parse([]byte(`{"S": {"A": ["Glucose"]}}`))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	values := map[template.Key]string{}
	if value != "" {
		values[template.Key{Section: "S", Subsection: "A", Parameter: "Glucose"}] = value
	}
	return extract.Assemble(tmpl, values, date)
}

func TestStore_CreateAndGet(t *testing.T) {
	s := NewStore(time.Hour)
	r := testResult(t, "99", "2024-01-01")

	id := s.Create(r, []string{"a.pdf"})
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	e, err := s.Get(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Combined != r {
		t.Error("expected stored result back")
	}
	if len(e.Documents) != 1 || e.Documents[0] != "a.pdf" {
		t.Errorf("Documents = %v", e.Documents)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s := NewStore(time.Hour)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Append(t *testing.T) {
	s := NewStore(time.Hour)
	k := template.Key{Section: "S", Subsection: "A", Parameter: "Glucose"}

	id := s.Create(testResult(t, "", "2024-01-01"), []string{"a.pdf"})
	e, err := s.Append(id, testResult(t, "99", "2024-02-01"), []string{"b.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := e.Combined.Value(k); got != "99" {
		t.Errorf("Glucose = %q after append", got)
	}
	if e.Combined.Date != "2024-02-01" {
		t.Errorf("Date = %q", e.Combined.Date)
	}
	if len(e.Documents) != 2 || e.Documents[1] != "b.pdf" {
		t.Errorf("Documents = %v", e.Documents)
	}
}

func TestStore_AppendUnknownDoesNotMutate(t *testing.T) {
	s := NewStore(time.Hour)
	if _, err := s.Append("nope", testResult(t, "99", "2024-01-01"), []string{"a.pdf"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("store mutated by failed append: Len = %d", s.Len())
	}
}

func TestStore_AppendKeepsEarlierValue(t *testing.T) {
	s := NewStore(time.Hour)
	k := template.Key{Section: "S", Subsection: "A", Parameter: "Glucose"}

	id := s.Create(testResult(t, "250", "2024-01-01"), []string{"a.pdf"})
	e, err := s.Append(id, testResult(t, "300", "2024-01-02"), []string{"b.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Combined.Value(k); got != "250" {
		t.Errorf("Glucose = %q, earlier concrete value must win", got)
	}
}

func TestStore_Cleanup(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	s.Create(testResult(t, "99", "2024-01-01"), []string{"a.pdf"})

	time.Sleep(20 * time.Millisecond)
	s.Cleanup()
	if s.Len() != 0 {
		t.Errorf("expected expired session removed, Len = %d", s.Len())
	}
}

func TestStore_CleanupKeepsFresh(t *testing.T) {
	s := NewStore(time.Hour)
	id := s.Create(testResult(t, "99", "2024-01-01"), []string{"a.pdf"})

	s.Cleanup()
	if _, err := s.Get(id); err != nil {
		t.Errorf("fresh session removed: %v", err)
	}
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	s := NewStore(time.Hour)
	id := s.Create(testResult(t, "99", "2024-01-01"), []string{"a.pdf"})

	e, _ := s.Get(id)
	e.Documents[0] = "mutated"

	again, _ := s.Get(id)
	if again.Documents[0] != "a.pdf" {
		t.Error("Get must return a copy of the document list")
	}
}
