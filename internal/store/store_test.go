package store

import (
	"testing"

	"github.com/rahulunair/vekta/internal/record"
)

func testEntry(t *testing.T, label string, vec []float32) record.Entry {
	t.Helper()
	md := record.Metadata{FilePath: "p", FileName: "f", ContentPreview: "x"}
	e := record.Entry{Label: label, Vector: append([]float32(nil), vec...), Metadata: md}
	e.Normalize()
	return e
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 32)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndList(t *testing.T) {
	s := openTestStore(t)

	a := testEntry(t, "a", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	b := testEntry(t, "b", []float32{0, 1, 0, 0, 0, 0, 0, 0})

	if _, err := s.Add(a); err != nil {
		t.Fatalf("Add a failed: %v", err)
	}
	if _, err := s.Add(b); err != nil {
		t.Fatalf("Add b failed: %v", err)
	}

	labels, err := s.IterLabels()
	if err != nil {
		t.Fatalf("IterLabels failed: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d: %v", len(labels), labels)
	}
}

func TestContentHashDedup(t *testing.T) {
	s := openTestStore(t)
	e := testEntry(t, "a", []float32{1, 0, 0, 0, 0, 0, 0, 0})

	label1, err := s.Add(e)
	if err != nil {
		t.Fatal(err)
	}
	label2, err := s.Add(e)
	if err != nil {
		t.Fatal(err)
	}
	if label1 != label2 {
		t.Errorf("resubmit label mismatch: %q != %q", label1, label2)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestLabelCollisionMangling(t *testing.T) {
	s := openTestStore(t)
	a := testEntry(t, "a", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	a2 := testEntry(t, "a", []float32{0, 1, 0, 0, 0, 0, 0, 0})

	label1, err := s.Add(a)
	if err != nil {
		t.Fatal(err)
	}
	label2, err := s.Add(a2)
	if err != nil {
		t.Fatal(err)
	}
	if label1 != "a" || label2 != "a_1" {
		t.Errorf("labels = %q, %q, want a, a_1", label1, label2)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestLabelTooLong(t *testing.T) {
	s, err := Open(t.TempDir(), 2)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	e := testEntry(t, "toolong", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	if _, err := s.Add(e); err == nil {
		t.Error("expected LabelTooLong error")
	}
}

func TestGetByLabelConsistency(t *testing.T) {
	s := openTestStore(t)
	e := testEntry(t, "a", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	if _, err := s.Add(e); err != nil {
		t.Fatal(err)
	}

	got, found, err := s.GetByLabel("a")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected entry to be found")
	}

	byID, found, err := s.GetByUniqueID(got.UniqueID)
	if err != nil {
		t.Fatal(err)
	}
	if !found || byID.UniqueID != got.UniqueID {
		t.Error("label index inconsistent with main table")
	}
}

func TestGetByIndex(t *testing.T) {
	s := openTestStore(t)
	a := testEntry(t, "a", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	b := testEntry(t, "b", []float32{0, 1, 0, 0, 0, 0, 0, 0})
	s.Add(a)
	s.Add(b)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		e, found, err := s.GetByIndex(i)
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatalf("index %d not found", i)
		}
		seen[e.Label] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("expected both labels via positional access, got %v", seen)
	}
}
