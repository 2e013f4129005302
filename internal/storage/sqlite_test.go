package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.Get("beginnerSurveyDraft"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v; want false, nil", ok, err)
	}

	if err := s.Set("beginnerSurveyDraft", `{"location":"Otter Lake"}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get("beginnerSurveyDraft")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if v != `{"location":"Otter Lake"}` {
		t.Errorf("Get() = %q", v)
	}

	// Overwrite
	if err := s.Set("beginnerSurveyDraft", `{}`); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}
	v, _, _ = s.Get("beginnerSurveyDraft")
	if v != `{}` {
		t.Errorf("Get() after overwrite = %q, want {}", v)
	}

	if err := s.Delete("beginnerSurveyDraft"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get("beginnerSurveyDraft"); ok {
		t.Error("key still present after Delete")
	}

	// Deleting again is fine
	if err := s.Delete("beginnerSurveyDraft"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Set("observations", "[]"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	v, ok, err := s.Get("observations")
	if err != nil || !ok || v != "[]" {
		t.Errorf("Get() after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestMemoryStore_FailureInjection(t *testing.T) {
	m := NewMemoryStore()
	quota := errors.New("quota exceeded")

	m.FailWrites(quota)
	if err := m.Set("k", "v"); !errors.Is(err, quota) {
		t.Errorf("Set() error = %v, want quota", err)
	}
	if m.Writes("k") != 0 {
		t.Errorf("failed write counted")
	}

	m.FailWrites(nil)
	if err := m.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if m.Writes("k") != 1 {
		t.Errorf("Writes() = %d, want 1", m.Writes("k"))
	}

	m.GetErr = errors.New("unavailable")
	if _, _, err := m.Get("k"); err == nil {
		t.Error("expected Get error")
	}
}
