package store

import (
	"testing"

	"github.com/finchley/burrow/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsSeedDefaults(t *testing.T) {
	ss := setupSettingsTestDB(t)

	start, err := ss.GetInt("scheduler_active_start_hour", 0)
	if err != nil {
		t.Fatalf("get start hour: %v", err)
	}
	if start != 7 {
		t.Errorf("start hour = %d, want 7", start)
	}

	end, err := ss.GetInt("scheduler_active_end_hour", 0)
	if err != nil {
		t.Fatalf("get end hour: %v", err)
	}
	if end != 22 {
		t.Errorf("end hour = %d, want 22", end)
	}
}

func TestSettingsSetAndGet(t *testing.T) {
	ss := setupSettingsTestDB(t)

	if err := ss.Set("scheduler_active_start_hour", "8"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := ss.GetInt("scheduler_active_start_hour", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 8 {
		t.Errorf("value = %d, want 8", v)
	}

	// Missing keys return the fallback
	v, err = ss.GetInt("no_such_key", 42)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if v != 42 {
		t.Errorf("fallback = %d, want 42", v)
	}

	// Malformed values return the fallback too
	ss.Set("scheduler_active_start_hour", "not a number")
	v, err = ss.GetInt("scheduler_active_start_hour", 7)
	if err != nil {
		t.Fatalf("get malformed: %v", err)
	}
	if v != 7 {
		t.Errorf("malformed fallback = %d, want 7", v)
	}
}
