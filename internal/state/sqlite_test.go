package state

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(opts...)
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore()

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore()

	if err := store.Migrate(); err == nil {
		t.Error("expected error migrating unopened store")
	}
	if _, err := store.RecordMoment("Start", nil); err == nil {
		t.Error("expected error recording into unopened store")
	}
	if _, err := store.Slots(); err == nil {
		t.Error("expected error listing slots of unopened store")
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("failed to read migration version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected migration version 1, got %d", version)
	}

	// Running again is a no-op.
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	for _, table := range []string{"moments", "saves"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
			continue
		}
		rows.Close()
	}
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore()
	if err := store.Open(path); err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if _, err := store.SaveSlot(0, "first", "Start", map[string]any{"gold": 3}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	reopened := NewSQLiteStore()
	if err := reopened.Open(path); err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Migrate(); err != nil {
		t.Fatalf("failed to migrate reopened store: %v", err)
	}

	save, err := reopened.LoadSlot(0)
	if err != nil {
		t.Fatalf("failed to load slot: %v", err)
	}
	if save.Title != "first" || save.Passage != "Start" {
		t.Errorf("unexpected save %+v", save)
	}
	if reopened.Path() != path {
		t.Errorf("expected path %q, got %q", path, reopened.Path())
	}
}

// --- History tests ---

func TestSQLiteStore_RecordMoment(t *testing.T) {
	store := setupTestStore(t)

	m, err := store.RecordMoment("Start", map[string]any{
		"gold":  5,
		"name":  "Ada",
		"items": []any{"lamp", "rope"},
	})
	if err != nil {
		t.Fatalf("failed to record moment: %v", err)
	}
	if m.ID == "" {
		t.Error("expected moment id to be set")
	}
	if m.Seq != 1 {
		t.Errorf("expected seq 1, got %d", m.Seq)
	}

	history, err := store.History()
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 moment, got %d", len(history))
	}

	got := history[0]
	if got.ID != m.ID || got.Passage != "Start" {
		t.Errorf("unexpected moment %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if got.Variables["gold"] != json.Number("5") {
		t.Errorf("expected gold to decode as json.Number 5, got %#v", got.Variables["gold"])
	}
	if got.Variables["name"] != "Ada" {
		t.Errorf("expected name Ada, got %#v", got.Variables["name"])
	}
	items, ok := got.Variables["items"].([]any)
	if !ok || len(items) != 2 {
		t.Errorf("expected two items, got %#v", got.Variables["items"])
	}
}

func TestSQLiteStore_HistoryPruning(t *testing.T) {
	tests := []struct {
		name      string
		maxStates int
		record    int
		want      []string
	}{
		{
			name:      "under limit",
			maxStates: 5,
			record:    3,
			want:      []string{"p0", "p1", "p2"},
		},
		{
			name:      "at limit",
			maxStates: 3,
			record:    3,
			want:      []string{"p0", "p1", "p2"},
		},
		{
			name:      "over limit keeps newest",
			maxStates: 2,
			record:    5,
			want:      []string{"p3", "p4"},
		},
		{
			name:      "single state",
			maxStates: 1,
			record:    4,
			want:      []string{"p3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t, WithMaxStates(tt.maxStates))

			for i := 0; i < tt.record; i++ {
				if _, err := store.RecordMoment("p"+string(rune('0'+i)), nil); err != nil {
					t.Fatalf("failed to record moment %d: %v", i, err)
				}
			}

			history, err := store.History()
			if err != nil {
				t.Fatalf("failed to read history: %v", err)
			}
			if len(history) != len(tt.want) {
				t.Fatalf("expected %d moments, got %d", len(tt.want), len(history))
			}
			for i, m := range history {
				if m.Passage != tt.want[i] {
					t.Errorf("moment %d: expected %s, got %s", i, tt.want[i], m.Passage)
				}
			}
		})
	}
}

func TestSQLiteStore_LatestMoment(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.LatestMoment(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty history, got %v", err)
	}

	for _, p := range []string{"Start", "Hall", "Cellar"} {
		if _, err := store.RecordMoment(p, map[string]any{"at": p}); err != nil {
			t.Fatalf("failed to record %s: %v", p, err)
		}
	}

	latest, err := store.LatestMoment()
	if err != nil {
		t.Fatalf("failed to read latest moment: %v", err)
	}
	if latest.Passage != "Cellar" || latest.Variables["at"] != "Cellar" {
		t.Errorf("unexpected latest moment %+v", latest)
	}

	if err := store.ClearHistory(); err != nil {
		t.Fatalf("failed to clear history: %v", err)
	}
	history, err := store.History()
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(history))
	}
}

// --- Save slot tests ---

func TestSQLiteStore_SaveSlots(t *testing.T) {
	store := setupTestStore(t, WithMaxSlots(3))

	if _, err := store.SaveSlot(1, "morning", "Hall", map[string]any{"gold": 1}); err != nil {
		t.Fatalf("failed to save slot 1: %v", err)
	}
	if _, err := store.SaveSlot(0, "dawn", "Start", nil); err != nil {
		t.Fatalf("failed to save slot 0: %v", err)
	}
	// Overwrite slot 1.
	if _, err := store.SaveSlot(1, "noon", "Cellar", map[string]any{"gold": 7}); err != nil {
		t.Fatalf("failed to overwrite slot 1: %v", err)
	}

	slots, err := store.Slots()
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Slot != 0 || slots[1].Slot != 1 {
		t.Errorf("expected slots ordered 0, 1; got %d, %d", slots[0].Slot, slots[1].Slot)
	}

	save, err := store.LoadSlot(1)
	if err != nil {
		t.Fatalf("failed to load slot 1: %v", err)
	}
	if save.Title != "noon" || save.Passage != "Cellar" {
		t.Errorf("unexpected save %+v", save)
	}
	if save.Variables["gold"] != json.Number("7") {
		t.Errorf("expected gold 7, got %#v", save.Variables["gold"])
	}

	empty, err := store.LoadSlot(0)
	if err != nil {
		t.Fatalf("failed to load slot 0: %v", err)
	}
	if len(empty.Variables) != 0 {
		t.Errorf("expected no variables in slot 0, got %v", empty.Variables)
	}

	if err := store.DeleteSlot(1); err != nil {
		t.Fatalf("failed to delete slot 1: %v", err)
	}
	if _, err := store.LoadSlot(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSlot(2); err != nil {
		t.Errorf("deleting an empty slot should succeed: %v", err)
	}
}

func TestSQLiteStore_SlotRange(t *testing.T) {
	store := setupTestStore(t, WithMaxSlots(2))

	tests := []struct {
		name string
		slot int
	}{
		{name: "negative", slot: -1},
		{name: "equal to max", slot: 2},
		{name: "far beyond", slot: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.SaveSlot(tt.slot, "", "Start", nil); !errors.Is(err, ErrSlotRange) {
				t.Errorf("SaveSlot: expected ErrSlotRange, got %v", err)
			}
			if _, err := store.LoadSlot(tt.slot); !errors.Is(err, ErrSlotRange) {
				t.Errorf("LoadSlot: expected ErrSlotRange, got %v", err)
			}
			if err := store.DeleteSlot(tt.slot); !errors.Is(err, ErrSlotRange) {
				t.Errorf("DeleteSlot: expected ErrSlotRange, got %v", err)
			}
		})
	}
}

func TestSQLiteStore_SavesSurviveHistoryClear(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.RecordMoment("Start", nil); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if _, err := store.SaveSlot(0, "keep", "Start", nil); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := store.ClearHistory(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if _, err := store.LoadSlot(0); err != nil {
		t.Errorf("expected save to survive history clear: %v", err)
	}
}

func TestNewSQLiteStore_Options(t *testing.T) {
	store := NewSQLiteStore(WithMaxStates(0), WithMaxSlots(-1), WithLogger(nil))
	if store.MaxStates() != DefaultMaxStates {
		t.Errorf("expected default max states, got %d", store.MaxStates())
	}
	if store.MaxSlots() != DefaultMaxSlots {
		t.Errorf("expected default max slots, got %d", store.MaxSlots())
	}

	store = NewSQLiteStore(WithMaxStates(3), WithMaxSlots(4))
	if store.MaxStates() != 3 || store.MaxSlots() != 4 {
		t.Errorf("unexpected limits %d/%d", store.MaxStates(), store.MaxSlots())
	}
}
