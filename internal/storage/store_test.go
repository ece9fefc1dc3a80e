package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AddAndGetHistory(t *testing.T) {
	store := setupTestStore(t)

	entry := &HistoryEntry{
		Path:         "/exports/team.json",
		Name:         "team.json",
		Size:         2048,
		MessageCount: 12,
		LastOpened:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.AddHistory(entry); err != nil {
		t.Fatalf("failed to add history: %v", err)
	}

	got, err := store.GetHistory("/exports/team.json")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if got.Name != entry.Name {
		t.Errorf("expected name %s, got %s", entry.Name, got.Name)
	}
	if got.Size != entry.Size {
		t.Errorf("expected size %d, got %d", entry.Size, got.Size)
	}
	if got.MessageCount != entry.MessageCount {
		t.Errorf("expected message count %d, got %d", entry.MessageCount, got.MessageCount)
	}
	if !got.LastOpened.Equal(entry.LastOpened) {
		t.Errorf("expected last opened %v, got %v", entry.LastOpened, got.LastOpened)
	}
}

func TestStore_GetHistory_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetHistory("/nowhere.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AddHistory_RequiresPath(t *testing.T) {
	store := setupTestStore(t)

	if err := store.AddHistory(&HistoryEntry{Name: "x"}); err == nil {
		t.Error("expected error for entry without path")
	}
}

func TestStore_AddHistory_SetsLastOpened(t *testing.T) {
	store := setupTestStore(t)

	entry := &HistoryEntry{Path: "/a.json"}
	before := time.Now()
	if err := store.AddHistory(entry); err != nil {
		t.Fatal(err)
	}
	if entry.LastOpened.Before(before) {
		t.Errorf("expected LastOpened to be set to now, got %v", entry.LastOpened)
	}
}

func TestStore_HistoryNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c"} {
		entry := &HistoryEntry{Path: "/" + name + ".json", Name: name, LastOpened: base.Add(time.Duration(i) * time.Hour)}
		if err := store.AddHistory(entry); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.History()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"c", "b", "a"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entry %d: expected %s, got %s", i, name, entries[i].Name)
		}
	}
}

func TestStore_ReopenMovesToFront(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = store.AddHistory(&HistoryEntry{Path: "/a.json", Name: "a", LastOpened: base})
	_ = store.AddHistory(&HistoryEntry{Path: "/b.json", Name: "b", LastOpened: base.Add(time.Hour)})
	_ = store.AddHistory(&HistoryEntry{Path: "/a.json", Name: "a", LastOpened: base.Add(2 * time.Hour)})

	entries, err := store.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected no duplicates, got %d entries", len(entries))
	}
	if entries[0].Path != "/a.json" {
		t.Errorf("expected reopened file first, got %s", entries[0].Path)
	}
}

func TestStore_HistoryCapped(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxHistory+5; i++ {
		entry := &HistoryEntry{
			Path:       fmt.Sprintf("/file-%02d.json", i),
			LastOpened: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AddHistory(entry); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != MaxHistory {
		t.Fatalf("expected %d entries, got %d", MaxHistory, len(entries))
	}
	if entries[0].Path != "/file-14.json" {
		t.Errorf("expected newest first, got %s", entries[0].Path)
	}
	if entries[MaxHistory-1].Path != "/file-05.json" {
		t.Errorf("expected oldest kept to be file-05, got %s", entries[MaxHistory-1].Path)
	}
	if _, err := store.GetHistory("/file-04.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected dropped entry to be gone, got %v", err)
	}
}

func TestStore_RemoveHistory(t *testing.T) {
	store := setupTestStore(t)

	_ = store.AddHistory(&HistoryEntry{Path: "/a.json"})
	_ = store.AddHistory(&HistoryEntry{Path: "/b.json"})

	if err := store.RemoveHistory("/a.json"); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if err := store.RemoveHistory("/missing.json"); err != nil {
		t.Errorf("removing a missing path should not fail: %v", err)
	}

	entries, _ := store.History()
	if len(entries) != 1 || entries[0].Path != "/b.json" {
		t.Errorf("expected only /b.json to remain, got %+v", entries)
	}
}

func TestStore_ClearHistory(t *testing.T) {
	store := setupTestStore(t)

	_ = store.AddHistory(&HistoryEntry{Path: "/a.json"})
	_ = store.SetPref(PrefViewMode, "list")

	if err := store.ClearHistory(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	entries, err := store.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d entries", len(entries))
	}
	if got := store.PrefOr(PrefViewMode, "card"); got != "list" {
		t.Errorf("clearing history should keep preferences, got %q", got)
	}
}

func TestStore_Prefs(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.Pref(PrefViewMode); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unset pref, got %v", err)
	}
	if got := store.PrefOr(PrefViewMode, "card"); got != "card" {
		t.Errorf("expected fallback, got %q", got)
	}

	if err := store.SetPref(PrefViewMode, "list"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Pref(PrefViewMode)
	if err != nil {
		t.Fatal(err)
	}
	if got != "list" {
		t.Errorf("expected list, got %q", got)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.AddHistory(&HistoryEntry{Path: "/a.json", Name: "a"})
	_ = store.SetPref(PrefLastFile, "/a.json")
	store.Close()

	store, err = NewStoreWithTimeout(dbPath, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	entries, _ := store.History()
	if len(entries) != 1 || entries[0].Name != "a" {
		t.Errorf("expected history to survive reopen, got %+v", entries)
	}
	if got := store.PrefOr(PrefLastFile, ""); got != "/a.json" {
		t.Errorf("expected last file pref, got %q", got)
	}
}

func TestStore_LockTimeout(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locked.db")

	first, err := NewStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	if _, err := NewStoreWithTimeout(dbPath, 50*time.Millisecond); err == nil {
		t.Error("expected lock timeout opening a database held by another store")
	}
}
