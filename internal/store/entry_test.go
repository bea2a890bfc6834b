package store

import (
	"path/filepath"
	"testing"

	"github.com/ponderjournal/ponder/internal/errs"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ponder.db")
	db, err := Open(dbPath, "pw")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertEntry_InsertThenUpdate(t *testing.T) {
	db := openTestDB(t)

	id, err := db.Entries.UpsertEntry("/j/2026/03/05.md.age", "2026-03-05", "chk1", 10)
	if err != nil {
		t.Fatalf("UpsertEntry (insert): %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero id")
	}

	id2, err := db.Entries.UpsertEntry("/j/2026/03/05.md.age", "2026-03-05", "chk2", 20)
	if err != nil {
		t.Fatalf("UpsertEntry (update): %v", err)
	}
	if id2 != id {
		t.Errorf("update changed the id: %d != %d", id2, id)
	}

	entry, err := db.Entries.GetEntryByDate("2026-03-05")
	if err != nil {
		t.Fatalf("GetEntryByDate: %v", err)
	}
	if entry.Checksum != "chk2" || entry.WordCount != 20 {
		t.Errorf("entry not updated: %+v", entry)
	}
}

func TestGetEntryByDate_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Entries.GetEntryByDate("2026-01-01")
	if !errs.Is(err, errs.DatabaseNotFound) {
		t.Fatalf("err = %v; want DatabaseNotFound", err)
	}
}

func TestGetEntryPath(t *testing.T) {
	db := openTestDB(t)
	id, err := db.Entries.UpsertEntry("/j/2026/03/05.md.age", "2026-03-05", "chk", 5)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	path, err := db.Entries.GetEntryPath(id)
	if err != nil {
		t.Fatalf("GetEntryPath: %v", err)
	}
	if path != "/j/2026/03/05.md.age" {
		t.Errorf("path = %q", path)
	}
}

func TestGetEntryChecksum(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-06", "the-checksum", 1); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	got, err := db.Entries.GetEntryChecksum("2026-03-06")
	if err != nil {
		t.Fatalf("GetEntryChecksum: %v", err)
	}
	if got != "the-checksum" {
		t.Errorf("checksum = %q", got)
	}
}

func TestNeedsEmbeddingUpdate(t *testing.T) {
	db := openTestDB(t)
	id, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-07", "chk-a", 1)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	needs, err := db.Entries.NeedsEmbeddingUpdate(id, "chk-a")
	if err != nil {
		t.Fatalf("NeedsEmbeddingUpdate: %v", err)
	}
	if !needs {
		t.Error("a never-embedded entry should need embedding")
	}

	if err := db.Entries.MarkEmbedded(id); err != nil {
		t.Fatalf("MarkEmbedded: %v", err)
	}

	needs, err = db.Entries.NeedsEmbeddingUpdate(id, "chk-a")
	if err != nil {
		t.Fatalf("NeedsEmbeddingUpdate: %v", err)
	}
	if needs {
		t.Error("an embedded entry with a matching checksum should not need embedding")
	}

	needs, err = db.Entries.NeedsEmbeddingUpdate(id, "chk-b")
	if err != nil {
		t.Fatalf("NeedsEmbeddingUpdate: %v", err)
	}
	if !needs {
		t.Error("a changed checksum should need re-embedding")
	}
}

func TestAllEntries_OrderedByDate(t *testing.T) {
	db := openTestDB(t)
	for _, date := range []string{"2026-03-10", "2026-01-01", "2026-02-15"} {
		if _, err := db.Entries.UpsertEntry("/j/"+date+".md.age", date, "chk", 1); err != nil {
			t.Fatalf("UpsertEntry(%s): %v", date, err)
		}
	}

	entries, err := db.Entries.AllEntries()
	if err != nil {
		t.Fatalf("AllEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d; want 3", len(entries))
	}
	want := []string{"2026-01-01", "2026-02-15", "2026-03-10"}
	for i, e := range entries {
		if e.Date != want[i] {
			t.Errorf("entries[%d].Date = %q; want %q", i, e.Date, want[i])
		}
	}
}
