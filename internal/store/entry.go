package store

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ponderjournal/ponder/internal/errs"
)

// Entry is the persistent record of one calendar day's journal entry
// (spec §3).
type Entry struct {
	ID         int64        `db:"id"`
	Path       string       `db:"path"`
	Date       string       `db:"date"` // YYYY-MM-DD
	Checksum   string       `db:"checksum"`
	WordCount  int          `db:"word_count"`
	UpdatedAt  time.Time    `db:"updated_at"`
	EmbeddedAt sql.NullTime `db:"embedded_at"`
}

// EntryRepo provides CRUD on entries.
type EntryRepo struct {
	db *sqlx.DB
}

// UpsertEntry inserts or updates the row for date, returning its id.
func (r *EntryRepo) UpsertEntry(path, date, checksum string, wordCount int) (int64, error) {
	_, err := r.db.Exec(`
		INSERT INTO entries (path, date, checksum, word_count, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			path = excluded.path,
			checksum = excluded.checksum,
			word_count = excluded.word_count,
			updated_at = CURRENT_TIMESTAMP
	`, path, date, checksum, wordCount)
	if err != nil {
		return 0, errs.Database("upsert-entry", err)
	}

	// An upsert that takes the DO UPDATE branch leaves the connection's
	// last-insert rowid untouched (it can still name a row inserted earlier
	// on that connection), so the id is always read back by the unique date
	// column.
	entry, err := r.GetEntryByDate(date)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// GetEntryByDate returns the entry for date, or errs.DatabaseNotFound.
func (r *EntryRepo) GetEntryByDate(date string) (*Entry, error) {
	var e Entry
	err := r.db.Get(&e, "SELECT * FROM entries WHERE date = ?", date)
	if err == sql.ErrNoRows {
		return nil, errs.Database("get-entry-by-date", errs.DatabaseNotFound)
	}
	if err != nil {
		return nil, errs.Database("get-entry-by-date", err)
	}
	return &e, nil
}

// GetEntryPath returns the encrypted file path for an entry id.
func (r *EntryRepo) GetEntryPath(id int64) (string, error) {
	var path string
	err := r.db.Get(&path, "SELECT path FROM entries WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return "", errs.Database("get-entry-path", errs.DatabaseNotFound)
	}
	if err != nil {
		return "", errs.Database("get-entry-path", err)
	}
	return path, nil
}

// GetEntryChecksum returns the stored plaintext checksum for date.
func (r *EntryRepo) GetEntryChecksum(date string) (string, error) {
	var checksum string
	err := r.db.Get(&checksum, "SELECT checksum FROM entries WHERE date = ?", date)
	if err == sql.ErrNoRows {
		return "", errs.Database("get-entry-checksum", errs.DatabaseNotFound)
	}
	if err != nil {
		return "", errs.Database("get-entry-checksum", err)
	}
	return checksum, nil
}

// GetEntryByID returns the entry with the given id.
func (r *EntryRepo) GetEntryByID(id int64) (*Entry, error) {
	var e Entry
	err := r.db.Get(&e, "SELECT * FROM entries WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, errs.Database("get-entry-by-id", errs.DatabaseNotFound)
	}
	if err != nil {
		return nil, errs.Database("get-entry-by-id", err)
	}
	return &e, nil
}

// NeedsEmbeddingUpdate reports whether entry id's embeddings are stale or
// absent: embedded_at is NULL, or the stored checksum no longer matches
// currentChecksum.
func (r *EntryRepo) NeedsEmbeddingUpdate(id int64, currentChecksum string) (bool, error) {
	entry, err := r.GetEntryByID(id)
	if err != nil {
		return false, err
	}
	if !entry.EmbeddedAt.Valid {
		return true, nil
	}
	return entry.Checksum != currentChecksum, nil
}

// MarkEmbedded stamps embedded_at = now for entry id.
func (r *EntryRepo) MarkEmbedded(id int64) error {
	_, err := r.db.Exec("UPDATE entries SET embedded_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return errs.Database("mark-embedded", err)
	}
	return nil
}

// AllEntries returns every entry, ordered by date, for backup/migration
// enumeration.
func (r *EntryRepo) AllEntries() ([]Entry, error) {
	var entries []Entry
	if err := r.db.Select(&entries, "SELECT * FROM entries ORDER BY date"); err != nil {
		return nil, errs.Database("all-entries", err)
	}
	return entries, nil
}
