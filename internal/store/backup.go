package store

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ponderjournal/ponder/internal/errs"
)

// BackupType enumerates backup_log.backup_type. Only Full is ever produced
// (spec §9: incremental is schema-permitted but unimplemented).
type BackupType string

const (
	BackupTypeFull        BackupType = "full"
	BackupTypeIncremental BackupType = "incremental"
)

// BackupRecord audits one completed backup (spec §3).
type BackupRecord struct {
	ID         int64      `db:"id"`
	Path       string     `db:"path"`
	BackupType BackupType `db:"backup_type"`
	Entries    int        `db:"entries"`
	SizeBytes  int64      `db:"size_bytes"`
	Checksum   string     `db:"checksum"`
	CreatedAt  time.Time  `db:"created_at"`
}

// BackupState is the backup_state singleton (id=1).
type BackupState struct {
	ID                 int          `db:"id"`
	LastBackupAt       sql.NullTime `db:"last_backup_at"`
	LastBackupChecksum sql.NullString `db:"last_backup_checksum"`
}

// BackupRepo persists backup audit records.
type BackupRepo struct {
	db *sqlx.DB
}

// InsertBackupLog records a completed backup and refreshes backup_state.
func (r *BackupRepo) InsertBackupLog(rec BackupRecord) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return errs.Database("insert-backup-log-begin", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO backup_log (path, backup_type, entries, size_bytes, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, rec.Path, rec.BackupType, rec.Entries, rec.SizeBytes, rec.Checksum)
	if err != nil {
		return errs.Database("insert-backup-log", err)
	}

	_, err = tx.Exec(`
		INSERT INTO backup_state (id, last_backup_at, last_backup_checksum)
		VALUES (1, CURRENT_TIMESTAMP, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_backup_at = CURRENT_TIMESTAMP,
			last_backup_checksum = excluded.last_backup_checksum
	`, rec.Checksum)
	if err != nil {
		return errs.Database("update-backup-state", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Database("insert-backup-log-commit", err)
	}
	return nil
}

// GetBackupState returns the singleton backup state row.
func (r *BackupRepo) GetBackupState() (*BackupState, error) {
	var s BackupState
	if err := r.db.Get(&s, "SELECT * FROM backup_state WHERE id = 1"); err != nil {
		return nil, errs.Database("get-backup-state", err)
	}
	return &s, nil
}
