package store

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ponderjournal/ponder/internal/errs"
)

// MigrationStatus enumerates migration_log.status (spec §3 MigrationRecord).
type MigrationStatus string

const (
	MigrationPending  MigrationStatus = "pending"
	MigrationMigrated MigrationStatus = "migrated"
	MigrationVerified MigrationStatus = "verified"
	MigrationFailed   MigrationStatus = "failed"
)

// MigrationLogEntry is one source file's migration record.
type MigrationLogEntry struct {
	ID            int64           `db:"id"`
	Filename      string          `db:"filename"`
	Target        string          `db:"target"`
	Date          string          `db:"date"`
	Status        MigrationStatus `db:"status"`
	ChecksumMatch bool            `db:"checksum_match"`
	ErrorMessage  sql.NullString  `db:"error_message"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// MigrationState is the migration_state singleton (id=1), tracked so a
// migrate_all run can resume after interruption (spec §4.11).
type MigrationState struct {
	ID          int          `db:"id"`
	Total       int          `db:"total"`
	Migrated    int          `db:"migrated"`
	Verified    int          `db:"verified"`
	Failed      int          `db:"failed"`
	StartedAt   sql.NullTime `db:"started_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

// MigrationRepo persists per-file migration progress and the run-level
// counters migrate_all reports through.
type MigrationRepo struct {
	db *sqlx.DB
}

// StartRun resets migration_state for a fresh migrate_all pass over total
// source files. Existing migration_log rows (e.g. from a prior interrupted
// run) are left untouched so GetLogEntry can resume from them.
func (r *MigrationRepo) StartRun(total int) error {
	_, err := r.db.Exec(`
		UPDATE migration_state SET
			total = ?,
			started_at = CURRENT_TIMESTAMP,
			completed_at = NULL
		WHERE id = 1
	`, total)
	if err != nil {
		return errs.Database("migration-start-run", err)
	}
	return nil
}

// GetLogEntry returns the migration_log row for filename, or
// errs.DatabaseNotFound if none exists yet.
func (r *MigrationRepo) GetLogEntry(filename string) (*MigrationLogEntry, error) {
	var e MigrationLogEntry
	err := r.db.Get(&e, "SELECT * FROM migration_log WHERE filename = ?", filename)
	if err == sql.ErrNoRows {
		return nil, errs.Database("get-migration-log", errs.DatabaseNotFound)
	}
	if err != nil {
		return nil, errs.Database("get-migration-log", err)
	}
	return &e, nil
}

// UpsertLogEntry records filename's migration outcome for target/date,
// allowing migrate_all to be resumed: a filename already at status
// "verified" is skipped by the caller before this is ever invoked again.
func (r *MigrationRepo) UpsertLogEntry(filename, target, date string, status MigrationStatus, checksumMatch bool, errMsg string) error {
	var errArg sql.NullString
	if errMsg != "" {
		errArg = sql.NullString{String: errMsg, Valid: true}
	}
	_, err := r.db.Exec(`
		INSERT INTO migration_log (filename, target, date, status, checksum_match, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(filename) DO UPDATE SET
			target = excluded.target,
			date = excluded.date,
			status = excluded.status,
			checksum_match = excluded.checksum_match,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, filename, target, date, status, checksumMatch, errArg)
	if err != nil {
		return errs.Database("upsert-migration-log", err)
	}
	return nil
}

// RecomputeState recounts migration_log by status and writes the totals into
// migration_state, stamping completed_at once the migrated, verified and
// failed rows together reach the run's total (spec §4.11's resumability: a crash mid-run leaves state
// recountable from migration_log alone).
func (r *MigrationRepo) RecomputeState() (*MigrationState, error) {
	var counts struct {
		Migrated int `db:"migrated"`
		Verified int `db:"verified"`
		Failed   int `db:"failed"`
	}
	err := r.db.Get(&counts, `
		SELECT
			count(*) FILTER (WHERE status = 'migrated') AS migrated,
			count(*) FILTER (WHERE status = 'verified') AS verified,
			count(*) FILTER (WHERE status = 'failed')   AS failed
		FROM migration_log
	`)
	if err != nil {
		return nil, errs.Database("recompute-migration-state", err)
	}

	var total int
	if err := r.db.Get(&total, "SELECT total FROM migration_state WHERE id = 1"); err != nil {
		return nil, errs.Database("recompute-migration-state-total", err)
	}

	done := counts.Migrated+counts.Verified+counts.Failed >= total && total > 0

	if done {
		_, err = r.db.Exec(`
			UPDATE migration_state SET
				migrated = ?, verified = ?, failed = ?, completed_at = CURRENT_TIMESTAMP
			WHERE id = 1
		`, counts.Migrated, counts.Verified, counts.Failed)
	} else {
		_, err = r.db.Exec(`
			UPDATE migration_state SET migrated = ?, verified = ?, failed = ?
			WHERE id = 1
		`, counts.Migrated, counts.Verified, counts.Failed)
	}
	if err != nil {
		return nil, errs.Database("recompute-migration-state-write", err)
	}

	return r.GetState()
}

// GetState returns the singleton migration state row.
func (r *MigrationRepo) GetState() (*MigrationState, error) {
	var s MigrationState
	if err := r.db.Get(&s, "SELECT * FROM migration_state WHERE id = 1"); err != nil {
		return nil, errs.Database("get-migration-state", err)
	}
	return &s, nil
}

// PendingFiles returns the filenames not yet at status verified, for
// migrate_all to resume against.
func (r *MigrationRepo) PendingFiles() ([]string, error) {
	var files []string
	err := r.db.Select(&files, "SELECT filename FROM migration_log WHERE status != 'verified'")
	if err != nil {
		return nil, errs.Database("migration-pending-files", err)
	}
	return files, nil
}
