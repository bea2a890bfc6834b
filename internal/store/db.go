// Package store opens Ponder's encrypted SQLite database and exposes the
// entry/embedding repositories (spec §4.4, §4.5) over it.
package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/plog"
)

// Cipher parameters for the per-connection pragma block (spec §4.4: "key,
// page size, KDF iterations, HMAC family"). These must never change without
// a migration - changing them makes every existing ponder.db unreadable.
const (
	cipherPageSize     = 4096
	cipherKDFIter      = 256000
	cipherHMACAlgo     = "HMAC_SHA512"
	cipherKDFAlgo      = "PBKDF2_HMAC_SHA512"
	maxOpenConnections = 5
)

// DB wraps the encrypted connection pool and the repositories built on it.
type DB struct {
	sqlx       *sqlx.DB
	Entries    *EntryRepo
	Embeddings *EmbeddingRepo
	Backups    *BackupRepo
	Migrations *MigrationRepo
}

// Open opens (creating if absent) an AEAD-encrypted SQLite database at path,
// keyed by passphrase, bootstraps the schema, and wires the repositories.
// First-open bootstrap and the ordinary open path are the same call (P13).
func Open(path, passphrase string) (*DB, error) {
	if passphrase == "" {
		return nil, errs.Crypto("db-open", errs.EmptyPassphrase)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	dsn := buildDSN(path, passphrase)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.Database("open", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConnections)

	sdb := sqlx.NewDb(sqlDB, "sqlite3")

	// Wrong passphrase manifests as a MAC failure on the first real query,
	// not on Open (spec §4.4) - so probe immediately rather than waiting for
	// a caller's query to surface it confusingly.
	if _, err := sdb.Exec("SELECT count(*) FROM sqlite_master"); err != nil {
		sdb.Close()
		return nil, errs.Crypto("db-open-probe", errs.InvalidPassphrase)
	}

	if err := bootstrap(sdb); err != nil {
		sdb.Close()
		return nil, err
	}

	plog.Debug("database opened", plog.String("path", path), plog.Bool("created", isNew))

	db := &DB{sqlx: sdb}
	db.Entries = &EntryRepo{db: sdb}
	db.Embeddings = &EmbeddingRepo{db: sdb}
	db.Backups = &BackupRepo{db: sdb}
	db.Migrations = &MigrationRepo{db: sdb}
	return db, nil
}

func buildDSN(path, passphrase string) string {
	q := url.Values{}
	q.Set("_pragma_key", passphrase)
	q.Set("_pragma_cipher_page_size", strconv.Itoa(cipherPageSize))
	q.Set("_pragma_kdf_iter", strconv.Itoa(cipherKDFIter))
	q.Set("_pragma_cipher_hmac_algorithm", cipherHMACAlgo)
	q.Set("_pragma_cipher_kdf_algorithm", cipherKDFAlgo)
	q.Set("_foreign_keys", "on")
	return fmt.Sprintf("file:%s?%s", path, q.Encode())
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.sqlx.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL UNIQUE,
	date        TEXT NOT NULL UNIQUE,
	checksum    TEXT NOT NULL,
	word_count  INTEGER NOT NULL DEFAULT 0,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	embedded_at DATETIME
);

CREATE TABLE IF NOT EXISTS embeddings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id   INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	chunk_idx  INTEGER NOT NULL,
	embedding  BLOB NOT NULL,
	checksum   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(entry_id, chunk_idx)
);

-- Reserved for future lexical search; never populated (spec §9).
CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(content, content='');

CREATE TABLE IF NOT EXISTS insights (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id   INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reports (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS backup_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL,
	backup_type TEXT NOT NULL CHECK(backup_type IN ('full','incremental')),
	entries     INTEGER NOT NULL,
	size_bytes  INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS backup_state (
	id                  INTEGER PRIMARY KEY CHECK(id=1),
	last_backup_at      DATETIME,
	last_backup_checksum TEXT
);

CREATE TABLE IF NOT EXISTS migration_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	filename       TEXT NOT NULL UNIQUE,
	target         TEXT NOT NULL,
	date           TEXT NOT NULL,
	status         TEXT NOT NULL CHECK(status IN ('pending','migrated','verified','failed')),
	checksum_match BOOLEAN NOT NULL DEFAULT 0,
	error_message  TEXT,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS migration_state (
	id           INTEGER PRIMARY KEY CHECK(id=1),
	total        INTEGER NOT NULL DEFAULT 0,
	migrated     INTEGER NOT NULL DEFAULT 0,
	verified     INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS schema_version (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	version    INTEGER NOT NULL,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// CurrentSchemaVersion is recorded the first time a database is bootstrapped.
const CurrentSchemaVersion = 1

// bootstrap runs the idempotent DDL and records the current schema version
// if no schema_version row exists yet. Safe to call on every open (P11,
// P13): CREATE ... IF NOT EXISTS makes the DDL itself idempotent, and the
// version insert is additionally guarded by an explicit count check.
func bootstrap(db *sqlx.DB) error {
	if _, err := db.Exec(schemaDDL); err != nil {
		return errs.Database("bootstrap-schema", err)
	}

	var count int
	if err := db.Get(&count, "SELECT count(*) FROM schema_version"); err != nil {
		return errs.Database("bootstrap-check-version", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", CurrentSchemaVersion); err != nil {
			return errs.Database("bootstrap-insert-version", err)
		}
	}

	if _, err := db.Exec(
		"INSERT OR IGNORE INTO backup_state (id, last_backup_at, last_backup_checksum) VALUES (1, NULL, NULL)",
	); err != nil {
		return errs.Database("bootstrap-backup-state", err)
	}
	if _, err := db.Exec(
		"INSERT OR IGNORE INTO migration_state (id, total, migrated, verified, failed) VALUES (1, 0, 0, 0, 0)",
	); err != nil {
		return errs.Database("bootstrap-migration-state", err)
	}

	return nil
}
