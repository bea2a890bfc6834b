// Package migrate carries legacy v1 plaintext journal files (YYYYMMDD.md at
// the journal root) forward into v2's encrypted per-day layout.
package migrate

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ponderjournal/ponder/internal/ai"
	"github.com/ponderjournal/ponder/internal/chunk"
	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/plog"
	"github.com/ponderjournal/ponder/internal/securetemp"
	"github.com/ponderjournal/ponder/internal/store"
)

// EmbedModel names the model used for the optional post-migration reindex.
const EmbedModel = "nomic-embed-text"

var v1Stem = regexp.MustCompile(`^(\d{8})$`)

// V1File is one discovered legacy entry.
type V1File struct {
	Path string // absolute path to the legacy .md file
	Date time.Time
}

// ScanV1 lists root non-recursively for files whose stem is exactly eight
// decimal digits and whose extension is "md", parsing the stem as
// YYYYMMDD. Directories and non-matching files (including existing v2
// YYYY/MM/DD.md.age files) are skipped.
func ScanV1(root string) ([]V1File, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errs.IO("scan-v1 readdir", err)
	}

	var files []V1File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".md" {
			continue
		}
		stem := name[:len(name)-len(ext)]
		if !v1Stem.MatchString(stem) {
			continue
		}
		date, err := time.Parse("20060102", stem)
		if err != nil {
			continue
		}
		files = append(files, V1File{Path: filepath.Join(root, name), Date: date})
	}
	return files, nil
}

// MigrateEntry migrates one v1 file: hashes the plaintext, writes it to a
// secure temp, encrypts it to root/YYYY/MM/DD.md.age (never overwriting an
// existing target), records a pending migration_log row, then verifies by
// decrypt-hash-compare. On match the entry row is upserted and the log
// status becomes verified; on mismatch it becomes failed and the v2 file is
// left in place for forensic inspection. If gateway is non-nil, the
// verified entry is chunked and embedded; embedding failure is logged and
// swallowed (non-fatal per spec §7 and §4.11).
func MigrateEntry(ctx context.Context, root, passphrase string, v1 V1File, db *store.DB, gateway *ai.Gateway) (store.MigrationStatus, error) {
	date := v1.Date.Format("2006-01-02")
	target := filepath.Join(root, v1.Date.Format("2006"), v1.Date.Format("01"), v1.Date.Format("02")+".md.age")
	filename := filepath.Base(v1.Path)

	if _, err := os.Stat(target); err == nil {
		failErr := errs.Journal("migrate-entry", errs.AlreadyExists)
		db.Migrations.UpsertLogEntry(filename, target, date, store.MigrationFailed, false, failErr.Error())
		return store.MigrationFailed, failErr
	}

	plaintext, err := os.ReadFile(v1.Path)
	if err != nil {
		return "", errs.IO("migrate-entry read", err)
	}
	plainChecksum := crypto.Checksum(plaintext)

	tempPath, err := securetemp.NewPath()
	if err != nil {
		return "", err
	}
	defer securetemp.Delete(tempPath)
	if err := os.WriteFile(tempPath, plaintext, 0o600); err != nil {
		return "", errs.IO("migrate-entry write-temp", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return "", errs.IO("migrate-entry mkdir", err)
	}
	if err := crypto.EncryptFile(tempPath, target, passphrase); err != nil {
		return "", err
	}

	if err := db.Migrations.UpsertLogEntry(filename, target, date, store.MigrationPending, false, ""); err != nil {
		return "", err
	}

	verifiedPath, err := securetemp.DecryptToTemp(target, passphrase)
	if err != nil {
		return "", err
	}
	defer securetemp.Delete(verifiedPath)

	verifiedBytes, err := os.ReadFile(verifiedPath)
	if err != nil {
		return "", errs.IO("migrate-entry read-verify", err)
	}
	verifiedChecksum := crypto.Checksum(verifiedBytes)

	if verifiedChecksum != plainChecksum {
		db.Migrations.UpsertLogEntry(filename, target, date, store.MigrationFailed, false, "checksum mismatch after re-decryption")
		return store.MigrationFailed, nil
	}

	relPath, err := filepath.Rel(root, target)
	if err != nil {
		relPath = target
	}
	wordCount := len(strings.Fields(string(plaintext)))
	entryID, err := db.Entries.UpsertEntry(relPath, date, plainChecksum, wordCount)
	if err != nil {
		return "", err
	}

	if err := db.Migrations.UpsertLogEntry(filename, target, date, store.MigrationVerified, true, ""); err != nil {
		return "", err
	}

	if gateway != nil {
		if err := embedEntry(ctx, db, gateway, entryID, string(verifiedBytes)); err != nil {
			plog.Warn("post-migration embedding failed", plog.String("filename", filename), plog.Err(err))
		}
	}

	return store.MigrationVerified, nil
}

func embedEntry(ctx context.Context, db *store.DB, gateway *ai.Gateway, entryID int64, text string) error {
	chunks := chunk.Split(text, chunk.DefaultSize, chunk.DefaultOverlap)
	if err := db.Embeddings.DeleteEmbeddingsForEntry(entryID); err != nil {
		return err
	}
	for i, c := range chunks {
		vec, err := gateway.Embed(ctx, EmbedModel, c)
		if err != nil {
			return err
		}
		if err := db.Embeddings.InsertEmbedding(entryID, i, vec, crypto.Checksum([]byte(c))); err != nil {
			return err
		}
	}
	return db.Entries.MarkEmbedded(entryID)
}

// ProgressFunc reports migrate_all's progress after each processed file.
type ProgressFunc func(done, total int, filename string, status store.MigrationStatus)

// MigrateAll processes files sequentially (never in parallel, keeping
// progress monotonic and error attribution exact), skipping any file
// already verified by a prior run, retrying pending/failed ones. The
// progress callback, if non-nil, is invoked after every file.
func MigrateAll(ctx context.Context, root, passphrase string, files []V1File, db *store.DB, gateway *ai.Gateway, progress ProgressFunc) error {
	if err := db.Migrations.StartRun(len(files)); err != nil {
		return err
	}

	for i, v1 := range files {
		filename := filepath.Base(v1.Path)

		existing, err := db.Migrations.GetLogEntry(filename)
		if err == nil && existing.Status == store.MigrationVerified {
			if progress != nil {
				progress(i+1, len(files), filename, store.MigrationVerified)
			}
			continue
		}

		status, migrateErr := MigrateEntry(ctx, root, passphrase, v1, db, gateway)
		if migrateErr != nil {
			plog.Error("migration failed", plog.String("filename", filename), plog.Err(migrateErr))
		}
		if progress != nil {
			progress(i+1, len(files), filename, status)
		}

		if _, err := db.Migrations.RecomputeState(); err != nil {
			return err
		}
	}

	return nil
}
