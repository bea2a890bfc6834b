// Package backup creates, verifies, and restores Ponder's single-file
// encrypted archive: AGE(GZIP(TAR(entries…, ponder.db))).
package backup

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/plog"
	"github.com/ponderjournal/ponder/internal/securetemp"
	"github.com/ponderjournal/ponder/internal/store"
	"github.com/ponderjournal/ponder/internal/util"
)

// dbMemberName is the fixed archive-root name for the database member
// (spec §6: "the database is always named ponder.db at the archive root").
const dbMemberName = "ponder.db"

// Manifest is the result of VerifyBackup: every .age member path found in the
// archive, relative to the journal root.
type Manifest struct {
	Entries []string
}

// CreateBackup walks root for *.age files, tars them with the database file
// over gzip, encrypts the result to dstPath under passphrase, and records
// the backup in db. Returns the BLAKE3 checksum of the encrypted bytes.
func CreateBackup(root, dbPath, dstPath, passphrase string, db *store.DB) (string, error) {
	tempGz, err := securetemp.NewPath()
	if err != nil {
		return "", err
	}
	defer securetemp.Delete(tempGz)

	entryCount, err := writeArchive(root, dbPath, tempGz)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o700); err != nil {
		return "", errs.IO("backup mkdir", err)
	}
	if err := crypto.EncryptFile(tempGz, dstPath, passphrase); err != nil {
		return "", err
	}

	if err := fsyncDir(filepath.Dir(dstPath)); err != nil {
		return "", err
	}

	checksum, err := crypto.ChecksumFile(dstPath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		return "", errs.IO("backup stat", err)
	}

	if err := db.Backups.InsertBackupLog(store.BackupRecord{
		Path:       dstPath,
		BackupType: store.BackupTypeFull,
		Entries:    entryCount,
		SizeBytes:  info.Size(),
		Checksum:   checksum,
	}); err != nil {
		return "", err
	}

	plog.Info("backup created", plog.String("path", dstPath), plog.Int("entries", entryCount))
	return checksum, nil
}

// writeArchive builds GZIP(TAR(entries…, ponder.db)) at dstPath and returns
// the number of .age entries written.
func writeArchive(root, dbPath, dstPath string) (int, error) {
	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, errs.IO("backup create-archive", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	count := 0
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || !strings.HasSuffix(path, ".age") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := addFileToTar(tw, path, rel, info); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return 0, errs.IO("backup walk", err)
	}

	dbInfo, err := os.Stat(dbPath)
	if err != nil {
		return 0, errs.IO("backup stat-db", err)
	}
	if err := addFileToTar(tw, dbPath, dbMemberName, dbInfo); err != nil {
		return 0, err
	}

	if err := tw.Close(); err != nil {
		return 0, errs.IO("backup close-tar", err)
	}
	if err := gz.Close(); err != nil {
		return 0, errs.IO("backup close-gzip", err)
	}
	if err := out.Sync(); err != nil {
		return 0, errs.IO("backup fsync", err)
	}
	return count, nil
}

func addFileToTar(tw *tar.Writer, srcPath, archivePath string, info os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errs.IO("backup tar-header", err)
	}
	hdr.Name = filepath.ToSlash(archivePath)

	if err := tw.WriteHeader(hdr); err != nil {
		return errs.IO("backup tar-write-header", err)
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return errs.IO("backup tar-open-member", err)
	}
	defer f.Close()

	buf := util.GetMiBBuffer()
	defer util.PutMiBBuffer(buf)
	if _, err := io.CopyBuffer(tw, f, buf); err != nil {
		return errs.IO("backup tar-copy-member", err)
	}
	return nil
}

// VerifyBackup decrypts, gunzips, and untars path into a fresh secure temp
// directory, opens the extracted database under passphrase to prove it is
// well-formed, and returns a manifest of the .age members found.
func VerifyBackup(path, passphrase string) (*Manifest, string, error) {
	extractDir, err := securetemp.NewPath()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(extractDir, 0o700); err != nil {
		return nil, "", errs.IO("verify mkdir", err)
	}

	tempGz, err := securetemp.DecryptToTemp(path, passphrase)
	if err != nil {
		return nil, "", err
	}
	defer securetemp.Delete(tempGz)

	manifest, err := untar(tempGz, extractDir)
	if err != nil {
		return nil, "", err
	}

	dbCopy := filepath.Join(extractDir, dbMemberName)
	verifyDB, err := store.Open(dbCopy, passphrase)
	if err != nil {
		return nil, "", err
	}
	verifyDB.Close()

	return manifest, extractDir, nil
}

func untar(gzPath, destDir string) (*Manifest, error) {
	f, err := os.Open(gzPath)
	if err != nil {
		return nil, errs.IO("verify open-archive", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errs.IO("verify gunzip", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	manifest := &Manifest{}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.IO("verify untar", err)
		}

		dest := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			return nil, errs.IO("verify untar mkdir", err)
		}

		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return nil, errs.IO("verify untar create", err)
		}
		buf := util.GetMiBBuffer()
		_, copyErr := io.CopyBuffer(out, tr, buf)
		util.PutMiBBuffer(buf)
		out.Close()
		if copyErr != nil {
			return nil, errs.IO("verify untar copy", copyErr)
		}

		if hdr.Name != dbMemberName && strings.HasSuffix(hdr.Name, ".age") {
			manifest.Entries = append(manifest.Entries, hdr.Name)
		}
	}
	return manifest, nil
}

// RestoreBackup verifies path, then copies entries and the database into
// target. Fails with AlreadyExists-shaped errs.IO if target exists and
// force is false. Copy order is entries-then-database, matching the
// durability note in spec §4.10: a crash mid-restore leaves target without
// a valid database, which callers must treat as invalid and retry with
// force=true.
func RestoreBackup(path, target, passphrase string, force bool) error {
	if _, err := os.Stat(target); err == nil && !force {
		return errs.IO("restore", errs.AlreadyExists)
	}

	manifest, extractDir, err := VerifyBackup(path, passphrase)
	if err != nil {
		return err
	}
	defer os.RemoveAll(extractDir)

	if err := os.MkdirAll(target, 0o700); err != nil {
		return errs.IO("restore mkdir", err)
	}

	for _, rel := range manifest.Entries {
		src := filepath.Join(extractDir, filepath.FromSlash(rel))
		dst := filepath.Join(target, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return errs.IO("restore mkdir-entry", err)
		}
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}

	dbSrc := filepath.Join(extractDir, dbMemberName)
	dbDst := filepath.Join(target, dbMemberName)
	if err := copyFile(dbSrc, dbDst); err != nil {
		return err
	}

	restoredDB, err := store.Open(dbDst, passphrase)
	if err != nil {
		return err
	}
	restoredDB.Close()

	plog.Info("backup restored", plog.String("target", target), plog.Int("entries", len(manifest.Entries)))
	return nil
}

func copyFile(src, dst string) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.IO("restore copy-create", err)
	}
	defer out.Close()
	if err := securetemp.CopyInto(out, src); err != nil {
		return err
	}
	return out.Sync()
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errs.IO("fsync-dir open", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return errs.IO("fsync-dir", err)
	}
	return nil
}
