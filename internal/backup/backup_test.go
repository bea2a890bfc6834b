package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/store"
)

func seedVault(t *testing.T, root string) {
	t.Helper()
	entryPath := filepath.Join(root, "2026", "03", "05.md.age")
	if err := os.MkdirAll(filepath.Dir(entryPath), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := crypto.EncryptFile(writeTempPlain(t, "# 2026-03-05\n\nhello"), entryPath, "pw"); err != nil {
		t.Fatalf("seed encrypt: %v", err)
	}
}

func writeTempPlain(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "plain-*")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return f.Name()
}

func TestCreateVerifyRoundtrip(t *testing.T) {
	root := t.TempDir()
	seedVault(t, root)

	dbPath := filepath.Join(root, "ponder.db")
	db, err := store.Open(dbPath, "pw")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	dst := filepath.Join(t.TempDir(), "vault.ponder.age")
	checksum, err := CreateBackup(root, dbPath, dst, "pw", db)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if checksum == "" {
		t.Fatal("expected non-empty checksum")
	}

	manifest, extractDir, err := VerifyBackup(dst, "pw")
	if err != nil {
		t.Fatalf("VerifyBackup: %v", err)
	}
	defer os.RemoveAll(extractDir)

	if len(manifest.Entries) != 1 {
		t.Fatalf("len(manifest.Entries) = %d; want 1", len(manifest.Entries))
	}
}

func TestRestore_RefusesExistingTargetWithoutForce(t *testing.T) {
	root := t.TempDir()
	seedVault(t, root)
	dbPath := filepath.Join(root, "ponder.db")
	db, err := store.Open(dbPath, "pw")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	dst := filepath.Join(t.TempDir(), "vault.ponder.age")
	if _, err := CreateBackup(root, dbPath, dst, "pw", db); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	target := t.TempDir() // already exists
	if err := RestoreBackup(dst, target, "pw", false); err == nil {
		t.Fatal("expected AlreadyExists error, got nil")
	}
}
