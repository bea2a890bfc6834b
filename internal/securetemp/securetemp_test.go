package securetemp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ponderjournal/ponder/internal/crypto"
)

func TestDir_CreatesSecureDirectory(t *testing.T) {
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("Dir() did not return a directory")
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("mode = %v; want 0700", info.Mode().Perm())
	}
}

func TestNewPath_UniqueEachCall(t *testing.T) {
	a, err := NewPath()
	if err != nil {
		t.Fatalf("NewPath: %v", err)
	}
	b, err := NewPath()
	if err != nil {
		t.Fatalf("NewPath: %v", err)
	}
	if a == b {
		t.Error("NewPath returned the same path twice")
	}
	if filepath.Dir(a) != filepath.Dir(b) {
		t.Error("NewPath paths should share the same secure directory")
	}
}

func TestDelete_RemovesFile(t *testing.T) {
	path, err := NewPath()
	if err != nil {
		t.Fatalf("NewPath: %v", err)
	}
	if err := os.WriteFile(path, []byte("sensitive"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	Delete(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Delete: err=%v", err)
	}
}

func TestDelete_MissingFileIsNoOp(t *testing.T) {
	Delete(filepath.Join(t.TempDir(), "does-not-exist"))
	Delete("")
}

func TestDecryptToTempEncryptFromTempRoundtrip(t *testing.T) {
	dir := t.TempDir()
	encPath := filepath.Join(dir, "entry.md.age")
	content := []byte("plaintext journal content")

	plainSrc := filepath.Join(dir, "plain-src.txt")
	if err := os.WriteFile(plainSrc, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := crypto.EncryptFile(plainSrc, encPath, "pw"); err != nil {
		t.Fatalf("EncryptFile: %v", err)
	}

	tempPath, err := DecryptToTemp(encPath, "pw")
	if err != nil {
		t.Fatalf("DecryptToTemp: %v", err)
	}
	got, err := os.ReadFile(tempPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("decrypted content = %q; want %q", got, content)
	}

	reEnc := filepath.Join(dir, "re-encrypted.md.age")
	if err := EncryptFromTemp(tempPath, reEnc, "pw"); err != nil {
		t.Fatalf("EncryptFromTemp: %v", err)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Error("EncryptFromTemp should delete the temp file on success")
	}

	roundtrip, err := crypto.DecryptBytes(mustRead(t, reEnc), "pw")
	if err != nil {
		t.Fatalf("DecryptBytes: %v", err)
	}
	if !bytes.Equal(roundtrip, content) {
		t.Errorf("re-encrypted content = %q; want %q", roundtrip, content)
	}
}

func TestReadEncryptedString(t *testing.T) {
	dir := t.TempDir()
	encPath := filepath.Join(dir, "entry.md.age")
	if err := crypto.EncryptFile(writeTemp(t, dir, "hello there"), encPath, "pw"); err != nil {
		t.Fatalf("EncryptFile: %v", err)
	}
	got, err := ReadEncryptedString(encPath, "pw")
	if err != nil {
		t.Fatalf("ReadEncryptedString: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q; want %q", got, "hello there")
	}
}

func TestCopyInto(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "copy me")
	var buf bytes.Buffer
	if err := CopyInto(&buf, src); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}
	if buf.String() != "copy me" {
		t.Errorf("buf = %q; want %q", buf.String(), "copy me")
	}
}

func writeTemp(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "src.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return data
}
