// Package securetemp manages scratch files used while an encrypted entry or
// database is being worked on in plaintext. Scratch files live, when
// possible, on a RAM-backed filesystem and are always securely deleted -
// overwritten with zeros, fsynced, then unlinked - on every exit path,
// including panics.
package securetemp

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/util"
)

// ramBackedCandidates are checked in order; the first that exists and is
// writable is used as the secure temp root. Linux tmpfs mounts only - on any
// other platform (or if neither exists) the OS temp dir is used instead.
var ramBackedCandidates = []string{"/dev/shm", "/run/shm"}

// Dir returns a directory suitable for holding decrypted scratch data,
// preferentially rooted on tmpfs, creating it with 0o700 if needed.
func Dir() (string, error) {
	base := pickBase()
	dir := filepath.Join(base, "ponder-secure")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errs.IO("securetemp mkdir", err)
	}
	// MkdirAll does not tighten an already-existing directory's mode.
	if err := os.Chmod(dir, 0o700); err != nil {
		return "", errs.IO("securetemp chmod", err)
	}
	return dir, nil
}

func pickBase() string {
	if runtime.GOOS == "linux" {
		for _, candidate := range ramBackedCandidates {
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				if probeWritable(candidate) {
					return candidate
				}
			}
		}
	}
	return os.TempDir()
}

func probeWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".ponder-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// NewPath allocates a fresh UUID-named scratch path inside Dir, without
// creating the file.
func NewPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, uuid.NewString()), nil
}

// DecryptToTemp decrypts encPath under passphrase into a freshly allocated
// 0o600 scratch file and returns its path.
func DecryptToTemp(encPath, passphrase string) (string, error) {
	tempPath, err := NewPath()
	if err != nil {
		return "", err
	}
	if err := touch(tempPath); err != nil {
		return "", err
	}
	if err := crypto.DecryptFile(encPath, tempPath, passphrase); err != nil {
		Delete(tempPath)
		return "", err
	}
	return tempPath, nil
}

// EncryptFromTemp streams tempPath into encPath (via write-rename, see
// crypto.EncryptFile) and then securely deletes tempPath, both on success and
// when a panic unwinds through it. When encryption itself fails, the temp
// file is retained for caller inspection per spec §4.2: the delete is skipped
// and EncryptFile's error is returned unchanged.
func EncryptFromTemp(tempPath, encPath, passphrase string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Delete(tempPath)
			panic(r)
		}
	}()

	if err = crypto.EncryptFile(tempPath, encPath, passphrase); err != nil {
		// Destination was never partially written (EncryptFile uses
		// write-rename); retain tempPath for inspection.
		return err
	}
	Delete(tempPath)
	return nil
}

// ReadEncryptedString decrypts encPath to a scratch file, reads it as UTF-8,
// deletes the scratch file, and returns the content.
func ReadEncryptedString(encPath, passphrase string) (string, error) {
	tempPath, err := DecryptToTemp(encPath, passphrase)
	if err != nil {
		return "", err
	}
	defer Delete(tempPath)

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return "", errs.IO("read-encrypted-string", err)
	}
	return string(data), nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.IO("securetemp touch", err)
	}
	return f.Close()
}

// Delete securely deletes path: overwrite with zeros, fsync, unlink.
// Best-effort - missing files and I/O errors during the overwrite pass are
// swallowed since the caller has nothing more to act on, but the unlink
// itself is always attempted.
func Delete(path string) {
	if path == "" {
		return
	}
	overwriteWithZeros(path)
	os.Remove(path)
}

func overwriteWithZeros(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()

	size := info.Size()
	buf := util.GetSmallBuffer()
	defer util.PutSmallBuffer(buf)
	clear(buf)

	var written int64
	for written < size {
		n := int64(len(buf))
		if remaining := size - written; remaining < n {
			n = remaining
		}
		if _, err := f.WriteAt(buf[:n], written); err != nil {
			return
		}
		written += n
	}
	f.Sync()
}

// CopyInto copies src's contents into an existing destination file, used by
// restore/backup flows that need to place scratch content without going
// through the encrypt/decrypt path.
func CopyInto(dst io.Writer, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errs.IO("securetemp copy open", err)
	}
	defer src.Close()
	buf := util.GetMiBBuffer()
	defer util.PutMiBBuffer(buf)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		return errs.IO("securetemp copy", err)
	}
	return nil
}
