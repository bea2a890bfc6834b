// Package lock provides exclusive, non-blocking advisory file locks used to
// serialize edits to a single entry across processes.
package lock

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/ponderjournal/ponder/internal/errs"
)

// Lock holds an open file descriptor with an exclusive advisory lock on it.
// Locks are per-entry: concurrent edits of different days never contend.
type Lock struct {
	f *os.File
}

// Acquire takes a non-blocking exclusive lock on path, creating it if
// absent. A lock already held by another process fails immediately with
// errs.FileBusy rather than blocking.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errs.Lock("open-lockfile", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return nil, errs.Lock("acquire", errs.FileBusy)
		}
		return nil, errs.Lock("acquire", err)
	}

	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying descriptor. Safe to call
// on process exit paths (including after a panic recovery) since the kernel
// also releases the lock when the descriptor is closed or the process dies.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return errs.Lock("release", err)
	}
	if closeErr != nil {
		return errs.Lock("release-close", closeErr)
	}
	return nil
}

// Path returns the path that backs an entry's lock file, derived from its
// encrypted path by appending a ".lock" suffix so the lock file never
// collides with, or gets swept up by, backup/migration file globs.
func Path(encPath string) string {
	return encPath + ".lock"
}
