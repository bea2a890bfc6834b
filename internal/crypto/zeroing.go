// Package crypto provides passphrase-based encryption for Ponder journal
// entries, the metadata database, and backup archives. This is
// security-sensitive code - changes here directly affect the confidentiality
// of every entry on disk.
package crypto

import (
	"crypto/subtle"
)

// SecureZero overwrites a byte slice with zeros to prevent sensitive data
// from persisting in memory. This helps mitigate memory dump attacks and
// reduces the window during which keys are recoverable from RAM.
//
// Due to Go's garbage collector and potential compiler optimizations, this
// function cannot guarantee complete erasure. It uses subtle.ConstantTimeCopy
// to prevent the compiler from optimizing away the zeroing operation.
func SecureZero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// SecureZeroMultiple zeros multiple byte slices in a single call.
func SecureZeroMultiple(slices ...[]byte) {
	for _, s := range slices {
		SecureZero(s)
	}
}

// KeyMaterial wraps sensitive byte data with automatic zeroing on Close().
// A Session's passphrase is held in one of these between unlock and lock.
type KeyMaterial struct {
	data   []byte
	closed bool
}

// NewKeyMaterial creates a new KeyMaterial wrapper. The data is copied so
// the caller's original slice can be zeroed independently.
func NewKeyMaterial(data []byte) *KeyMaterial {
	if data == nil {
		return &KeyMaterial{}
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return &KeyMaterial{data: copied}
}

// Bytes returns the underlying data, or nil if Close has been called.
func (km *KeyMaterial) Bytes() []byte {
	if km == nil || km.closed {
		return nil
	}
	return km.data
}

// Len returns the length of the key data.
func (km *KeyMaterial) Len() int {
	if km == nil || km.closed || km.data == nil {
		return 0
	}
	return len(km.data)
}

// Close securely zeros the key data and marks it as closed. Idempotent.
func (km *KeyMaterial) Close() {
	if km == nil || km.closed {
		return
	}
	SecureZero(km.data)
	km.data = nil
	km.closed = true
}

// IsClosed returns whether the KeyMaterial has been closed.
func (km *KeyMaterial) IsClosed() bool {
	return km == nil || km.closed
}
