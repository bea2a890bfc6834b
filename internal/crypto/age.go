package crypto

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/util"
)

// EncryptBytes encrypts plaintext under a passphrase-recipient age file.
// Every call uses a fresh random salt (age.NewScryptRecipient reads from
// crypto/rand), so ciphertext is never reproducible even for identical
// inputs - the only documented nondeterminism in spec §4.1.
func EncryptBytes(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errs.Crypto("encrypt", errs.EmptyPassphrase)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, errs.Crypto("encrypt", errs.Wrap(err, "build scrypt recipient"))
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, errs.Crypto("encrypt", errs.EncryptionFailed)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, errs.Crypto("encrypt", errs.EncryptionFailed)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Crypto("encrypt", errs.EncryptionFailed)
	}
	return buf.Bytes(), nil
}

// DecryptBytes decrypts an age file produced by EncryptBytes (or
// EncryptFile). Any MAC failure - including a wrong passphrase - surfaces as
// errs.InvalidPassphrase; a non-scrypt recipient stanza surfaces as
// errs.UnsupportedFormat (P2: no partial plaintext is ever returned, since
// age.Decrypt validates the STREAM framing before yielding bytes).
func DecryptBytes(ciphertext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errs.Crypto("decrypt", errs.EmptyPassphrase)
	}

	if !hasScryptRecipient(ciphertext) {
		return nil, errs.Crypto("decrypt", errs.UnsupportedFormat)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, errs.Crypto("decrypt", errs.Wrap(err, "build scrypt identity"))
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, classifyAgeError(err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, classifyAgeError(err)
	}
	return plaintext, nil
}

// EncryptFile streams src to a freshly created dst, encrypting under
// passphrase, through constant-memory buffers from internal/util's buffer
// pool regardless of file size. dst is written via a sibling temp file and
// renamed into place so a failure never leaves a partially-written ciphertext
// at the destination path.
func EncryptFile(srcPath, dstPath, passphrase string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errs.IO("encrypt-file open", err)
	}
	defer src.Close()

	dir := filepath.Dir(dstPath)
	tmp, err := os.CreateTemp(dir, ".ponder-enc-*")
	if err != nil {
		return errs.IO("encrypt-file create-temp", err)
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		tmp.Close()
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return errs.IO("encrypt-file chmod", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return errs.Crypto("encrypt-file", errs.Wrap(err, "build scrypt recipient"))
	}

	w, err := age.Encrypt(tmp, recipient)
	if err != nil {
		return errs.Crypto("encrypt-file", errs.EncryptionFailed)
	}

	buf := util.GetMiBBuffer()
	defer util.PutMiBBuffer(buf)

	if _, err := io.CopyBuffer(w, src, buf); err != nil {
		return errs.Crypto("encrypt-file", errs.EncryptionFailed)
	}
	if err := w.Close(); err != nil {
		return errs.Crypto("encrypt-file", errs.EncryptionFailed)
	}
	if err := tmp.Sync(); err != nil {
		return errs.IO("encrypt-file fsync", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IO("encrypt-file close", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		return errs.IO("encrypt-file rename", err)
	}
	succeeded = true
	return nil
}

// DecryptFile streams src to dst, decrypting under passphrase, through
// constant-memory buffers.
func DecryptFile(srcPath, dstPath, passphrase string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errs.IO("decrypt-file open", err)
	}
	defer src.Close()

	header := make([]byte, 512)
	n, _ := io.ReadFull(src, header)
	header = header[:n]
	if !hasScryptRecipient(header) {
		return errs.Crypto("decrypt-file", errs.UnsupportedFormat)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return errs.IO("decrypt-file seek", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return errs.Crypto("decrypt-file", errs.Wrap(err, "build scrypt identity"))
	}

	r, err := age.Decrypt(src, identity)
	if err != nil {
		return classifyAgeError(err)
	}

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.IO("decrypt-file create", err)
	}
	defer dst.Close()

	buf := util.GetMiBBuffer()
	defer util.PutMiBBuffer(buf)

	if _, err := io.CopyBuffer(dst, r, buf); err != nil {
		return classifyAgeError(err)
	}
	return nil
}

// hasScryptRecipient reports whether the age header (the plaintext-prefix
// portion of a non-armored age file, before the binary STREAM payload)
// contains a "-> scrypt" recipient stanza. Ponder only ever writes
// passphrase-recipient files; anything else - an X25519 or ssh-* stanza -
// is a format this module does not support.
func hasScryptRecipient(data []byte) bool {
	return bytes.Contains(data, []byte("-> scrypt"))
}

// classifyAgeError maps age's own error taxonomy onto Ponder's.
// age returns *age.NoIdentityMatchError when none of the identities can
// unwrap any recipient stanza; any other decrypt-time error (bad MAC,
// truncated STREAM frame, malformed header) is treated as an invalid
// passphrase too, since from the caller's perspective both look identical:
// "this passphrase does not open this file".
func classifyAgeError(err error) error {
	var noMatch *age.NoIdentityMatchError
	if errors.As(err, &noMatch) {
		return errs.Crypto("decrypt", errs.InvalidPassphrase)
	}
	// Any other age decrypt-time failure (bad MAC, truncated STREAM frame,
	// malformed header) is indistinguishable from a wrong passphrase to the
	// caller, so it maps to the same sentinel.
	return errs.Crypto("decrypt", errs.InvalidPassphrase)
}
