// Package session holds Ponder's passphrase for the lifetime of one CLI
// invocation. It never performs TTY I/O itself - that is
// GetOrPrompt's job, delegated to internal/prompt, the one function allowed
// to talk to a terminal or read the test-injection environment variable.
package session

import (
	"os"
	"sync"
	"time"

	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/errs"
)

// TestPassphraseEnvVar bypasses interactive prompting for tests and
// scripted invocations (spec §6 PONDER_TEST_PASSPHRASE).
const TestPassphraseEnvVar = "PONDER_TEST_PASSPHRASE"

// Prompter performs the two interactive flows Session itself never does:
// a single confirmation prompt against an existing vault, or a two-prompt
// "enter, confirm" flow when creating a brand-new vault.
type Prompter interface {
	PromptUnlock() (string, error)
	PromptCreate() (string, error)
}

// Session is a Locked/Unlocked state machine over a zeroizing passphrase.
// Every method takes the session's mutex, so Unlock, Lock and GetSecret
// (whose idle-timer refresh is read-modify-write) are serialized.
type Session struct {
	mu         sync.Mutex
	secret     *crypto.KeyMaterial
	lastAccess time.Time
	timeout    time.Duration
}

// New creates a Session in the Locked state with the given idle timeout.
func New(timeout time.Duration) *Session {
	return &Session{timeout: timeout}
}

// IsLocked reports true iff there is no secret or the idle timeout has
// elapsed since the last successful access.
func (s *Session) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLockedLocked()
}

func (s *Session) isLockedLocked() bool {
	if s.secret == nil || s.secret.IsClosed() {
		return true
	}
	if s.timeout > 0 && time.Since(s.lastAccess) >= s.timeout {
		return true
	}
	return false
}

// Unlock installs secret and stamps the access clock. A previously held
// secret, if any, is zeroized first.
func (s *Session) Unlock(secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secret != nil {
		s.secret.Close()
	}
	s.secret = crypto.NewKeyMaterial([]byte(secret))
	s.lastAccess = time.Now()
}

// Lock clears and zeroizes the secret. Idempotent.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secret != nil {
		s.secret.Close()
		s.secret = nil
	}
}

// GetSecret returns the passphrase if unlocked, refreshing the idle timer on
// success. Returns errs.VaultLocked otherwise. The idle timer is reset only
// on a successful call - a failed GetSecret against an already-expired
// session never resurrects it (spec §4.3).
func (s *Session) GetSecret() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isLockedLocked() {
		return "", errs.Crypto("get-secret", errs.VaultLocked)
	}
	s.lastAccess = time.Now()
	return string(s.secret.Bytes()), nil
}

// Close locks the session, zeroizing the secret. Safe to call multiple
// times; mirrors the spec's "destruction always locks" rule, since Go has no
// deterministic destructors - callers defer Close() explicitly instead.
func (s *Session) Close() {
	s.Lock()
}

// GetOrPrompt is the only path that may perform TTY I/O. dbExists controls
// whether the prompt flow is a single confirmation (vault already exists) or
// a two-prompt create-and-confirm flow (brand-new vault). Setting
// PONDER_TEST_PASSPHRASE bypasses the prompter entirely.
func (s *Session) GetOrPrompt(dbExists bool, prompter Prompter) (string, error) {
	if injected, ok := os.LookupEnv(TestPassphraseEnvVar); ok {
		s.Unlock(injected)
		return injected, nil
	}

	var (
		secret string
		err    error
	)
	if dbExists {
		secret, err = prompter.PromptUnlock()
	} else {
		secret, err = prompter.PromptCreate()
	}
	if err != nil {
		return "", err
	}
	s.Unlock(secret)
	return secret, nil
}
