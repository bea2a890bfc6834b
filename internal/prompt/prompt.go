// Package prompt reads a passphrase from the terminal without echoing it.
// It is Ponder's only caller of golang.org/x/term, generalized from the
// teacher's internal/cli/password.go. Ponder's session package treats this
// as an external collaborator reached only through the session.Prompter
// interface, matching spec §1's "TTY passphrase prompting" scope exclusion.
package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/ponderjournal/ponder/internal/errs"
)

// TTY prompts for a passphrase on stdin/stderr.
type TTY struct{}

// PromptUnlock asks once for the passphrase of an existing vault.
func (TTY) PromptUnlock() (string, error) {
	pw, err := read("Passphrase: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errs.Crypto("prompt-unlock", errs.EmptyPassphrase)
	}
	return pw, nil
}

// PromptCreate asks for a new passphrase twice and requires they match.
func (TTY) PromptCreate() (string, error) {
	pw, err := read("New passphrase: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errs.Crypto("prompt-create", errs.EmptyPassphrase)
	}
	confirm, err := read("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errs.Crypto("prompt-create", errs.PassphraseMismatch)
	}
	return pw, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

func read(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	if !isTerminal() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", errs.IO("prompt read", err)
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		return line, nil
	}

	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errs.IO("prompt read", err)
	}
	return string(raw), nil
}
