// Package edit implements the decrypt-edit-reencrypt-reembed pipeline that
// every journal edit runs through, modeled as a phased orchestrator: each
// step returns an error and triggers cleanup, mirroring the teacher's
// Encrypt/Decrypt phase sequencing.
package edit

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ponderjournal/ponder/internal/ai"
	"github.com/ponderjournal/ponder/internal/chunk"
	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/lock"
	"github.com/ponderjournal/ponder/internal/plog"
	"github.com/ponderjournal/ponder/internal/securetemp"
	"github.com/ponderjournal/ponder/internal/store"
)

// EmbedModel names the Ollama model used for chunk embeddings during the
// post-edit reindex step.
const EmbedModel = "nomic-embed-text"

// Request bundles what Run needs: the entry's date, the journal root, the
// passphrase to encrypt/decrypt with, the editor command, and the optional
// AI gateway used to reindex changed content.
type Request struct {
	Root       string
	Date       time.Time
	Passphrase string
	Editor     string
	DB         *store.DB
	AI         *ai.Gateway // nil disables step 9's reindex
}

// runContext carries per-run state between the phase functions, mirroring the
// teacher's OperationContext.
type runContext struct {
	encPath        string
	lock           *lock.Lock
	tempPath       string
	checksumBefore string
	checksumAfter  string
	entryID        int64
}

// Run executes the nine-step edit sequence described in spec §4.8. The
// exclusive advisory lock on encPath is held from before step 2 until after
// step 9; a concurrently running edit on the same date fails immediately
// with errs.FileBusy.
func Run(ctx context.Context, req Request) error {
	rc := &runContext{}

	// Step 1: resolve enc_path and ensure parent directories exist.
	rc.encPath = EntryPath(req.Root, req.Date)
	if err := os.MkdirAll(filepath.Dir(rc.encPath), 0o700); err != nil {
		return errs.IO("edit mkdir", err)
	}

	l, err := lock.Acquire(lock.Path(rc.encPath))
	if err != nil {
		return err
	}
	rc.lock = l
	defer func() {
		cleanup(rc)
		rc.lock.Release()
	}()

	if err := step2SeedOrDecrypt(rc, req); err != nil {
		return err
	}
	if err := step3ChecksumBefore(rc); err != nil {
		return err
	}
	if err := step4RunEditor(ctx, rc, req); err != nil {
		return err
	}
	if err := step5ChecksumAfter(rc); err != nil {
		return err
	}
	if err := step6Reencrypt(rc, req); err != nil {
		return err
	}
	wordCount, err := step7WordCount(rc, req)
	if err != nil {
		return err
	}
	if err := step8UpsertEntry(rc, req, wordCount); err != nil {
		return err
	}
	if err := step9Reembed(ctx, rc, req); err != nil {
		return err
	}

	plog.Info("entry edited",
		plog.String("date", req.Date.Format("2006-01-02")),
		plog.Bool("changed", rc.checksumBefore != rc.checksumAfter))
	return nil
}

// EntryPath resolves the on-disk layout from spec §6: root/YYYY/MM/DD.md.age.
func EntryPath(root string, date time.Time) string {
	return filepath.Join(root, date.Format("2006"), date.Format("01"), date.Format("02")+".md.age")
}

func step2SeedOrDecrypt(rc *runContext, req Request) error {
	if _, err := os.Stat(rc.encPath); os.IsNotExist(err) {
		tempPath, err := securetemp.NewPath()
		if err != nil {
			return err
		}
		seed := fmt.Sprintf("# %s\n\n", req.Date.Format("2006-01-02"))
		if err := os.WriteFile(tempPath, []byte(seed), 0o600); err != nil {
			return errs.IO("edit seed-entry", err)
		}
		rc.tempPath = tempPath
		return nil
	}

	tempPath, err := securetemp.DecryptToTemp(rc.encPath, req.Passphrase)
	if err != nil {
		return err
	}
	rc.tempPath = tempPath
	return nil
}

func step3ChecksumBefore(rc *runContext) error {
	data, err := os.ReadFile(rc.tempPath)
	if err != nil {
		return errs.IO("edit checksum-before", err)
	}
	rc.checksumBefore = crypto.Checksum(data)
	return nil
}

func step4RunEditor(ctx context.Context, rc *runContext, req Request) error {
	if err := ValidateEditorToken(req.Editor); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, req.Editor, rc.tempPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return errs.Editor("run-editor", errs.EditorNonZeroExit)
		}
		if os.IsPermission(err) {
			return errs.Editor("run-editor", errs.EditorPermissionDenied)
		}
		if os.IsNotExist(err) {
			return errs.Editor("run-editor", errs.EditorCommandNotFound)
		}
		return errs.Editor("run-editor", errs.EditorExecutionFailed)
	}
	return nil
}

func step5ChecksumAfter(rc *runContext) error {
	data, err := os.ReadFile(rc.tempPath)
	if err != nil {
		return errs.IO("edit checksum-after", err)
	}
	rc.checksumAfter = crypto.Checksum(data)
	return nil
}

func step6Reencrypt(rc *runContext, req Request) error {
	// EncryptFromTemp writes via sibling-tmp-then-rename and only deletes
	// rc.tempPath on success, retaining it for inspection on failure.
	if err := securetemp.EncryptFromTemp(rc.tempPath, rc.encPath, req.Passphrase); err != nil {
		return err
	}
	rc.tempPath = ""
	return nil
}

// step7WordCount re-decrypts to a fresh temp so the word count is always
// taken on plaintext, never on ciphertext bytes (spec §4.8's corrected bug).
func step7WordCount(rc *runContext, req Request) (int, error) {
	tempPath, err := securetemp.DecryptToTemp(rc.encPath, req.Passphrase)
	if err != nil {
		return 0, err
	}
	defer securetemp.Delete(tempPath)

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return 0, errs.IO("edit word-count read", err)
	}
	return len(strings.Fields(string(data))), nil
}

func step8UpsertEntry(rc *runContext, req Request, wordCount int) error {
	date := req.Date.Format("2006-01-02")
	relPath, err := filepath.Rel(req.Root, rc.encPath)
	if err != nil {
		relPath = rc.encPath
	}
	id, err := req.DB.Entries.UpsertEntry(relPath, date, rc.checksumAfter, wordCount)
	if err != nil {
		return err
	}
	rc.entryID = id
	return nil
}

func step9Reembed(ctx context.Context, rc *runContext, req Request) error {
	if rc.checksumBefore == rc.checksumAfter {
		return nil
	}
	if req.AI == nil {
		return nil
	}

	tempPath, err := securetemp.DecryptToTemp(rc.encPath, req.Passphrase)
	if err != nil {
		return err
	}
	defer securetemp.Delete(tempPath)

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return errs.IO("edit reembed read", err)
	}

	chunks := chunk.Split(string(data), chunk.DefaultSize, chunk.DefaultOverlap)

	if err := req.DB.Embeddings.DeleteEmbeddingsForEntry(rc.entryID); err != nil {
		return err
	}

	for i, c := range chunks {
		vec, err := req.AI.Embed(ctx, EmbedModel, c)
		if err != nil {
			return err
		}
		checksum := crypto.Checksum([]byte(c))
		if err := req.DB.Embeddings.InsertEmbedding(rc.entryID, i, vec, checksum); err != nil {
			return err
		}
	}

	return req.DB.Entries.MarkEmbedded(rc.entryID)
}

// cleanup removes any scratch file left over from a failed run. A
// successful run clears rc.tempPath itself at each handoff point.
func cleanup(rc *runContext) {
	if rc.tempPath != "" {
		securetemp.Delete(rc.tempPath)
	}
}

// editorAllowedPunct are the punctuation runes permitted in an editor token
// beyond letters, digits, and common path characters - deliberately narrow
// per spec §4.8's allow-list (reject space and shell metacharacters).
const editorAllowedPunct = "_./-:"

// ValidateEditorToken rejects anything but a single token made of Unicode
// word characters or the narrow punctuation allow-list above. This blocks
// space and every shell metacharacter named in spec §4.8
// (; & | $ ` ( ) < > ' " \ and newline) since none of them appear in the
// allow-list.
func ValidateEditorToken(editor string) error {
	if editor == "" {
		return errs.Editor("validate-editor", errs.EditorCommandNotFound)
	}
	for _, r := range editor {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if strings.ContainsRune(editorAllowedPunct, r) {
			continue
		}
		return errs.Editor("validate-editor", errs.EditorCommandNotFound)
	}
	return nil
}
