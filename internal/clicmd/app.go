package clicmd

import (
	"os"

	"github.com/ponderjournal/ponder/internal/ai"
	"github.com/ponderjournal/ponder/internal/config"
	"github.com/ponderjournal/ponder/internal/prompt"
	"github.com/ponderjournal/ponder/internal/session"
	"github.com/ponderjournal/ponder/internal/store"
)

// app bundles the per-invocation dependencies every subcommand needs: the
// resolved config, an unlocked session, the opened database, and (when
// requested) the AI gateway.
type app struct {
	Config     *config.Config
	Session    *session.Session
	DB         *store.DB
	Passphrase string
	AI         *ai.Gateway
}

// newApp loads configuration, prompts for (or injects) the vault
// passphrase, and opens the database. withAI also wires the Ollama
// gateway, for the subcommands that call embed/chat.
func newApp(withAI bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.JournalDir, 0o700); err != nil {
		return nil, err
	}

	dbPath := cfg.DatabasePath()
	_, statErr := os.Stat(dbPath)
	dbExists := !os.IsNotExist(statErr)

	sess := session.New(cfg.SessionTimeout)
	passphrase, err := sess.GetOrPrompt(dbExists, prompt.TTY{})
	if err != nil {
		return nil, err
	}

	db, err := store.Open(dbPath, passphrase)
	if err != nil {
		return nil, err
	}

	a := &app{Config: cfg, Session: sess, DB: db, Passphrase: passphrase}
	if withAI {
		a.AI = ai.New(cfg.OllamaBaseURL, cfg.OllamaTimeout)
	}
	return a, nil
}

// Close releases the database and locks the session.
func (a *app) Close() {
	a.DB.Close()
	a.Session.Close()
}
