// Package config binds Ponder's environment-variable surface (spec §6) into
// a typed struct with kelseyhightower/envconfig, the same library xgrabba
// uses for its own env-backed Config. File-based configuration is explicitly
// out of scope (spec §1 treats it as an external collaborator); Ponder reads
// only the environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ponderjournal/ponder/internal/errs"
)

// Config holds every environment-derived setting Ponder's core needs.
type Config struct {
	// JournalDir is the root of the on-disk layout (spec §6). Falls back to
	// $HOME/.ponder when unset.
	JournalDir string `envconfig:"PONDER_DIR"`

	// Editor command, validated by internal/edit before being exec'd.
	// PONDER_EDITOR takes priority over EDITOR.
	PonderEditor string `envconfig:"PONDER_EDITOR"`
	Editor       string `envconfig:"EDITOR"`

	// Home is the fallback root when PONDER_DIR is unset.
	Home string `envconfig:"HOME"`

	// CI forces structured (JSON) logging over the human-readable text
	// formatter.
	CI bool `envconfig:"CI" default:"false"`

	// AI runtime endpoint and model names.
	OllamaBaseURL string        `envconfig:"PONDER_OLLAMA_URL" default:"http://localhost:11434"`
	EmbedModel    string        `envconfig:"PONDER_EMBED_MODEL" default:"nomic-embed-text"`
	ChatModel     string        `envconfig:"PONDER_CHAT_MODEL" default:"llama3"`
	OllamaTimeout time.Duration `envconfig:"PONDER_OLLAMA_TIMEOUT" default:"120s"`

	// SessionTimeout is the idle lock timeout (spec §4.3).
	SessionTimeout time.Duration `envconfig:"PONDER_SESSION_TIMEOUT" default:"10m"`
}

// Load reads environment variables into a Config and resolves JournalDir.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errs.Config("load", err)
	}

	if cfg.JournalDir == "" {
		home := cfg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return nil, errs.Config("resolve-home", err)
			}
		}
		cfg.JournalDir = filepath.Join(home, ".ponder")
	}

	return &cfg, nil
}

// EditorCommand returns the configured editor token, preferring
// PONDER_EDITOR over EDITOR, per spec §6.
func (c *Config) EditorCommand() string {
	if c.PonderEditor != "" {
		return c.PonderEditor
	}
	return c.Editor
}

// DatabasePath returns the path to the encrypted metadata database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.JournalDir, "ponder.db")
}
