// Command ponder is the CLI entry point for the Ponder personal journal.
package main

import (
	"os"

	"github.com/ponderjournal/ponder/internal/clicmd"
	"github.com/ponderjournal/ponder/internal/config"
	"github.com/ponderjournal/ponder/internal/plog"
)

// version is overridden at release build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err == nil {
		level := plog.LevelInfo
		plog.SetLogger(plog.New(os.Stderr, level, cfg.CI))
	}

	os.Exit(clicmd.Execute(version))
}
