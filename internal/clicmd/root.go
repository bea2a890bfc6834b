// Package clicmd implements Ponder's command-line surface with Cobra, one
// subcommand file per verb, sharing a root command with signal handling for
// graceful SIGINT/SIGTERM cancellation - kept from the teacher's
// cli.Execute/rootCmd shape.
package clicmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/plog"
)

// Version is set by cmd/ponder/main.go.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "ponder",
	Short:   "A local-first, privacy-preserving personal journal",
	Version: Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the CLI, returning the process exit code. A single
// process-boundary point logs every error exactly once as structured and
// prints the user-visible "Error: <category>: <detail>" line to stderr
// (spec §7) - mirroring the teacher's main.go/cli.Execute boundary being
// the only place the exit code is decided.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

// reportError is Ponder's single point of error logging (spec §7): a
// structured ERROR log line carrying a correlation id, then the
// human-readable "Error: <category>: <detail>" line on stderr, so a user
// can hand the same id back when reporting a failure.
func reportError(err error) {
	category, ok := errs.CategoryOf(err)
	if !ok {
		category = "unknown"
	}
	correlationID := uuid.NewString()
	plog.Error("command failed",
		plog.String("correlation_id", correlationID),
		plog.String("category", string(category)),
		plog.Err(err),
	)
	fmt.Fprintf(os.Stderr, "Error: %s: %s (correlation id %s)\n", category, unwrapMessage(err), correlationID)
}

func unwrapMessage(err error) string {
	var e *errs.Error
	if errs.As(err, &e) {
		return e.Err.Error()
	}
	return err.Error()
}
