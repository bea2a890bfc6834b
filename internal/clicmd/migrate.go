package clicmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/migrate"
	"github.com/ponderjournal/ponder/internal/store"
	"github.com/ponderjournal/ponder/internal/util"
)

var migrateSkipEmbeddings bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy plaintext entries into the encrypted v2 layout",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSkipEmbeddings, "skip-embeddings", false, "Do not embed migrated entries")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp(!migrateSkipEmbeddings)
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := migrate.ScanV1(a.Config.JournalDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("no legacy entries found")
		return nil
	}

	reporter := newMigrateReporter()
	err = migrate.MigrateAll(cmd.Context(), a.Config.JournalDir, a.Passphrase, files, a.DB, a.AI, reporter.onProgress)
	reporter.finish()
	return err
}

// migrateReporter prints a single overwritten progress line, adapted from
// the teacher's terminal Reporter, collapsed to the one callback
// migrate.ProgressFunc needs instead of a stateful SetStatus/SetProgress
// interface. ETA reuses util.Statify's progress/speed/ETA math, originally
// written for byte counts, here fed file counts instead - the unit changes,
// the HH:MM:SS estimate does not.
type migrateReporter struct {
	start    time.Time
	lastLine int
}

func newMigrateReporter() *migrateReporter {
	return &migrateReporter{start: time.Now()}
}

func (r *migrateReporter) onProgress(done, total int, filename string, status store.MigrationStatus) {
	_, _, eta := util.Statify(int64(done), int64(total), r.start)
	line := fmt.Sprintf("\r[%d/%d, eta %s] %s -> %s", done, total, eta, filename, status)
	if pad := r.lastLine - len(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	r.lastLine = len(line)
	fmt.Fprint(os.Stderr, line)
}

func (r *migrateReporter) finish() {
	if r.lastLine > 0 {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "done in %s\n", util.Timeify(int(time.Since(r.start).Seconds())))
}
