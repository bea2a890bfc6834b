package clicmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/backup"
	"github.com/ponderjournal/ponder/internal/util"
)

var backupCmd = &cobra.Command{
	Use:   "backup <path>",
	Short: "Create an encrypted backup archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	checksum, err := backup.CreateBackup(a.Config.JournalDir, a.Config.DatabasePath(), args[0], a.Passphrase, a.DB)
	if err != nil {
		return err
	}

	size := "unknown size"
	if info, statErr := os.Stat(args[0]); statErr == nil {
		size = util.Sizeify(info.Size())
	}
	fmt.Printf("backup written to %s (%s, blake3 %s)\n", args[0], size, checksum)
	return nil
}
