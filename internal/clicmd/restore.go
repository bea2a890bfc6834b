package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/backup"
	"github.com/ponderjournal/ponder/internal/prompt"
	"github.com/ponderjournal/ponder/internal/session"
)

var restoreForce bool

var restoreCmd = &cobra.Command{
	Use:   "restore <archive> <target>",
	Short: "Restore an encrypted backup archive into target",
	Args:  cobra.ExactArgs(2),
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite an existing target directory")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	sess := session.New(0)
	passphrase, err := sess.GetOrPrompt(true, prompt.TTY{})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := backup.RestoreBackup(args[0], args[1], passphrase, restoreForce); err != nil {
		return err
	}
	fmt.Printf("restored into %s\n", args[1])
	return nil
}
