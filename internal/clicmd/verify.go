package clicmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/backup"
	"github.com/ponderjournal/ponder/internal/prompt"
	"github.com/ponderjournal/ponder/internal/session"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify an encrypted backup archive without restoring it",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// runVerify does not open the journal database, so it prompts directly
// rather than going through newApp.
func runVerify(cmd *cobra.Command, args []string) error {
	sess := session.New(0)
	passphrase, err := sess.GetOrPrompt(true, prompt.TTY{})
	if err != nil {
		return err
	}
	defer sess.Close()

	manifest, extractDir, err := backup.VerifyBackup(args[0], passphrase)
	if err != nil {
		return err
	}
	defer os.RemoveAll(extractDir)

	fmt.Printf("backup is valid: %d entries\n", len(manifest.Entries))
	for _, e := range manifest.Entries {
		fmt.Printf("  %s\n", e)
	}
	return nil
}
