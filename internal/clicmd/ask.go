package clicmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/rag"
)

var askK int

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask a question answered from the most relevant journal entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askK, "k", 5, "Number of similar chunks to retrieve")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline := &rag.Pipeline{Root: a.Config.JournalDir, DB: a.DB, AI: a.AI, Passphrase: a.Passphrase}
	reply, err := pipeline.Ask(cmd.Context(), strings.Join(args, " "), askK)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
