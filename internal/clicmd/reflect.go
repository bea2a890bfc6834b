package clicmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/rag"
)

var reflectDate string

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Ask the assistant to reflect on a journal entry",
	RunE:  runReflect,
}

func init() {
	reflectCmd.Flags().StringVar(&reflectDate, "date", "", "Date to reflect on, YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(reflectCmd)
}

func runReflect(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	date := reflectDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	pipeline := &rag.Pipeline{Root: a.Config.JournalDir, DB: a.DB, AI: a.AI, Passphrase: a.Passphrase}
	reply, err := pipeline.Reflect(cmd.Context(), date)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
