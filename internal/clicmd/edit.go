package clicmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/edit"
)

var editDate string

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open today's (or a given date's) journal entry in your editor",
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editDate, "date", "", "Date to edit, YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	date := time.Now()
	if editDate != "" {
		date, err = time.Parse("2006-01-02", editDate)
		if err != nil {
			return err
		}
	}

	editorCmd := a.Config.EditorCommand()
	if err := edit.ValidateEditorToken(editorCmd); err != nil {
		return err
	}

	return edit.Run(cmd.Context(), edit.Request{
		Root:       a.Config.JournalDir,
		Date:       date,
		Passphrase: a.Passphrase,
		Editor:     editorCmd,
		DB:         a.DB,
		AI:         a.AI,
	})
}
