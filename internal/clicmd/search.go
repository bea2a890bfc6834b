package clicmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ponderjournal/ponder/internal/rag"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search journal entries by semantic similarity, without generation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", 10, "Number of results to return")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline := &rag.Pipeline{Root: a.Config.JournalDir, DB: a.DB, AI: a.AI, Passphrase: a.Passphrase}
	hits, err := pipeline.Search(cmd.Context(), strings.Join(args, " "), searchK)
	if err != nil {
		return err
	}

	for _, h := range hits {
		fmt.Printf("%s  (score %.3f)\n  %s\n\n", h.Date, h.Score, h.Excerpt)
	}
	return nil
}
