package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand(getApp func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and audit statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := getApp()

			corpus, err := app.Ingest.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading corpus stats: %w", err)
			}
			cmd.Println("Corpus:")
			cmd.Printf("  documents: %d\n", corpus.Documents)
			cmd.Printf("  chunks:    %d\n", corpus.Chunks)

			if app.Audit == nil {
				return nil
			}
			audit, err := app.Audit.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading audit stats: %w", err)
			}
			cmd.Println("Audit:")
			cmd.Printf("  decisions: %d\n", audit.Total)
			cmd.Printf("  blocked:   %d\n", audit.Blocked)
			cmd.Printf("  emergency: %d\n", audit.Emergency)
			return nil
		},
	}
}
