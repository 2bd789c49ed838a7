package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIngestCommand(getApp func() *App) *cobra.Command {
	var (
		docID string
		title string
	)

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Load a document or directory into the corpus",
		Long: `Extracts text from the given file, splits it into offset-addressable
chunks, and stores it in the local corpus. Directories are walked and every
supported file is ingested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()
			path := args[0]

			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("cannot access %s: %w", path, err)
			}

			if info.IsDir() {
				reports, err := app.Ingest.IngestDir(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("ingesting directory: %w", err)
				}
				ok := 0
				for _, r := range reports {
					if r.Err != "" {
						cmd.Printf("  skipped %s: %s\n", r.Path, r.Err)
						continue
					}
					ok++
					cmd.Printf("  %s (%s): %d chunks, %d bytes\n", r.Title, r.DocID, r.Chunks, r.Bytes)
				}
				cmd.Printf("Ingested %d of %d files.\n", ok, len(reports))
				return nil
			}

			report, err := app.Ingest.IngestFile(cmd.Context(), path, docID, title)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			if report.Skipped {
				cmd.Printf("Already ingested as %q (%s); skipped.\n", report.Title, report.DocID)
				return nil
			}
			cmd.Printf("Ingested %q (%s): %d chunks, %d bytes\n",
				report.Title, report.DocID, report.Chunks, report.Bytes)
			return nil
		},
	}

	cmd.Flags().StringVar(&docID, "id", "", "document ID (default: generated; existing IDs are skipped)")
	cmd.Flags().StringVar(&title, "title", "", "document title (default: file name)")
	return cmd
}
