package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

func newDocsCommand(getApp func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage corpus documents",
	}
	cmd.AddCommand(newDocsListCommand(getApp), newDocsDeleteCommand(getApp))
	return cmd
}

func newDocsListCommand(getApp func() *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := getApp().Ingest.Documents(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing documents: %w", err)
			}
			if asJSON {
				return outputDocsJSON(cmd, docs)
			}
			outputDocsTable(cmd, docs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newDocsDeleteCommand(getApp func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [doc-id]",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getApp().Ingest.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting %s: %w", args[0], err)
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func outputDocsJSON(cmd *cobra.Command, docs []domain.Document) error {
	type docOut struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Path      string `json:"path,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]docOut, 0, len(docs))
	for _, d := range docs {
		out = append(out, docOut{
			ID:        d.ID,
			Title:     d.Title,
			Path:      d.Path,
			CreatedAt: d.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func outputDocsTable(cmd *cobra.Command, docs []domain.Document) {
	if len(docs) == 0 {
		cmd.Println("No documents in the corpus. Run 'campfire ingest' first.")
		return
	}
	cmd.Printf("%-38s %-40s %s\n", "ID", "TITLE", "INGESTED")
	for _, d := range docs {
		cmd.Printf("%-38s %-40s %s\n", d.ID, truncate(d.Title, 40), d.CreatedAt.Format("2006-01-02 15:04"))
	}
	cmd.Printf("\n%d document(s)\n", len(docs))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
