package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campfire-labs/campfire/internal/core/ports/driving"
)

func newSearchCommand(getApp func() *App) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over the corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := joinArgs(args)

			result, err := getApp().Retrieval.Search(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}
			if asJSON {
				return outputSearchJSON(cmd, result)
			}
			outputSearchTable(cmd, result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func outputSearchJSON(cmd *cobra.Command, result *driving.SearchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *driving.SearchResult) {
	if len(result.Results) == 0 {
		cmd.Printf("No results for %q.\n", result.Query)
		return
	}
	cmd.Printf("Results for %q:\n\n", result.Query)
	for i, hit := range result.Results {
		cmd.Printf("%d. %s (%s)\n", i+1, hit.DocTitle, hit.DocID)
		cmd.Printf("   offsets %d-%d", hit.Location.StartOffset, hit.Location.EndOffset)
		if hit.Location.PageNumber != nil {
			cmd.Printf(", page %d", *hit.Location.PageNumber)
		}
		cmd.Println()
		cmd.Printf("   %s\n\n", hit.Snippet)
	}
}

func joinArgs(args []string) string {
	query := args[0]
	for _, a := range args[1:] {
		query += " " + a
	}
	return query
}
