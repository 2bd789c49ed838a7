package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driving"
)

func newChatCommand(getApp func() *App) *cobra.Command {
	var (
		conversationID string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask an emergency guidance question",
		Long: `Answers the question from the local corpus as an ordered checklist with
citations. Responses are vetted by a safety policy before display.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := joinArgs(args)

			outcome, err := getApp().Chat.Ask(cmd.Context(), query, conversationID)
			if err != nil {
				return fmt.Errorf("answering: %w", err)
			}
			if asJSON {
				data, err := json.MarshalIndent(outcome, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			outputChecklist(cmd, outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the full outcome as JSON")
	return cmd
}

func outputChecklist(cmd *cobra.Command, outcome *driving.ChatOutcome) {
	if outcome.Decision.RequiresEmergencyBanner {
		cmd.Printf("!! %s\n\n", domain.EmergencyBannerText)
	}
	if outcome.Blocked {
		cmd.Println("The generated answer did not pass the safety check; showing general guidance instead.")
		cmd.Println()
	}

	for i, step := range outcome.Response.Checklist {
		cmd.Printf("%d. %s\n", i+1, step.Title)
		cmd.Printf("   %s\n", step.Action)
		if step.Caution != "" {
			cmd.Printf("   Caution: %s\n", step.Caution)
		}
		if step.Source != nil {
			if start, end, ok := step.Source.Span(); ok {
				cmd.Printf("   [source: %s %d-%d]\n", step.Source.DocID, start, end)
			} else {
				cmd.Printf("   [source: %s]\n", step.Source.DocID)
			}
		}
		cmd.Println()
	}

	if outcome.Response.Meta.WhenToCallEmergency != "" {
		cmd.Printf("Call emergency services if: %s\n", outcome.Response.Meta.WhenToCallEmergency)
	}
	cmd.Println(outcome.Response.Meta.Disclaimer)
	cmd.Printf("\n(conversation %s, mode %s)\n", outcome.ConversationID, outcome.Mode)
}
