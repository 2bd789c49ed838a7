package driving

import (
	"context"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// ChatService answers one user query end to end: orchestrated retrieval,
// response assembly, and the safety gate. It is the single entry point the
// HTTP API and CLI chat command drive.
type ChatService interface {
	// Ask produces a vetted checklist answer for the query. Blocked
	// responses are replaced with a safe fallback before returning; the
	// returned ChatOutcome always carries something renderable. An empty
	// conversationID starts a new conversation.
	Ask(ctx context.Context, query, conversationID string) (*ChatOutcome, error)
}

// ChatOutcome bundles the final response with the critic's decision and
// engine diagnostics.
type ChatOutcome struct {
	ConversationID string                    `json:"conversation_id"`
	Response       *domain.ChecklistResponse `json:"response"`
	Decision       domain.CriticDecision     `json:"critic"`

	// Blocked reports that the original response was rejected and the
	// returned one is the safe fallback.
	Blocked bool `json:"blocked"`

	// Mode records how the answer was produced: "tool-loop", "rag", or
	// "template".
	Mode string `json:"mode"`

	// ToolCalls counts retrieval invocations made while answering.
	ToolCalls int `json:"tool_calls"`
}
