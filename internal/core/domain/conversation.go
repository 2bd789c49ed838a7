package domain

// Role identifies the author of a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is a structured request emitted by the model mid-generation to
// invoke a retrieval method. Tool calls live only within one orchestration
// turn and are never persisted.
type ToolCall struct {
	// Recipient names the tool, e.g. "browser".
	Recipient string `json:"recipient"`

	// Method is the tool method: "search", "open", or "find".
	Method string `json:"method"`

	// Args holds the method arguments.
	Args map[string]any `json:"args"`

	// CallID correlates the call with its result. Assigned by the
	// engine when the model omits one.
	CallID string `json:"call_id,omitempty"`
}

// ToolResult carries the outcome of one executed tool call.
type ToolResult struct {
	CallID string `json:"call_id"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Message is one entry in a request-scoped conversation. Conversations are
// owned by a single in-flight request and discarded at request end.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// TrimConversation bounds a conversation to max messages, keeping all
// system-role messages and the most recent non-system messages, with
// relative order preserved. Returns the input unchanged when already
// within bounds.
func TrimConversation(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}

	var system, other []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			other = append(other, m)
		}
	}

	keep := max - len(system)
	if keep < 0 {
		keep = 0
	}
	if keep < len(other) {
		other = other[len(other)-keep:]
	}

	trimmed := make([]Message, 0, len(system)+len(other))
	trimmed = append(trimmed, system...)
	trimmed = append(trimmed, other...)
	return trimmed
}
