package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/core/ports/driving"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.ChatService = (*Engine)(nil)

// Answer production modes, recorded on every outcome.
const (
	ModeToolLoop = "tool-loop"
	ModeRAG      = "rag"
	ModeTemplate = "template"
)

// Fallback policies for canned template answers in RAG mode.
const (
	// FallbackAuto serves a template only when generation fails.
	FallbackAuto = "auto"
	// FallbackAlways skips generation entirely.
	FallbackAlways = "always"
	// FallbackNever serves the generic safe answer instead of a template.
	FallbackNever = "never"
)

const systemPrompt = `You are an emergency guidance assistant that provides step-by-step checklists for household and community emergencies. You have access to a local document corpus containing IFRC First Aid Guidelines (2020) and WHO Psychological First Aid (2011).

CRITICAL REQUIREMENTS:
1. Always provide responses as a structured checklist with clear, actionable steps
2. Every step MUST include a source citation from the document corpus
3. Use the browser tool to search, open, and find relevant information
4. Include appropriate safety warnings and disclaimers
5. For life-threatening situations, always advise calling emergency services

To use the browser tool, emit a JSON object:
{"recipient": "browser", "method": "search", "args": {"q": "query", "k": 5}}
{"recipient": "browser", "method": "open", "args": {"doc_id": "id", "start": 0, "end": 1000}}
{"recipient": "browser", "method": "find", "args": {"doc_id": "id", "pattern": "text", "after": 0}}

Format your final response as JSON:
{
  "checklist": [
    {
      "title": "Step title",
      "action": "Detailed action to take",
      "source": {"doc_id": "document_id", "loc": [start_offset, end_offset]},
      "caution": "Optional safety warning"
    }
  ],
  "meta": {
    "disclaimer": "Not medical advice. For emergencies, call local emergency services.",
    "when_to_call_emergency": "Specific conditions requiring emergency services"
  }
}`

// EngineConfig bounds the orchestration loop.
type EngineConfig struct {
	MaxIterations int
	MaxTokens     int
	Temperature   float64
	MaxHistory    int
	// GenerationTimeout bounds each backend call, not the whole request.
	GenerationTimeout time.Duration
	// FallbackMode is one of FallbackAuto, FallbackAlways, FallbackNever.
	FallbackMode string
}

// DefaultEngineConfig returns the standard loop bounds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxIterations:     5,
		MaxTokens:         2048,
		Temperature:       0.1,
		MaxHistory:        20,
		GenerationTimeout: 2 * time.Minute,
		FallbackMode:      FallbackAuto,
	}
}

// Engine answers user queries end to end: it drives the generation backend
// through the retrieval tool, parses the result into a checklist, and gates
// it through the safety critic. Engines are stateless between requests;
// each Ask owns its conversation.
type Engine struct {
	backend   driven.GenerationBackend
	retrieval driving.RetrievalService
	critic    *Critic
	audit     driven.AuditLog
	cfg       EngineConfig
}

// NewEngine creates an orchestration engine. The audit log may be nil.
func NewEngine(
	backend driven.GenerationBackend,
	retrieval driving.RetrievalService,
	critic *Critic,
	audit driven.AuditLog,
	cfg EngineConfig,
) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 20
	}
	if cfg.FallbackMode == "" {
		cfg.FallbackMode = FallbackAuto
	}
	return &Engine{
		backend:   backend,
		retrieval: retrieval,
		critic:    critic,
		audit:     audit,
		cfg:       cfg,
	}
}

// Ask produces a vetted checklist answer for the query.
func (e *Engine) Ask(ctx context.Context, query, conversationID string) (*driving.ChatOutcome, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	started := time.Now()

	var (
		response  *domain.ChecklistResponse
		mode      string
		toolCalls int
	)

	if e.backend != nil && e.backend.SupportsToolLoop() && e.cfg.FallbackMode != FallbackAlways {
		response, toolCalls = e.runToolLoop(ctx, query)
		mode = ModeToolLoop
	} else {
		response, mode = e.runRAG(ctx, query)
	}

	decision := e.critic.Review(response)

	outcome := &driving.ChatOutcome{
		ConversationID: conversationID,
		Response:       response,
		Decision:       decision,
		Mode:           mode,
		ToolCalls:      toolCalls,
	}
	if !decision.Allowed() {
		logger.Warn("response blocked: %v", decision.Reasons)
		outcome.Blocked = true
		outcome.Response = e.critic.SafeFallback()
	}

	e.recordDecision(ctx, query, outcome, time.Since(started))
	return outcome, nil
}

// runToolLoop drives the model through iterative retrieval. It never
// returns an error: exhaustion or backend failure resolves to the safe
// fallback answer.
func (e *Engine) runToolLoop(ctx context.Context, query string) (*domain.ChecklistResponse, int) {
	logger.Section("Tool Loop")

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: query},
	}
	totalCalls := 0

	for iteration := 0; iteration < e.cfg.MaxIterations; iteration++ {
		logger.Debug("tool loop iteration %d", iteration+1)
		messages = domain.TrimConversation(messages, e.cfg.MaxHistory)

		reply, err := e.chat(ctx, messages)
		if err != nil {
			logger.Warn("generation failed on iteration %d: %v", iteration+1, err)
			return fallbackResponse(fmt.Sprintf("generation failed: %v", err)), totalCalls
		}

		calls := parseToolCalls(reply)
		if len(calls) == 0 {
			resp := parseChecklistResponse(reply)
			if resp.ParseError == "" {
				return resp, totalCalls
			}
			// Unparseable final answer; keep it in history and retry.
			messages = append(messages, domain.Message{Role: domain.RoleAssistant, Content: reply})
			continue
		}

		messages = append(messages, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   reply,
			ToolCalls: calls,
		})

		// All of one iteration's calls execute in order and fold back
		// into a single assistant-authored message.
		results := e.executeToolCalls(ctx, calls)
		totalCalls += len(calls)
		messages = append(messages, domain.Message{
			Role:        domain.RoleAssistant,
			Content:     renderToolResults(results),
			ToolResults: results,
		})
	}

	logger.Warn("tool loop exhausted after %d iterations", e.cfg.MaxIterations)
	return fallbackResponse("tool loop exhausted without a parseable answer"), totalCalls
}

// runRAG answers with one generation call over prefetched context, or a
// canned template when generation is unavailable.
func (e *Engine) runRAG(ctx context.Context, query string) (*domain.ChecklistResponse, string) {
	logger.Section("RAG Fallback")

	hits := e.prefetch(ctx, query)

	if e.cfg.FallbackMode == FallbackAlways || e.backend == nil {
		return templateResponse(query, hits), ModeTemplate
	}

	prompt := buildRAGPrompt(ctx, e.retrieval, query, hits)
	reply, err := e.chat(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: prompt},
	})
	if err != nil {
		logger.Warn("generation failed in RAG mode: %v", err)
		if e.cfg.FallbackMode == FallbackNever {
			return fallbackResponse(fmt.Sprintf("generation failed: %v", err)), ModeRAG
		}
		return templateResponse(query, hits), ModeTemplate
	}

	return parseChecklistResponse(reply), ModeRAG
}

// prefetch runs the initial corpus search for RAG and template answers.
func (e *Engine) prefetch(ctx context.Context, query string) []domain.SearchHit {
	result, err := e.retrieval.Search(ctx, query, 3)
	if err != nil {
		logger.Warn("prefetch search failed: %v", err)
		return nil
	}
	return result.Results
}

// chat calls the backend with the per-call timeout applied.
func (e *Engine) chat(ctx context.Context, messages []domain.Message) (string, error) {
	if e.backend == nil {
		return "", domain.ErrBackendUnavailable
	}
	if e.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.GenerationTimeout)
		defer cancel()
	}
	return e.backend.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
}

// executeToolCalls runs the calls synchronously in the order received.
// Failures become structured results; they never abort the batch.
func (e *Engine) executeToolCalls(ctx context.Context, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, 0, len(calls))
	for _, call := range calls {
		callID := call.CallID
		if callID == "" {
			callID = uuid.New().String()
		}

		if call.Recipient != "" && call.Recipient != "browser" {
			results = append(results, domain.ToolResult{
				CallID: callID,
				Error:  fmt.Sprintf("unknown tool: %s", call.Recipient),
			})
			continue
		}

		result, err := e.executeBrowserCall(ctx, call)
		if err != nil {
			logger.Warn("tool call %s/%s failed: %v", call.Recipient, call.Method, err)
			results = append(results, domain.ToolResult{CallID: callID, Error: err.Error()})
			continue
		}
		results = append(results, domain.ToolResult{CallID: callID, Result: result})
	}
	return results
}

// executeBrowserCall dispatches one retrieval method.
func (e *Engine) executeBrowserCall(ctx context.Context, call domain.ToolCall) (any, error) {
	switch call.Method {
	case "search":
		return e.retrieval.Search(ctx, argString(call.Args, "q"), argInt(call.Args, "k", 5))
	case "open":
		return e.retrieval.Open(ctx,
			argString(call.Args, "doc_id"),
			argInt(call.Args, "start", 0),
			argInt(call.Args, "end", 0))
	case "find":
		return e.retrieval.Find(ctx,
			argString(call.Args, "doc_id"),
			argString(call.Args, "pattern"),
			argInt(call.Args, "after", 0))
	default:
		return nil, fmt.Errorf("unknown browser method: %s", call.Method)
	}
}

// recordDecision persists the critic decision when an audit log is wired.
func (e *Engine) recordDecision(ctx context.Context, query string, outcome *driving.ChatOutcome, elapsed time.Duration) {
	if e.audit == nil {
		return
	}

	backendName := ""
	if e.backend != nil {
		backendName = e.backend.ModelName()
	}

	responseJSON, err := json.Marshal(outcome.Response)
	if err != nil {
		responseJSON = nil
	}
	entry := driven.AuditEntry{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		ConversationID: outcome.ConversationID,
		Query:          query,
		Status:         string(outcome.Decision.Status),
		Reasons:        outcome.Decision.Reasons,
		Emergency:      outcome.Decision.EmergencyDetected,
		Backend:        backendName,
		LatencyMS:      elapsed.Milliseconds(),
		ResponseJSON:   string(responseJSON),
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		logger.Warn("audit record failed: %v", err)
	}
}

// parseToolCalls extracts structured tool calls from model output. Each
// brace-balanced JSON object carrying a known method is one call; order of
// appearance is preserved.
func parseToolCalls(text string) []domain.ToolCall {
	var calls []domain.ToolCall
	for _, raw := range scanJSONObjects(text) {
		var call domain.ToolCall
		if err := json.Unmarshal([]byte(raw), &call); err != nil {
			continue
		}
		switch call.Method {
		case "search", "open", "find":
			if call.Recipient == "" {
				call.Recipient = "browser"
			}
			calls = append(calls, call)
		}
	}
	return calls
}

// scanJSONObjects returns every top-level balanced JSON object in text, in
// order of appearance.
func scanJSONObjects(text string) []string {
	var objects []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					objects = append(objects, candidate)
				}
				start = -1
			}
		}
	}
	return objects
}

// renderToolResults serializes tool results for the model's consumption.
func renderToolResults(results []domain.ToolResult) string {
	var sb strings.Builder
	sb.WriteString("Tool results:\n")
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// buildRAGPrompt assembles the enriched single-shot prompt: each hit is
// widened ±500 bytes via open so the model sees surrounding context, and
// the real citation offsets ride along.
func buildRAGPrompt(ctx context.Context, retrieval driving.RetrievalService, query string, hits []domain.SearchHit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User Query: %s\n\n", query)
	sb.WriteString("Relevant Context from Emergency Guidelines:\n\n")

	for i, hit := range hits {
		start := max(0, hit.Location.StartOffset-500)
		end := hit.Location.EndOffset + 500

		text := hit.Text
		actualStart, actualEnd := hit.Location.StartOffset, hit.Location.EndOffset
		if opened, err := retrieval.Open(ctx, hit.DocID, start, end); err == nil && opened.Status == "" {
			text = opened.Text
			actualStart, actualEnd = opened.ActualStart, opened.ActualEnd
		}
		if len(text) > 1000 {
			text = text[:1000] + "..."
		}

		fmt.Fprintf(&sb, "Source %d: %s (doc_id: %s)\n", i+1, hit.DocTitle, hit.DocID)
		fmt.Fprintf(&sb, "Location: %d-%d\n", actualStart, actualEnd)
		fmt.Fprintf(&sb, "Content: %s\n\n", text)
	}

	sb.WriteString("Based on the above context, provide a structured checklist response in JSON format.\n")
	sb.WriteString("Ensure each step includes proper source citations with doc_id and location offsets.\n")
	return sb.String()
}

// argString reads a string argument with a zero-value default.
func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argInt reads an integer argument. JSON numbers decode as float64.
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
