package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Parsing strategies run in order: fenced JSON block, brace-balanced scan,
// then a line-oriented heuristic for models that answer in prose. A failure
// at every stage yields a safe fallback response, never an error to the
// caller; the reason is recorded on the response for auditing.

var (
	fencedJSONBlock = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")
	fencedAnyBlock  = regexp.MustCompile("(?is)```\\s*(\\{.*?\\})\\s*```")
	stepIndicator   = regexp.MustCompile(`(?i)^(step\b|action\b|\d+[.)]\s)`)
)

// parseChecklistResponse turns raw model output into a ChecklistResponse.
func parseChecklistResponse(text string) *domain.ChecklistResponse {
	if raw := extractJSON(text); raw != "" {
		var resp domain.ChecklistResponse
		if err := json.Unmarshal([]byte(raw), &resp); err == nil && len(resp.Checklist) > 0 {
			if resp.Meta.Disclaimer == "" {
				resp.Meta.Disclaimer = domain.DefaultDisclaimer
			}
			return &resp
		} else if err != nil {
			logger.Debug("checklist JSON rejected: %v", err)
		}
	}

	if resp := parseStructuredText(text); resp != nil {
		return resp
	}

	return fallbackResponse("no parsable checklist in model output")
}

// extractJSON pulls the first plausible JSON object out of model output.
// Fenced blocks win; otherwise the text is scanned for a balanced top-level
// object that actually decodes.
func extractJSON(text string) string {
	for _, re := range []*regexp.Regexp{fencedJSONBlock, fencedAnyBlock} {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}

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
					return candidate
				}
			}
		}
	}
	return ""
}

// parseStructuredText recovers steps from a prose answer: numbered or
// "Step"-prefixed lines open a new step and following lines extend it.
// Returns nil when the text contains no step-like structure at all.
func parseStructuredText(text string) *domain.ChecklistResponse {
	var steps []domain.ChecklistStep
	var current *domain.ChecklistStep

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if stepIndicator.MatchString(line) {
			if current != nil {
				steps = append(steps, *current)
			}
			current = &domain.ChecklistStep{
				Title:  fmt.Sprintf("Step %d", len(steps)+1),
				Action: line,
			}
			continue
		}
		if current != nil {
			current.Action += " " + line
		}
	}
	if current != nil {
		steps = append(steps, *current)
	}

	if len(steps) == 0 {
		return nil
	}
	return &domain.ChecklistResponse{
		Checklist: steps,
		Meta:      domain.Meta{Disclaimer: domain.DefaultDisclaimer},
	}
}

// fallbackResponse is the safe answer served when nothing usable could be
// produced. The reason is kept off the wire.
func fallbackResponse(reason string) *domain.ChecklistResponse {
	logger.Warn("serving fallback response: %s", reason)
	return &domain.ChecklistResponse{
		Checklist: []domain.ChecklistStep{{
			Title: "Seek Assistance",
			Action: "A reliable answer could not be produced for this question. " +
				"Consult a printed first aid guide or ask a trained responder. " +
				"If the situation is urgent, call your local emergency services immediately.",
			Caution: "If this is a life-threatening emergency, call your local emergency services immediately.",
		}},
		Meta: domain.Meta{
			Disclaimer:          domain.DefaultDisclaimer,
			WhenToCallEmergency: "For any life-threatening emergency, call local emergency services immediately.",
		},
		ParseError: reason,
	}
}
