package services

import (
	"fmt"
	"strings"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Critic validates candidate responses against the safety policy before
// they reach a user. Review is a pure function of the response and the
// current policy; any internal fault resolves to BLOCK, never a panic.
type Critic struct {
	policies driven.PolicyStore
}

// NewCritic creates a critic bound to a policy store.
func NewCritic(policies driven.PolicyStore) *Critic {
	return &Critic{policies: policies}
}

// Review checks the response and returns an ALLOW or BLOCK decision.
//
// Five checks run independently and their findings accumulate: citation
// well-formedness, blocked phrases, disclaimer presence, step completeness,
// and emergency keyword detection. The last is informational only; it sets
// the banner flags without blocking.
func (c *Critic) Review(response *domain.ChecklistResponse) (decision domain.CriticDecision) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("critic recovered from panic: %v", r)
			decision = domain.CriticDecision{
				Status:  domain.CriticBlock,
				Reasons: []string{fmt.Sprintf("internal error during review: %v", r)},
				Fixes:   []string{"Contact system administrator"},
			}
		}
	}()

	policy := c.policies.Policy()

	var reasons, fixes []string

	if issues := validateCitations(response.Checklist, policy); len(issues) > 0 {
		reasons = append(reasons, issues...)
		fixes = append(fixes, "Ensure every step includes a valid source citation")
	}

	if issues := validateScope(response.Checklist, policy); len(issues) > 0 {
		reasons = append(reasons, issues...)
		fixes = append(fixes, "Keep content within first-aid and preparedness scope")
	}

	if issues := validateDisclaimer(response.Meta, policy); len(issues) > 0 {
		reasons = append(reasons, issues...)
		fixes = append(fixes, "Include proper medical disclaimers")
	}

	if issues := validateCompleteness(response.Checklist); len(issues) > 0 {
		reasons = append(reasons, issues...)
		fixes = append(fixes, "Provide complete, actionable steps")
	}

	emergency := policy.DetectEmergencyKeywords(collectText(response, true))

	decision = domain.CriticDecision{
		Status:                  domain.CriticAllow,
		Reasons:                 reasons,
		Fixes:                   fixes,
		EmergencyDetected:       len(emergency) > 0,
		RequiresEmergencyBanner: len(emergency) > 0,
	}
	if len(reasons) > 0 {
		decision.Status = domain.CriticBlock
	} else {
		decision.Reasons = []string{"Response meets all safety criteria"}
	}

	logger.Info("critic decision: %s (%d findings)", decision.Status, len(reasons))
	return decision
}

// SafeFallback is the replacement served when a response is blocked.
func (c *Critic) SafeFallback() *domain.ChecklistResponse {
	return &domain.ChecklistResponse{
		Checklist: []domain.ChecklistStep{{
			Title:   "Seek Professional Help",
			Action:  "Contact local emergency services or healthcare professionals for guidance.",
			Caution: "This system cannot provide appropriate guidance for your situation.",
		}},
		Meta: domain.Meta{
			Disclaimer:          domain.DefaultDisclaimer,
			WhenToCallEmergency: "Call emergency services immediately for any life-threatening situation.",
			Extra:               map[string]any{"blocked_by_safety_critic": true},
		},
	}
}

// validateCitations checks that every step carries a resolvable citation
// shape: non-empty doc_id and a two-element integer loc. Skipped entirely
// when the policy does not require citations.
func validateCitations(checklist []domain.ChecklistStep, policy domain.Policy) []string {
	if !policy.CitationRequired {
		return nil
	}

	var issues []string
	for i, step := range checklist {
		n := i + 1
		if step.Source == nil {
			issues = append(issues, fmt.Sprintf("step %d lacks source citation", n))
			continue
		}
		if step.Source.DocID == "" {
			issues = append(issues, fmt.Sprintf("step %d missing document ID in source", n))
		}
		if step.Source.Loc == nil {
			issues = append(issues, fmt.Sprintf("step %d missing location in source", n))
		} else if _, _, ok := step.Source.Span(); !ok {
			issues = append(issues, fmt.Sprintf("step %d has invalid location format in source", n))
		}
	}
	return issues
}

// validateScope rejects step text containing policy-blocked phrases.
func validateScope(checklist []domain.ChecklistStep, policy domain.Policy) []string {
	var parts []string
	for _, step := range checklist {
		parts = append(parts, step.Title, step.Action, step.Caution)
	}

	blocked := policy.DetectBlockedPhrases(strings.Join(parts, " "))
	if len(blocked) == 0 {
		return nil
	}
	return []string{"contains inappropriate medical terms: " + strings.Join(blocked, ", ")}
}

// validateDisclaimer requires the meta disclaimer to carry the policy's
// mandated phrase, compared case-insensitively.
func validateDisclaimer(meta domain.Meta, policy domain.Policy) []string {
	if meta.Disclaimer == "" {
		return []string{"missing medical disclaimer"}
	}
	if !strings.Contains(strings.ToLower(meta.Disclaimer), strings.ToLower(policy.RequiredDisclaimer)) {
		return []string{fmt.Sprintf("disclaimer must include %q", policy.RequiredDisclaimer)}
	}
	return nil
}

// validateCompleteness rejects empty checklists and steps with a blank
// title or action.
func validateCompleteness(checklist []domain.ChecklistStep) []string {
	var issues []string
	if len(checklist) == 0 {
		issues = append(issues, "response contains no actionable steps")
	}
	for i, step := range checklist {
		n := i + 1
		if strings.TrimSpace(step.Action) == "" {
			issues = append(issues, fmt.Sprintf("step %d has no action specified", n))
		}
		if strings.TrimSpace(step.Title) == "" {
			issues = append(issues, fmt.Sprintf("step %d has no title specified", n))
		}
	}
	return issues
}

// collectText flattens a response into one string for keyword scanning.
// includeMeta adds the disclaimer and emergency guidance text.
func collectText(response *domain.ChecklistResponse, includeMeta bool) string {
	var parts []string
	for _, step := range response.Checklist {
		parts = append(parts, step.Title, step.Action, step.Caution)
	}
	if includeMeta {
		parts = append(parts, response.Meta.WhenToCallEmergency)
		for _, v := range response.Meta.Extra {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}
