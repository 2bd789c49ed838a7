package domain

import (
	"sort"
	"strings"
)

// Policy holds the safety rules the critic enforces: emergency keywords
// (informational banner detection), blocked phrases (out-of-scope medical
// vocabulary), and the substring every disclaimer must carry.
//
// A built-in default policy ships with the binary; an externally loaded
// override is unioned over it at startup.
type Policy struct {
	// EmergencyKeywords trigger the emergency banner when present in
	// response text. Detection is informational, never blocking.
	EmergencyKeywords map[string]struct{}

	// BlockedPhrases force BLOCK when present in any step's text.
	BlockedPhrases map[string]struct{}

	// RequiredDisclaimer is the substring the meta disclaimer must
	// contain, compared case-insensitively.
	RequiredDisclaimer string

	// CitationRequired controls whether every step must carry a
	// well-formed citation.
	CitationRequired bool
}

// DefaultPolicy returns the built-in safety policy.
func DefaultPolicy() Policy {
	return Policy{
		EmergencyKeywords: keywordSet(
			"unconscious", "unconsciousness", "not breathing", "no pulse",
			"chest pain", "heart attack", "cardiac arrest", "stroke",
			"severe bleeding", "hemorrhage", "anaphylaxis", "allergic reaction",
			"overdose", "poisoning", "electric shock", "electrocution",
			"choking", "airway obstruction", "seizure", "head injury",
			"spinal injury", "broken bone", "fracture", "severe burn",
			"hypothermia", "heat stroke",
		),
		BlockedPhrases: keywordSet(
			"diagnose", "diagnosis", "prescribe", "prescription",
			"medication", "surgery", "operate", "medical treatment",
			"cure", "disease", "disorder", "syndrome",
		),
		RequiredDisclaimer: "not medical advice",
		CitationRequired:   true,
	}
}

// Union merges an override into the policy: keyword and phrase sets are
// added to, and non-empty scalar overrides replace the defaults.
func (p Policy) Union(override Policy) Policy {
	merged := Policy{
		EmergencyKeywords:  make(map[string]struct{}, len(p.EmergencyKeywords)+len(override.EmergencyKeywords)),
		BlockedPhrases:     make(map[string]struct{}, len(p.BlockedPhrases)+len(override.BlockedPhrases)),
		RequiredDisclaimer: p.RequiredDisclaimer,
		CitationRequired:   p.CitationRequired,
	}
	for k := range p.EmergencyKeywords {
		merged.EmergencyKeywords[k] = struct{}{}
	}
	for k := range override.EmergencyKeywords {
		merged.EmergencyKeywords[strings.ToLower(k)] = struct{}{}
	}
	for k := range p.BlockedPhrases {
		merged.BlockedPhrases[k] = struct{}{}
	}
	for k := range override.BlockedPhrases {
		merged.BlockedPhrases[strings.ToLower(k)] = struct{}{}
	}
	if override.RequiredDisclaimer != "" {
		merged.RequiredDisclaimer = override.RequiredDisclaimer
	}
	return merged
}

// DetectEmergencyKeywords returns the policy's emergency keywords present
// in text, sorted for deterministic output.
func (p Policy) DetectEmergencyKeywords(text string) []string {
	return detect(p.EmergencyKeywords, text)
}

// DetectBlockedPhrases returns the policy's blocked phrases present in
// text, sorted for deterministic output.
func (p Policy) DetectBlockedPhrases(text string) []string {
	return detect(p.BlockedPhrases, text)
}

func detect(set map[string]struct{}, text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for k := range set {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	sort.Strings(found)
	return found
}

func keywordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// EmergencyBannerText is the UI-level warning shown when emergency
// keywords are detected.
const EmergencyBannerText = "EMERGENCY: Not medical advice. Call local emergency services now."
