package domain

// CriticStatus is the safety critic's verdict on a candidate response.
type CriticStatus string

// Critic verdicts.
const (
	CriticAllow CriticStatus = "ALLOW"
	CriticBlock CriticStatus = "BLOCK"
)

// CriticDecision is emitted once per request by the safety critic and
// logged by the audit collaborator.
//
// EmergencyDetected is informational and never blocks on its own; when set,
// RequiresEmergencyBanner is always set as well.
type CriticDecision struct {
	Status                  CriticStatus `json:"status"`
	Reasons                 []string     `json:"reasons"`
	Fixes                   []string     `json:"fixes,omitempty"`
	EmergencyDetected       bool         `json:"emergency_detected"`
	RequiresEmergencyBanner bool         `json:"requires_emergency_banner"`
}

// Allowed reports whether the decision permits the response to reach the
// user.
func (d CriticDecision) Allowed() bool {
	return d.Status == CriticAllow
}
