package domain

import "encoding/json"

// Citation points into the corpus. A well-formed citation has a non-empty
// DocID and a two-element integer Loc [start, end) that resolves to stored
// chunk text.
//
// Loc is deliberately loose (any): checklist responses arrive from model
// output as JSON, and the safety critic must be able to see — and reject —
// malformed locations rather than losing them to an unmarshal error.
type Citation struct {
	DocID string `json:"doc_id"`
	Loc   any    `json:"loc"`
}

// NewCitation builds a well-formed citation for the half-open range
// [start, end).
func NewCitation(docID string, start, end int) *Citation {
	return &Citation{DocID: docID, Loc: []int{start, end}}
}

// Span returns the citation's [start, end) range and whether Loc is a
// well-formed two-element integer array.
func (c *Citation) Span() (start, end int, ok bool) {
	asInt := func(v any) (int, bool) {
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			// JSON numbers decode as float64; accept only integral values.
			if n != float64(int(n)) {
				return 0, false
			}
			return int(n), true
		default:
			return 0, false
		}
	}

	switch loc := c.Loc.(type) {
	case []int:
		if len(loc) != 2 {
			return 0, 0, false
		}
		return loc[0], loc[1], true
	case []any:
		if len(loc) != 2 {
			return 0, 0, false
		}
		s, ok1 := asInt(loc[0])
		e, ok2 := asInt(loc[1])
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		return s, e, true
	default:
		return 0, 0, false
	}
}

// ChecklistStep is one actionable step in an emergency checklist.
type ChecklistStep struct {
	Title   string    `json:"title"`
	Action  string    `json:"action"`
	Source  *Citation `json:"source,omitempty"`
	Caution string    `json:"caution,omitempty"`
}

// Meta carries the response's required disclaimer plus open extension data.
// The typed Disclaimer field keeps the critic's validation statically
// checkable; everything else a response carries in meta lands in Extra and
// survives the round trip through custom (un)marshalling below.
type Meta struct {
	Disclaimer          string
	WhenToCallEmergency string
	Extra               map[string]any
}

// MarshalJSON flattens Extra beside the typed fields so extension keys such
// as a template's category reach audit records and API responses.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["disclaimer"] = m.Disclaimer
	if m.WhenToCallEmergency != "" {
		out["when_to_call_emergency"] = m.WhenToCallEmergency
	} else {
		delete(out, "when_to_call_emergency")
	}
	return json.Marshal(out)
}

// UnmarshalJSON keeps unknown meta keys instead of dropping them. Typed keys
// with the wrong JSON type are discarded; the critic then sees the missing
// disclaimer and blocks.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["disclaimer"].(string); ok {
		m.Disclaimer = v
	}
	if v, ok := raw["when_to_call_emergency"].(string); ok {
		m.WhenToCallEmergency = v
	}
	delete(raw, "disclaimer")
	delete(raw, "when_to_call_emergency")
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// ChecklistResponse is a complete assembled answer: an ordered checklist
// with citations and the meta block the critic validates.
type ChecklistResponse struct {
	Checklist []ChecklistStep `json:"checklist"`
	Meta      Meta            `json:"meta"`

	// ParseError records why response parsing fell back, for audit
	// purposes only. It is never rendered to users.
	ParseError string `json:"-"`
}

// DefaultDisclaimer is attached to responses that do not carry their own.
const DefaultDisclaimer = "Not medical advice. For emergencies, call local emergency services."
