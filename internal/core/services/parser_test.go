package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

const validChecklistJSON = `{
  "checklist": [
    {
      "title": "Apply pressure",
      "action": "Press firmly on the wound with a clean cloth.",
      "source": {"doc_id": "ifrc-2020", "loc": [100, 250]},
      "caution": "Do not remove embedded objects."
    }
  ],
  "meta": {
    "disclaimer": "Not medical advice. For emergencies, call local emergency services.",
    "when_to_call_emergency": "Bleeding that does not stop after 10 minutes of pressure."
  }
}`

func TestParseChecklistResponse_FencedJSON(t *testing.T) {
	text := "Here is the checklist:\n```json\n" + validChecklistJSON + "\n```\nStay safe."

	resp := parseChecklistResponse(text)
	require.Len(t, resp.Checklist, 1)
	assert.Empty(t, resp.ParseError)
	assert.Equal(t, "Apply pressure", resp.Checklist[0].Title)
	require.NotNil(t, resp.Checklist[0].Source)
	assert.Equal(t, "ifrc-2020", resp.Checklist[0].Source.DocID)

	start, end, ok := resp.Checklist[0].Source.Span()
	require.True(t, ok)
	assert.Equal(t, 100, start)
	assert.Equal(t, 250, end)
}

func TestParseChecklistResponse_UnlabelledFence(t *testing.T) {
	text := "```\n" + validChecklistJSON + "\n```"
	resp := parseChecklistResponse(text)
	require.Len(t, resp.Checklist, 1)
	assert.Empty(t, resp.ParseError)
}

func TestParseChecklistResponse_BareJSON(t *testing.T) {
	text := "The answer follows. " + validChecklistJSON + " End of answer."
	resp := parseChecklistResponse(text)
	require.Len(t, resp.Checklist, 1)
	assert.Equal(t, "Apply pressure", resp.Checklist[0].Title)
}

func TestParseChecklistResponse_DefaultDisclaimer(t *testing.T) {
	text := `{"checklist":[{"title":"T","action":"A"}],"meta":{}}`
	resp := parseChecklistResponse(text)
	require.Len(t, resp.Checklist, 1)
	assert.Equal(t, domain.DefaultDisclaimer, resp.Meta.Disclaimer)
}

func TestParseChecklistResponse_StructuredTextFallback(t *testing.T) {
	text := `Follow these instructions carefully.
1. Move the person away from danger.
continue to monitor their breathing.
2. Call for help immediately.
Step three involves keeping them warm.`

	resp := parseChecklistResponse(text)
	assert.Empty(t, resp.ParseError)
	require.Len(t, resp.Checklist, 3)
	assert.Contains(t, resp.Checklist[0].Action, "Move the person")
	assert.Contains(t, resp.Checklist[0].Action, "monitor their breathing")
	assert.Contains(t, resp.Checklist[1].Action, "Call for help")
	assert.Equal(t, domain.DefaultDisclaimer, resp.Meta.Disclaimer)
}

func TestParseChecklistResponse_GarbageYieldsFallback(t *testing.T) {
	resp := parseChecklistResponse("complete nonsense with no structure whatsoever")
	require.Len(t, resp.Checklist, 1)
	assert.NotEmpty(t, resp.ParseError)
	assert.Contains(t, resp.Checklist[0].Action, "emergency services")
	assert.Equal(t, domain.DefaultDisclaimer, resp.Meta.Disclaimer)
}

func TestParseChecklistResponse_MalformedJSONFallsThrough(t *testing.T) {
	// Truncated JSON must not abort parsing; the step heuristic still runs.
	text := `{"checklist": [{"title": "broken"
1. Do this instead.`

	resp := parseChecklistResponse(text)
	assert.NotEmpty(t, resp.Checklist)
}

func TestParseChecklistResponse_MalformedCitationSurvivesParsing(t *testing.T) {
	// A bad loc must reach the critic as data, not die in the decoder.
	text := `{"checklist":[{"title":"T","action":"A","source":{"doc_id":"d","loc":"bad"}}],"meta":{}}`

	resp := parseChecklistResponse(text)
	require.Len(t, resp.Checklist, 1)
	require.NotNil(t, resp.Checklist[0].Source)

	_, _, ok := resp.Checklist[0].Source.Span()
	assert.False(t, ok)
}

func TestExtractJSON_BalancedScanSkipsInvalidCandidates(t *testing.T) {
	text := `{not json} and then {"checklist": []}`
	assert.Equal(t, `{"checklist": []}`, extractJSON(text))
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	text := `{"checklist": [{"title": "use } carefully", "action": "a"}]}`
	assert.Equal(t, text, extractJSON(text))
}

func TestExtractJSON_NoJSON(t *testing.T) {
	assert.Equal(t, "", extractJSON("plain prose, no objects here"))
}
