package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

func TestMatchTemplate(t *testing.T) {
	tests := []struct {
		query    string
		category string
	}{
		{"my child is choking on food", "choking"},
		{"I burned my hand on the stove", "burn"},
		{"deep cut that won't stop bleeding", "bleeding"},
		{"my father collapsed and is unresponsive", "unconscious"},
		{"sudden chest pain and shortness of breath", "chest-pain"},
		{"the power outage has lasted two days", "power-outage"},
		{"how do I purify water", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.category, matchTemplate(tt.query).category)
		})
	}
}

func TestTemplateResponse_CitationsFromRealHits(t *testing.T) {
	hits := []domain.SearchHit{
		{DocID: "ifrc-2020", Location: domain.Location{StartOffset: 100, EndOffset: 300}},
		{DocID: "who-pfa", Location: domain.Location{StartOffset: 50, EndOffset: 200}},
	}

	resp := templateResponse("severe bleeding from a cut", hits)
	require.NotEmpty(t, resp.Checklist)

	for i, step := range resp.Checklist {
		require.NotNil(t, step.Source, "step %d has no citation", i)
		hit := hits[i%len(hits)]
		assert.Equal(t, hit.DocID, step.Source.DocID)

		start, end, ok := step.Source.Span()
		require.True(t, ok)
		assert.Equal(t, hit.Location.StartOffset, start)
		assert.Equal(t, hit.Location.EndOffset, end)
	}
	assert.Contains(t, resp.Meta.Disclaimer, "Not medical advice")
	assert.NotEmpty(t, resp.Meta.WhenToCallEmergency)
}

func TestTemplateResponse_NoHitsMeansNoCitations(t *testing.T) {
	resp := templateResponse("choking emergency", nil)
	require.NotEmpty(t, resp.Checklist)
	for i, step := range resp.Checklist {
		assert.Nil(t, step.Source, "step %d fabricated a citation", i)
	}
}

func TestTemplateResponse_CategoryRecorded(t *testing.T) {
	resp := templateResponse("kitchen burn", nil)
	assert.Equal(t, "burn", resp.Meta.Extra["template_category"])
}
