package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta_MarshalFlattensExtra(t *testing.T) {
	meta := Meta{
		Disclaimer:          DefaultDisclaimer,
		WhenToCallEmergency: "If bleeding does not stop.",
		Extra:               map[string]any{"template_category": "bleeding"},
	}

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, DefaultDisclaimer, raw["disclaimer"])
	assert.Equal(t, "If bleeding does not stop.", raw["when_to_call_emergency"])
	assert.Equal(t, "bleeding", raw["template_category"])
}

func TestMeta_MarshalOmitsEmptyWhenToCall(t *testing.T) {
	data, err := json.Marshal(Meta{Disclaimer: DefaultDisclaimer})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "when_to_call_emergency")
	// The disclaimer key is always present, even empty, so readers can
	// see a response that dropped it.
	assert.Contains(t, raw, "disclaimer")
}

func TestMeta_UnmarshalKeepsUnknownKeys(t *testing.T) {
	var meta Meta
	require.NoError(t, json.Unmarshal([]byte(`{
		"disclaimer": "Not medical advice.",
		"when_to_call_emergency": "Always for chest pain.",
		"confidence": 0.8,
		"sources_consulted": 3
	}`), &meta))

	assert.Equal(t, "Not medical advice.", meta.Disclaimer)
	assert.Equal(t, "Always for chest pain.", meta.WhenToCallEmergency)
	assert.Equal(t, 0.8, meta.Extra["confidence"])
	assert.Equal(t, float64(3), meta.Extra["sources_consulted"])
	assert.NotContains(t, meta.Extra, "disclaimer")
}

func TestMeta_RoundTrip(t *testing.T) {
	in := Meta{
		Disclaimer: DefaultDisclaimer,
		Extra:      map[string]any{"template_category": "choking"},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Meta
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Disclaimer, out.Disclaimer)
	assert.Equal(t, "choking", out.Extra["template_category"])
}

func TestMeta_UnmarshalWrongTypedField(t *testing.T) {
	var meta Meta
	require.NoError(t, json.Unmarshal([]byte(`{"disclaimer": 42}`), &meta))

	// A non-string disclaimer is discarded, leaving the critic to block
	// the response for the missing disclaimer.
	assert.Empty(t, meta.Disclaimer)
	assert.NotContains(t, meta.Extra, "disclaimer")
}
