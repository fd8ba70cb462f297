package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_PlainJSON(t *testing.T) {
	t.Parallel()

	p := ParsePayload(`{"entities":[{"name":"Terracotta Army","day":1}]}`)
	require.Equal(t, PayloadJSON, p.Kind)

	var out struct {
		Entities []struct {
			Name string `json:"name"`
			Day  int    `json:"day"`
		} `json:"entities"`
	}
	require.NoError(t, p.Decode(&out))
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "Terracotta Army", out.Entities[0].Name)
}

func TestParsePayload_FencedJSON(t *testing.T) {
	t.Parallel()

	p := ParsePayload("```json\n{\"days\": 2}\n```")
	require.Equal(t, PayloadJSON, p.Kind)
	assert.JSONEq(t, `{"days": 2}`, string(p.JSON))
}

func TestParsePayload_ProseAroundJSON(t *testing.T) {
	t.Parallel()

	p := ParsePayload("Here is the itinerary you asked for:\n{\"days\": 3}\nLet me know if you need more.")
	require.Equal(t, PayloadJSON, p.Kind)
	assert.JSONEq(t, `{"days": 3}`, string(p.JSON))
}

func TestParsePayload_Array(t *testing.T) {
	t.Parallel()

	p := ParsePayload(`["Bangkok", "Xi'an"]`)
	require.Equal(t, PayloadJSON, p.Kind)

	var names []string
	require.NoError(t, p.Decode(&names))
	assert.Equal(t, []string{"Bangkok", "Xi'an"}, names)
}

func TestParsePayload_FreeText(t *testing.T) {
	t.Parallel()

	p := ParsePayload("The document describes a two day trip to Xi'an.")
	assert.Equal(t, PayloadFreeText, p.Kind)
	assert.Contains(t, p.Text, "Xi'an")
}

func TestParsePayload_TruncatedJSON(t *testing.T) {
	t.Parallel()

	// Unclosed object: not valid JSON, must degrade, never panic.
	p := ParsePayload(`{"entities":[{"name":"Bangkok"`)
	assert.Equal(t, PayloadFreeText, p.Kind)
}

func TestParsePayload_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PayloadMalformed, ParsePayload("").Kind)
	assert.Equal(t, PayloadMalformed, ParsePayload("   \n\t").Kind)
}
