package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

func rawEntities(names ...string) []model.RawEntity {
	out := make([]model.RawEntity, len(names))
	for i, n := range names {
		out[i] = model.RawEntity{Name: n, Kind: model.KindAttraction, Day: 1, Order: i + 1}
	}
	return out
}

func TestNormalizer_EnglishPassthrough(t *testing.T) {
	t.Parallel()

	mock := oracleText("en")
	n := NewNormalizer(mock)

	tr, diags := n.Normalize(context.Background(), NewExecutionContext(), &model.Extraction{
		Entities: rawEntities("Tower Bridge", "Hyde Park"),
	})

	assert.Empty(t, diags)
	assert.Equal(t, "en", tr.DetectedLanguage)
	require.Len(t, tr.Entities, 2)
	assert.Equal(t, "Tower Bridge", tr.Entities[0].StandardizedName)
	assert.Len(t, mock.calls, 1, "English input needs only the detection call")
}

func TestNormalizer_BatchTranslation(t *testing.T) {
	t.Parallel()

	mock := &oracleMock{fn: func(req oracle.Request) (string, error) {
		if strings.Contains(req.Prompt, "Identify the dominant language") {
			return "zh", nil
		}
		return `[
			{"original": "兵马俑", "english": "Terracotta Army", "country": "China", "region": "Shaanxi"},
			{"original": "故宫", "english": "Forbidden City", "country": "China", "region": ""}
		]`, nil
	}}
	n := NewNormalizer(mock)

	tr, diags := n.Normalize(context.Background(), NewExecutionContext(), &model.Extraction{
		Entities: rawEntities("兵马俑", "故宫"),
	})

	assert.Empty(t, diags)
	assert.Equal(t, "zh", tr.DetectedLanguage)
	require.Len(t, tr.Entities, 2)
	assert.Equal(t, "兵马俑", tr.Entities[0].OriginalName)
	assert.Equal(t, "Terracotta Army", tr.Entities[0].StandardizedName)
	assert.Equal(t, "China", tr.Entities[0].Country)
	assert.Equal(t, "Shaanxi", tr.Entities[0].Region)
}

func TestNormalizer_BatchFailureRetriesPerEntity(t *testing.T) {
	t.Parallel()

	mock := &oracleMock{fn: func(req oracle.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Identify the dominant language"):
			return "zh", nil
		case strings.Contains(req.Prompt, "JSON array"):
			return "sorry, cannot batch this", nil // malformed batch
		default:
			return `{"english": "Terracotta Army", "country": "China", "region": ""}`, nil
		}
	}}
	n := NewNormalizer(mock)

	tr, diags := n.Normalize(context.Background(), NewExecutionContext(), &model.Extraction{
		Entities: rawEntities("兵马俑"),
	})

	assert.Empty(t, diags)
	require.Len(t, tr.Entities, 1)
	assert.Equal(t, "Terracotta Army", tr.Entities[0].StandardizedName)
}

func TestNormalizer_PerEntityFailureKeepsOriginal(t *testing.T) {
	t.Parallel()

	mock := &oracleMock{fn: func(req oracle.Request) (string, error) {
		if strings.Contains(req.Prompt, "Identify the dominant language") {
			return "zh", nil
		}
		return "no json at all", nil
	}}
	n := NewNormalizer(mock)

	tr, diags := n.Normalize(context.Background(), NewExecutionContext(), &model.Extraction{
		Entities: rawEntities("兵马俑"),
	})

	require.Len(t, diags, 1)
	assert.Equal(t, model.DiagNormalizationFallback, diags[0].Code)
	require.Len(t, tr.Entities, 1)
	assert.Equal(t, "兵马俑", tr.Entities[0].StandardizedName, "original name kept on failure")
}

func TestNormalizer_DetectionFailurePassesThrough(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(oracleDown())

	tr, diags := n.Normalize(context.Background(), NewExecutionContext(), &model.Extraction{
		Entities: rawEntities("兵马俑"),
	})

	require.Len(t, diags, 1)
	assert.Equal(t, model.DiagNormalizationFallback, diags[0].Code)
	require.Len(t, tr.Entities, 1)
	assert.Equal(t, "兵马俑", tr.Entities[0].StandardizedName)
	assert.Empty(t, tr.DetectedLanguage)
}

func TestNormalizer_NoEntities(t *testing.T) {
	t.Parallel()

	mock := oracleText("en")
	n := NewNormalizer(mock)

	tr, diags := n.Normalize(context.Background(), NewExecutionContext(), &model.Extraction{
		Flights: []model.FlightLeg{{FlightNumber: "TG668", Day: 1}},
	})

	assert.Empty(t, diags)
	assert.Empty(t, tr.Entities)
	require.Len(t, tr.Flights, 1, "flights pass through untranslated")
	assert.Empty(t, mock.calls, "no oracle call without entities")
}
