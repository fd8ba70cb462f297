package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

const extractionReply = `{
  "entities": [
    {"name": "Terracotta Army", "kind": "attraction", "day": 1},
    {"name": "Xi'an", "kind": "city", "day": 1},
    {"name": "Forbidden City", "kind": "attraction", "day": 2}
  ],
  "flights": [{"flight_number": "TG668", "departure_code": "BKK", "arrival_code": "XIY", "day": 1}],
  "trains": [{"train_number": "G87", "from": "Xi'an", "to": "Beijing", "day": 2}],
  "estimated_days": 2
}`

func TestExtractor_OracleJSON(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText(extractionReply), nil)
	ec := NewExecutionContext()

	ex, diags, err := ext.Extract(context.Background(), ec, Document{Text: "trip notes"})
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, ex.Entities, 3)
	assert.Equal(t, model.KindAttraction, ex.Entities[0].Kind)
	assert.Equal(t, 1, ex.Entities[0].Order)
	assert.Equal(t, 2, ex.Entities[1].Order, "orders are sequential within a day")
	assert.Equal(t, 1, ex.Entities[2].Order, "each day starts at order 1")

	require.Len(t, ex.Flights, 1)
	assert.Equal(t, "TG668", ex.Flights[0].FlightNumber)
	require.Len(t, ex.Trains, 1)
	assert.True(t, ex.Trains[0].HighSpeed)
	assert.Equal(t, 2, ex.EstimatedDays)
	assert.Equal(t, "trip notes", ec.RawText)
	assert.Same(t, ex, ec.Extraction)
}

func TestExtractor_FencedJSON(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText("Here you go:\n```json\n"+extractionReply+"\n```"), nil)

	ex, _, err := ext.Extract(context.Background(), NewExecutionContext(), Document{Text: "trip"})
	require.NoError(t, err)
	assert.Len(t, ex.Entities, 3)
}

func TestExtractor_MalformedFallsBack(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText("I could not parse this document, sorry."), nil)

	ex, diags, err := ext.Extract(context.Background(), NewExecutionContext(), Document{
		Text: "D1 Flight TG668 BKK - XIY then visit the Terracotta Army",
	})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, model.DiagExtractionFallback, diags[0].Code)

	require.Len(t, ex.Flights, 1)
	assert.Equal(t, "TG668", ex.Flights[0].FlightNumber)
	require.Len(t, ex.Entities, 1)
	assert.Equal(t, "Terracotta Army", ex.Entities[0].Name)
}

func TestExtractor_OracleDownFallsBack(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleDown(), nil)

	ex, diags, err := ext.Extract(context.Background(), NewExecutionContext(), Document{
		Text: "Day 1 train G872 to Beijing",
	})
	require.NoError(t, err)
	assert.Len(t, diags, 1)
	require.Len(t, ex.Trains, 1)
	assert.Equal(t, "G872", ex.Trains[0].TrainNumber)
}

func TestExtractor_NoContent(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText("{}"), nil)

	_, _, err := ext.Extract(context.Background(), NewExecutionContext(), Document{})
	assert.ErrorIs(t, err, ErrNoContent)

	_, _, err = ext.Extract(context.Background(), NewExecutionContext(), Document{Text: "x", Image: []byte{1}})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestExtractor_NothingExtractable(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText("no structure here"), nil)

	_, _, err := ext.Extract(context.Background(), NewExecutionContext(), Document{Text: "zzz qqq"})
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractor_AnnotatesTerminalsWithLegNumbers(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText(`{
		"entities": [
			{"name": "Xi'an North", "kind": "station", "day": 1},
			{"name": "Beijing West", "kind": "station", "day": 1},
			{"name": "BKK", "kind": "airport", "day": 2},
			{"name": "XIY", "kind": "airport", "day": 2},
			{"name": "Forbidden City", "kind": "attraction", "day": 1}
		],
		"flights": [{"flight_number": "TG668", "departure_code": "BKK", "arrival_code": "XIY", "day": 2}],
		"trains": [{"train_number": "G87", "from": "Xi'an", "to": "Beijing", "day": 1}],
		"estimated_days": 2
	}`), nil)

	ex, _, err := ext.Extract(context.Background(), NewExecutionContext(), Document{Text: "doc"})
	require.NoError(t, err)
	require.Len(t, ex.Entities, 5)

	assert.Equal(t, "G87", ex.Entities[0].Metadata["train"], "day-1 stations carry the day's train number")
	assert.Equal(t, "G87", ex.Entities[1].Metadata["train"])
	assert.Equal(t, "TG668", ex.Entities[2].Metadata["flight"], "day-2 airports carry the day's flight number")
	assert.Equal(t, "TG668", ex.Entities[3].Metadata["flight"])
	assert.Empty(t, ex.Entities[4].Metadata, "non-terminal stops stay unannotated")
}

func TestExtractor_FallbackAnnotatesStations(t *testing.T) {
	t.Parallel()

	// Oracle down: the pattern fallback finds the train number, the
	// gazetteer scan finds the stations, and annotation still links them.
	ext := NewExtractor(oracleDown(), nil)

	ex, _, err := ext.Extract(context.Background(), NewExecutionContext(), Document{
		Text: "Day 1 train G872 from Xi'an North Railway Station to Beijing West Railway Station",
	})
	require.NoError(t, err)
	require.Len(t, ex.Trains, 1)

	var stations int
	for _, e := range ex.Entities {
		if e.Kind == model.KindStation {
			stations++
			assert.Equal(t, "G872", e.Metadata["train"], e.Name)
		}
	}
	assert.Equal(t, 2, stations)
}

func TestExtractor_UnknownKindDefaultsToLocation(t *testing.T) {
	t.Parallel()

	ext := NewExtractor(oracleText(`{"entities":[{"name":"Somewhere","kind":"volcano","day":0}],"estimated_days":0}`), nil)

	ex, _, err := ext.Extract(context.Background(), NewExecutionContext(), Document{Text: "doc"})
	require.NoError(t, err)
	require.Len(t, ex.Entities, 1)
	assert.Equal(t, model.KindLocation, ex.Entities[0].Kind)
	assert.Equal(t, 1, ex.Entities[0].Day, "day is clamped to 1")
	assert.Equal(t, 1, ex.EstimatedDays)
}
