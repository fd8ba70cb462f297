package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/internal/gazetteer"
	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

const extractSystemText = "You are a travel itinerary analyst extracting structured stops from travel documents. Return valid JSON matching the requested schema. Use day 1 when no day is stated."

const extractPrompt = `Extract every place, flight, and train from this travel document.

Document:
%s

Return a valid JSON object:
{
  "entities": [{"name": "<place name>", "kind": "<location|hotel|restaurant|attraction|airport|station|city>", "day": <int, 1-based>}],
  "flights": [{"flight_number": "<e.g. TG668>", "departure_code": "<IATA>", "arrival_code": "<IATA>", "day": <int>}],
  "trains": [{"train_number": "<e.g. G87>", "from": "<city>", "to": "<city>", "day": <int>}],
  "estimated_days": <int>
}`

const extractImagePrompt = `Extract every place, flight, and train from this travel document image.

Return a valid JSON object:
{
  "entities": [{"name": "<place name>", "kind": "<location|hotel|restaurant|attraction|airport|station|city>", "day": <int, 1-based>}],
  "flights": [{"flight_number": "<e.g. TG668>", "departure_code": "<IATA>", "arrival_code": "<IATA>", "day": <int>}],
  "trains": [{"train_number": "<e.g. G87>", "from": "<city>", "to": "<city>", "day": <int>}],
  "estimated_days": <int>
}`

// Extractor is the first pipeline stage. It asks the oracle for structured
// entities and falls back to pattern-based extraction when the oracle's
// output carries no usable JSON.
type Extractor struct {
	oracle oracle.Client
	gaz    *gazetteer.Gazetteer
}

// NewExtractor creates the extraction stage. A nil gazetteer selects the
// embedded default.
func NewExtractor(client oracle.Client, gaz *gazetteer.Gazetteer) *Extractor {
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	return &Extractor{oracle: client, gaz: gaz}
}

// extractionWire is the oracle's JSON schema for this stage.
type extractionWire struct {
	Entities []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		Day  int    `json:"day"`
	} `json:"entities"`
	Flights []struct {
		FlightNumber  string `json:"flight_number"`
		DepartureCode string `json:"departure_code"`
		ArrivalCode   string `json:"arrival_code"`
		Day           int    `json:"day"`
	} `json:"flights"`
	Trains []struct {
		TrainNumber string `json:"train_number"`
		From        string `json:"from"`
		To          string `json:"to"`
		Day         int    `json:"day"`
	} `json:"trains"`
	EstimatedDays int `json:"estimated_days"`
}

// Extract runs the stage. Exactly one of doc.Text or doc.Image must be set.
// Oracle failure is not fatal by itself: the pattern fallback runs on the
// document text (or on the oracle's free-text reply for images). Only zero
// entities from both paths is a fatal ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, ec *ExecutionContext, doc Document) (*model.Extraction, []model.Diagnostic, error) {
	hasText := strings.TrimSpace(doc.Text) != ""
	hasImage := len(doc.Image) > 0
	if hasText == hasImage {
		return nil, nil, ErrNoContent
	}

	ec.RawText = doc.Text

	var diags []model.Diagnostic
	payload, oracleErr := e.queryOracle(ctx, doc)

	if oracleErr == nil && payload.Kind == oracle.PayloadJSON {
		var wire extractionWire
		if err := payload.Decode(&wire); err == nil {
			ex := wireToExtraction(wire)
			if !extractionEmpty(ex) {
				annotateTransport(ex)
				assignOrders(ex)
				ec.Extraction = ex
				return ex, diags, nil
			}
		}
	}

	// Fallback path. For images the only text we have is the oracle reply.
	fallbackText := doc.Text
	if !hasText && payload.Text != "" {
		fallbackText = payload.Text
	}
	if oracleErr != nil {
		zap.L().Warn("extract: oracle failed, using pattern fallback", zap.Error(oracleErr))
	} else {
		zap.L().Warn("extract: oracle output unusable, using pattern fallback")
	}
	diags = append(diags, model.Diagnostic{
		Stage:   model.StageExtraction,
		Code:    model.DiagExtractionFallback,
		Message: "oracle output unusable, pattern-based extraction applied",
	})

	ex := FallbackExtract(fallbackText, e.gaz)
	if extractionEmpty(ex) {
		return nil, diags, ErrExtractionFailed
	}
	annotateTransport(ex)
	assignOrders(ex)
	ec.Extraction = ex
	return ex, diags, nil
}

func (e *Extractor) queryOracle(ctx context.Context, doc Document) (oracle.Payload, error) {
	req := oracle.Request{System: extractSystemText}
	if len(doc.Image) > 0 {
		req.Prompt = extractImagePrompt
		req.Image = doc.Image
		req.ImageMediaType = doc.ImageMediaType
	} else {
		req.Prompt = fmt.Sprintf(extractPrompt, doc.Text)
	}

	resp, err := e.oracle.Complete(ctx, req)
	if err != nil {
		return oracle.Payload{Kind: oracle.PayloadMalformed}, err
	}
	return oracle.ParsePayload(resp.Text), nil
}

func wireToExtraction(wire extractionWire) *model.Extraction {
	ex := &model.Extraction{EstimatedDays: wire.EstimatedDays}

	for _, w := range wire.Entities {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}
		kind := model.EntityKind(w.Kind)
		switch kind {
		case model.KindLocation, model.KindHotel, model.KindRestaurant,
			model.KindAttraction, model.KindAirport, model.KindStation, model.KindCity:
		default:
			kind = model.KindLocation
		}
		ex.Entities = append(ex.Entities, model.RawEntity{
			Name: name,
			Kind: kind,
			Day:  clampDay(w.Day),
		})
	}
	for _, w := range wire.Flights {
		if w.FlightNumber == "" && (w.DepartureCode == "" || w.ArrivalCode == "") {
			continue
		}
		ex.Flights = append(ex.Flights, model.FlightLeg{
			FlightNumber:  strings.ToUpper(strings.TrimSpace(w.FlightNumber)),
			DepartureCode: strings.ToUpper(strings.TrimSpace(w.DepartureCode)),
			ArrivalCode:   strings.ToUpper(strings.TrimSpace(w.ArrivalCode)),
			Day:           clampDay(w.Day),
		})
	}
	for _, w := range wire.Trains {
		if w.TrainNumber == "" && (w.From == "" || w.To == "") {
			continue
		}
		number := strings.ToUpper(strings.TrimSpace(w.TrainNumber))
		ex.Trains = append(ex.Trains, model.TrainLeg{
			TrainNumber: number,
			From:        strings.TrimSpace(w.From),
			To:          strings.TrimSpace(w.To),
			Day:         clampDay(w.Day),
			HighSpeed:   isHighSpeedNumber(number),
		})
	}

	if ex.EstimatedDays < 1 {
		ex.EstimatedDays = maxDay(ex)
	}
	return ex
}

func extractionEmpty(ex *model.Extraction) bool {
	return len(ex.Entities) == 0 && len(ex.Flights) == 0 && len(ex.Trains) == 0
}

func clampDay(day int) int {
	if day < 1 {
		return 1
	}
	return day
}

func isHighSpeedNumber(number string) bool {
	return number != "" && (number[0] == 'G' || number[0] == 'C')
}

func maxDay(ex *model.Extraction) int {
	day := 1
	for _, e := range ex.Entities {
		if e.Day > day {
			day = e.Day
		}
	}
	for _, f := range ex.Flights {
		if f.Day > day {
			day = f.Day
		}
	}
	for _, t := range ex.Trains {
		if t.Day > day {
			day = t.Day
		}
	}
	return day
}

// annotateTransport links station and airport entities to the legs of their
// day, so segment classification and rail speed pricing downstream can see
// the train and flight numbers. The first numbered leg of a day wins.
func annotateTransport(ex *model.Extraction) {
	trainByDay := make(map[int]string)
	for _, t := range ex.Trains {
		if t.TrainNumber == "" {
			continue
		}
		if _, ok := trainByDay[t.Day]; !ok {
			trainByDay[t.Day] = t.TrainNumber
		}
	}
	flightByDay := make(map[int]string)
	for _, f := range ex.Flights {
		if f.FlightNumber == "" {
			continue
		}
		if _, ok := flightByDay[f.Day]; !ok {
			flightByDay[f.Day] = f.FlightNumber
		}
	}

	for i := range ex.Entities {
		e := &ex.Entities[i]
		switch e.Kind {
		case model.KindStation:
			if number, ok := trainByDay[e.Day]; ok {
				setMetadata(e, "train", number)
			}
		case model.KindAirport:
			if number, ok := flightByDay[e.Day]; ok {
				setMetadata(e, "flight", number)
			}
		}
	}
}

func setMetadata(e *model.RawEntity, key, value string) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	if _, ok := e.Metadata[key]; !ok {
		e.Metadata[key] = value
	}
}

// assignOrders gives every entity without an explicit order a sequential one
// per day, starting at 1, preserving extraction sequence.
func assignOrders(ex *model.Extraction) {
	next := make(map[int]int)
	for i := range ex.Entities {
		e := &ex.Entities[i]
		if e.Order > next[e.Day] {
			next[e.Day] = e.Order
			continue
		}
		next[e.Day]++
		e.Order = next[e.Day]
	}
}
