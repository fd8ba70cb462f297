package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

const detectLanguagePrompt = `Identify the dominant language of these place names. Reply with only a BCP 47 language tag (for example "en", "zh", "th", "ja").

Names:
%s`

const batchTranslatePrompt = `Translate these place names to English for use as geocoding queries. Keep proper nouns recognizable; add the official English name where one exists.

Names (JSON array):
%s

Return a valid JSON array, same length and order:
[{"original": "<input name>", "english": "<English name>", "country": "<country or empty>", "region": "<region/province or empty>"}]`

const singleTranslatePrompt = `Translate this place name to English for use as a geocoding query. Return a valid JSON object:
{"english": "<English name>", "country": "<country or empty>", "region": "<region/province or empty>"}

Name: %s`

// languageSampleLimit caps how many names are sent for language detection.
const languageSampleLimit = 5

// Normalizer standardizes entity names for geocoding. English input passes
// through unchanged; everything else is batch-translated with a per-entity
// retry when the batch fails.
type Normalizer struct {
	oracle oracle.Client
}

// NewNormalizer creates the normalization stage.
func NewNormalizer(client oracle.Client) *Normalizer {
	return &Normalizer{oracle: client}
}

// Normalize produces a new Translation; the Extraction is never mutated.
// It cannot fail: detection or translation trouble degrades to pass-through
// for the affected names and is reported as diagnostics.
func (n *Normalizer) Normalize(ctx context.Context, ec *ExecutionContext, ex *model.Extraction) (*model.Translation, []model.Diagnostic) {
	tr := &model.Translation{
		Flights: append([]model.FlightLeg(nil), ex.Flights...),
		Trains:  append([]model.TrainLeg(nil), ex.Trains...),
	}
	var diags []model.Diagnostic

	tag, err := n.detectLanguage(ctx, ex.Entities)
	if err != nil {
		zap.L().Warn("normalize: language detection failed, passing names through", zap.Error(err))
		diags = append(diags, model.Diagnostic{
			Stage:   model.StageNormalization,
			Code:    model.DiagNormalizationFallback,
			Message: "language detection failed: " + err.Error(),
		})
	} else {
		tr.DetectedLanguage = tag.String()
	}

	base, _ := tag.Base()
	if err != nil || base.String() == "en" {
		for _, e := range ex.Entities {
			tr.Entities = append(tr.Entities, passthrough(e))
		}
		ec.Translation = tr
		return tr, diags
	}

	translated, batchErr := n.batchTranslate(ctx, ex.Entities)
	if batchErr != nil {
		zap.L().Warn("normalize: batch translation failed, retrying per entity", zap.Error(batchErr))
		translated = make([]model.NormalizedEntity, 0, len(ex.Entities))
		for _, e := range ex.Entities {
			ne, oneErr := n.translateOne(ctx, e)
			if oneErr != nil {
				diags = append(diags, model.Diagnostic{
					Stage:   model.StageNormalization,
					Code:    model.DiagNormalizationFallback,
					Entity:  e.Name,
					Message: "translation failed, original name kept",
				})
				ne = passthrough(e)
			}
			translated = append(translated, ne)
		}
	}

	tr.Entities = translated
	ec.Translation = tr
	return tr, diags
}

func passthrough(e model.RawEntity) model.NormalizedEntity {
	return model.NormalizedEntity{
		RawEntity:        e,
		OriginalName:     e.Name,
		EnglishName:      e.Name,
		StandardizedName: e.Name,
	}
}

func (n *Normalizer) detectLanguage(ctx context.Context, entities []model.RawEntity) (language.Tag, error) {
	if len(entities) == 0 {
		return language.English, nil
	}

	sample := make([]string, 0, languageSampleLimit)
	for _, e := range entities {
		sample = append(sample, e.Name)
		if len(sample) == languageSampleLimit {
			break
		}
	}

	resp, err := n.oracle.Complete(ctx, oracle.Request{
		Prompt:    fmt.Sprintf(detectLanguagePrompt, strings.Join(sample, "\n")),
		MaxTokens: 32,
	})
	if err != nil {
		return language.Und, err
	}

	raw := strings.Trim(strings.TrimSpace(resp.Text), "\"'`")
	if idx := strings.IndexAny(raw, " \n"); idx > 0 {
		raw = raw[:idx]
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und, eris.Wrapf(err, "normalize: unusable language tag %q", raw)
	}
	return tag, nil
}

type translationWire struct {
	Original string `json:"original"`
	English  string `json:"english"`
	Country  string `json:"country"`
	Region   string `json:"region"`
}

func (n *Normalizer) batchTranslate(ctx context.Context, entities []model.RawEntity) ([]model.NormalizedEntity, error) {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	resp, err := n.oracle.Complete(ctx, oracle.Request{
		Prompt: fmt.Sprintf(batchTranslatePrompt, toJSONArray(names)),
	})
	if err != nil {
		return nil, err
	}

	payload := oracle.ParsePayload(resp.Text)
	if payload.Kind != oracle.PayloadJSON {
		return nil, eris.New("normalize: batch translation returned no JSON")
	}
	var wires []translationWire
	if err := payload.Decode(&wires); err != nil {
		return nil, eris.Wrap(err, "normalize: decode batch translation")
	}
	if len(wires) != len(entities) {
		return nil, eris.Errorf("normalize: batch translation length mismatch: want %d, got %d", len(entities), len(wires))
	}

	out := make([]model.NormalizedEntity, len(entities))
	for i, e := range entities {
		w := wires[i]
		english := strings.TrimSpace(w.English)
		if english == "" {
			english = e.Name
		}
		out[i] = model.NormalizedEntity{
			RawEntity:        e,
			OriginalName:     e.Name,
			EnglishName:      english,
			StandardizedName: english,
			Country:          strings.TrimSpace(w.Country),
			Region:           strings.TrimSpace(w.Region),
		}
	}
	return out, nil
}

func (n *Normalizer) translateOne(ctx context.Context, e model.RawEntity) (model.NormalizedEntity, error) {
	resp, err := n.oracle.Complete(ctx, oracle.Request{
		Prompt:    fmt.Sprintf(singleTranslatePrompt, e.Name),
		MaxTokens: 256,
	})
	if err != nil {
		return model.NormalizedEntity{}, err
	}

	payload := oracle.ParsePayload(resp.Text)
	if payload.Kind != oracle.PayloadJSON {
		return model.NormalizedEntity{}, eris.New("normalize: translation returned no JSON")
	}
	var w translationWire
	if err := payload.Decode(&w); err != nil {
		return model.NormalizedEntity{}, eris.Wrap(err, "normalize: decode translation")
	}

	english := strings.TrimSpace(w.English)
	if english == "" {
		english = e.Name
	}
	return model.NormalizedEntity{
		RawEntity:        e,
		OriginalName:     e.Name,
		EnglishName:      english,
		StandardizedName: english,
		Country:          strings.TrimSpace(w.Country),
		Region:           strings.TrimSpace(w.Region),
	}, nil
}

func toJSONArray(names []string) string {
	var b strings.Builder
	b.WriteString("[")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%q", name))
	}
	b.WriteString("]")
	return b.String()
}
