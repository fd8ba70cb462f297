// Package gazetteer provides a static, read-only lookup of well-known places
// (major airports, attractions, cities) keyed by every name variant we have
// seen in travel documents. The table is built once at init from embedded
// data and is safe for concurrent reads.
package gazetteer

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

//go:embed places.yaml
var placesYAML []byte

// Place is one gazetteer record. Variants include native-script spellings
// and transliterations; all lookups go through NormalizeKey first.
type Place struct {
	Name     string           `yaml:"name"`
	Kind     model.EntityKind `yaml:"kind"`
	Lat      float64          `yaml:"lat"`
	Lng      float64          `yaml:"lng"`
	Country  string           `yaml:"country,omitempty"`
	Region   string           `yaml:"region,omitempty"`
	Variants []string         `yaml:"variants,omitempty"`
}

// Gazetteer is an immutable name-variant index.
type Gazetteer struct {
	byKey map[string]*Place
	keys  []string // all keys, for partial matching
}

// NormalizeKey is the single normalization applied before every lookup:
// lower-case and trim. Callers must not pre-normalize with anything else.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Load parses gazetteer records from YAML.
func Load(data []byte) (*Gazetteer, error) {
	var places []Place
	if err := yaml.Unmarshal(data, &places); err != nil {
		return nil, eris.Wrap(err, "gazetteer: parse places")
	}

	g := &Gazetteer{byKey: make(map[string]*Place)}
	for i := range places {
		p := &places[i]
		g.index(p.Name, p)
		for _, v := range p.Variants {
			g.index(v, p)
		}
	}
	return g, nil
}

func (g *Gazetteer) index(name string, p *Place) {
	key := NormalizeKey(name)
	if key == "" {
		return
	}
	if _, exists := g.byKey[key]; exists {
		return // first entry wins, keeps lookups deterministic
	}
	g.byKey[key] = p
	g.keys = append(g.keys, key)
}

// Lookup returns the place for an exact normalized-key match.
func (g *Gazetteer) Lookup(name string) (*Place, bool) {
	p, ok := g.byKey[NormalizeKey(name)]
	return p, ok
}

// LookupPartial matches when the query is a substring of a known key or a
// known key is a substring of the query. Keys shorter than 3 runes are
// skipped to avoid spurious containment hits.
func (g *Gazetteer) LookupPartial(name string) (*Place, bool) {
	query := NormalizeKey(name)
	if len(query) < 3 {
		return nil, false
	}
	for _, key := range g.keys {
		if len(key) < 3 {
			continue
		}
		if strings.Contains(key, query) || strings.Contains(query, key) {
			return g.byKey[key], true
		}
	}
	return nil, false
}

// Scan returns every place whose key appears verbatim in the text. Used by
// the pattern-based fallback extractor.
func (g *Gazetteer) Scan(text string) []*Place {
	lowered := strings.ToLower(text)
	seen := make(map[*Place]bool)
	var out []*Place
	for _, key := range g.keys {
		if len(key) < 3 {
			continue
		}
		if strings.Contains(lowered, key) {
			p := g.byKey[key]
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Len returns the number of indexed keys.
func (g *Gazetteer) Len() int { return len(g.keys) }

var defaultGazetteer *Gazetteer

func init() {
	g, err := Load(placesYAML)
	if err != nil {
		panic(err) // embedded data, broken only by a bad edit
	}
	defaultGazetteer = g
}

// Default returns the gazetteer built from the embedded data set.
func Default() *Gazetteer { return defaultGazetteer }
