// Package pipeline turns an unstructured travel document into a geolocated,
// distance-annotated itinerary. Stages run strictly in order (extraction,
// normalization, resolution, estimation, compile); each consumes the prior
// stage's output through the shared ExecutionContext. Only extraction failure
// aborts a run, every later stage degrades instead.
package pipeline

import (
	"sync"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// Document is the input to a pipeline run. Exactly one of Text or Image must
// be set; anything else fails extraction with ErrNoContent.
type Document struct {
	Text string

	// Image holds raw image bytes for scanned documents. ImageMediaType
	// defaults to image/jpeg when empty.
	Image          []byte
	ImageMediaType string
}

// ExecutionContext is the blackboard shared across one run's stages. The
// orchestrator owns it for the run's lifetime; stages only write the fields
// they produce and read the fields of stages before them.
type ExecutionContext struct {
	mu sync.Mutex

	// RawText is the document text as seen by extraction, kept for stages
	// that need to re-derive information from the source.
	RawText string

	Extraction  *model.Extraction
	Translation *model.Translation
	Resolved    []model.ResolvedEntity
	Flights     []model.FlightLeg
	Trains      []model.TrainLeg
	Segments    []model.RouteSegment

	diagnostics []model.Diagnostic
	values      map[string]any
}

// NewExecutionContext creates an empty context for one run.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: make(map[string]any)}
}

// AddDiagnostics records non-fatal problems absorbed at a stage boundary.
func (ec *ExecutionContext) AddDiagnostics(diags ...model.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	ec.mu.Lock()
	ec.diagnostics = append(ec.diagnostics, diags...)
	ec.mu.Unlock()
}

// Diagnostics returns a copy of the collected diagnostics.
func (ec *ExecutionContext) Diagnostics() []model.Diagnostic {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]model.Diagnostic, len(ec.diagnostics))
	copy(out, ec.diagnostics)
	return out
}

// Set stores an ad hoc value under a stage-owned key.
func (ec *ExecutionContext) Set(key string, v any) {
	ec.mu.Lock()
	ec.values[key] = v
	ec.mu.Unlock()
}

// Get returns the value stored under key, if any.
func (ec *ExecutionContext) Get(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.values[key]
	return v, ok
}
