package model

import "time"

// StageName identifies a pipeline stage.
type StageName string

const (
	StageExtraction    StageName = "extraction"
	StageNormalization StageName = "normalization"
	StageResolution    StageName = "resolution"
	StageEstimation    StageName = "estimation"
	StageCompile       StageName = "compile"
)

// StageStatus is the outcome of a single stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusDegraded StageStatus = "degraded"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult records one stage's outcome for the run report.
type StageResult struct {
	Name     StageName      `json:"name"`
	Status   StageStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DiagnosticCode classifies a non-fatal degradation.
type DiagnosticCode string

const (
	DiagResolutionMiss        DiagnosticCode = "resolution_miss"
	DiagRoutingDegraded       DiagnosticCode = "routing_degraded"
	DiagNormalizationFallback DiagnosticCode = "normalization_fallback"
	DiagExtractionFallback    DiagnosticCode = "extraction_fallback"
)

// Diagnostic is a non-fatal problem absorbed at a stage boundary. Diagnostics
// are collected into the run report instead of unwinding the pipeline.
type Diagnostic struct {
	Stage   StageName      `json:"stage"`
	Code    DiagnosticCode `json:"code"`
	Entity  string         `json:"entity,omitempty"`
	Message string         `json:"message"`
}

// RunReport is the full record of one pipeline run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Stages      []StageResult `json:"stages"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// PlanResult pairs the compiled itinerary with its run report.
type PlanResult struct {
	Itinerary *Itinerary `json:"itinerary"`
	Report    RunReport  `json:"report"`
}
