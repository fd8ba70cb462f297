package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// Orchestrator sequences the pipeline stages over one ExecutionContext per
// run. Soft-failure policy: normalization, resolution, and estimation
// degrade the run instead of aborting it; only extraction failure is fatal.
type Orchestrator struct {
	extractor  *Extractor
	normalizer *Normalizer
	resolver   *Resolver
	estimator  *Estimator
}

// NewOrchestrator wires the four stages.
func NewOrchestrator(extractor *Extractor, normalizer *Normalizer, resolver *Resolver, estimator *Estimator) *Orchestrator {
	return &Orchestrator{
		extractor:  extractor,
		normalizer: normalizer,
		resolver:   resolver,
		estimator:  estimator,
	}
}

// Run executes the full pipeline for one document.
func (o *Orchestrator) Run(ctx context.Context, doc Document) (*model.PlanResult, error) {
	report := model.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("pipeline: starting run")

	ec := NewExecutionContext()

	trackStage := func(name model.StageName, fn func() (model.StageStatus, map[string]any, error)) error {
		start := time.Now()
		status, meta, err := fn()
		duration := time.Since(start).Milliseconds()

		result := model.StageResult{
			Name:     name,
			Status:   status,
			Duration: duration,
			Metadata: meta,
		}
		if err != nil {
			result.Status = model.StageStatusFailed
			result.Error = err.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", string(name)),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
		} else {
			log.Info("pipeline: stage complete",
				zap.String("stage", string(name)),
				zap.String("status", string(status)),
				zap.Int64("duration_ms", duration),
			)
		}
		report.Stages = append(report.Stages, result)
		return err
	}

	// Extraction: the only fatal stage.
	var extraction *model.Extraction
	err := trackStage(model.StageExtraction, func() (model.StageStatus, map[string]any, error) {
		ex, diags, exErr := o.extractor.Extract(ctx, ec, doc)
		if exErr != nil {
			return model.StageStatusFailed, nil, exErr
		}
		ec.AddDiagnostics(diags...)
		extraction = ex
		status := model.StageStatusComplete
		if len(diags) > 0 {
			status = model.StageStatusDegraded
		}
		return status, map[string]any{
			"entities":       len(ex.Entities),
			"flights":        len(ex.Flights),
			"trains":         len(ex.Trains),
			"estimated_days": ex.EstimatedDays,
		}, nil
	})
	if err != nil {
		report.Diagnostics = ec.Diagnostics()
		return &model.PlanResult{Report: report}, eris.Wrap(err, "pipeline: extraction")
	}

	// Normalization: degrades to pass-through names.
	var translation *model.Translation
	_ = trackStage(model.StageNormalization, func() (model.StageStatus, map[string]any, error) {
		tr, diags := o.normalizer.Normalize(ctx, ec, extraction)
		ec.AddDiagnostics(diags...)
		translation = tr
		status := model.StageStatusComplete
		if len(diags) > 0 {
			status = model.StageStatusDegraded
		}
		return status, map[string]any{
			"language": tr.DetectedLanguage,
		}, nil
	})

	// Resolution: unresolvable entities are dropped with diagnostics.
	var resolution *Resolution
	_ = trackStage(model.StageResolution, func() (model.StageStatus, map[string]any, error) {
		res, diags := o.resolver.ResolveAll(ctx, ec, translation)
		ec.AddDiagnostics(diags...)
		resolution = res
		status := model.StageStatusComplete
		if len(diags) > 0 {
			status = model.StageStatusDegraded
		}
		return status, map[string]any{
			"resolved": len(res.Entities),
			"dropped":  len(translation.Entities) - len(res.Entities),
		}, nil
	})

	days := BuildDays(resolution.Entities)

	// Estimation: every pair bottoms out in the Haversine floor.
	var segments []model.RouteSegment
	_ = trackStage(model.StageEstimation, func() (model.StageStatus, map[string]any, error) {
		segs, diags := o.estimator.EstimateAll(ctx, ec, days)
		ec.AddDiagnostics(diags...)
		segments = segs
		status := model.StageStatusComplete
		if len(diags) > 0 {
			status = model.StageStatusDegraded
		}
		return status, map[string]any{
			"segments": len(segs),
		}, nil
	})

	var itinerary *model.Itinerary
	_ = trackStage(model.StageCompile, func() (model.StageStatus, map[string]any, error) {
		itinerary = Compile(days, segments, resolution.Flights, resolution.Trains)
		return model.StageStatusComplete, map[string]any{
			"trip_type": string(itinerary.TripType),
		}, nil
	})

	report.Diagnostics = ec.Diagnostics()
	log.Info("pipeline: run complete",
		zap.String("trip_type", string(itinerary.TripType)),
		zap.Int("stops", len(itinerary.Stops())),
		zap.Int("segments", len(itinerary.Segments)),
		zap.Int("diagnostics", len(report.Diagnostics)),
	)

	return &model.PlanResult{Itinerary: itinerary, Report: report}, nil
}
