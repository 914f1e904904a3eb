// Package pipeline runs the deduplication engine end to end: exact key
// reduction, one matching stage per enabled algorithm, then company
// reference resolution.
package pipeline

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/companies"
	"github.com/Ramsey-B/nettle/pkg/matching"
	"github.com/Ramsey-B/nettle/pkg/metrics"
	"github.com/Ramsey-B/nettle/pkg/models"
)

const (
	StatusCompleted   = models.RunStatusCompleted
	StatusInterrupted = models.RunStatusInterrupted
)

// PreReduceReport describes the exact key pass
type PreReduceReport struct {
	Before int `json:"before"`
	After  int `json:"after"`
	Merges int `json:"merges"`
}

// StageReport describes one matching stage
type StageReport struct {
	Algorithm   string        `json:"algorithm"`
	MinAccuracy float64       `json:"min_accuracy"`
	Before      int           `json:"before"`
	After       int           `json:"after"`
	Pairs       int           `json:"pairs"`
	Merges      int           `json:"merges"`
	Comparisons int           `json:"comparisons"`
	Duration    time.Duration `json:"duration"`
	Interrupted bool          `json:"interrupted"`
}

// Result is the outcome of one run
type Result struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	InputCount  int               `json:"input_count"`
	Entities    []*models.Entity  `json:"-"`
	PreReduce   PreReduceReport   `json:"pre_reduce"`
	Stages      []StageReport     `json:"stages"`
	Companies   *companies.Report `json:"companies"`
	Interrupted bool              `json:"interrupted"`
}

// Status is the run outcome label
func (r *Result) Status() string {
	if r.Interrupted {
		return StatusInterrupted
	}
	return StatusCompleted
}

// Summary condenses the result for persistence and events
func (r *Result) Summary() models.RunSummary {
	summary := models.RunSummary{
		ID:          r.RunID,
		Status:      r.Status(),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		InputCount:  r.InputCount,
		EntityCount: len(r.Entities),
	}
	if r.Companies != nil {
		summary.ResolvedReferences = len(r.Companies.Resolutions)
		summary.UnresolvedReferences = len(r.Companies.Unresolved)
	}
	return summary
}

// Pipeline owns the working entity set for the duration of a run
type Pipeline struct {
	logger   ectologger.Logger
	settings Settings
	reducer  *matching.Reducer
	matcher  *matching.Matcher
	resolver *companies.Resolver
}

// New creates a pipeline with resolved settings
func New(logger ectologger.Logger, settings Settings) *Pipeline {
	return &Pipeline{
		logger:   logger,
		settings: settings,
		reducer:  matching.NewReducer(logger),
		matcher:  matching.NewMatcher(logger, settings.Workers),
		resolver: companies.NewResolver(logger),
	}
}

// Settings returns the settings the pipeline runs with
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Run deduplicates the entities and resolves their company references. The
// entities are merged in place; the surviving ones are returned in Result.Entities.
//
// A cancelled ctx does not abort the run: each remaining stage merges what
// its workers found before stopping and the result is marked interrupted.
func (p *Pipeline) Run(ctx context.Context, entities []*models.Entity) *Result {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	result := &Result{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		InputCount: len(entities),
	}
	log := p.logger.WithContext(ctx).WithField("run_id", result.RunID)
	log.WithFields(map[string]any{
		"entities": len(entities),
		"workers":  p.settings.Workers,
		"stages":   p.settings.StageNames(),
	}).Info("Starting deduplication run")

	working, merges := p.reducer.Reduce(ctx, entities)
	result.PreReduce = PreReduceReport{Before: len(entities), After: len(working), Merges: merges}
	metrics.PreReducerMerges.Add(float64(merges))
	metrics.WorkingSetSize.Set(float64(len(working)))

	for _, stage := range p.settings.Stages {
		var report StageReport
		working, report = p.runStage(ctx, working, stage)
		result.Stages = append(result.Stages, report)
		if report.Interrupted {
			result.Interrupted = true
		}
	}

	result.Entities = working
	result.Companies = p.resolver.Resolve(ctx, working)
	result.CompletedAt = time.Now().UTC()
	metrics.RunsTotal.WithLabelValues(result.Status()).Inc()

	log.WithFields(map[string]any{
		"entities":    len(working),
		"resolved":    len(result.Companies.Resolutions),
		"unresolved":  len(result.Companies.Unresolved),
		"interrupted": result.Interrupted,
		"duration_ms": result.CompletedAt.Sub(result.StartedAt).Milliseconds(),
	}).Info("Deduplication run complete")

	return result
}

// runStage matches and merges the working set with one algorithm
func (p *Pipeline) runStage(ctx context.Context, working []*models.Entity, stage Stage) ([]*models.Entity, StageReport) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.runStage")
	defer span.End()

	name := stage.Algorithm.Name()
	start := time.Now()

	set := p.matcher.Match(ctx, working, stage.Algorithm, stage.MinAccuracy)
	graph := matching.BuildGraph(set)
	merged, merges := matching.MergeComponents(ctx, working, graph)

	report := StageReport{
		Algorithm:   name,
		MinAccuracy: stage.MinAccuracy,
		Before:      len(working),
		After:       len(merged),
		Pairs:       set.Pairs(),
		Merges:      merges,
		Duration:    time.Since(start),
		Interrupted: set.Interrupted(),
	}
	for _, w := range set.Workers {
		report.Comparisons += w.Comparisons
	}

	metrics.StageDuration.WithLabelValues(name).Observe(report.Duration.Seconds())
	metrics.StageMerges.WithLabelValues(name).Add(float64(merges))
	metrics.WorkingSetSize.Set(float64(len(merged)))

	fields := map[string]any{
		"algorithm":    name,
		"min_accuracy": stage.MinAccuracy,
		"before":       report.Before,
		"after":        report.After,
		"pairs":        report.Pairs,
		"duration_ms":  report.Duration.Milliseconds(),
	}
	if report.Interrupted {
		metrics.StageInterruptions.WithLabelValues(name).Inc()
		p.logger.WithContext(ctx).WithFields(fields).Warn("Matching stage interrupted, merged partial results")
	} else {
		p.logger.WithContext(ctx).WithFields(fields).Info("Matching stage complete")
	}

	return merged, report
}
