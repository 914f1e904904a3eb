// Package export hands the final entity set of a run to every configured sink.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/metrics"
	"github.com/Ramsey-B/nettle/pkg/models"
)

// Sink persists or publishes the entities of a completed run
type Sink interface {
	Name() string
	Export(ctx context.Context, run models.RunSummary, entities []*models.Entity) error
}

// Exporter fans a run out to its sinks concurrently. A failing sink does not
// stop the others; their errors are joined.
type Exporter struct {
	logger ectologger.Logger
	sinks  []Sink
}

func NewExporter(logger ectologger.Logger, sinks ...Sink) *Exporter {
	return &Exporter{
		logger: logger,
		sinks:  sinks,
	}
}

// Sinks returns the configured sink names
func (e *Exporter) Sinks() []string {
	return ectolinq.Map(e.sinks, func(s Sink) string { return s.Name() })
}

func (e *Exporter) Export(ctx context.Context, run models.RunSummary, entities []*models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "export.Exporter.Export")
	defer span.End()

	if len(e.sinks) == 0 {
		e.logger.WithContext(ctx).Debug("No export sinks configured")
		return nil
	}

	errs := make([]error, len(e.sinks))
	var g errgroup.Group
	for i, sink := range e.sinks {
		g.Go(func() error {
			start := time.Now()
			log := e.logger.WithContext(ctx).WithFields(map[string]any{
				"sink":     sink.Name(),
				"run_id":   run.ID,
				"entities": len(entities),
			})
			if err := sink.Export(ctx, run, entities); err != nil {
				metrics.ExportErrors.WithLabelValues(sink.Name()).Inc()
				log.WithError(err).Error("Export failed")
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				return nil
			}
			log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Export complete")
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
