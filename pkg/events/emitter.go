// Package events publishes the outcome of a run as Kafka events.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/kafka"
	"github.com/Ramsey-B/nettle/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeEntityDeduplicated EventType = "entity.deduplicated"
	EventTypeRunCompleted       EventType = "run.completed"
)

// batchSize bounds the entity events written in one call
const batchSize = 500

// Emitter publishes one event per surviving entity followed by a run
// completed event. Consumers can treat the run event as the end marker.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) Name() string {
	return "kafka"
}

func (e *Emitter) Export(ctx context.Context, run models.RunSummary, entities []*models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.Export")
	defer span.End()

	for start := 0; start < len(entities); start += batchSize {
		batch := entities[start:min(start+batchSize, len(entities))]
		events := make([]*kafka.EntityEvent, len(batch))
		for i, entity := range batch {
			event, err := entityEvent(run.ID, entity)
			if err != nil {
				return err
			}
			events[i] = event
		}
		if err := e.producer.PublishEntityEvents(ctx, events); err != nil {
			e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s events", EventTypeEntityDeduplicated)
			return err
		}
	}

	if err := e.EmitRunCompleted(ctx, run); err != nil {
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":   run.ID,
		"entities": len(entities),
	}).Info("Emitted run events")
	return nil
}

// EmitRunCompleted emits the run completed event
func (e *Emitter) EmitRunCompleted(ctx context.Context, run models.RunSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	event := &kafka.RunEvent{
		EventType:            string(EventTypeRunCompleted),
		RunID:                run.ID,
		Status:               run.Status,
		StartedAt:            run.StartedAt,
		CompletedAt:          run.CompletedAt,
		InputCount:           run.InputCount,
		EntityCount:          run.EntityCount,
		ResolvedReferences:   run.ResolvedReferences,
		UnresolvedReferences: run.UnresolvedReferences,
	}

	if err := e.producer.PublishRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", EventTypeRunCompleted)
		return err
	}
	return nil
}

func entityEvent(runID string, entity *models.Entity) (*kafka.EntityEvent, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity %d: %w", entity.ID, err)
	}
	return &kafka.EntityEvent{
		EventType:  string(EventTypeEntityDeduplicated),
		RunID:      runID,
		EntityID:   entity.ID,
		EntityKind: entity.Kind.String(),
		Data:       data,
	}, nil
}
