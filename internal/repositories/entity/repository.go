// Package entity persists deduplicated entities per run in PostgreSQL.
package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/nettle/internal/database"
	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/models"
)

// batchSize bounds the rows of one INSERT; Postgres allows 65535 parameters per statement
const batchSize = 500

// Repository handles run and entity persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Name() string {
	return "postgres"
}

// Export stores the run and its entities in one transaction. Exporting the
// same run again overwrites its rows.
func (r *Repository) Export(ctx context.Context, run models.RunSummary, entities []*models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Export")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.saveRun(ctx, tx, run); err != nil {
		return err
	}

	var refs []referenceRow
	for start := 0; start < len(entities); start += batchSize {
		batch := entities[start:min(start+batchSize, len(entities))]
		ib := database.NewInsertBuilder().InsertInto(entitiesTable).Cols(entityColumns...)
		for _, e := range batch {
			ib.Values(fromEntity(run.ID, e).values()...)
			refs = append(refs, referenceRows(run.ID, e)...)
		}
		ib.OnConflict("run_id", "id").SetExcluded(entityColumns[2:]...)

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("Failed to save entities")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save entities")
		}
	}

	for start := 0; start < len(refs); start += batchSize {
		batch := refs[start:min(start+batchSize, len(refs))]
		ib := database.NewInsertBuilder().InsertInto(referencesTable).Cols(referenceColumns...)
		for _, ref := range batch {
			ib.Values(ref.values()...)
		}
		ib.OnConflict("run_id", "entity_id", "name").SetExcluded("address", "resolved_entity_id")

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("Failed to save company references")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save company references")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":     run.ID,
		"entities":   len(entities),
		"references": len(refs),
	}).Info("Saved run entities")
	return nil
}

func (r *Repository) saveRun(ctx context.Context, tx database.Tx, run models.RunSummary) error {
	ib := database.NewInsertBuilder().InsertInto(runsTable).Cols(runColumns...)
	ib.Values(run.ID, run.Status, run.StartedAt, run.CompletedAt, run.InputCount, run.EntityCount, run.ResolvedReferences, run.UnresolvedReferences)
	ib.OnConflict("id").SetExcluded(runColumns[1:]...)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("Failed to save run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save run")
	}
	return nil
}

// LatestRun returns the most recently completed run
func (r *Repository) LatestRun(ctx context.Context) (*models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.LatestRun")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(runColumns...)
	sb.From(runsTable)
	sb.OrderBy("completed_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var run models.RunSummary
	if err := r.db.GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "no runs found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest run")
	}
	return &run, nil
}

// Get returns an entity of the latest run
func (r *Repository) Get(ctx context.Context, id int64) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Get")
	defer span.End()

	run, err := r.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetInRun(ctx, run.ID, id)
}

// GetInRun returns an entity of the given run with its company references
func (r *Repository) GetInRun(ctx context.Context, runID string, id int64) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.GetInRun")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(entityColumns...)
	sb.From(entitiesTable)
	sb.Where(
		sb.Equal("run_id", runID),
		sb.Equal("id", id),
	)

	query, args := sb.Build()
	var row entityRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entity %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity")
	}

	refs, err := r.references(ctx, runID, id)
	if err != nil {
		return nil, err
	}
	return row.toEntity(refs), nil
}

func (r *Repository) references(ctx context.Context, runID string, entityID int64) ([]referenceRow, error) {
	sb := database.NewSelectBuilder()
	sb.Select(referenceColumns...)
	sb.From(referencesTable)
	sb.Where(
		sb.Equal("run_id", runID),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("name")

	query, args := sb.Build()
	var refs []referenceRow
	if err := r.db.SelectContext(ctx, &refs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get company references")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company references")
	}
	return refs, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
