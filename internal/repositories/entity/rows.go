package entity

import (
	"github.com/Ramsey-B/nettle/internal/database"
	"github.com/Ramsey-B/nettle/pkg/models"
)

const (
	runsTable       = "runs"
	entitiesTable   = "entities"
	referencesTable = "entity_company_references"
)

var entityColumns = []string{"run_id", "id", "kind", "names", "addresses", "nationalities", "places_of_birth", "dates_of_birth", "sources"}

var referenceColumns = []string{"run_id", "entity_id", "name", "address", "resolved_entity_id"}

var runColumns = []string{"id", "status", "started_at", "completed_at", "input_count", "entity_count", "resolved_references", "unresolved_references"}

type stringSetColumn = database.JSONB[models.StringSet]

type entityRow struct {
	RunID         string          `db:"run_id"`
	ID            int64           `db:"id"`
	Kind          string          `db:"kind"`
	Names         stringSetColumn `db:"names"`
	Addresses     stringSetColumn `db:"addresses"`
	Nationalities stringSetColumn `db:"nationalities"`
	PlacesOfBirth stringSetColumn `db:"places_of_birth"`
	DatesOfBirth  stringSetColumn `db:"dates_of_birth"`
	Sources       stringSetColumn `db:"sources"`
}

func fromEntity(runID string, e *models.Entity) entityRow {
	return entityRow{
		RunID:         runID,
		ID:            e.ID,
		Kind:          e.Kind.String(),
		Names:         database.NewJSONB(e.Names),
		Addresses:     database.NewJSONB(e.Addresses),
		Nationalities: database.NewJSONB(e.Nationalities),
		PlacesOfBirth: database.NewJSONB(e.PlacesOfBirth),
		DatesOfBirth:  database.NewJSONB(e.DatesOfBirth),
		Sources:       database.NewJSONB(e.Sources),
	}
}

func (r entityRow) values() []any {
	return []any{r.RunID, r.ID, r.Kind, r.Names, r.Addresses, r.Nationalities, r.PlacesOfBirth, r.DatesOfBirth, r.Sources}
}

func (r entityRow) toEntity(refs []referenceRow) *models.Entity {
	e := models.RestoreEntity(r.ID, models.ParseKind(r.Kind))
	e.Names.Union(r.Names.GetValue())
	e.Addresses.Union(r.Addresses.GetValue())
	e.Nationalities.Union(r.Nationalities.GetValue())
	e.PlacesOfBirth.Union(r.PlacesOfBirth.GetValue())
	e.DatesOfBirth.Union(r.DatesOfBirth.GetValue())
	e.Sources.Union(r.Sources.GetValue())
	for _, ref := range refs {
		e.CompanyReferences.Add(&models.CompanyReference{
			Name:             ref.Name,
			Address:          ref.Address,
			ResolvedEntityID: ref.ResolvedEntityID,
		})
	}
	return e
}

type referenceRow struct {
	RunID            string `db:"run_id"`
	EntityID         int64  `db:"entity_id"`
	Name             string `db:"name"`
	Address          string `db:"address"`
	ResolvedEntityID *int64 `db:"resolved_entity_id"`
}

func referenceRows(runID string, e *models.Entity) []referenceRow {
	refs := e.CompanyReferences.Values()
	rows := make([]referenceRow, len(refs))
	for i, ref := range refs {
		rows[i] = referenceRow{
			RunID:            runID,
			EntityID:         e.ID,
			Name:             ref.Name,
			Address:          ref.Address,
			ResolvedEntityID: ref.ResolvedEntityID,
		}
	}
	return rows
}

func (r referenceRow) values() []any {
	return []any{r.RunID, r.EntityID, r.Name, r.Address, r.ResolvedEntityID}
}
