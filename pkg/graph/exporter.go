package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/models"
)

// batchSize bounds the rows sent with one UNWIND
const batchSize = 1000

// Statement is one parameterized Cypher query
type Statement struct {
	Cypher string
	Params map[string]any
}

// Writer runs write transactions; *Client implements it
type Writer interface {
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
}

// Exporter replaces the graph content with the entities of a run. Every node
// carries the :Entity label plus its kind label; resolved company references
// become CARE_OF relationships to the company node.
type Exporter struct {
	writer Writer
	logger ectologger.Logger
}

func NewExporter(writer Writer, logger ectologger.Logger) *Exporter {
	return &Exporter{
		writer: writer,
		logger: logger,
	}
}

func (e *Exporter) Name() string {
	return "graph"
}

func (e *Exporter) Export(ctx context.Context, run models.RunSummary, entities []*models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Exporter.Export")
	defer span.End()

	statements := Statements(run, entities)
	_, err := e.writer.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range statements {
			result, err := tx.Run(ctx, stmt.Cypher, stmt.Params)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("Failed to write entities to graph")
		return fmt.Errorf("failed to write entities to graph: %w", err)
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":     run.ID,
		"entities":   len(entities),
		"statements": len(statements),
	}).Info("Wrote entities to graph")
	return nil
}

// Statements builds the queries that replace the graph with the run: drop
// nodes of other runs, merge nodes per kind, then merge CARE_OF edges.
func Statements(run models.RunSummary, entities []*models.Entity) []Statement {
	statements := []Statement{{
		Cypher: `MATCH (e:Entity) WHERE e.run_id <> $run_id DETACH DELETE e`,
		Params: map[string]any{"run_id": run.ID},
	}}

	byLabel := make(map[string][]*models.Entity)
	for _, e := range entities {
		byLabel[e.Kind.Label()] = append(byLabel[e.Kind.Label()], e)
	}
	for _, kind := range []models.Kind{models.KindPerson, models.KindCompany, models.KindUnknown} {
		rows := NodeRows(run.ID, byLabel[kind.Label()])
		cypher := fmt.Sprintf(`UNWIND $rows AS row
MERGE (e:Entity {id: row.id})
SET e += row, e:%s`, sanitizeLabel(kind.Label()))
		statements = append(statements, batched(cypher, rows)...)
	}

	edges := CareOfRows(run.ID, entities)
	statements = append(statements, batched(`UNWIND $rows AS row
MATCH (a:Entity {id: row.from}), (b:Company {id: row.to})
MERGE (a)-[r:CARE_OF {name: row.name}]->(b)
SET r.address = row.address, r.run_id = row.run_id`, edges)...)

	return statements
}

func batched(cypher string, rows []map[string]any) []Statement {
	var statements []Statement
	for start := 0; start < len(rows); start += batchSize {
		statements = append(statements, Statement{
			Cypher: cypher,
			Params: map[string]any{"rows": rows[start:min(start+batchSize, len(rows))]},
		})
	}
	return statements
}

// NodeRows converts entities to node property maps
func NodeRows(runID string, entities []*models.Entity) []map[string]any {
	return ectolinq.Map(entities, func(e *models.Entity) map[string]any {
		return map[string]any{
			"id":              e.ID,
			"run_id":          runID,
			"kind":            e.Kind.String(),
			"names":           e.Names.Values(),
			"addresses":       e.Addresses.Values(),
			"nationalities":   e.Nationalities.Values(),
			"places_of_birth": e.PlacesOfBirth.Values(),
			"dates_of_birth":  e.DatesOfBirth.Values(),
			"sources":         e.Sources.Values(),
		}
	})
}

// CareOfRows lists one edge per resolved company reference. A reference an
// entity resolved to itself is skipped.
func CareOfRows(runID string, entities []*models.Entity) []map[string]any {
	var rows []map[string]any
	for _, e := range entities {
		for _, ref := range e.CompanyReferences.Values() {
			if !ref.IsResolved() || *ref.ResolvedEntityID == e.ID {
				continue
			}
			rows = append(rows, map[string]any{
				"from":    e.ID,
				"to":      *ref.ResolvedEntityID,
				"name":    ref.Name,
				"address": ref.Address,
				"run_id":  runID,
			})
		}
	}
	return rows
}

func sanitizeLabel(label string) string {
	result := make([]rune, 0, len(label))
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	if len(result) == 0 {
		return "Entity"
	}
	return string(result)
}
