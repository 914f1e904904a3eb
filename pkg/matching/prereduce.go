package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/normalizers"
)

// Reducer merges entities that share a name normalization key. It runs a
// single forward pass and is cheap enough to precede the pairwise stages.
type Reducer struct {
	logger ectologger.Logger
}

// NewReducer creates a new exact-key reducer
func NewReducer(logger ectologger.Logger) *Reducer {
	return &Reducer{logger: logger}
}

// reduction holds the state of one pass
type reduction struct {
	owners map[string]*models.Entity
	alive  map[*models.Entity]bool
	merges int
}

// Reduce merges entities with equal name keys. The returned slice keeps the
// input order of the surviving entities and no two of them share a name key.
func (r *Reducer) Reduce(ctx context.Context, entities []*models.Entity) ([]*models.Entity, int) {
	ctx, span := tracing.StartSpan(ctx, "matching.Reducer.Reduce")
	defer span.End()

	state := &reduction{
		owners: make(map[string]*models.Entity),
		alive:  make(map[*models.Entity]bool, len(entities)),
	}

	for _, entity := range entities {
		state.alive[entity] = true
		current := entity
		for _, name := range entity.Names.Values() {
			key := normalizers.NameKey(name)
			if key == "" {
				continue
			}
			owner, ok := state.owners[key]
			if !ok {
				state.owners[key] = current
				continue
			}
			if owner == current {
				continue
			}
			state.absorb(owner, current)
			current = owner
		}
	}

	reduced := make([]*models.Entity, 0, len(entities)-state.merges)
	for _, entity := range entities {
		if state.alive[entity] {
			reduced = append(reduced, entity)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"input":  len(entities),
		"output": len(reduced),
		"merges": state.merges,
	}).Info("Exact key reduction complete")

	return reduced, state.merges
}

// absorb merges victim into survivor and points every key of the survivor at
// it. A key still owned by another live entity pulls that entity in as well.
func (s *reduction) absorb(survivor, victim *models.Entity) {
	pending := []*models.Entity{victim}
	for len(pending) > 0 {
		next := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if next == survivor || !s.alive[next] {
			continue
		}

		survivor.Merge(next)
		delete(s.alive, next)
		s.merges++

		for _, name := range survivor.Names.Values() {
			key := normalizers.NameKey(name)
			if key == "" {
				continue
			}
			if owner, ok := s.owners[key]; ok && owner != survivor && s.alive[owner] {
				pending = append(pending, owner)
			}
			s.owners[key] = survivor
		}
	}
}
