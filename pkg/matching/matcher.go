// Package matching collapses duplicate entities: an exact name key pre-pass,
// a partitioned parallel pairwise matcher and a connected-component merge.
package matching

import (
	"context"
	"slices"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/normalizers"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

// Matcher compares every same-kind pair of entities with one similarity
// algorithm, spreading the comparison triangle over a fixed set of workers.
type Matcher struct {
	logger  ectologger.Logger
	workers int
}

// NewMatcher creates a matcher that runs the given number of workers per stage
func NewMatcher(logger ectologger.Logger, workers int) *Matcher {
	return &Matcher{
		logger:  logger,
		workers: max(workers, 1),
	}
}

// WorkerMatches is the result of one worker: the rows it scanned and, for each
// row i, the ascending indices j > i that matched it.
type WorkerMatches struct {
	Rows        RowRange
	Matches     map[int][]int
	Comparisons int
	Interrupted bool
}

// MatchSet collects the per-worker results of a stage
type MatchSet struct {
	Workers []WorkerMatches
}

// Pairs counts the matched entity pairs
func (s *MatchSet) Pairs() int {
	pairs := 0
	for _, w := range s.Workers {
		for _, js := range w.Matches {
			pairs += len(js)
		}
	}
	return pairs
}

// Interrupted reports whether any worker stopped before finishing its rows
func (s *MatchSet) Interrupted() bool {
	return slices.ContainsFunc(s.Workers, func(w WorkerMatches) bool { return w.Interrupted })
}

// Match scores every same-kind pair and records those with any name pair
// scoring strictly above threshold. The entities are only read.
//
// Cancelling ctx stops workers between rows. Matches found before the
// interruption are kept and the returned set is marked interrupted.
func (m *Matcher) Match(ctx context.Context, entities []*models.Entity, algorithm similarity.Algorithm, threshold float64) *MatchSet {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Match")
	defer span.End()

	start := time.Now()
	names := foldedNames(entities)
	ranges := Partition(len(entities), m.workers)
	results := make([]WorkerMatches, len(ranges))

	var g errgroup.Group
	for w, rows := range ranges {
		g.Go(func() error {
			results[w] = scan(ctx, entities, names, rows, algorithm, threshold)
			if results[w].Interrupted {
				return ctx.Err()
			}
			return nil
		})
	}

	set := &MatchSet{Workers: results}
	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"algorithm": algorithm.Name(),
		"threshold": threshold,
		"entities":  len(entities),
		"workers":   len(ranges),
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("Matching workers interrupted; continuing with partial matches")
	}

	log.WithFields(map[string]any{
		"pairs":       set.Pairs(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Pairwise matching complete")

	return set
}

func scan(ctx context.Context, entities []*models.Entity, names [][]string, rows RowRange, algorithm similarity.Algorithm, threshold float64) WorkerMatches {
	result := WorkerMatches{Rows: rows, Matches: make(map[int][]int)}
	for i := rows.Start; i < rows.End; i++ {
		if ctx.Err() != nil {
			result.Interrupted = true
			return result
		}
		for j := i + 1; j < len(entities); j++ {
			if entities[i].Kind != entities[j].Kind {
				continue
			}
			result.Comparisons++
			if anyNameMatches(names[i], names[j], algorithm, threshold) {
				result.Matches[i] = append(result.Matches[i], j)
			}
		}
	}
	return result
}

// anyNameMatches stops at the first qualifying pair; the entity pair matches either way
func anyNameMatches(a, b []string, algorithm similarity.Algorithm, threshold float64) bool {
	for _, x := range a {
		for _, y := range b {
			if algorithm.PercentualMatch(x, y) > threshold {
				return true
			}
		}
	}
	return false
}

// foldedNames folds every entity's names once per stage. Blank names are
// dropped: they carry no identity and would match each other at 100.
func foldedNames(entities []*models.Entity) [][]string {
	names := make([][]string, len(entities))
	for i, entity := range entities {
		values := entity.Names.Values()
		folded := make([]string, 0, len(values))
		for _, v := range values {
			if f := normalizers.Fold(v); f != "" && !slices.Contains(folded, f) {
				folded = append(folded, f)
			}
		}
		names[i] = folded
	}
	return names
}
