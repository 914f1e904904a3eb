package pipeline

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func resolve(raw config.MatchSettings) Settings {
	return ResolveSettings(context.Background(), raw, similarity.DefaultRegistry(), testLogger())
}

func accuracies(s Settings) map[string]float64 {
	out := make(map[string]float64, len(s.Stages))
	for _, stage := range s.Stages {
		out[stage.Algorithm.Name()] = stage.MinAccuracy
	}
	return out
}

func TestResolveSettingsDefaults(t *testing.T) {
	settings := resolve(config.MatchSettings{})

	assert.Equal(t, DefaultWorkers(), settings.Workers)
	assert.Equal(t, []string{similarity.DamerauLevenshtein, similarity.Levenshtein}, settings.StageNames())
	assert.Equal(t, map[string]float64{similarity.DamerauLevenshtein: 90, similarity.Levenshtein: 90}, accuracies(settings))
	assert.Empty(t, settings.Warnings)
}

func TestResolveSettingsWorkers(t *testing.T) {
	tests := []struct {
		name     string
		workers  config.RawValue
		expected int
		warns    bool
	}{
		{name: "unset", workers: "", expected: DefaultWorkers()},
		{name: "zero means default", workers: "0", expected: DefaultWorkers()},
		{name: "explicit", workers: " 3 ", expected: 3},
		{name: "non numeric", workers: "six", expected: DefaultWorkers(), warns: true},
		{name: "negative", workers: "-2", expected: DefaultWorkers(), warns: true},
		{name: "fractional", workers: "2.5", expected: DefaultWorkers(), warns: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := resolve(config.MatchSettings{Workers: tt.workers})
			assert.Equal(t, tt.expected, settings.Workers)
			assert.Equal(t, tt.warns, len(settings.Warnings) > 0)
		})
	}
}

func TestResolveSettingsAlgorithms(t *testing.T) {
	settings := resolve(config.MatchSettings{
		Algorithms: map[string]config.AlgorithmSettings{
			"phonex":      {Enabled: "true"},
			"LIG":         {Enabled: "1", MinAccuracy: "80"},
			"levenshtein": {Enabled: "false"},
			"guth":        {Enabled: "true", MinAccuracy: "ninety"},
			"soundex":     {Enabled: "maybe"},
			"lig3":        {Enabled: "true", MinAccuracy: "150"},
			"jaro":        {Enabled: "true"},
		},
	})

	assert.Equal(t, []string{
		similarity.DamerauLevenshtein,
		similarity.LIG,
		similarity.LIG3,
		similarity.Guth,
		similarity.Phonex,
	}, settings.StageNames(), "stages run in the fixed algorithm order")

	assert.Equal(t, map[string]float64{
		similarity.DamerauLevenshtein: 90,
		similarity.LIG:                80,
		similarity.LIG3:               90,
		similarity.Guth:               99,
		similarity.Phonex:             99,
	}, accuracies(settings))

	// jaro, soundex's flag, guth's and lig3's accuracies
	assert.Len(t, settings.Warnings, 4)
}

func TestResolveSettingsOnlyListed(t *testing.T) {
	settings := resolve(config.ParseAlgorithmList("soundex:95, levenshtein"))

	assert.Equal(t, []string{similarity.Levenshtein, similarity.Soundex}, settings.StageNames())
	assert.Equal(t, map[string]float64{similarity.Levenshtein: 90, similarity.Soundex: 95}, accuracies(settings))
}

func TestResolveSettingsCustomAlgorithm(t *testing.T) {
	registry := similarity.NewRegistry()
	registry.Register("custom", similarity.NewLevenshtein)

	settings := ResolveSettings(context.Background(), config.MatchSettings{
		Algorithms: map[string]config.AlgorithmSettings{"custom": {Enabled: "true"}},
	}, registry, testLogger())

	require.Len(t, settings.Stages, 1)
	assert.Equal(t, 90.0, settings.Stages[0].MinAccuracy)
}

func newEntity(alloc *models.IDAllocator, kind models.Kind, names ...string) *models.Entity {
	e := alloc.NewEntity(kind)
	e.Names.Add(names...)
	return e
}

func TestPipelineRun(t *testing.T) {
	alloc := models.NewIDAllocator(1)
	john := newEntity(alloc, models.KindPerson, "JOHN SMITH")
	smith := newEntity(alloc, models.KindPerson, "SMITH JOHN")
	johnn := newEntity(alloc, models.KindPerson, "JOHNN SMITH")
	acme := newEntity(alloc, models.KindCompany, "ACME CORP")
	jane := newEntity(alloc, models.KindPerson, "JANE DOE")
	jane.AddCompanyReference("ACME CORP", "1 Main St")

	p := New(testLogger(), resolve(config.MatchSettings{Workers: "2"}))
	result := p.Run(context.Background(), []*models.Entity{john, smith, johnn, acme, jane})

	_, err := uuid.Parse(result.RunID)
	require.NoError(t, err)
	assert.False(t, result.Interrupted)
	assert.Equal(t, StatusCompleted, result.Status())

	assert.Equal(t, PreReduceReport{Before: 5, After: 4, Merges: 1}, result.PreReduce)

	require.Len(t, result.Stages, 2)
	assert.Equal(t, similarity.DamerauLevenshtein, result.Stages[0].Algorithm)
	assert.Equal(t, 4, result.Stages[0].Before)
	assert.Equal(t, 3, result.Stages[0].After)
	assert.Equal(t, 1, result.Stages[0].Merges)
	assert.Equal(t, 0, result.Stages[1].Merges)

	require.Len(t, result.Entities, 3)
	assert.Equal(t, []string{"JOHN SMITH", "JOHNN SMITH", "SMITH JOHN"}, result.Entities[0].Names.Values())

	ref, ok := jane.CompanyReferences.Get("ACME CORP")
	require.True(t, ok)
	require.True(t, ref.IsResolved())
	assert.Equal(t, acme.ID, *ref.ResolvedEntityID)

	summary := result.Summary()
	assert.Equal(t, result.RunID, summary.ID)
	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Equal(t, 5, summary.InputCount)
	assert.Equal(t, 3, summary.EntityCount)
	assert.Equal(t, 1, summary.ResolvedReferences)
	assert.Equal(t, 0, summary.UnresolvedReferences)
	assert.False(t, summary.CompletedAt.Before(summary.StartedAt))
}

func TestPipelineStagesNeverGrowTheSet(t *testing.T) {
	alloc := models.NewIDAllocator(1)
	entities := []*models.Entity{
		newEntity(alloc, models.KindPerson, "Ali Hassan"),
		newEntity(alloc, models.KindPerson, "Aly Hassan"),
		newEntity(alloc, models.KindPerson, "Ali Hasan"),
		newEntity(alloc, models.KindCompany, "Ali Hassan"),
		newEntity(alloc, models.KindUnknown, "Hassan Ali"),
		newEntity(alloc, models.KindPerson, "Petrov Ivan"),
	}

	p := New(testLogger(), resolve(config.ParseAlgorithmList("lig:70,guth,soundex,phonex,levenshtein:80")))
	result := p.Run(context.Background(), entities)

	previous := result.PreReduce.After
	for _, stage := range result.Stages {
		assert.Equal(t, previous, stage.Before)
		assert.LessOrEqual(t, stage.After, stage.Before)
		assert.Equal(t, stage.Before-stage.After, stage.Merges)
		previous = stage.After
	}
	assert.Len(t, result.Entities, previous)
}

func TestPipelineRunEmpty(t *testing.T) {
	result := New(testLogger(), resolve(config.MatchSettings{})).Run(context.Background(), nil)

	assert.Empty(t, result.Entities)
	assert.Equal(t, 0, result.Summary().EntityCount)
	require.NotNil(t, result.Companies)
	assert.Empty(t, result.Companies.Unresolved)
}

func TestPipelineRunCancelled(t *testing.T) {
	alloc := models.NewIDAllocator(1)
	entities := []*models.Entity{
		newEntity(alloc, models.KindPerson, "Maria Lopez"),
		newEntity(alloc, models.KindPerson, "Mario Lopez"),
		newEntity(alloc, models.KindPerson, "Marla Lopez"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(testLogger(), resolve(config.MatchSettings{Workers: "2"})).Run(ctx, entities)

	assert.True(t, result.Interrupted)
	assert.Equal(t, StatusInterrupted, result.Status())
	assert.True(t, result.Summary().Interrupted())
	for _, stage := range result.Stages {
		assert.True(t, stage.Interrupted)
		assert.Equal(t, 0, stage.Merges)
	}
	assert.Len(t, result.Entities, 3)
}
