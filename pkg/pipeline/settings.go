package pipeline

import (
	"context"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

// AlgorithmDefaults is the fallback for an algorithm missing from or
// malformed in the match settings.
type AlgorithmDefaults struct {
	Enabled     bool
	MinAccuracy float64
}

// Defaults holds the documented default for every built-in algorithm
var Defaults = map[string]AlgorithmDefaults{
	similarity.DamerauLevenshtein: {Enabled: true, MinAccuracy: 90},
	similarity.Levenshtein:        {Enabled: true, MinAccuracy: 90},
	similarity.LIG:                {Enabled: false, MinAccuracy: 85},
	similarity.LIG2:               {Enabled: false, MinAccuracy: 85},
	similarity.LIG3:               {Enabled: false, MinAccuracy: 90},
	similarity.Guth:               {Enabled: false, MinAccuracy: 99},
	similarity.Soundex:            {Enabled: false, MinAccuracy: 99},
	similarity.Phonex:             {Enabled: false, MinAccuracy: 99},
}

// fallback applies to algorithms registered outside the built-in set
var fallback = AlgorithmDefaults{Enabled: false, MinAccuracy: 90}

// Stage is one enabled matching pass
type Stage struct {
	Algorithm   similarity.Algorithm
	MinAccuracy float64
}

// Settings is the typed, validated match configuration
type Settings struct {
	Workers int
	Stages  []Stage
	// Warnings lists every setting that was ignored or replaced by its default
	Warnings []string
}

// StageNames returns the algorithm names of the enabled stages in run order
func (s Settings) StageNames() []string {
	names := make([]string, len(s.Stages))
	for i, stage := range s.Stages {
		names[i] = stage.Algorithm.Name()
	}
	return names
}

// DefaultWorkers is the worker count used when none, zero or a malformed one is configured
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// ResolveSettings turns raw settings into stages ordered by the registry.
// Malformed values fall back to their defaults and unknown algorithm names are
// skipped. Each such condition is logged at warn level and listed in Warnings.
func ResolveSettings(ctx context.Context, raw config.MatchSettings, registry *similarity.Registry, logger ectologger.Logger) Settings {
	settings := Settings{}
	log := logger.WithContext(ctx)

	warn := func(fields map[string]any, msg string) {
		log.WithFields(fields).Warn(msg)
		settings.Warnings = append(settings.Warnings, msg)
	}

	settings.Workers = DefaultWorkers()
	if value := strings.TrimSpace(string(raw.Workers)); value != "" {
		workers, err := strconv.Atoi(value)
		switch {
		case err != nil || workers < 0:
			warn(map[string]any{"workers": value, "default": settings.Workers}, "Invalid worker count, using default")
		case workers > 0:
			settings.Workers = workers
		}
	}

	configured := make(map[string]config.AlgorithmSettings, len(raw.Algorithms))
	for name, algorithm := range raw.Algorithms {
		key := strings.ToLower(strings.TrimSpace(name))
		if !registry.Has(key) {
			warn(map[string]any{"algorithm": name}, "Unknown similarity algorithm "+strconv.Quote(name)+" skipped")
			continue
		}
		configured[key] = algorithm
	}

	for _, name := range registry.Names() {
		defaults, ok := Defaults[name]
		if !ok {
			defaults = fallback
		}

		algorithm, listed := configured[name]
		enabled := defaults.Enabled
		if raw.OnlyListed {
			enabled = listed
		}
		minAccuracy := defaults.MinAccuracy

		if listed {
			if value := strings.TrimSpace(string(algorithm.Enabled)); value != "" {
				parsed, err := strconv.ParseBool(value)
				if err != nil {
					warn(map[string]any{"algorithm": name, "enabled": value}, "Invalid enabled flag for "+name+", disabling")
					parsed = false
				}
				enabled = parsed
			}
			if value := strings.TrimSpace(string(algorithm.MinAccuracy)); value != "" {
				parsed, err := strconv.ParseFloat(value, 64)
				if err != nil || math.IsNaN(parsed) || parsed < 0 || parsed > 100 {
					warn(map[string]any{"algorithm": name, "min_accuracy": value, "default": minAccuracy}, "Invalid minimum accuracy for "+name+", using default")
				} else {
					minAccuracy = parsed
				}
			}
		}

		if !enabled {
			continue
		}

		instance, err := registry.Get(name)
		if err != nil {
			warn(map[string]any{"algorithm": name, "error": err.Error()}, "Similarity algorithm "+name+" unavailable, skipped")
			continue
		}
		settings.Stages = append(settings.Stages, Stage{Algorithm: instance, MinAccuracy: minAccuracy})
	}

	log.WithFields(map[string]any{
		"workers": settings.Workers,
		"stages":  settings.StageNames(),
	}).Debug("Match settings resolved")

	return settings
}
