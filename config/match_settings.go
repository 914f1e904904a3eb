package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawValue is a setting exactly as written. Parsing and defaults happen when
// the pipeline resolves its settings.
type RawValue string

// UnmarshalYAML keeps any scalar as its literal text
func (v *RawValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*v = RawValue(node.Value)
	return nil
}

// AlgorithmSettings configures one matching stage
type AlgorithmSettings struct {
	Enabled     RawValue `yaml:"enabled"`
	MinAccuracy RawValue `yaml:"min_accuracy"`
}

// MatchSettings is the unparsed matching configuration
type MatchSettings struct {
	Workers    RawValue                     `yaml:"workers"`
	Algorithms map[string]AlgorithmSettings `yaml:"algorithms"`
	// OnlyListed disables every algorithm missing from Algorithms
	OnlyListed bool `yaml:"only_listed"`
}

// LoadMatchSettings reads MATCH_SETTINGS_FILE when set, otherwise the
// MATCH_ALGORITHMS list. MATCH_WORKERS overrides the file's worker count.
func LoadMatchSettings(cfg *Config) (MatchSettings, error) {
	var settings MatchSettings

	switch {
	case cfg.MatchSettingsFile != "":
		data, err := os.ReadFile(cfg.MatchSettingsFile)
		if err != nil {
			return settings, fmt.Errorf("failed to read match settings: %w", err)
		}
		if settings, err = ParseMatchSettings(data); err != nil {
			return settings, err
		}
	case cfg.MatchAlgorithms != "":
		settings = ParseAlgorithmList(cfg.MatchAlgorithms)
	}

	if cfg.MatchWorkers != "" {
		settings.Workers = RawValue(cfg.MatchWorkers)
	}
	return settings, nil
}

// ParseMatchSettings decodes a YAML settings document:
//
//	workers: 8
//	algorithms:
//	  levenshtein:
//	    enabled: true
//	    min_accuracy: 92
func ParseMatchSettings(data []byte) (MatchSettings, error) {
	var settings MatchSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse match settings: %w", err)
	}
	return settings, nil
}

// ParseAlgorithmList parses "name[:accuracy],..." into settings enabling
// exactly the listed algorithms.
func ParseAlgorithmList(list string) MatchSettings {
	settings := MatchSettings{
		Algorithms: make(map[string]AlgorithmSettings),
		OnlyListed: true,
	}
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, accuracy, _ := strings.Cut(item, ":")
		settings.Algorithms[strings.TrimSpace(name)] = AlgorithmSettings{
			Enabled:     "true",
			MinAccuracy: RawValue(strings.TrimSpace(accuracy)),
		}
	}
	return settings
}
