// Package merge resolves validated duplicate groups into single merged
// events. It ties the matcher, detector, validator, and authority resolver
// together into preview and commit runs.
package merge

import (
	"github.com/rotisserie/eris"
)

// Strategy selects how fields without a dedicated resolution rule are filled.
type Strategy string

const (
	// StrategyQuality takes remaining fields from the highest-quality member.
	StrategyQuality Strategy = "quality"
	// StrategyPriority takes them from the highest-authority source.
	StrategyPriority Strategy = "priority"
	// StrategyAverage averages numeric fields across members.
	StrategyAverage Strategy = "average"
	// StrategyNewest takes them from the most recently revised member.
	StrategyNewest Strategy = "newest"
	// StrategyComplete takes them from the member with the most populated fields.
	StrategyComplete Strategy = "complete"
)

// Config is a merge run configuration.
type Config struct {
	TimeThresholdSeconds           float64  `mapstructure:"time_threshold_seconds" yaml:"time_threshold_seconds"`
	DistanceThresholdKm            float64  `mapstructure:"distance_threshold_km" yaml:"distance_threshold_km"`
	MinimumSimilarityScore         float64  `mapstructure:"minimum_similarity_score" yaml:"minimum_similarity_score"`
	UseMagnitudeDependentThreshold bool     `mapstructure:"magnitude_dependent_threshold" yaml:"magnitude_dependent_threshold"`
	Strategy                       Strategy `mapstructure:"strategy" yaml:"strategy"`
	SourcePriorityMode             string   `mapstructure:"source_priority_mode" yaml:"source_priority_mode,omitempty"`
}

// Strict matches only near-identical reports: 10 s, 10 km, score 0.85,
// fixed thresholds.
func Strict() Config {
	return Config{
		TimeThresholdSeconds:   10,
		DistanceThresholdKm:    10,
		MinimumSimilarityScore: 0.85,
		Strategy:               StrategyQuality,
	}
}

// Moderate is the default preset: 30 s, 25 km, score 0.70, with
// magnitude-dependent threshold widening.
func Moderate() Config {
	return Config{
		TimeThresholdSeconds:           30,
		DistanceThresholdKm:            25,
		MinimumSimilarityScore:         0.70,
		UseMagnitudeDependentThreshold: true,
		Strategy:                       StrategyQuality,
	}
}

// Loose casts the widest net: 60 s, 50 km, score 0.60.
func Loose() Config {
	return Config{
		TimeThresholdSeconds:           60,
		DistanceThresholdKm:            50,
		MinimumSimilarityScore:         0.60,
		UseMagnitudeDependentThreshold: true,
		Strategy:                       StrategyQuality,
	}
}

// PresetByName resolves a named preset.
func PresetByName(name string) (Config, error) {
	switch name {
	case "strict":
		return Strict(), nil
	case "moderate":
		return Moderate(), nil
	case "loose":
		return Loose(), nil
	default:
		return Config{}, eris.Errorf("merge: unknown preset %q", name)
	}
}

// Validate checks a configuration for nonsensical values.
func (c Config) Validate() error {
	if c.TimeThresholdSeconds <= 0 {
		return eris.New("merge: time threshold must be positive")
	}
	if c.DistanceThresholdKm <= 0 {
		return eris.New("merge: distance threshold must be positive")
	}
	if c.MinimumSimilarityScore <= 0 || c.MinimumSimilarityScore > 1 {
		return eris.New("merge: minimum similarity score must be in (0, 1]")
	}
	switch c.Strategy {
	case StrategyQuality, StrategyPriority, StrategyAverage, StrategyNewest, StrategyComplete:
		return nil
	default:
		return eris.Errorf("merge: unknown strategy %q", c.Strategy)
	}
}
