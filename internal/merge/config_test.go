package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	t.Parallel()

	strict := Strict()
	assert.Equal(t, 10.0, strict.TimeThresholdSeconds)
	assert.Equal(t, 10.0, strict.DistanceThresholdKm)
	assert.Equal(t, 0.85, strict.MinimumSimilarityScore)
	assert.False(t, strict.UseMagnitudeDependentThreshold)

	moderate := Moderate()
	assert.Equal(t, 30.0, moderate.TimeThresholdSeconds)
	assert.Equal(t, 25.0, moderate.DistanceThresholdKm)
	assert.Equal(t, 0.70, moderate.MinimumSimilarityScore)
	assert.True(t, moderate.UseMagnitudeDependentThreshold)

	loose := Loose()
	assert.Equal(t, 60.0, loose.TimeThresholdSeconds)
	assert.Equal(t, 50.0, loose.DistanceThresholdKm)
	assert.Equal(t, 0.60, loose.MinimumSimilarityScore)
}

func TestPresetByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"strict", "moderate", "loose"} {
		cfg, err := PresetByName(name)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
	}

	_, err := PresetByName("aggressive")
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero time threshold", func(c *Config) { c.TimeThresholdSeconds = 0 }},
		{"negative distance", func(c *Config) { c.DistanceThresholdKm = -5 }},
		{"score above one", func(c *Config) { c.MinimumSimilarityScore = 1.5 }},
		{"unknown strategy", func(c *Config) { c.Strategy = "best" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Moderate()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
