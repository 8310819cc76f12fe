package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismo-tools/quakemerge/internal/model"
)

func groupOf(mags []float64, depths []*float64) model.DuplicateGroup {
	at := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	g := model.DuplicateGroup{}
	for i, mag := range mags {
		ev := model.Event{
			ID:        "ev",
			Time:      model.Timestamp(at),
			Latitude:  -41.3,
			Longitude: 174.8,
			Magnitude: mag,
		}
		if depths != nil {
			ev.Depth = depths[i]
		}
		g.Events = append(g.Events, ev)
	}
	return g
}

func TestValidator_SingleEventGroupAlwaysValid(t *testing.T) {
	t.Parallel()

	log := NewConflictLog()
	v := NewValidator(log)
	g := groupOf([]float64{3.0}, nil)

	assert.True(t, v.Validate(&g, 0))
	assert.False(t, g.Suspicious)
	assert.Empty(t, g.Warnings)
	assert.Zero(t, log.Summary().Total)
}

func TestValidator_MagnitudeRange(t *testing.T) {
	t.Parallel()

	t.Run("spread 0.8 among M3 events fails", func(t *testing.T) {
		t.Parallel()
		log := NewConflictLog()
		v := NewValidator(log)
		g := groupOf([]float64{2.6, 3.0, 3.4}, nil)

		assert.False(t, v.Validate(&g, 0))
		assert.True(t, g.Suspicious)
		require.Len(t, log.Conflicts(), 1)
		c := log.Conflicts()[0]
		assert.Equal(t, ConflictMagnitudeRange, c.Type)
		assert.Equal(t, SeverityWarning, c.Severity)
	})

	t.Run("spread 1.0 among M7.5 events passes", func(t *testing.T) {
		t.Parallel()
		log := NewConflictLog()
		v := NewValidator(log)
		g := groupOf([]float64{6.5, 7.0, 7.5}, nil)

		assert.True(t, v.Validate(&g, 0))
		assert.False(t, g.Suspicious)
		assert.Zero(t, log.Summary().Total)
	})

	t.Run("spread 0.4 among M3 events passes", func(t *testing.T) {
		t.Parallel()
		log := NewConflictLog()
		v := NewValidator(log)
		g := groupOf([]float64{2.8, 3.2}, nil)

		assert.True(t, v.Validate(&g, 0))
	})
}

func TestValidator_DepthRange(t *testing.T) {
	t.Parallel()

	t.Run("spread beyond 50 km fails", func(t *testing.T) {
		t.Parallel()
		log := NewConflictLog()
		v := NewValidator(log)
		g := groupOf([]float64{4.0, 4.1}, []*float64{model.Float(10), model.Float(80)})

		assert.False(t, v.Validate(&g, 3))
		require.Len(t, log.Conflicts(), 1)
		c := log.Conflicts()[0]
		assert.Equal(t, ConflictDepthRange, c.Type)
		assert.Equal(t, SeverityWarning, c.Severity)
		assert.Equal(t, 3, c.GroupIndex)
	})

	t.Run("missing depths are excluded, not treated as zero", func(t *testing.T) {
		t.Parallel()
		log := NewConflictLog()
		v := NewValidator(log)
		// One event at 200 km, the other with no depth: no pairable spread.
		g := groupOf([]float64{4.0, 4.1}, []*float64{model.Float(200), nil})

		assert.True(t, v.Validate(&g, 0))
		assert.Zero(t, log.Summary().Total)
	})
}

func TestValidator_GroupSize(t *testing.T) {
	t.Parallel()

	log := NewConflictLog()
	v := NewValidator(log)

	mags := make([]float64, 16)
	for i := range mags {
		mags[i] = 4.0
	}
	g := groupOf(mags, nil)

	assert.False(t, v.Validate(&g, 0))
	assert.True(t, g.Suspicious)
	require.Len(t, log.Conflicts(), 1)
	c := log.Conflicts()[0]
	assert.Equal(t, ConflictGroupSize, c.Type)
	assert.Equal(t, SeverityError, c.Severity)
}

func TestValidator_MultipleViolationsLogSeparately(t *testing.T) {
	t.Parallel()

	log := NewConflictLog()
	v := NewValidator(log)
	g := groupOf([]float64{2.5, 3.5}, []*float64{model.Float(5), model.Float(90)})

	assert.False(t, v.Validate(&g, 0))
	assert.Len(t, g.Warnings, 2)
	summary := log.Summary()
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.ByType[ConflictMagnitudeRange])
	assert.Equal(t, 1, summary.ByType[ConflictDepthRange])
}
