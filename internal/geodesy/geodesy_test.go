package geodesy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLongitude(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"in range positive", 120.5, 120.5},
		{"in range negative", -45.25, -45.25},
		{"east wrap", 190, -170},
		{"west wrap", -190, 170},
		{"full turn", 360, 0},
		{"multiple turns", 720 + 10, 10},
		{"negative multiple turns", -540, 180},
		{"boundary east preserved", 180, 180},
		{"boundary west preserved", -180, -180},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, NormalizeLongitude(tc.in), 1e-9)
		})
	}
}

func TestNormalizeLongitude_Idempotent(t *testing.T) {
	t.Parallel()

	for lon := -1000.0; lon <= 1000.0; lon += 7.3 {
		once := NormalizeLongitude(lon)
		assert.GreaterOrEqual(t, once, -180.0)
		assert.LessOrEqual(t, once, 180.0)
		assert.InDelta(t, once, NormalizeLongitude(once), 1e-9, "lon=%f", lon)
	}
}

func TestAverageLongitudes(t *testing.T) {
	t.Parallel()

	t.Run("empty returns zero", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, AverageLongitudes(nil))
	})

	t.Run("single returns itself", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 173.5, AverageLongitudes([]float64{173.5}))
	})

	t.Run("simple mean away from date line", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 20, AverageLongitudes([]float64{10, 30}), 1e-9)
	})

	t.Run("date line straddle", func(t *testing.T) {
		t.Parallel()
		avg := AverageLongitudes([]float64{179, -179})
		assert.Greater(t, math.Abs(avg), 170.0, "must average near ±180, not 0")
	})

	t.Run("three points near date line", func(t *testing.T) {
		t.Parallel()
		avg := AverageLongitudes([]float64{178, 179.5, -179.5})
		assert.Greater(t, math.Abs(avg), 170.0)
	})
}

func TestWeightedAverageLongitudes(t *testing.T) {
	t.Parallel()

	t.Run("weights pull toward heavier entry", func(t *testing.T) {
		t.Parallel()
		avg := WeightedAverageLongitudes([]float64{0, 10}, []float64{3, 1})
		assert.InDelta(t, 2.5, avg, 0.1)
	})

	t.Run("all zero weights fall back to unweighted", func(t *testing.T) {
		t.Parallel()
		avg := WeightedAverageLongitudes([]float64{10, 30}, []float64{0, 0})
		assert.InDelta(t, 20, avg, 1e-9)
	})

	t.Run("mismatched lengths fall back to unweighted", func(t *testing.T) {
		t.Parallel()
		avg := WeightedAverageLongitudes([]float64{10, 30}, []float64{1})
		assert.InDelta(t, 20, avg, 1e-9)
	})
}

func TestDistance(t *testing.T) {
	t.Parallel()

	t.Run("identical points", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, Distance(-41.3, 174.8, -41.3, 174.8))
	})

	t.Run("one degree latitude is about 111 km", func(t *testing.T) {
		t.Parallel()
		d := Distance(0, 0, 1, 0)
		assert.InDelta(t, 111.2, d, 1.0)
	})

	t.Run("wellington to christchurch", func(t *testing.T) {
		t.Parallel()
		d := Distance(-41.29, 174.78, -43.53, 172.64)
		assert.InDelta(t, 304, d, 10)
	})

	t.Run("across the date line stays short", func(t *testing.T) {
		t.Parallel()
		d := Distance(0, 179.9, 0, -179.9)
		assert.Less(t, d, 30.0, "must report the short arc, not ~40000 km")
		assert.InDelta(t, 22.2, d, 1.0)
	})

	t.Run("unnormalized input", func(t *testing.T) {
		t.Parallel()
		d := Distance(0, 360.0, 0, 0.2)
		assert.InDelta(t, 22.2, d, 1.0)
	})
}

func TestTimeDifference(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 90.0, TimeDifference(base, base.Add(90*time.Second)))
	assert.Equal(t, 90.0, TimeDifference(base.Add(90*time.Second), base))
	assert.Zero(t, TimeDifference(base, base))
}
