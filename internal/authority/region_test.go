package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegionFromRing(t *testing.T) {
	t.Parallel()

	t.Run("open ring is closed", func(t *testing.T) {
		t.Parallel()
		r, err := NewRegionFromRing("box", [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
		require.NoError(t, err)
		assert.True(t, r.Contains(5, 5))
		assert.False(t, r.Contains(5, 15))
	})

	t.Run("too few vertices", func(t *testing.T) {
		t.Parallel()
		_, err := NewRegionFromRing("line", [][2]float64{{0, 0}, {10, 10}})
		require.Error(t, err)
	})
}

func TestRegionContains(t *testing.T) {
	t.Parallel()

	t.Run("nil region contains nothing", func(t *testing.T) {
		t.Parallel()
		var r *Region
		assert.False(t, r.Contains(0, 0))
	})

	t.Run("longitude normalized before test", func(t *testing.T) {
		t.Parallel()
		r, err := NewRegionFromRing("nz", [][2]float64{
			{165, -48}, {180, -48}, {180, -33}, {165, -33},
		})
		require.NoError(t, err)
		// 174.8 expressed as 174.8-360 should land inside too.
		assert.True(t, r.Contains(-41.3, 174.8))
		assert.True(t, r.Contains(-41.3, 174.8-360))
	})
}

func TestLoadRegionsGeoJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {"name": "north-island"},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[172, -42], [179, -42], [179, -34], [172, -34], [172, -42]]]
				}
			},
			{
				"type": "Feature",
				"properties": {},
				"geometry": {"type": "Point", "coordinates": [0, 0]}
			}
		]
	}`)

	regions, err := LoadRegionsGeoJSON(data)
	require.NoError(t, err)
	require.Len(t, regions, 1, "non-polygon features are skipped")
	assert.Equal(t, "north-island", regions[0].Name)
	assert.True(t, regions[0].Contains(-41.3, 174.8))
	assert.False(t, regions[0].Contains(-44.5, 170.0))
}
