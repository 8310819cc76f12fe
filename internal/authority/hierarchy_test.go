package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismo-tools/quakemerge/internal/model"
)

func sourcedEvent(source string, stations int) model.Event {
	return model.Event{
		ID:        source + "-ev",
		Latitude:  -41.3,
		Longitude: 174.8,
		Magnitude: 5.0,
		Source:    source,
		Quality:   model.QualityMetrics{UsedStationCount: model.Int(stations)},
	}
}

func TestPriorityFor(t *testing.T) {
	t.Parallel()

	h := DefaultNetworkHierarchy()

	tests := []struct {
		source string
		want   int
	}{
		{"GeoNet", 1},
		{"WEL(GNS_Primary)", 1},
		{"USGS NEIC", 4},
		{"us(anss)", 4},
		{"EMSC-CSEM", 5},
		{"ISC", 6},
		{"unknown-network", UnmatchedPriority},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.PriorityFor(tt.source, -41.3, 174.8))
		})
	}
}

func TestSelectAuthoritative(t *testing.T) {
	t.Parallel()

	h := DefaultNetworkHierarchy()

	t.Run("geonet beats usgs regardless of order", func(t *testing.T) {
		t.Parallel()
		events := []model.Event{sourcedEvent("USGS", 400), sourcedEvent("GeoNet", 20)}
		idx, err := h.SelectAuthoritative(events)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)

		idx, err = h.SelectAuthoritative([]model.Event{events[1], events[0]})
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("same priority falls back to quality", func(t *testing.T) {
		t.Parallel()
		events := []model.Event{
			sourcedEvent("geonet-primary", 8),
			sourcedEvent("WEL(GNS_Primary)", 60),
		}
		idx, err := h.SelectAuthoritative(events)
		require.NoError(t, err)
		assert.Equal(t, 1, idx, "more used stations should win the tie")
	})

	t.Run("full tie keeps input order", func(t *testing.T) {
		t.Parallel()
		events := []model.Event{sourcedEvent("ISC", 30), sourcedEvent("ISC", 30)}
		idx, err := h.SelectAuthoritative(events)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("empty candidates errors", func(t *testing.T) {
		t.Parallel()
		_, err := h.SelectAuthoritative(nil)
		require.Error(t, err)
	})
}

func TestRegionOverride(t *testing.T) {
	t.Parallel()

	// A box around New Zealand demotes USGS below ISC inside it.
	nz, err := NewRegionFromRing("nz", [][2]float64{
		{165, -48}, {180, -48}, {180, -33}, {165, -33},
	})
	require.NoError(t, err)

	h := NewHierarchy([]Entry{
		{Name: "USGS", Priority: 2, Patterns: []string{"usgs"},
			Regions: []RegionOverride{{Region: nz, Priority: 8}}},
		{Name: "ISC", Priority: 5, Patterns: []string{"isc"}},
	})

	// Inside the box the override applies, outside it does not.
	assert.Equal(t, 8, h.PriorityFor("USGS", -41.3, 174.8))
	assert.Equal(t, 2, h.PriorityFor("USGS", 35.7, 139.7))
	assert.Equal(t, 5, h.PriorityFor("ISC", -41.3, 174.8))

	inside := []model.Event{sourcedEvent("USGS", 100), sourcedEvent("ISC", 100)}
	idx, err := h.SelectAuthoritative(inside)
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "ISC should win inside the override region")
}

func TestBestMechanism(t *testing.T) {
	t.Parallel()

	h := DefaultMechanismHierarchy()

	t.Run("no mechanisms returns nil", func(t *testing.T) {
		t.Parallel()
		events := []model.Event{sourcedEvent("GeoNet", 40), sourcedEvent("USGS", 40)}
		assert.Nil(t, h.BestMechanism(events))
	})

	t.Run("gcmt outranks geonet for mechanisms", func(t *testing.T) {
		t.Parallel()
		geonet := sourcedEvent("GeoNet", 200)
		geonet.Mechanism = &model.FocalMechanism{Strike: 220, Dip: 40, Rake: 90}
		gcmt := sourcedEvent("GCMT", 10)
		gcmt.Mechanism = &model.FocalMechanism{Strike: 215, Dip: 38, Rake: 95}

		best := h.BestMechanism([]model.Event{geonet, gcmt})
		require.NotNil(t, best)
		assert.InDelta(t, 215.0, best.Strike, 1e-9)
	})

	t.Run("mechanism source overrides event source", func(t *testing.T) {
		t.Parallel()
		ev := sourcedEvent("GeoNet", 40)
		ev.Mechanism = &model.FocalMechanism{Strike: 10, Dip: 80, Rake: -170, Source: "GCMT"}
		other := sourcedEvent("USGS", 40)
		other.Mechanism = &model.FocalMechanism{Strike: 100, Dip: 45, Rake: 0}

		best := h.BestMechanism([]model.Event{other, ev})
		require.NotNil(t, best)
		assert.InDelta(t, 10.0, best.Strike, 1e-9)
	})
}

func TestParseHierarchyYAML(t *testing.T) {
	t.Parallel()

	t.Run("valid file with region override", func(t *testing.T) {
		t.Parallel()
		data := []byte(`
hierarchy:
  - name: GeoNet
    priority: 1
    patterns: [geonet, "wel("]
  - name: USGS
    priority: 4
    patterns: [usgs, neic]
    regions:
      - name: nz
        priority: 9
        polygon: [[165, -48], [180, -48], [180, -33], [165, -33]]
`)
		h, err := ParseHierarchyYAML(data)
		require.NoError(t, err)
		assert.Equal(t, 1, h.PriorityFor("GeoNet", -41.3, 174.8))
		assert.Equal(t, 9, h.PriorityFor("USGS", -41.3, 174.8))
		assert.Equal(t, 4, h.PriorityFor("USGS", 35.7, 139.7))
	})

	t.Run("entry without patterns rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseHierarchyYAML([]byte("hierarchy:\n  - name: GeoNet\n    priority: 1\n"))
		require.Error(t, err)
	})

	t.Run("empty file rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseHierarchyYAML([]byte("hierarchy: []\n"))
		require.Error(t, err)
	})
}
