package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismo-tools/quakemerge/internal/matcher"
	"github.com/seismo-tools/quakemerge/internal/model"
)

var t0 = time.Date(2024, 2, 10, 14, 5, 0, 0, time.UTC)

func reported(id string, lat, lon, mag float64, at time.Time) model.Event {
	return model.Event{
		ID:        id,
		Time:      model.Timestamp(at),
		Latitude:  lat,
		Longitude: lon,
		Magnitude: mag,
	}
}

func moderateDetector() *Detector {
	return NewDetector(matcher.New(30, 25, 0.70, true))
}

func TestDetector_FindPairs_SmallCatalogue(t *testing.T) {
	t.Parallel()

	events := []model.Event{
		reported("geonet-1", -41.30, 174.80, 4.5, t0),
		reported("usgs-1", -41.31, 174.82, 4.6, t0.Add(4*time.Second)),
		reported("geonet-2", -38.00, 176.00, 3.0, t0.Add(6*time.Hour)),
	}

	pairs := moderateDetector().FindPairs(events)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].A)
	assert.Equal(t, 1, pairs[0].B)
	assert.GreaterOrEqual(t, pairs[0].Score, 0.70)
}

func TestDetector_FindPairs_UsesIndexForLargeCatalogue(t *testing.T) {
	t.Parallel()

	// Spread background seismicity far apart, then plant one duplicate pair.
	var events []model.Event
	for i := 0; i < 60; i++ {
		lat := -45.0 + float64(i)*0.9
		events = append(events, reported(fmt.Sprintf("bg-%d", i), lat, 100.0+float64(i)*1.7, 3.0, t0.Add(time.Duration(i)*time.Hour)))
	}
	events = append(events,
		reported("dup-a", 10.0, 10.0, 4.0, t0),
		reported("dup-b", 10.01, 10.01, 4.1, t0.Add(5*time.Second)),
	)

	pairs := moderateDetector().FindPairs(events)
	require.Len(t, pairs, 1)
	assert.Equal(t, 60, pairs[0].A)
	assert.Equal(t, 61, pairs[0].B)
}

func TestDetector_FindPairs_NeighborCellsMatch(t *testing.T) {
	t.Parallel()

	// Two reports of one quake landing in adjacent grid cells must still be
	// found through the 3x3 neighborhood scan.
	var events []model.Event
	for i := 0; i < 60; i++ {
		events = append(events, reported(fmt.Sprintf("bg-%d", i), 30.0+float64(i)*0.7, -120.0+float64(i)*0.9, 3.0, t0.Add(time.Duration(i+10)*time.Hour)))
	}
	events = append(events,
		reported("edge-a", 1.999, 10.0, 4.0, t0),                    // cell lat bucket 0 at 2-degree cells
		reported("edge-b", 2.001, 10.0, 4.0, t0.Add(2*time.Second)), // cell lat bucket 1
	)

	pairs := moderateDetector().FindPairs(events)
	require.Len(t, pairs, 1)
	assert.Equal(t, 60, pairs[0].A)
	assert.Equal(t, 61, pairs[0].B)
}

func TestDetector_FindPairs_DeepLargeMagnitudeReach(t *testing.T) {
	t.Parallel()

	// A deep M7.5 pair is held to a 150 km distance threshold under these
	// settings, wider than a 3x3 scan over density-derived cells covers. The
	// indexed path must find exactly what the all-pairs scan finds.
	deep := func(id string, lat float64) model.Event {
		ev := reported(id, lat, 174.0, 7.5, t0)
		ev.Depth = model.Float(350)
		return ev
	}
	events := []model.Event{deep("deep-a", -40.9), deep("deep-b", -42.2)}
	for i := 0; i < 250; i++ {
		events = append(events, reported(fmt.Sprintf("bg-%d", i), 40.0+float64(i%10), float64(5*(i/10)), 3.0, t0.Add(time.Duration(i+1)*time.Hour)))
	}

	d := moderateDetector()
	require.GreaterOrEqual(t, matcher.New(30, 25, 0.70, true).Similarity(&events[0], &events[1]), 0.70,
		"the planted pair must score as a duplicate on its own")

	pairs := d.FindPairs(events)
	assert.Equal(t, d.bruteForcePairs(events), pairs)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].A)
	assert.Equal(t, 1, pairs[0].B)
}

func TestDetector_FindGroups(t *testing.T) {
	t.Parallel()

	// Chain a-b and b-c overlap into one group of three; d is separate.
	events := []model.Event{
		reported("a", -41.300, 174.800, 4.5, t0),
		reported("b", -41.305, 174.805, 4.5, t0.Add(3*time.Second)),
		reported("c", -41.310, 174.810, 4.6, t0.Add(6*time.Second)),
		reported("d", 35.00, 139.00, 5.0, t0),
		reported("e", 35.01, 139.01, 5.0, t0.Add(2*time.Second)),
	}

	groups := moderateDetector().FindGroups(events)
	require.Len(t, groups, 2)

	assert.Len(t, groups[0].Events, 3)
	assert.Equal(t, "a", groups[0].Events[0].ID)
	assert.Len(t, groups[1].Events, 2)
	assert.Equal(t, "d", groups[1].Events[0].ID)
}

func TestDetector_FindGroups_SelectsBestQualityMember(t *testing.T) {
	t.Parallel()

	strong := reported("well-constrained", -41.301, 174.801, 4.5, t0.Add(time.Second))
	strong.Quality.UsedStationCount = model.Int(40)
	strong.Quality.AzimuthalGap = model.Float(70)

	weak := reported("sparse", -41.300, 174.800, 4.5, t0)
	weak.Quality.UsedStationCount = model.Int(5)

	groups := moderateDetector().FindGroups([]model.Event{weak, strong})
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].SelectedEventIndex)
	assert.Equal(t, "well-constrained", groups[0].Selected().ID)
}

func TestDetector_FindGroups_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, moderateDetector().FindGroups(nil))
	assert.Nil(t, moderateDetector().FindGroups([]model.Event{
		reported("solo", -41.3, 174.8, 4.0, t0),
	}))
}

func TestDetector_Deterministic(t *testing.T) {
	t.Parallel()

	var events []model.Event
	for i := 0; i < 120; i++ {
		lat := -44.0 + float64(i%12)*0.01
		lon := 170.0 + float64(i/12)*0.01
		events = append(events, reported(fmt.Sprintf("ev-%d", i), lat, lon, 3.5, t0.Add(time.Duration(i%4)*time.Second)))
	}

	d := moderateDetector()
	first := d.FindGroups(events)
	second := d.FindGroups(events)
	assert.Equal(t, first, second)
}
