package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismo-tools/quakemerge/internal/model"
)

func TestBBox_ContainsPoint(t *testing.T) {
	t.Parallel()

	plain := BBox{MinLat: -45, MaxLat: -35, MinLon: 165, MaxLon: 179}
	assert.True(t, plain.ContainsPoint(-41, 174))
	assert.False(t, plain.ContainsPoint(-30, 174))
	assert.False(t, plain.ContainsPoint(-41, -179))

	wrapped := BBox{MinLat: -10, MaxLat: 10, MinLon: 170, MaxLon: -170}
	assert.True(t, wrapped.Wraps())
	assert.True(t, wrapped.ContainsPoint(0, 175))
	assert.True(t, wrapped.ContainsPoint(0, -175))
	assert.True(t, wrapped.ContainsPoint(0, 180))
	assert.False(t, wrapped.ContainsPoint(0, 0))
}

func TestBBox_Intersects(t *testing.T) {
	t.Parallel()

	a := BBox{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 10}

	t.Run("plain overlap", func(t *testing.T) {
		t.Parallel()
		assert.True(t, a.Intersects(BBox{MinLat: 5, MaxLat: 15, MinLon: 5, MaxLon: 15}))
		assert.False(t, a.Intersects(BBox{MinLat: 20, MaxLat: 30, MinLon: 0, MaxLon: 10}))
		assert.False(t, a.Intersects(BBox{MinLat: 0, MaxLat: 10, MinLon: 20, MaxLon: 30}))
	})

	t.Run("wrapped query against east side", func(t *testing.T) {
		t.Parallel()
		wrapped := BBox{MinLat: 0, MaxLat: 10, MinLon: 175, MaxLon: -175}
		east := BBox{MinLat: 0, MaxLat: 10, MinLon: 176, MaxLon: 179}
		west := BBox{MinLat: 0, MaxLat: 10, MinLon: -179, MaxLon: -176}
		clear := BBox{MinLat: 0, MaxLat: 10, MinLon: -90, MaxLon: 90}
		assert.True(t, wrapped.Intersects(east))
		assert.True(t, wrapped.Intersects(west))
		assert.True(t, east.Intersects(wrapped))
		assert.False(t, wrapped.Intersects(clear))
	})
}

func TestNewTreeIndex_Empty(t *testing.T) {
	t.Parallel()

	tree := NewTreeIndex(nil)
	assert.Zero(t, tree.TotalEvents())
	assert.Equal(t, 1, tree.NodeCount())
	assert.Empty(t, tree.Query(BBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}, nil))
}

func TestTreeIndex_SplitsAndPreservesTotal(t *testing.T) {
	t.Parallel()

	var events []model.Event
	for i := 0; i < 200; i++ {
		lat := -45.0 + float64(i%20)*0.5
		lon := 165.0 + float64(i/20)*0.8
		events = append(events, eventAt("ev", lat, lon))
	}

	tree := NewTreeIndex(events, WithSplitThreshold(16))
	assert.Equal(t, 200, tree.TotalEvents())
	assert.Greater(t, tree.NodeCount(), 1, "dense input must split")

	// Every event is found by a whole-extent query exactly once.
	all := tree.Query(BBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}, events)
	assert.Len(t, all, 200)
	seen := make(map[int]int)
	for _, idx := range all {
		seen[idx]++
	}
	for idx, count := range seen {
		assert.Equal(t, 1, count, "event %d duplicated across leaves", idx)
	}
}

func TestTreeIndex_DepthBoundOnDegenerateInput(t *testing.T) {
	t.Parallel()

	// All events at the identical location can never be separated by
	// splitting; the depth bound must stop the recursion.
	var events []model.Event
	for i := 0; i < 500; i++ {
		events = append(events, eventAt("same", -41.3, 174.8))
	}

	tree := NewTreeIndex(events, WithSplitThreshold(8), WithMaxDepth(6))
	assert.Equal(t, 500, tree.TotalEvents())
	for _, n := range tree.nodes {
		assert.LessOrEqual(t, n.depth, 6)
	}
}

func TestTreeIndex_QueryDescendsOnlyIntersectingBoxes(t *testing.T) {
	t.Parallel()

	events := []model.Event{
		eventAt("nz", -41.3, 174.8),
		eventAt("japan", 35.7, 139.7),
		eventAt("chile", -33.4, -70.7),
		eventAt("fiji east", -17.5, 179.8),
		eventAt("fiji west", -17.6, -179.9),
	}
	tree := NewTreeIndex(events)

	t.Run("regional box", func(t *testing.T) {
		t.Parallel()
		got := tree.Query(BBox{MinLat: -50, MaxLat: -30, MinLon: 160, MaxLon: 180}, events)
		require.Len(t, got, 1)
		assert.Equal(t, 0, got[0])
	})

	t.Run("wrapped box finds both sides of the date line", func(t *testing.T) {
		t.Parallel()
		got := tree.Query(BBox{MinLat: -25, MaxLat: -10, MinLon: 175, MaxLon: -175}, events)
		assert.ElementsMatch(t, []int{3, 4}, got)
	})

	t.Run("empty region", func(t *testing.T) {
		t.Parallel()
		got := tree.Query(BBox{MinLat: 60, MaxLat: 80, MinLon: 0, MaxLon: 20}, events)
		assert.Empty(t, got)
	})
}
