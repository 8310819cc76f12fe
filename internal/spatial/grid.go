// Package spatial provides the indexes the duplicate detector uses to avoid
// quadratic comparison: a flat degree grid for neighborhood lookups and a
// bounded-depth quad tree for bounding-box queries over large catalogues.
package spatial

import (
	"math"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// cellKey identifies one grid cell. Lon buckets wrap at the date line.
type cellKey struct {
	Lat int
	Lon int
}

// GridIndex buckets events into fixed-size lat/lon cells. The cell size is
// picked once per catalogue from its event count, floored by the caller's
// required reach. Every event lands in exactly one cell; neighbor queries
// scan the 3x3 block around a point so near-boundary pairs are never missed.
type GridIndex struct {
	cellSize   float64
	lonBuckets int
	minLonBkt  int
	cells      map[cellKey][]int
}

// cellSizeFor derives a cell size in degrees from the catalogue size. Sparse
// catalogues get coarse cells so the cell count stays proportionate; dense
// ones get finer cells to keep occupancy low. An empty catalogue gets the
// degenerate 1-degree default.
func cellSizeFor(n int) float64 {
	switch {
	case n <= 0:
		return 1.0
	case n < 200:
		return 2.0
	case n < 5000:
		return 1.0
	case n < 50000:
		return 0.5
	default:
		return 0.25
	}
}

// snapCellSize raises size to the smallest divisor of 360 that is at least
// min. Longitude bucket wrapping needs the cell count around the circle to
// be exact.
func snapCellSize(size, min float64) float64 {
	if min <= size {
		return size
	}
	n := math.Floor(360 / min)
	if n < 1 {
		n = 1
	}
	return 360 / n
}

// NewGridIndex builds a grid over the given events. minCellDegrees floors the
// cell size so every pair within that separation is caught by a 3x3 scan;
// callers derive it from the widest distance threshold a pair can be held to.
// Pass 0 for the density-derived size alone. The floor is meridionally exact;
// longitude cells are degree-based, so the guarantee narrows toward the
// poles. The events slice is not retained; only indices into it are.
func NewGridIndex(events []model.Event, minCellDegrees float64) *GridIndex {
	size := snapCellSize(cellSizeFor(len(events)), minCellDegrees)
	g := &GridIndex{
		cellSize:   size,
		lonBuckets: int(math.Round(360 / size)),
		minLonBkt:  int(math.Floor(-180 / size)),
		cells:      make(map[cellKey][]int),
	}
	for i, ev := range events {
		k := g.keyFor(ev.Latitude, ev.Longitude)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

// CellSize returns the grid cell size in degrees.
func (g *GridIndex) CellSize() float64 { return g.cellSize }

// CellCount returns the number of occupied cells.
func (g *GridIndex) CellCount() int { return len(g.cells) }

func (g *GridIndex) keyFor(lat, lon float64) cellKey {
	return cellKey{
		Lat: int(math.Floor(lat / g.cellSize)),
		Lon: g.wrapLonBucket(int(math.Floor(geodesy.NormalizeLongitude(lon) / g.cellSize))),
	}
}

// wrapLonBucket maps a raw longitude bucket onto the circular bucket range,
// so +180 and -180 land in the same cell and neighbor scans wrap around.
func (g *GridIndex) wrapLonBucket(b int) int {
	offset := ((b-g.minLonBkt)%g.lonBuckets + g.lonBuckets) % g.lonBuckets
	return g.minLonBkt + offset
}

// Neighbors returns the indices of all events in the cell containing the
// point plus the 8 adjacent cells. Order follows scan order over the block
// and insertion order within a cell, so results are deterministic.
func (g *GridIndex) Neighbors(lat, lon float64) []int {
	center := g.keyFor(lat, lon)

	var out []int
	for dLat := -1; dLat <= 1; dLat++ {
		for dLon := -1; dLon <= 1; dLon++ {
			k := cellKey{
				Lat: center.Lat + dLat,
				Lon: g.wrapLonBucket(center.Lon + dLon),
			}
			out = append(out, g.cells[k]...)
		}
	}
	return out
}
