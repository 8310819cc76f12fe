package dedup

import (
	"sort"

	"go.uber.org/zap"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/matcher"
	"github.com/seismo-tools/quakemerge/internal/model"
	"github.com/seismo-tools/quakemerge/internal/quality"
	"github.com/seismo-tools/quakemerge/internal/spatial"
)

// bruteForceLimit is the catalogue size below which an all-pairs scan is
// cheaper than building the spatial index.
const bruteForceLimit = 50

// Pair is a candidate duplicate with its similarity score. A < B always.
type Pair struct {
	A     int     `json:"a"`
	B     int     `json:"b"`
	Score float64 `json:"score"`
}

// Detector finds duplicate groups over a catalogue.
type Detector struct {
	m *matcher.Matcher
}

// NewDetector creates a Detector using the given matcher.
func NewDetector(m *matcher.Matcher) *Detector {
	return &Detector{m: m}
}

// FindPairs returns all matching pairs. Large catalogues are scanned through
// the grid index so only spatially adjacent events are compared; small ones
// fall back to the all-pairs scan.
func (d *Detector) FindPairs(events []model.Event) []Pair {
	if len(events) <= bruteForceLimit {
		return d.bruteForcePairs(events)
	}
	return d.indexedPairs(events)
}

func (d *Detector) bruteForcePairs(events []model.Event) []Pair {
	var pairs []Pair
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			if score := d.m.Similarity(&events[i], &events[j]); score >= d.m.MinimumScore() {
				pairs = append(pairs, Pair{A: i, B: j, Score: score})
			}
		}
	}
	return pairs
}

func (d *Detector) indexedPairs(events []model.Event) []Pair {
	// Cell size must cover the widest threshold a pair can be held to, or
	// deep large-magnitude pairs would outrun the 3x3 neighborhood and be
	// found or missed depending on catalogue size.
	grid := spatial.NewGridIndex(events, d.m.MaxEffectiveDistanceKm()/geodesy.KmPerDegree)

	var pairs []Pair
	for i := range events {
		for _, j := range grid.Neighbors(events[i].Latitude, events[i].Longitude) {
			// Each unordered pair is evaluated once.
			if j <= i {
				continue
			}
			if score := d.m.Similarity(&events[i], &events[j]); score >= d.m.MinimumScore() {
				pairs = append(pairs, Pair{A: i, B: j, Score: score})
			}
		}
	}
	zap.L().Debug("dedup: candidate scan complete",
		zap.Int("events", len(events)),
		zap.Int("cells", grid.CellCount()),
		zap.Int("pairs", len(pairs)),
	)
	return pairs
}

// FindComponents unions overlapping pairs into connected components and
// returns them as sorted member-index lists. Only components with at least
// two members are returned, ordered by their smallest member index so two
// runs over the same input produce identical output.
func (d *Detector) FindComponents(events []model.Event) [][]int {
	pairs := d.FindPairs(events)
	if len(pairs) == 0 {
		return nil
	}

	parent := make([]int, len(events))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if ra > rb {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}
	for _, p := range pairs {
		union(p.A, p.B)
	}

	members := make(map[int][]int)
	for i := range events {
		root := find(i)
		members[root] = append(members[root], i)
	}

	roots := make([]int, 0, len(members))
	for root, m := range members {
		if len(m) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	components := make([][]int, 0, len(roots))
	for _, root := range roots {
		idxs := members[root]
		sort.Ints(idxs)
		components = append(components, idxs)
	}
	return components
}

// GroupFromIndexes builds a DuplicateGroup from component member indexes.
// Events keep catalogue order; the selected member is the one with the best
// quality score, lowest index winning ties.
func GroupFromIndexes(events []model.Event, idxs []int) model.DuplicateGroup {
	group := model.DuplicateGroup{Events: make([]model.Event, 0, len(idxs))}
	bestScore := -1.0
	for pos, idx := range idxs {
		group.Events = append(group.Events, events[idx])
		if s := quality.Score(&events[idx]); s > bestScore {
			bestScore = s
			group.SelectedEventIndex = pos
		}
	}
	return group
}

// FindGroups unions overlapping pairs into duplicate groups, one per
// connected component of at least two members.
func (d *Detector) FindGroups(events []model.Event) []model.DuplicateGroup {
	components := d.FindComponents(events)
	groups := make([]model.DuplicateGroup, 0, len(components))
	for _, idxs := range components {
		groups = append(groups, GroupFromIndexes(events, idxs))
	}

	zap.L().Info("dedup: grouping complete",
		zap.Int("events", len(events)),
		zap.Int("groups", len(groups)),
	)
	if len(groups) == 0 {
		return nil
	}
	return groups
}
