package spatial

import (
	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// BBox is a geographic bounding box. A box with MinLon > MaxLon denotes a
// span that wraps the date line.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Wraps reports whether the box spans the date line.
func (b BBox) Wraps() bool { return b.MinLon > b.MaxLon }

// ContainsPoint reports whether the (lat, lon) point lies inside the box.
// The longitude is normalized first.
func (b BBox) ContainsPoint(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	lon = geodesy.NormalizeLongitude(lon)
	if b.Wraps() {
		return lon >= b.MinLon || lon <= b.MaxLon
	}
	return lon >= b.MinLon && lon <= b.MaxLon
}

// lonSpans splits the box's longitude coverage into plain intervals. A
// wrapped box yields two.
func (b BBox) lonSpans() [][2]float64 {
	if b.Wraps() {
		return [][2]float64{{b.MinLon, 180}, {-180, b.MaxLon}}
	}
	return [][2]float64{{b.MinLon, b.MaxLon}}
}

// Intersects reports whether two boxes overlap, handling date-line wrap on
// either side.
func (b BBox) Intersects(o BBox) bool {
	if b.MaxLat < o.MinLat || o.MaxLat < b.MinLat {
		return false
	}
	for _, s := range b.lonSpans() {
		for _, t := range o.lonSpans() {
			if s[0] <= t[1] && t[0] <= s[1] {
				return true
			}
		}
	}
	return false
}

const (
	// DefaultSplitThreshold is the leaf occupancy that triggers a quad split.
	DefaultSplitThreshold = 32
	// DefaultMaxDepth bounds recursion on degenerate inputs, e.g. a
	// catalogue where every event shares one location.
	DefaultMaxDepth = 12
)

// treeNode lives in the TreeIndex arena and references its children by arena
// index. children[0] < 0 marks a leaf.
type treeNode struct {
	box      BBox
	depth    int
	children [4]int32
	events   []int
}

func (n *treeNode) leaf() bool { return n.children[0] < 0 }

// TreeIndex is a bounded-depth quad tree over event locations. Nodes are kept
// in a flat arena addressed by index, which keeps the structure compact and
// cheap to traverse.
type TreeIndex struct {
	nodes          []treeNode
	splitThreshold int
	maxDepth       int
	total          int
}

// TreeOption configures a TreeIndex.
type TreeOption func(*TreeIndex)

// WithSplitThreshold overrides the leaf occupancy that triggers a split.
func WithSplitThreshold(n int) TreeOption {
	return func(t *TreeIndex) {
		if n > 0 {
			t.splitThreshold = n
		}
	}
}

// WithMaxDepth overrides the depth bound.
func WithMaxDepth(d int) TreeOption {
	return func(t *TreeIndex) {
		if d > 0 {
			t.maxDepth = d
		}
	}
}

// NewTreeIndex builds a quad tree over the given events. An empty catalogue
// produces a single empty root.
func NewTreeIndex(events []model.Event, opts ...TreeOption) *TreeIndex {
	t := &TreeIndex{
		splitThreshold: DefaultSplitThreshold,
		maxDepth:       DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(t)
	}

	root := treeNode{box: rootBox(events), children: [4]int32{-1, -1, -1, -1}}
	t.nodes = append(t.nodes, root)

	for i, ev := range events {
		t.insert(0, i, ev.Latitude, geodesy.NormalizeLongitude(ev.Longitude), events)
		t.total++
	}
	return t
}

// rootBox computes the data extent, or a whole-globe box for empty input.
func rootBox(events []model.Event) BBox {
	if len(events) == 0 {
		return BBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	}
	box := BBox{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	for _, ev := range events {
		lon := geodesy.NormalizeLongitude(ev.Longitude)
		if ev.Latitude < box.MinLat {
			box.MinLat = ev.Latitude
		}
		if ev.Latitude > box.MaxLat {
			box.MaxLat = ev.Latitude
		}
		if lon < box.MinLon {
			box.MinLon = lon
		}
		if lon > box.MaxLon {
			box.MaxLon = lon
		}
	}
	return box
}

func (t *TreeIndex) insert(node, idx int, lat, lon float64, events []model.Event) {
	n := &t.nodes[node]
	if n.leaf() {
		n.events = append(n.events, idx)
		if len(n.events) > t.splitThreshold && n.depth < t.maxDepth {
			t.split(node, events)
		}
		return
	}
	child := n.children[t.quadrant(node, lat, lon)]
	t.insert(int(child), idx, lat, lon, events)
}

// quadrant picks the child slot for a point: bit 0 = east of the lon
// midpoint, bit 1 = north of the lat midpoint.
func (t *TreeIndex) quadrant(node int, lat, lon float64) int {
	box := t.nodes[node].box
	midLat := (box.MinLat + box.MaxLat) / 2
	midLon := (box.MinLon + box.MaxLon) / 2
	q := 0
	if lon >= midLon {
		q |= 1
	}
	if lat >= midLat {
		q |= 2
	}
	return q
}

// split converts a leaf into an internal node with four child quadrants and
// redistributes its events.
func (t *TreeIndex) split(node int, events []model.Event) {
	box := t.nodes[node].box
	depth := t.nodes[node].depth
	midLat := (box.MinLat + box.MaxLat) / 2
	midLon := (box.MinLon + box.MaxLon) / 2

	quads := [4]BBox{
		{MinLat: box.MinLat, MaxLat: midLat, MinLon: box.MinLon, MaxLon: midLon},
		{MinLat: box.MinLat, MaxLat: midLat, MinLon: midLon, MaxLon: box.MaxLon},
		{MinLat: midLat, MaxLat: box.MaxLat, MinLon: box.MinLon, MaxLon: midLon},
		{MinLat: midLat, MaxLat: box.MaxLat, MinLon: midLon, MaxLon: box.MaxLon},
	}

	var children [4]int32
	for i, q := range quads {
		children[i] = int32(len(t.nodes))
		t.nodes = append(t.nodes, treeNode{
			box:      q,
			depth:    depth + 1,
			children: [4]int32{-1, -1, -1, -1},
		})
	}

	pending := t.nodes[node].events
	t.nodes[node].events = nil
	t.nodes[node].children = children

	for _, idx := range pending {
		ev := events[idx]
		lat := ev.Latitude
		lon := geodesy.NormalizeLongitude(ev.Longitude)
		child := t.nodes[node].children[t.quadrant(node, lat, lon)]
		t.insert(int(child), idx, lat, lon, events)
	}
}

// TotalEvents returns the number of indexed events, which always equals the
// sum over all leaves.
func (t *TreeIndex) TotalEvents() int { return t.total }

// NodeCount returns the arena size.
func (t *TreeIndex) NodeCount() int { return len(t.nodes) }

// Query returns the indices of all events whose location falls inside the
// query box. Only subtrees whose bounding box intersects the query are
// visited; wrapped query boxes are handled by the interval split in
// BBox.Intersects.
func (t *TreeIndex) Query(box BBox, events []model.Event) []int {
	var out []int
	t.query(0, box, events, &out)
	return out
}

func (t *TreeIndex) query(node int, box BBox, events []model.Event, out *[]int) {
	n := &t.nodes[node]
	if !n.box.Intersects(box) {
		return
	}
	if n.leaf() {
		for _, idx := range n.events {
			ev := events[idx]
			if box.ContainsPoint(ev.Latitude, ev.Longitude) {
				*out = append(*out, idx)
			}
		}
		return
	}
	for _, child := range n.children {
		t.query(int(child), box, events, out)
	}
}
