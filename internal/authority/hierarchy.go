// Package authority ranks reporting agencies so the merge engine can pick an
// authoritative record when strategies call for one. The ranking is data
// driven: an ordered list of (priority, patterns, optional region override)
// entries matched against the event's source string, not a type hierarchy.
package authority

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/seismo-tools/quakemerge/internal/model"
	"github.com/seismo-tools/quakemerge/internal/quality"
)

// UnmatchedPriority ranks sources no hierarchy entry matches. Any configured
// entry outranks it.
const UnmatchedPriority = 99

// Entry is one rung of an authority hierarchy. Patterns are case-insensitive
// substrings tested against the source string; the first entry (in priority
// order) with a matching pattern wins. A region override promotes the entry
// to a different priority for events inside the region.
type Entry struct {
	Name     string           `yaml:"name"`
	Priority int              `yaml:"priority"`
	Patterns []string         `yaml:"patterns"`
	Regions  []RegionOverride `yaml:"regions,omitempty"`
}

// RegionOverride is a region-conditional priority for an entry.
type RegionOverride struct {
	Region   *Region `yaml:"region"`
	Priority int     `yaml:"priority"`
}

// Hierarchy is an ordered list of entries. Entries are kept sorted by
// priority so matching is a single forward scan.
type Hierarchy struct {
	entries []Entry
}

// NewHierarchy builds a hierarchy from the given entries, sorting them by
// priority. Equal priorities keep their given order.
func NewHierarchy(entries []Entry) *Hierarchy {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Hierarchy{entries: sorted}
}

// DefaultNetworkHierarchy ranks seismic networks for event-level authority.
// GeoNet leads for the New Zealand region this tool primarily serves.
func DefaultNetworkHierarchy() *Hierarchy {
	return NewHierarchy([]Entry{
		{Name: "GeoNet", Priority: 1, Patterns: []string{"geonet", "wel("}},
		{Name: "Global CMT", Priority: 2, Patterns: []string{"gcmt", "hrv", "harvard"}},
		{Name: "GFZ", Priority: 3, Patterns: []string{"gfz", "potsdam"}},
		{Name: "USGS", Priority: 4, Patterns: []string{"usgs", "neic", "us("}},
		{Name: "EMSC", Priority: 5, Patterns: []string{"emsc"}},
		{Name: "ISC", Priority: 6, Patterns: []string{"isc"}},
	})
}

// DefaultMechanismHierarchy ranks agencies for focal-mechanism authority,
// where the global moment-tensor catalogues outrank regional networks.
func DefaultMechanismHierarchy() *Hierarchy {
	return NewHierarchy([]Entry{
		{Name: "Global CMT", Priority: 1, Patterns: []string{"gcmt", "hrv", "harvard"}},
		{Name: "USGS", Priority: 2, Patterns: []string{"usgs", "neic"}},
		{Name: "GFZ", Priority: 3, Patterns: []string{"gfz", "potsdam"}},
		{Name: "GeoNet", Priority: 4, Patterns: []string{"geonet", "wel("}},
	})
}

// Entries returns a copy of the sorted entries.
func (h *Hierarchy) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// PriorityFor resolves the priority of a source string for an event at the
// given coordinates. The first entry with a matching pattern wins; its
// region overrides apply when the event falls inside the region. Unmatched
// sources get UnmatchedPriority.
func (h *Hierarchy) PriorityFor(source string, lat, lon float64) int {
	lower := strings.ToLower(source)
	for _, entry := range h.entries {
		if !matches(lower, entry.Patterns) {
			continue
		}
		priority := entry.Priority
		for _, ov := range entry.Regions {
			if ov.Region != nil && ov.Region.Contains(lat, lon) {
				priority = ov.Priority
				break
			}
		}
		return priority
	}
	return UnmatchedPriority
}

func matches(lowerSource string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(lowerSource, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// SelectAuthoritative returns the index of the highest-authority event.
// Same-priority candidates are broken by quality score, then by input order.
// Resolving over zero candidates is meaningless and fails loudly, unlike
// "no result among valid candidates" lookups which return nil.
func (h *Hierarchy) SelectAuthoritative(events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, eris.New("authority: cannot select from zero candidates")
	}

	best := 0
	bestPriority := h.PriorityFor(events[0].Source, events[0].Latitude, events[0].Longitude)
	bestQuality := quality.Score(&events[0])

	for i := 1; i < len(events); i++ {
		p := h.PriorityFor(events[i].Source, events[i].Latitude, events[i].Longitude)
		q := quality.Score(&events[i])
		if p < bestPriority || (p == bestPriority && q > bestQuality) {
			best = i
			bestPriority = p
			bestQuality = q
		}
	}
	return best, nil
}

// BestMechanism picks the authoritative focal mechanism across a group.
// Events without a mechanism are skipped; a group with none returns nil.
func (h *Hierarchy) BestMechanism(events []model.Event) *model.FocalMechanism {
	var best *model.FocalMechanism
	bestPriority := UnmatchedPriority + 1
	bestQuality := -1.0

	for i := range events {
		ev := &events[i]
		if ev.Mechanism == nil {
			continue
		}
		source := ev.Mechanism.Source
		if source == "" {
			source = ev.Source
		}
		p := h.PriorityFor(source, ev.Latitude, ev.Longitude)
		q := quality.Score(ev)
		if p < bestPriority || (p == bestPriority && q > bestQuality) {
			mech := *ev.Mechanism
			best = &mech
			bestPriority = p
			bestQuality = q
		}
	}
	return best
}
