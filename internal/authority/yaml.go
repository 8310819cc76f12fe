package authority

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// hierarchyFile is the on-disk YAML shape. Region polygons are given inline
// as [lon, lat] rings so a hierarchy file is self-contained.
type hierarchyFile struct {
	Entries []entryYAML `yaml:"hierarchy"`
}

type entryYAML struct {
	Name     string         `yaml:"name"`
	Priority int            `yaml:"priority"`
	Patterns []string       `yaml:"patterns"`
	Regions  []overrideYAML `yaml:"regions,omitempty"`
}

type overrideYAML struct {
	Name     string       `yaml:"name"`
	Priority int          `yaml:"priority"`
	Polygon  [][2]float64 `yaml:"polygon"`
}

// LoadHierarchyYAML reads an authority hierarchy from a YAML file. The file
// carries a top-level "hierarchy" list; each entry has name, priority,
// patterns, and optional region overrides with inline polygons.
func LoadHierarchyYAML(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "authority: read hierarchy file %s", path)
	}
	return ParseHierarchyYAML(data)
}

// ParseHierarchyYAML decodes YAML bytes into a Hierarchy.
func ParseHierarchyYAML(data []byte) (*Hierarchy, error) {
	var file hierarchyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "authority: parse hierarchy yaml")
	}
	if len(file.Entries) == 0 {
		return nil, eris.New("authority: hierarchy file has no entries")
	}

	entries := make([]Entry, 0, len(file.Entries))
	for _, e := range file.Entries {
		if e.Name == "" {
			return nil, eris.New("authority: hierarchy entry missing name")
		}
		if len(e.Patterns) == 0 {
			return nil, eris.Errorf("authority: entry %s has no patterns", e.Name)
		}
		entry := Entry{Name: e.Name, Priority: e.Priority, Patterns: e.Patterns}
		for _, ov := range e.Regions {
			region, err := NewRegionFromRing(ov.Name, ov.Polygon)
			if err != nil {
				return nil, eris.Wrapf(err, "authority: entry %s region %s", e.Name, ov.Name)
			}
			entry.Regions = append(entry.Regions, RegionOverride{
				Region:   region,
				Priority: ov.Priority,
			})
		}
		entries = append(entries, entry)
	}
	return NewHierarchy(entries), nil
}
