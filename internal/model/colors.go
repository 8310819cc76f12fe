package model

import "sort"

// cataloguePalette is the fixed preview palette. Catalogues are assigned
// colors in sorted-ID order so the assignment is stable across runs.
var cataloguePalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// AssignCatalogueColors maps each catalogue ID to a display color. IDs beyond
// the palette size wrap around.
func AssignCatalogueColors(catalogueIDs []string) map[string]string {
	seen := make(map[string]struct{}, len(catalogueIDs))
	unique := make([]string, 0, len(catalogueIDs))
	for _, id := range catalogueIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)

	colors := make(map[string]string, len(unique))
	for i, id := range unique {
		colors[id] = cataloguePalette[i%len(cataloguePalette)]
	}
	return colors
}
