package authority

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
)

// Region is a named polygon used for regional authority overrides. The
// polygon is in lon/lat order (GeoJSON convention).
type Region struct {
	Name    string
	polygon *geom.Polygon
}

// NewRegion wraps an existing polygon.
func NewRegion(name string, polygon *geom.Polygon) *Region {
	return &Region{Name: name, polygon: polygon}
}

// NewRegionFromRing builds a region from a single outer ring of [lon, lat]
// vertices. The ring is closed automatically if the input is open.
func NewRegionFromRing(name string, ring [][2]float64) (*Region, error) {
	if len(ring) < 3 {
		return nil, eris.Errorf("authority: region %q ring needs at least 3 vertices", name)
	}
	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, v := range ring {
		coords = append(coords, geom.Coord{v[0], v[1]})
	}
	if coords[0][0] != coords[len(coords)-1][0] || coords[0][1] != coords[len(coords)-1][1] {
		coords = append(coords, coords[0])
	}

	polygon := geom.NewPolygon(geom.XY)
	if _, err := polygon.SetCoords([][]geom.Coord{coords}); err != nil {
		return nil, eris.Wrapf(err, "authority: build region %q", name)
	}
	return &Region{Name: name, polygon: polygon}, nil
}

// Contains reports whether the point lies inside the region. The first
// polygon ring is the shell; remaining rings are holes.
func (r *Region) Contains(lat, lon float64) bool {
	if r == nil || r.polygon == nil || r.polygon.NumLinearRings() == 0 {
		return false
	}
	p := geom.Coord{geodesy.NormalizeLongitude(lon), lat}
	if !xy.IsPointInRing(r.polygon.Layout(), p, r.polygon.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < r.polygon.NumLinearRings(); i++ {
		if xy.IsPointInRing(r.polygon.Layout(), p, r.polygon.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// LoadRegionsGeoJSON parses a GeoJSON feature collection into regions. Each
// feature must carry a Polygon (or MultiPolygon, from which the first
// polygon is taken) and is named by its "name" property when present.
func LoadRegionsGeoJSON(data []byte) ([]*Region, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "authority: parse region GeoJSON")
	}

	var regions []*Region
	for _, feature := range fc.Features {
		var polygon *geom.Polygon
		switch g := feature.Geometry.(type) {
		case *geom.Polygon:
			polygon = g
		case *geom.MultiPolygon:
			if g.NumPolygons() > 0 {
				polygon = g.Polygon(0)
			}
		}
		if polygon == nil {
			continue
		}

		name := ""
		if v, ok := feature.Properties["name"].(string); ok {
			name = v
		}
		if name == "" {
			name = feature.ID
		}
		regions = append(regions, NewRegion(name, polygon))
	}
	return regions, nil
}
