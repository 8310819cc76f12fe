package catalogue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/seismo-tools/quakemerge/internal/model"
)

// ReadGeoJSON parses a feature collection. Both USGS conventions (epoch
// millisecond "time", "mag"/"magType") and GeoNet conventions (RFC 3339
// "origintime", "magnitude"/"magnitudetype", "publicid") are understood.
// Depth comes from the third geometry coordinate when the properties omit it.
func ReadGeoJSON(data []byte, catalogueID string) (*Result, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "catalogue: parse GeoJSON")
	}

	result := &Result{}
	for _, feature := range fc.Features {
		point, ok := feature.Geometry.(*geom.Point)
		if !ok || point.Stride() < 2 {
			result.Skipped = append(result.Skipped,
				eris.Errorf("catalogue: feature %q has no point geometry", feature.ID))
			continue
		}
		coords := point.Coords()

		ev := model.Event{
			ID:          firstString(feature.Properties, "publicid", "id", "ids"),
			Latitude:    coords[1],
			Longitude:   coords[0],
			CatalogueID: catalogueID,
		}
		if ev.ID == "" {
			ev.ID = feature.ID
		}

		if mag := firstFloat(feature.Properties, "magnitude", "mag"); mag != nil {
			ev.Magnitude = *mag
		}
		ev.MagnitudeType = model.MagnitudeType(
			strings.TrimSpace(firstString(feature.Properties, "magnitudetype", "magType")))

		ev.Depth = firstFloat(feature.Properties, "depth")
		if ev.Depth == nil && len(coords) > 2 {
			ev.Depth = model.Float(coords[2])
		}

		ev.Time = featureTime(feature.Properties, "origintime", "time")
		ev.ModifiedAt = featureTime(feature.Properties, "modificationtime", "updated")

		ev.Source = firstString(feature.Properties, "agency", "net", "source")
		if ev.Source == "" {
			ev.Source = catalogueID
		}

		result.accept(ev)
	}
	return result, nil
}

// firstFloat returns the first numeric property found under the given keys.
func firstFloat(props map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		switch v := props[key].(type) {
		case float64:
			return model.Float(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return model.Float(f)
			}
		}
	}
	return nil
}

func firstString(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// featureTime reads a timestamp property: either an RFC 3339 string or a
// USGS-style epoch-millisecond number.
func featureTime(props map[string]interface{}, keys ...string) *time.Time {
	for _, key := range keys {
		switch v := props[key].(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return model.Timestamp(ts.UTC())
			}
		case float64:
			return model.Timestamp(time.UnixMilli(int64(v)).UTC())
		}
	}
	return nil
}
