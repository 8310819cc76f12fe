package catalogue

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// futureTolerance allows for clock skew between source and local time.
const futureTolerance = time.Hour

// Validate checks a normalized record and normalizes its longitude in place.
// A non-nil error means the record must be skipped.
func Validate(ev *model.Event) error {
	if ev.ID == "" {
		return eris.New("catalogue: record has no identifier")
	}
	if math.IsNaN(ev.Latitude) || ev.Latitude < -90 || ev.Latitude > 90 {
		return eris.Errorf("catalogue: record %s: latitude %v out of range", ev.ID, ev.Latitude)
	}
	if math.IsNaN(ev.Longitude) || math.IsInf(ev.Longitude, 0) {
		return eris.Errorf("catalogue: record %s: longitude %v invalid", ev.ID, ev.Longitude)
	}
	ev.Longitude = geodesy.NormalizeLongitude(ev.Longitude)

	if math.IsNaN(ev.Magnitude) || ev.Magnitude < -2 || ev.Magnitude > 10 {
		return eris.Errorf("catalogue: record %s: magnitude %v out of range", ev.ID, ev.Magnitude)
	}
	if ev.Depth != nil && (*ev.Depth < -10 || *ev.Depth > 800) {
		return eris.Errorf("catalogue: record %s: depth %v km out of range", ev.ID, *ev.Depth)
	}
	if ev.Time != nil && ev.Time.After(time.Now().Add(futureTolerance)) {
		return eris.Errorf("catalogue: record %s: origin time %s is in the future", ev.ID, ev.Time.Format(time.RFC3339))
	}
	return nil
}
