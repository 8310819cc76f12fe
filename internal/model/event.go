package model

import "time"

// MagnitudeType identifies the scale a magnitude was reported on.
type MagnitudeType string

const (
	MagML      MagnitudeType = "ML"     // local (Richter)
	MagMLv     MagnitudeType = "MLv"    // local, vertical component
	MagMb      MagnitudeType = "mb"     // body wave
	MagMB      MagnitudeType = "mB"     // broadband body wave
	MagMs      MagnitudeType = "Ms"     // surface wave
	MagMd      MagnitudeType = "Md"     // duration
	MagMc      MagnitudeType = "Mc"     // coda
	MagMw      MagnitudeType = "Mw"     // moment
	MagMww     MagnitudeType = "Mww"    // moment, W-phase
	MagMwb     MagnitudeType = "Mwb"    // moment, body wave
	MagMwc     MagnitudeType = "Mwc"    // moment, centroid
	MagMwr     MagnitudeType = "Mwr"    // moment, regional
	MagMwmB    MagnitudeType = "Mw(mB)" // moment proxy from broadband mb
	MagUnknown MagnitudeType = ""
)

// QualityMetrics holds the location-quality measurements reported by a network.
// Every field is optional; absence means the network did not report it.
type QualityMetrics struct {
	UsedStationCount *int     `json:"used_station_count,omitempty"`
	UsedPhaseCount   *int     `json:"used_phase_count,omitempty"`
	AzimuthalGap     *float64 `json:"azimuthal_gap,omitempty"`    // degrees
	StandardError    *float64 `json:"standard_error,omitempty"`   // RMS residual, seconds
	MinimumDistance  *float64 `json:"minimum_distance,omitempty"` // km to nearest station
	MaximumDistance  *float64 `json:"maximum_distance,omitempty"` // km to farthest station
}

// Uncertainties holds per-field measurement uncertainties.
type Uncertainties struct {
	Time       *float64 `json:"time,omitempty"`       // seconds
	Horizontal *float64 `json:"horizontal,omitempty"` // km
	Depth      *float64 `json:"depth,omitempty"`      // km
	Magnitude  *float64 `json:"magnitude,omitempty"`  // magnitude units
}

// FocalMechanism is a double-couple source description in degrees.
type FocalMechanism struct {
	Strike float64 `json:"strike"`
	Dip    float64 `json:"dip"`
	Rake   float64 `json:"rake"`
	Source string  `json:"source,omitempty"` // reporting agency, if different from the event's
}

// Event is a normalized earthquake record as produced by the parser layer.
// It is never mutated by the merge core. Identifier, coordinates, and magnitude
// are required; everything else is optional and nil when unreported.
type Event struct {
	ID            string          `json:"id"`
	Time          *time.Time      `json:"time,omitempty"`  // origin time; nil means the source omitted it
	Latitude      float64         `json:"latitude"`        // [-90, 90]
	Longitude     float64         `json:"longitude"`       // normalized to [-180, 180] on entry
	Depth         *float64        `json:"depth,omitempty"` // km
	Magnitude     float64         `json:"magnitude"`
	MagnitudeType MagnitudeType   `json:"magnitude_type,omitempty"`
	Uncertainty   Uncertainties   `json:"uncertainty"`
	Quality       QualityMetrics  `json:"quality"`
	Mechanism     *FocalMechanism `json:"mechanism,omitempty"`
	Source        string          `json:"source,omitempty"`       // reporting agency/network
	CatalogueID   string          `json:"catalogue_id,omitempty"` // owning catalogue
	ModifiedAt    *time.Time      `json:"modified_at,omitempty"`  // last revision by the source
}

// HasDepth reports whether the event carries a depth estimate.
func (e *Event) HasDepth() bool {
	return e.Depth != nil
}

// HasTime reports whether the event carries an origin time.
func (e *Event) HasTime() bool {
	return e.Time != nil
}

// FieldCount returns the number of populated optional fields. Used by the
// most-complete-record merge strategy.
func (e *Event) FieldCount() int {
	n := 0
	if e.Time != nil {
		n++
	}
	if e.Depth != nil {
		n++
	}
	if e.MagnitudeType != MagUnknown {
		n++
	}
	if e.Mechanism != nil {
		n++
	}
	if e.Uncertainty.Time != nil {
		n++
	}
	if e.Uncertainty.Horizontal != nil {
		n++
	}
	if e.Uncertainty.Depth != nil {
		n++
	}
	if e.Uncertainty.Magnitude != nil {
		n++
	}
	if e.Quality.UsedStationCount != nil {
		n++
	}
	if e.Quality.UsedPhaseCount != nil {
		n++
	}
	if e.Quality.AzimuthalGap != nil {
		n++
	}
	if e.Quality.StandardError != nil {
		n++
	}
	if e.Quality.MinimumDistance != nil {
		n++
	}
	if e.Quality.MaximumDistance != nil {
		n++
	}
	return n
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Timestamp returns a pointer to t.
func Timestamp(t time.Time) *time.Time { return &t }
