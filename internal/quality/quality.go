// Package quality scores how well constrained an event record is. Two scores
// are provided: a continuous composite used for merge tie-breaking, and the
// GeoNet-style 1..6 criteria grade used as an external quality badge.
package quality

import "github.com/seismo-tools/quakemerge/internal/model"

// Component weights for the composite score. Weights sum to 1; a missing
// metric contributes nothing, so absent data lowers the achievable score
// instead of failing.
const (
	weightStations       = 0.25
	weightAzimuthalGap   = 0.20
	weightRMS            = 0.20
	weightLocUncertainty = 0.15
	weightMagType        = 0.10
	weightMagUncertainty = 0.10
)

// Score returns a completeness/accuracy composite in [0, 1]. Every component
// is strictly monotonic in its metric, so between two otherwise identical
// records the one with more stations (or a smaller gap, RMS, or uncertainty)
// always scores higher.
func Score(ev *model.Event) float64 {
	var total float64

	if ev.Quality.UsedStationCount != nil {
		n := float64(*ev.Quality.UsedStationCount)
		if n < 0 {
			n = 0
		}
		total += weightStations * (n / (n + 20))
	}
	if ev.Quality.AzimuthalGap != nil {
		gap := clamp(*ev.Quality.AzimuthalGap, 0, 360)
		total += weightAzimuthalGap * ((360 - gap) / 360)
	}
	if ev.Quality.StandardError != nil && *ev.Quality.StandardError >= 0 {
		total += weightRMS * (1 / (1 + *ev.Quality.StandardError))
	}
	if ev.Uncertainty.Horizontal != nil && *ev.Uncertainty.Horizontal >= 0 {
		total += weightLocUncertainty * (1 / (1 + *ev.Uncertainty.Horizontal/5))
	}
	if cat := magCategory(ev.MagnitudeType); cat > 0 {
		total += weightMagType * (float64(cat) / 5)
	}
	if ev.Uncertainty.Magnitude != nil && *ev.Uncertainty.Magnitude >= 0 {
		total += weightMagUncertainty * (1 / (1 + 4**ev.Uncertainty.Magnitude))
	}

	return total
}

// magCategory mirrors magnitude.Category without importing it; quality sits
// below magnitude in the package graph.
func magCategory(t model.MagnitudeType) int {
	switch t {
	case model.MagMw, model.MagMww, model.MagMwb, model.MagMwc, model.MagMwr, model.MagMwmB:
		return 5
	case model.MagMs:
		return 4
	case model.MagMb, model.MagMB:
		return 3
	case model.MagML, model.MagMLv:
		return 2
	case model.MagMd, model.MagMc:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
