// Package magnitude reconciles magnitudes reported on different scales by
// converting them to a common moment-magnitude (Mw) basis with stated
// uncertainties. The regressions are published empirical fits for shallow
// regional seismicity; each conversion degrades near its scale's saturation
// region.
package magnitude

import (
	"math"

	"github.com/seismo-tools/quakemerge/internal/model"
)

// Result is a magnitude converted to the Mw scale.
type Result struct {
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
	// Exact is true only for moment-magnitude inputs, which need no conversion.
	Exact bool `json:"exact"`
}

// Comparison reports the Mw-normalized difference between two magnitudes.
type Comparison struct {
	DeltaMw     float64 `json:"delta_mw"`
	Uncertainty float64 `json:"uncertainty"`
}

// mwFamily covers every magnitude type already on the moment scale.
var mwFamily = map[model.MagnitudeType]bool{
	model.MagMw:   true,
	model.MagMww:  true,
	model.MagMwb:  true,
	model.MagMwc:  true,
	model.MagMwr:  true,
	model.MagMwmB: true,
}

// Category ranks magnitude types by how directly they measure seismic moment.
// Higher is better. Used by the merge engine to pick which report supplies the
// merged magnitude.
func Category(t model.MagnitudeType) int {
	switch {
	case mwFamily[t]:
		return 5
	case t == model.MagMs:
		return 4
	case t == model.MagMb || t == model.MagMB:
		return 3
	case t == model.MagML || t == model.MagMLv:
		return 2
	case t == model.MagMd || t == model.MagMc:
		return 1
	default:
		return 0
	}
}

// MLtoMw converts a local magnitude to Mw.
// Regression: Mw = 0.88*ML + 0.12, nominal uncertainty 0.1 inside the well
// constrained band [3, 6], growing outside it.
func MLtoMw(ml float64) Result {
	unc := 0.1
	if ml < 3 {
		unc += 0.05 * (3 - ml)
	} else if ml > 6 {
		unc += 0.1 * (ml - 6)
	}
	return Result{Value: 0.88*ml + 0.12, Uncertainty: unc}
}

// MbToMw converts a body-wave magnitude to Mw.
// Regression: Mw = 1.30*mb - 2.18. mb saturates above ~5.5, so the
// uncertainty widens there.
func MbToMw(mb float64) Result {
	unc := 0.25
	if mb >= 5.5 {
		unc += 0.15 * (mb - 5.5)
	}
	return Result{Value: 1.30*mb - 2.18, Uncertainty: unc}
}

// MsToMw converts a surface-wave magnitude to Mw using a two-segment fit with
// a break at Ms 6.1. Ms saturates near 8, widening the uncertainty.
func MsToMw(ms float64) Result {
	var value float64
	if ms < 6.1 {
		value = 0.67*ms + 2.07
	} else {
		value = 0.99*ms + 0.08
	}
	unc := 0.2
	if ms >= 8 {
		unc += 0.2 * (ms - 8)
	}
	return Result{Value: value, Uncertainty: unc}
}

// MdToML converts a duration (or coda) magnitude to ML.
// Regression: ML = 0.97*Md + 0.17.
func MdToML(md float64) Result {
	return Result{Value: 0.97*md + 0.17, Uncertainty: 0.2}
}

// MdToMw converts a duration magnitude to Mw by chaining Md->ML->Mw. The
// chained uncertainty is the root sum square of both steps, so it always
// exceeds the ML->Mw uncertainty alone.
func MdToMw(md float64) Result {
	ml := MdToML(md)
	mw := MLtoMw(ml.Value)
	return Result{
		Value:       mw.Value,
		Uncertainty: math.Sqrt(ml.Uncertainty*ml.Uncertainty + mw.Uncertainty*mw.Uncertainty),
	}
}

// ToMw converts any supported magnitude to Mw. Moment-scale inputs are
// returned as-is with zero uncertainty and Exact set. Unsupported types
// return nil so callers can decide whether to skip or flag the record.
func ToMw(value float64, t model.MagnitudeType) *Result {
	switch {
	case mwFamily[t]:
		return &Result{Value: value, Exact: true}
	case t == model.MagML || t == model.MagMLv:
		r := MLtoMw(value)
		return &r
	case t == model.MagMb || t == model.MagMB:
		r := MbToMw(value)
		return &r
	case t == model.MagMs:
		r := MsToMw(value)
		return &r
	case t == model.MagMd || t == model.MagMc:
		r := MdToMw(value)
		return &r
	default:
		return nil
	}
}

// Compare converts both magnitudes to Mw and reports the difference together
// with the combined (root-sum-square) conversion uncertainty. Comparing two
// magnitudes of the same type adds no conversion uncertainty, since any
// regression bias cancels. Returns nil if either type is unsupported.
func Compare(aVal float64, aType model.MagnitudeType, bVal float64, bType model.MagnitudeType) *Comparison {
	a := ToMw(aVal, aType)
	b := ToMw(bVal, bType)
	if a == nil || b == nil {
		return nil
	}

	var unc float64
	if aType != bType {
		unc = math.Sqrt(a.Uncertainty*a.Uncertainty + b.Uncertainty*b.Uncertainty)
	}
	return &Comparison{DeltaMw: a.Value - b.Value, Uncertainty: unc}
}

// Equivalent reports whether two magnitudes plausibly describe the same
// event strength: their Mw difference must be within tolerance once the
// conversion uncertainty is granted. Unsupported types are never equivalent.
func Equivalent(aVal float64, aType model.MagnitudeType, bVal float64, bType model.MagnitudeType, tolerance float64) bool {
	cmp := Compare(aVal, aType, bVal, bType)
	if cmp == nil {
		return false
	}
	return math.Abs(cmp.DeltaMw) <= tolerance+cmp.Uncertainty
}
