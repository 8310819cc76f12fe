// Package matcher decides whether two event records describe the same
// physical earthquake. Thresholds adapt to event magnitude and depth: large
// events are located less precisely and deep events worse still, so the
// tolerances widen with both.
package matcher

import (
	"math"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/magnitude"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// Similarity component weights. Depth weight is redistributed across the
// other components when either event lacks a depth estimate.
const (
	weightTime      = 0.30
	weightDistance  = 0.30
	weightMagnitude = 0.25
	weightDepth     = 0.15
)

// Baseline tolerances for the depth and magnitude similarity components.
// These shape the decay curve only; the duplicate decision is driven by the
// configured time/distance thresholds and minimum score.
const (
	depthToleranceKm   = 50.0
	magnitudeTolerance = 1.0
)

// GetDistanceMultiplier scales the distance threshold by magnitude band.
// Boundary values land in the higher band.
func GetDistanceMultiplier(mag float64) float64 {
	switch {
	case mag < 4:
		return 1.0
	case mag < 5.5:
		return 1.5
	case mag < 7:
		return 2.5
	default:
		return 4.0
	}
}

// GetTimeMultiplier scales the time threshold by magnitude band.
func GetTimeMultiplier(mag float64) float64 {
	switch {
	case mag < 4:
		return 1.0
	case mag < 5.5:
		return 1.5
	case mag < 7:
		return 2.0
	default:
		return 3.0
	}
}

// GetDepthMultiplier scales the distance threshold by depth. A nil depth is
// treated as shallow.
func GetDepthMultiplier(depth *float64) float64 {
	switch {
	case depth == nil:
		return 1.0
	case *depth < 100:
		return 1.0
	case *depth < 300:
		return 1.2
	default:
		return 1.5
	}
}

// Matcher holds the base thresholds and similarity floor for one merge run.
type Matcher struct {
	baseTimeSeconds float64
	baseDistanceKm  float64
	minimumScore    float64
	adaptiveEnabled bool
}

// New creates a Matcher. When adaptive is false the base thresholds are used
// unscaled regardless of magnitude or depth.
func New(timeSeconds, distanceKm, minimumScore float64, adaptive bool) *Matcher {
	return &Matcher{
		baseTimeSeconds: timeSeconds,
		baseDistanceKm:  distanceKm,
		minimumScore:    minimumScore,
		adaptiveEnabled: adaptive,
	}
}

// EffectiveThresholds returns the time and distance thresholds for a pair
// characterized by its larger magnitude and deeper depth. The depth
// multiplier applies to distance only.
func (m *Matcher) EffectiveThresholds(mag float64, depth *float64) (timeSeconds, distanceKm float64) {
	timeSeconds = m.baseTimeSeconds
	distanceKm = m.baseDistanceKm
	if !m.adaptiveEnabled {
		return timeSeconds, distanceKm
	}
	timeSeconds *= GetTimeMultiplier(mag)
	distanceKm *= GetDistanceMultiplier(mag) * GetDepthMultiplier(depth)
	return timeSeconds, distanceKm
}

// MaxEffectiveDistanceKm returns the widest distance threshold any pair can
// be held to under this configuration: the base distance scaled by the top
// magnitude and depth bands when adaptive thresholds are enabled. Candidate
// generation must reach at least this far or distant large-event pairs are
// never scored.
func (m *Matcher) MaxEffectiveDistanceKm() float64 {
	if !m.adaptiveEnabled {
		return m.baseDistanceKm
	}
	deep := 300.0
	_, dist := m.EffectiveThresholds(7, &deep)
	return dist
}

// pairMagnitude characterizes a pair by its larger magnitude.
func pairMagnitude(a, b *model.Event) float64 {
	return math.Max(a.Magnitude, b.Magnitude)
}

// pairDepth characterizes a pair by its deeper available depth, nil when
// neither event reports one.
func pairDepth(a, b *model.Event) *float64 {
	switch {
	case a.Depth == nil:
		return b.Depth
	case b.Depth == nil:
		return a.Depth
	case *a.Depth >= *b.Depth:
		return a.Depth
	default:
		return b.Depth
	}
}

// decay is the Gaussian similarity kernel: 1.0 at zero difference, exactly
// 0.5 when the difference equals the threshold, smooth beyond.
func decay(diff, threshold float64) float64 {
	if threshold <= 0 {
		if diff == 0 {
			return 1
		}
		return 0
	}
	r := diff / threshold
	return math.Exp(-math.Ln2 * r * r)
}

// magnitudeDifference prefers the Mw-normalized difference when both types
// convert; otherwise it falls back to the raw difference.
func magnitudeDifference(a, b *model.Event) float64 {
	if cmp := magnitude.Compare(a.Magnitude, a.MagnitudeType, b.Magnitude, b.MagnitudeType); cmp != nil {
		return math.Abs(cmp.DeltaMw)
	}
	return math.Abs(a.Magnitude - b.Magnitude)
}

// Similarity scores how likely two events describe the same earthquake, in
// [0, 1]. An event without an origin time can never match, so such pairs
// score 0. Missing depth excludes the depth component and redistributes its
// weight over the remaining components.
func (m *Matcher) Similarity(a, b *model.Event) float64 {
	if !a.HasTime() || !b.HasTime() {
		return 0
	}

	timeThreshold, distThreshold := m.EffectiveThresholds(pairMagnitude(a, b), pairDepth(a, b))

	timeScore := decay(geodesy.TimeDifference(*a.Time, *b.Time), timeThreshold)
	distScore := decay(geodesy.Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude), distThreshold)
	magScore := decay(magnitudeDifference(a, b), magnitudeTolerance)

	weighted := weightTime*timeScore + weightDistance*distScore + weightMagnitude*magScore
	totalWeight := weightTime + weightDistance + weightMagnitude

	if a.HasDepth() && b.HasDepth() {
		depthScore := decay(math.Abs(*a.Depth-*b.Depth), depthToleranceKm)
		weighted += weightDepth * depthScore
		totalWeight += weightDepth
	}

	return weighted / totalWeight
}

// IsDuplicate reports whether the pair's similarity reaches the configured
// minimum. The comparison is inclusive: a score exactly at the minimum
// qualifies.
func (m *Matcher) IsDuplicate(a, b *model.Event) bool {
	return m.Similarity(a, b) >= m.minimumScore
}

// MinimumScore returns the configured similarity floor.
func (m *Matcher) MinimumScore() float64 { return m.minimumScore }
