package dedup

import (
	"fmt"
	"math"

	"github.com/seismo-tools/quakemerge/internal/model"
)

const (
	// MaxDepthRangeKm is the depth spread beyond which a group is suspect.
	MaxDepthRangeKm = 50.0
	// MaxGroupSize is the sanity cap on group membership.
	MaxGroupSize = 15
)

// magnitudeRangeTolerance returns the acceptable magnitude spread for a
// group whose largest member has the given magnitude. Small events are
// located and measured consistently, so their tolerance is tight; for large
// events the scatter between networks is genuinely wider.
func magnitudeRangeTolerance(maxMag float64) float64 {
	switch {
	case maxMag < 4:
		return 0.5
	case maxMag < 5.5:
		return 0.8
	case maxMag < 7:
		return 1.2
	default:
		return 1.5
	}
}

// Validator flags physically implausible duplicate groups. Findings are
// never errors: they mark the group suspicious and land in the conflict log
// so batch processing continues past individual bad groups.
type Validator struct {
	log *ConflictLog
}

// NewValidator creates a Validator writing to the given conflict log.
func NewValidator(log *ConflictLog) *Validator {
	return &Validator{log: log}
}

// Validate checks a group and returns true when it passes. A failing group
// has Suspicious set, human-readable warnings appended, and one structured
// conflict logged per violation. Groups of size one are trivially valid and
// never touched.
func (v *Validator) Validate(group *model.DuplicateGroup, groupIndex int) bool {
	if group.Size() <= 1 {
		return true
	}

	ref := group.Selected().ID
	ok := true

	minMag, maxMag := math.Inf(1), math.Inf(-1)
	for _, ev := range group.Events {
		minMag = math.Min(minMag, ev.Magnitude)
		maxMag = math.Max(maxMag, ev.Magnitude)
	}
	if spread := maxMag - minMag; spread > magnitudeRangeTolerance(maxMag) {
		ok = false
		group.Suspicious = true
		msg := fmt.Sprintf("magnitude range %.2f exceeds tolerance %.2f for M%.1f group",
			spread, magnitudeRangeTolerance(maxMag), maxMag)
		group.Warnings = append(group.Warnings, msg)
		v.log.Log(Conflict{
			Type:       ConflictMagnitudeRange,
			Severity:   SeverityWarning,
			Message:    msg,
			GroupIndex: groupIndex,
			GroupRef:   ref,
		})
	}

	minDepth, maxDepth := math.Inf(1), math.Inf(-1)
	depthCount := 0
	for _, ev := range group.Events {
		if ev.Depth == nil {
			continue
		}
		depthCount++
		minDepth = math.Min(minDepth, *ev.Depth)
		maxDepth = math.Max(maxDepth, *ev.Depth)
	}
	if depthCount >= 2 {
		if spread := maxDepth - minDepth; spread > MaxDepthRangeKm {
			ok = false
			group.Suspicious = true
			msg := fmt.Sprintf("depth range %.1f km exceeds %.0f km", spread, MaxDepthRangeKm)
			group.Warnings = append(group.Warnings, msg)
			v.log.Log(Conflict{
				Type:       ConflictDepthRange,
				Severity:   SeverityWarning,
				Message:    msg,
				GroupIndex: groupIndex,
				GroupRef:   ref,
			})
		}
	}

	if group.Size() > MaxGroupSize {
		ok = false
		group.Suspicious = true
		msg := fmt.Sprintf("group has %d members, cap is %d", group.Size(), MaxGroupSize)
		group.Warnings = append(group.Warnings, msg)
		v.log.Log(Conflict{
			Type:       ConflictGroupSize,
			Severity:   SeverityError,
			Message:    msg,
			GroupIndex: groupIndex,
			GroupRef:   ref,
		})
	}

	return ok
}
