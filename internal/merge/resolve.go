package merge

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/magnitude"
	"github.com/seismo-tools/quakemerge/internal/model"
	"github.com/seismo-tools/quakemerge/internal/quality"
)

// Location weight clamp. 1/sigma for a near-zero uncertainty would otherwise
// let one member dominate the average entirely.
const (
	minLocationWeight = 0.01
	maxLocationWeight = 10.0
)

// mergedEventID derives a stable identifier from the contributing source
// IDs, so re-running the same merge yields the same merged record.
func mergedEventID(sourceIDs []string) string {
	sorted := make([]string, len(sourceIDs))
	copy(sorted, sourceIDs)
	sort.Strings(sorted)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(sorted, "|"))).String()
}

// resolveGroup collapses a duplicate group into one merged event. The base
// member, chosen by the configured strategy, supplies every field without a
// dedicated resolution rule; magnitude, depth, location, and mechanism are
// then resolved with their own rules.
func (e *Engine) resolveGroup(g *model.DuplicateGroup, cfg Config) model.MergedEvent {
	base := e.baseIndex(g, cfg)
	merged := g.Events[base]

	ids := make([]string, 0, len(g.Events))
	for i := range g.Events {
		ids = append(ids, g.Events[i].ID)
	}
	merged.ID = mergedEventID(ids)

	resolveMagnitude(&merged, g.Events)
	resolveDepth(&merged, g.Events)
	resolveLocation(&merged, g.Events)
	if cfg.Strategy == StrategyAverage {
		resolveAverageTime(&merged, g.Events)
		resolveAverageScalars(&merged, g.Events)
	}

	merged.Mechanism = e.mechanisms.BestMechanism(g.Events)

	var all []model.FocalMechanism
	for i := range g.Events {
		if g.Events[i].Mechanism != nil {
			all = append(all, *g.Events[i].Mechanism)
		}
	}

	return model.MergedEvent{Event: merged, SourceEventIDs: ids, AllMechanisms: all}
}

// baseIndex picks the member the strategy trusts for unresolved fields.
func (e *Engine) baseIndex(g *model.DuplicateGroup, cfg Config) int {
	switch cfg.Strategy {
	case StrategyPriority:
		if idx, err := e.networks.SelectAuthoritative(g.Events); err == nil {
			return idx
		}
		return g.SelectedEventIndex
	case StrategyNewest:
		return newestIndex(g.Events)
	case StrategyComplete:
		return mostCompleteIndex(g.Events)
	default:
		// quality and average both anchor on the best-quality member.
		return bestQualityIndex(g.Events)
	}
}

func bestQualityIndex(events []model.Event) int {
	best := 0
	bestScore := -1.0
	for i := range events {
		if s := quality.Score(&events[i]); s > bestScore {
			bestScore = s
			best = i
		}
	}
	return best
}

// newestIndex prefers the latest source revision, falling back to origin
// time when no member carries a modification timestamp.
func newestIndex(events []model.Event) int {
	best := 0
	var bestAt *time.Time
	for i := range events {
		at := events[i].ModifiedAt
		if at == nil {
			at = events[i].Time
		}
		if at != nil && (bestAt == nil || at.After(*bestAt)) {
			bestAt = at
			best = i
		}
	}
	return best
}

func mostCompleteIndex(events []model.Event) int {
	best := 0
	bestCount := -1
	for i := range events {
		if n := events[i].FieldCount(); n > bestCount {
			bestCount = n
			best = i
		}
	}
	return best
}

// resolveMagnitude keeps the lowest-uncertainty magnitude within the
// highest-priority magnitude-type category. When no member reports a typed
// magnitude, the plain average of the reported values is used.
func resolveMagnitude(merged *model.Event, events []model.Event) {
	bestCategory := 0
	for i := range events {
		if c := magnitude.Category(events[i].MagnitudeType); c > bestCategory {
			bestCategory = c
		}
	}

	if bestCategory == 0 {
		sum := 0.0
		for i := range events {
			sum += events[i].Magnitude
		}
		merged.Magnitude = sum / float64(len(events))
		merged.MagnitudeType = model.MagUnknown
		merged.Uncertainty.Magnitude = nil
		return
	}

	winner := -1
	winnerUnc := math.Inf(1)
	for i := range events {
		if magnitude.Category(events[i].MagnitudeType) != bestCategory {
			continue
		}
		unc := math.Inf(1)
		if events[i].Uncertainty.Magnitude != nil {
			unc = *events[i].Uncertainty.Magnitude
		}
		if winner < 0 || unc < winnerUnc {
			winner = i
			winnerUnc = unc
		}
	}

	merged.Magnitude = events[winner].Magnitude
	merged.MagnitudeType = events[winner].MagnitudeType
	merged.Uncertainty.Magnitude = events[winner].Uncertainty.Magnitude
}

// resolveDepth keeps the lowest-uncertainty depth report. Members without a
// depth are excluded, not treated as surface events.
func resolveDepth(merged *model.Event, events []model.Event) {
	winner := -1
	winnerUnc := math.Inf(1)
	for i := range events {
		if events[i].Depth == nil {
			continue
		}
		unc := math.Inf(1)
		if events[i].Uncertainty.Depth != nil {
			unc = *events[i].Uncertainty.Depth
		}
		if winner < 0 || unc < winnerUnc {
			winner = i
			winnerUnc = unc
		}
	}
	if winner < 0 {
		merged.Depth = nil
		merged.Uncertainty.Depth = nil
		return
	}
	merged.Depth = events[winner].Depth
	merged.Uncertainty.Depth = events[winner].Uncertainty.Depth
}

// resolveLocation takes the uncertainty-weighted average of member epicenters.
// Longitudes are averaged on the circle so groups straddling the date line
// do not collapse toward zero.
func resolveLocation(merged *model.Event, events []model.Event) {
	lats := make([]float64, len(events))
	lons := make([]float64, len(events))
	weights := make([]float64, len(events))
	for i := range events {
		lats[i] = events[i].Latitude
		lons[i] = events[i].Longitude
		weights[i] = locationWeight(events[i].Uncertainty.Horizontal)
	}

	sumW := 0.0
	sumLat := 0.0
	for i := range lats {
		sumW += weights[i]
		sumLat += lats[i] * weights[i]
	}
	merged.Latitude = sumLat / sumW
	merged.Longitude = geodesy.WeightedAverageLongitudes(lons, weights)
}

func locationWeight(horizontal *float64) float64 {
	if horizontal == nil || *horizontal <= 0 {
		return 1.0
	}
	w := 1.0 / *horizontal
	if w < minLocationWeight {
		return minLocationWeight
	}
	if w > maxLocationWeight {
		return maxLocationWeight
	}
	return w
}

// resolveAverageScalars averages the scalar fields the dedicated rules leave
// to the base member. Each mean covers only the members reporting the value;
// a field nobody reports stays nil.
func resolveAverageScalars(merged *model.Event, events []model.Event) {
	merged.Uncertainty.Time = meanFloat(events, func(e *model.Event) *float64 { return e.Uncertainty.Time })
	merged.Uncertainty.Horizontal = meanFloat(events, func(e *model.Event) *float64 { return e.Uncertainty.Horizontal })
	merged.Quality.AzimuthalGap = meanFloat(events, func(e *model.Event) *float64 { return e.Quality.AzimuthalGap })
	merged.Quality.StandardError = meanFloat(events, func(e *model.Event) *float64 { return e.Quality.StandardError })
	merged.Quality.MinimumDistance = meanFloat(events, func(e *model.Event) *float64 { return e.Quality.MinimumDistance })
	merged.Quality.MaximumDistance = meanFloat(events, func(e *model.Event) *float64 { return e.Quality.MaximumDistance })
	merged.Quality.UsedStationCount = meanInt(events, func(e *model.Event) *int { return e.Quality.UsedStationCount })
	merged.Quality.UsedPhaseCount = meanInt(events, func(e *model.Event) *int { return e.Quality.UsedPhaseCount })
}

func meanFloat(events []model.Event, field func(*model.Event) *float64) *float64 {
	sum := 0.0
	n := 0
	for i := range events {
		if v := field(&events[i]); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return model.Float(sum / float64(n))
}

func meanInt(events []model.Event, field func(*model.Event) *int) *int {
	sum := 0
	n := 0
	for i := range events {
		if v := field(&events[i]); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return model.Int(int(math.Round(float64(sum) / float64(n))))
}

// resolveAverageTime averages origin times for the average strategy. Members
// without a time are skipped.
func resolveAverageTime(merged *model.Event, events []model.Event) {
	var anchor time.Time
	offsets := 0.0
	n := 0
	for i := range events {
		if events[i].Time == nil {
			continue
		}
		if n == 0 {
			anchor = *events[i].Time
		}
		offsets += events[i].Time.Sub(anchor).Seconds()
		n++
	}
	if n == 0 {
		return
	}
	avg := anchor.Add(time.Duration(offsets / float64(n) * float64(time.Second)))
	merged.Time = &avg
}
