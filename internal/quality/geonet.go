package quality

import "github.com/seismo-tools/quakemerge/internal/model"

// Criterion names reported as the limiting factor of a GeoNet quality score.
const (
	CriterionAzimuthalGap  = "Azimuthal Gap"
	CriterionStationCount  = "Station Count"
	CriterionRMS           = "RMS Residual"
	CriterionLocationError = "Location Uncertainty"
	CriterionDepthError    = "Depth Uncertainty"
	CriterionNoMetrics     = "No Quality Metrics"
)

// GeoNetResult is the 1..6 criteria grade for an event. The overall score is
// the minimum across the graded criteria, never an average: a single poorly
// constrained aspect caps the whole grade.
type GeoNetResult struct {
	Score          int            `json:"score"` // 0 when no metrics are present
	LimitingFactor string         `json:"limiting_factor"`
	Criteria       map[string]int `json:"criteria"`
}

// GeoNetScore grades an event on the GeoNet quality criteria. Criteria whose
// input metric is missing are skipped rather than graded; an event with no
// gradable metrics scores 0 with CriterionNoMetrics as the limiting factor.
func GeoNetScore(ev *model.Event) GeoNetResult {
	criteria := make(map[string]int)

	if ev.Quality.AzimuthalGap != nil {
		criteria[CriterionAzimuthalGap] = gradeAzimuthalGap(*ev.Quality.AzimuthalGap)
	}
	if ev.Quality.UsedStationCount != nil {
		criteria[CriterionStationCount] = gradeStationCount(*ev.Quality.UsedStationCount)
	}
	if ev.Quality.StandardError != nil {
		criteria[CriterionRMS] = gradeRMS(*ev.Quality.StandardError)
	}
	if ev.Uncertainty.Horizontal != nil {
		criteria[CriterionLocationError] = gradeLocationError(*ev.Uncertainty.Horizontal)
	}
	if ev.Uncertainty.Depth != nil {
		criteria[CriterionDepthError] = gradeDepthError(*ev.Uncertainty.Depth)
	}

	if len(criteria) == 0 {
		return GeoNetResult{Score: 0, LimitingFactor: CriterionNoMetrics, Criteria: criteria}
	}

	// Overall grade is the weakest criterion. Ties resolve to a fixed
	// criterion order so the limiting factor is deterministic.
	order := []string{
		CriterionAzimuthalGap,
		CriterionStationCount,
		CriterionRMS,
		CriterionLocationError,
		CriterionDepthError,
	}
	overall := 7
	limiting := ""
	for _, name := range order {
		grade, ok := criteria[name]
		if !ok {
			continue
		}
		if grade < overall {
			overall = grade
			limiting = name
		}
	}

	return GeoNetResult{Score: overall, LimitingFactor: limiting, Criteria: criteria}
}

func gradeAzimuthalGap(gap float64) int {
	switch {
	case gap <= 90:
		return 6
	case gap <= 120:
		return 5
	case gap <= 150:
		return 4
	case gap <= 180:
		return 3
	case gap <= 240:
		return 2
	default:
		return 1
	}
}

func gradeStationCount(n int) int {
	switch {
	case n >= 50:
		return 6
	case n >= 30:
		return 5
	case n >= 20:
		return 4
	case n >= 10:
		return 3
	case n >= 6:
		return 2
	default:
		return 1
	}
}

func gradeRMS(rms float64) int {
	switch {
	case rms <= 0.2:
		return 6
	case rms <= 0.4:
		return 5
	case rms <= 0.6:
		return 4
	case rms <= 0.8:
		return 3
	case rms <= 1.2:
		return 2
	default:
		return 1
	}
}

func gradeLocationError(km float64) int {
	switch {
	case km <= 1:
		return 6
	case km <= 2:
		return 5
	case km <= 5:
		return 4
	case km <= 10:
		return 3
	case km <= 20:
		return 2
	default:
		return 1
	}
}

func gradeDepthError(km float64) int {
	switch {
	case km <= 2:
		return 6
	case km <= 5:
		return 5
	case km <= 10:
		return 4
	case km <= 20:
		return 3
	case km <= 40:
		return 2
	default:
		return 1
	}
}
