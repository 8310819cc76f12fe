// Package geodesy provides date-line-safe longitude arithmetic and
// great-circle distance used throughout the merge core.
package geodesy

import (
	"math"
	"time"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// KmPerDegree is the meridional length of one degree of latitude.
const KmPerDegree = 111.195

// NormalizeLongitude wraps an arbitrary longitude into [-180, 180].
// Exact boundary values (+180, -180) pass through unchanged.
func NormalizeLongitude(lon float64) float64 {
	if lon == 180 || lon == -180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// AverageLongitudes computes the circular mean of a list of longitudes.
// A naive arithmetic mean is wrong across the date line: 179 and -179 must
// average to ±180, not 0. Each longitude is mapped to a unit vector, the
// vectors are averaged, and the resultant angle is mapped back.
// An empty list returns 0; a single entry is returned unchanged.
func AverageLongitudes(lons []float64) float64 {
	switch len(lons) {
	case 0:
		return 0
	case 1:
		return lons[0]
	}

	var sumSin, sumCos float64
	for _, lon := range lons {
		rad := lon * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}
	return math.Atan2(sumSin, sumCos) * 180 / math.Pi
}

// WeightedAverageLongitudes is the circular mean with per-entry weights.
// Entries with non-positive weight are ignored. Falls back to the unweighted
// mean when every weight is non-positive.
func WeightedAverageLongitudes(lons, weights []float64) float64 {
	if len(lons) != len(weights) {
		return AverageLongitudes(lons)
	}
	var sumSin, sumCos, total float64
	for i, lon := range lons {
		w := weights[i]
		if w <= 0 {
			continue
		}
		rad := lon * math.Pi / 180
		sumSin += math.Sin(rad) * w
		sumCos += math.Cos(rad) * w
		total += w
	}
	if total == 0 {
		return AverageLongitudes(lons)
	}
	return math.Atan2(sumSin, sumCos) * 180 / math.Pi
}

// Distance returns the haversine great-circle distance in kilometers between
// two coordinates. Longitudes are normalized first, so points straddling the
// date line report the short arc.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lon1 = NormalizeLongitude(lon1)
	lon2 = NormalizeLongitude(lon2)

	const degToRad = math.Pi / 180
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// TimeDifference returns the absolute difference between two instants in
// seconds.
func TimeDifference(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Seconds())
}
