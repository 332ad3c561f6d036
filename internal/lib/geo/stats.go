package geo

import "math"

// CalculateSegmentStats summarises the route between vertex indices start and end inclusive.
// Indices are clamped to the route; an empty route or an empty range yields zero stats.
func CalculateSegmentStats(route []RouteCoordinate, start, end int) SegmentStats {
	if len(route) == 0 {
		return SegmentStats{}
	}
	start = max(start, 0)
	end = min(end, len(route)-1)
	if start > end {
		return SegmentStats{}
	}

	stats := SegmentStats{
		StartElevation: route[start].Elevation(),
		EndElevation:   route[end].Elevation(),
	}
	for i := start + 1; i <= end; i++ {
		stats.DistanceKm += routeDistance(route[i-1], route[i])
		delta := route[i].Elevation() - route[i-1].Elevation()
		if delta > 0 {
			stats.ElevationGain += delta
		} else {
			stats.ElevationLoss -= delta
		}
	}
	return stats
}

// EstimateDifficulty classifies a stretch of trail by an effort score that
// weights climbing twice as heavily as descending
func EstimateDifficulty(distanceKm, gainM, lossM float64) Difficulty {
	effort := distanceKm + gainM/100 + lossM/200
	switch {
	case effort < 10:
		return Easy
	case effort < 20:
		return Moderate
	case effort < 30:
		return Challenging
	default:
		return Strenuous
	}
}

// EstimateHikingHours applies Naismith's rule: 5 km/h on the flat plus one
// hour per 600 m of ascent, with a descent allowance of one hour per 1000 m
func EstimateHikingHours(distanceKm, gainM, lossM float64) float64 {
	hours := distanceKm/5 + gainM/600 + lossM/1000
	return math.Round(hours*10) / 10
}
