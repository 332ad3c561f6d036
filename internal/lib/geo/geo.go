package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// HaversineDistance calculates the great-circle distance between two points in kilometers.
// Elevation is ignored.
func HaversineDistance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	p1 := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	p2 := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// routeDistance is HaversineDistance for route vertices
func routeDistance(a, b RouteCoordinate) float64 {
	return HaversineDistance(a.Coordinate(), b.Coordinate())
}

// CalculateRouteDistances returns the cumulative distance in kilometers at each vertex.
// Index 0 is always 0.
func CalculateRouteDistances(route []RouteCoordinate) []float64 {
	distances := make([]float64, len(route))
	for i := 1; i < len(route); i++ {
		distances[i] = distances[i-1] + routeDistance(route[i-1], route[i])
	}
	return distances
}

// RouteLength returns the total length of the route in kilometers
func RouteLength(route []RouteCoordinate) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += routeDistance(route[i-1], route[i])
	}
	return total
}

// FindNearestPointOnRoute snaps point onto route.
//
// The nearest vertex is located first. The segments immediately before and
// after that vertex are then checked for a perpendicular projection that is
// strictly closer; projections landing within 1% of a segment end are ignored
// so the result never duplicates an existing vertex. Returns nil when route
// has fewer than 2 points, which callers treat as "no route".
func FindNearestPointOnRoute(point Coordinate, route []RouteCoordinate) *NearestPoint {
	if len(route) < 2 {
		return nil
	}

	nearestIndex := 0
	minDistance := math.Inf(1)
	for i, vertex := range route {
		d := HaversineDistance(point, vertex.Coordinate())
		if d < minDistance {
			minDistance = d
			nearestIndex = i
		}
	}

	distances := CalculateRouteDistances(route)
	best := &NearestPoint{
		Index:         nearestIndex,
		Coordinates:   route[nearestIndex],
		Distance:      minDistance,
		RouteDistance: distances[nearestIndex],
	}

	for _, start := range []int{nearestIndex - 1, nearestIndex} {
		if start < 0 || start+1 >= len(route) {
			continue
		}
		a, b := route[start], route[start+1]
		t := projectionParameter(point, a.Coordinate(), b.Coordinate())
		if t <= 0.01 || t >= 0.99 {
			continue
		}
		projected := InterpolateRouteCoordinate(a, b, t)
		d := HaversineDistance(point, projected.Coordinate())
		if d < best.Distance {
			best = &NearestPoint{
				Index:         start,
				Coordinates:   projected,
				Distance:      d,
				RouteDistance: distances[start] + routeDistance(a, projected),
				Projected:     true,
			}
		}
	}

	return best
}

// projectionParameter returns the unclamped position of point's perpendicular
// foot along a→b in raw coordinate space (0 at a, 1 at b)
func projectionParameter(point, a, b Coordinate) float64 {
	dx := b.Lon() - a.Lon()
	dy := b.Lat() - a.Lat()
	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return 0
	}
	return ((point.Lon()-a.Lon())*dx + (point.Lat()-a.Lat())*dy) / lengthSquared
}

// ProjectOntoSegment returns the clamped projection parameter of point onto a→b
func ProjectOntoSegment(point, a, b Coordinate) float64 {
	return math.Max(0, math.Min(1, projectionParameter(point, a, b)))
}

// InterpolateRouteCoordinate linearly interpolates longitude, latitude and elevation.
// t=0 returns a, t=1 returns b.
func InterpolateRouteCoordinate(a, b RouteCoordinate, t float64) RouteCoordinate {
	return RouteCoordinate{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
		a[2] + t*(b[2]-a[2]),
	}
}

// PlanarDistance is the Euclidean distance in raw degree space.
// Only suitable for ranking nearby candidates.
func PlanarDistance(a, b Coordinate) float64 {
	return math.Hypot(a.Lon()-b.Lon(), a.Lat()-b.Lat())
}

// IndexAtDistance returns the index of the last vertex whose cumulative
// distance is <= distanceKm. Returns -1 for an empty route.
func IndexAtDistance(route []RouteCoordinate, distanceKm float64) int {
	if len(route) == 0 {
		return -1
	}
	distances := CalculateRouteDistances(route)
	index := 0
	for i, d := range distances {
		if d > distanceKm {
			break
		}
		index = i
	}
	return index
}

// PointAtDistance returns the interpolated route position distanceKm from the start.
// Distances beyond either end clamp to the first or last vertex. Reports false
// when route has fewer than 2 points.
func PointAtDistance(route []RouteCoordinate, distanceKm float64) (RouteCoordinate, bool) {
	if len(route) < 2 {
		return RouteCoordinate{}, false
	}
	if distanceKm <= 0 {
		return route[0], true
	}

	distances := CalculateRouteDistances(route)
	last := len(route) - 1
	if distanceKm >= distances[last] {
		return route[last], true
	}

	i := IndexAtDistance(route, distanceKm)
	segment := distances[i+1] - distances[i]
	if segment == 0 {
		return route[i], true
	}
	return InterpolateRouteCoordinate(route[i], route[i+1], (distanceKm-distances[i])/segment), true
}
