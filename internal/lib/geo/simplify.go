package geo

import "math"

// DouglasPeucker simplifies a polyline, dropping points whose perpendicular
// distance from the chord is within epsilon. Distances are measured in raw
// degree space, not geodesically. Inputs of two points or fewer are returned unchanged.
func DouglasPeucker(points []Coordinate, epsilon float64) []Coordinate {
	if len(points) <= 2 {
		return append([]Coordinate(nil), points...)
	}

	first, last := points[0], points[len(points)-1]
	maxDistance := 0.0
	maxIndex := 0
	for i := 1; i < len(points)-1; i++ {
		d := perpendicularDistance(points[i], first, last)
		if d > maxDistance {
			maxDistance = d
			maxIndex = i
		}
	}

	if maxDistance > epsilon {
		left := DouglasPeucker(points[:maxIndex+1], epsilon)
		right := DouglasPeucker(points[maxIndex:], epsilon)
		return append(left[:len(left)-1], right...)
	}

	return []Coordinate{first, last}
}

// perpendicularDistance from point to the infinite line through a and b
func perpendicularDistance(point, a, b Coordinate) float64 {
	dx := b.Lon() - a.Lon()
	dy := b.Lat() - a.Lat()
	if dx == 0 && dy == 0 {
		return PlanarDistance(point, a)
	}
	numerator := math.Abs(dy*point.Lon() - dx*point.Lat() + b.Lon()*a.Lat() - b.Lat()*a.Lon())
	return numerator / math.Hypot(dx, dy)
}

// SimplifyRoute simplifies the 2-D projection of route and re-attaches each
// kept vertex's elevation from the nearest original vertex
func SimplifyRoute(route []RouteCoordinate, epsilon float64) []RouteCoordinate {
	if len(route) <= 2 {
		return append([]RouteCoordinate(nil), route...)
	}
	simplified := DouglasPeucker(ToCoordinates(route), epsilon)
	return AttachElevation(simplified, route)
}

// AttachElevation gives every point the elevation of its nearest vertex in source.
// Points keep elevation 0 when source is empty.
func AttachElevation(points []Coordinate, source []RouteCoordinate) []RouteCoordinate {
	result := make([]RouteCoordinate, len(points))
	for i, p := range points {
		elevation := 0.0
		best := math.Inf(1)
		for _, s := range source {
			d := HaversineDistance(p, s.Coordinate())
			if d < best {
				best = d
				elevation = s.Elevation()
			}
		}
		result[i] = p.WithElevation(elevation)
	}
	return result
}

// SamplePoints reduces points to at most maxPoints, always keeping the first
// and last point and picking the rest at an even index stride
func SamplePoints[T any](points []T, maxPoints int) []T {
	if len(points) <= maxPoints {
		return append([]T(nil), points...)
	}
	if maxPoints <= 0 {
		return []T{}
	}
	if maxPoints == 1 {
		return []T{points[0]}
	}

	sampled := make([]T, 0, maxPoints)
	step := float64(len(points)-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints-1; i++ {
		sampled = append(sampled, points[int(math.Round(float64(i)*step))])
	}
	return append(sampled, points[len(points)-1])
}

// ToCoordinates drops elevation from every vertex
func ToCoordinates(route []RouteCoordinate) []Coordinate {
	coords := make([]Coordinate, len(route))
	for i, c := range route {
		coords[i] = c.Coordinate()
	}
	return coords
}

// WithElevation lifts every coordinate into a route coordinate with a constant elevation
func WithElevation(points []Coordinate, elevation float64) []RouteCoordinate {
	route := make([]RouteCoordinate, len(points))
	for i, p := range points {
		route[i] = p.WithElevation(elevation)
	}
	return route
}
