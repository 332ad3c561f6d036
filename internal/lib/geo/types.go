package geo

// Coordinate is a WGS84 position stored as [longitude, latitude] in degrees.
// The array form matches the GeoJSON wire format used by the UI and Mapbox.
type Coordinate [2]float64

// Lon returns the longitude in degrees
func (c Coordinate) Lon() float64 { return c[0] }

// Lat returns the latitude in degrees
func (c Coordinate) Lat() float64 { return c[1] }

// WithElevation lifts a 2-D coordinate into a route coordinate
func (c Coordinate) WithElevation(elevation float64) RouteCoordinate {
	return RouteCoordinate{c[0], c[1], elevation}
}

// RouteCoordinate is a route vertex stored as [longitude, latitude, elevation-meters]
type RouteCoordinate [3]float64

// Lon returns the longitude in degrees
func (c RouteCoordinate) Lon() float64 { return c[0] }

// Lat returns the latitude in degrees
func (c RouteCoordinate) Lat() float64 { return c[1] }

// Elevation returns the elevation in meters
func (c RouteCoordinate) Elevation() float64 { return c[2] }

// Coordinate drops the elevation
func (c RouteCoordinate) Coordinate() Coordinate {
	return Coordinate{c[0], c[1]}
}

// NearestPoint is the result of snapping a query point onto a route
type NearestPoint struct {
	// Index is the vertex the point coincides with, or the start vertex of the
	// segment the point was projected onto.
	Index int `json:"index"`

	// Coordinates is the snapped position with elevation interpolated between
	// the bracketing vertices.
	Coordinates RouteCoordinate `json:"coordinates"`

	// Distance from the query point to Coordinates, in kilometers.
	Distance float64 `json:"distance"`

	// RouteDistance is the cumulative distance from the route start to Coordinates, in kilometers.
	RouteDistance float64 `json:"routeDistance"`

	// Projected is true when Coordinates lies strictly inside a segment.
	Projected bool `json:"projected"`
}

// SegmentStats summarises a stretch of route between two vertex indices
type SegmentStats struct {
	DistanceKm     float64 `json:"distanceKm"`
	ElevationGain  float64 `json:"elevationGain"`
	ElevationLoss  float64 `json:"elevationLoss"`
	StartElevation float64 `json:"startElevation"`
	EndElevation   float64 `json:"endElevation"`
}

// Difficulty is a coarse effort classification for a stretch of trail
type Difficulty string

const (
	Easy        Difficulty = "easy"
	Moderate    Difficulty = "moderate"
	Challenging Difficulty = "challenging"
	Strenuous   Difficulty = "strenuous"
)

// Simplification tolerances in degrees for DouglasPeucker and SimplifyRoute
const (
	ToleranceLow    = 0.00001
	ToleranceMedium = 0.00005
	ToleranceHigh   = 0.0001
)

// EarthRadiusKm is the mean Earth radius used for haversine distances
const EarthRadiusKm = 6371.0
