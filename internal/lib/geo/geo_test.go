package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Three-vertex east-west route along the equator used across tests
var equatorRoute = []RouteCoordinate{
	{0, 0, 100},
	{1, 0, 200},
	{2, 0, 150},
}

func TestHaversineDistance(t *testing.T) {
	// One degree of longitude on the equator
	distance := HaversineDistance(Coordinate{0, 0}, Coordinate{1, 0})
	assert.InDelta(t, 111.195, distance, 0.01)

	// Angels Camp to Murphys, ~11.0 km
	angelsCamp := Coordinate{-120.5436, 38.0675}
	murphys := Coordinate{-120.4561, 38.1391}
	assert.InDelta(t, 11.046, HaversineDistance(angelsCamp, murphys), 0.1)

	assert.Equal(t, 0.0, HaversineDistance(murphys, murphys), "Distance from point to itself should be 0")
}

func TestCalculateRouteDistances(t *testing.T) {
	distances := CalculateRouteDistances(equatorRoute)
	require.Len(t, distances, 3)
	assert.Equal(t, 0.0, distances[0])

	for i := 1; i < len(distances); i++ {
		assert.GreaterOrEqual(t, distances[i], distances[i-1], "Cumulative distances must not decrease")
	}
	assert.InDelta(t, RouteLength(equatorRoute), distances[len(distances)-1], 1e-9)
	assert.InDelta(t, 222.39, distances[2], 0.05)
}

func TestRouteLength_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, RouteLength(nil))
	assert.Equal(t, 0.0, RouteLength([]RouteCoordinate{{1, 1, 1}}))
	assert.Equal(t, []float64{0}, CalculateRouteDistances([]RouteCoordinate{{1, 1, 1}}))
}

func TestFindNearestPointOnRoute_ProjectsOntoSegment(t *testing.T) {
	nearest := FindNearestPointOnRoute(Coordinate{0.5, 0.001}, equatorRoute)
	require.NotNil(t, nearest)

	assert.True(t, nearest.Projected)
	assert.Equal(t, 0, nearest.Index, "Projected point lies on the segment starting at index 0")
	assert.InDelta(t, 0.5, nearest.Coordinates.Lon(), 1e-9)
	assert.InDelta(t, 0.0, nearest.Coordinates.Lat(), 1e-9)
	assert.InDelta(t, 150.0, nearest.Coordinates.Elevation(), 1e-6, "Elevation interpolated between 100 and 200")
	assert.InDelta(t, 55.6, nearest.RouteDistance, 0.05)
	assert.InDelta(t, 0.111, nearest.Distance, 0.01)
}

func TestFindNearestPointOnRoute_SnapsToVertexNearEndpoint(t *testing.T) {
	// Projection parameter 0.005 is essentially the vertex, so the vertex wins
	nearest := FindNearestPointOnRoute(Coordinate{1.005, 0.5}, equatorRoute)
	require.NotNil(t, nearest)

	assert.False(t, nearest.Projected)
	assert.Equal(t, 1, nearest.Index)
	assert.Equal(t, equatorRoute[1], nearest.Coordinates)
}

func TestFindNearestPointOnRoute_NeverWorseThanVertices(t *testing.T) {
	route := []RouteCoordinate{
		{-120.5436, 38.0675, 500},
		{-120.5300, 38.0800, 650},
		{-120.5100, 38.0850, 700},
		{-120.4900, 38.1100, 640},
		{-120.4561, 38.1391, 900},
	}
	queries := []Coordinate{
		{-120.54, 38.07},
		{-120.52, 38.09},
		{-120.50, 38.10},
		{-120.47, 38.12},
		{-120.60, 38.00},
		{-120.40, 38.20},
	}

	for _, q := range queries {
		nearest := FindNearestPointOnRoute(q, route)
		require.NotNil(t, nearest)
		for _, vertex := range route {
			assert.LessOrEqual(t, nearest.Distance, HaversineDistance(q, vertex.Coordinate())+1e-12)
		}
	}
}

func TestFindNearestPointOnRoute_NoRoute(t *testing.T) {
	assert.Nil(t, FindNearestPointOnRoute(Coordinate{0, 0}, nil))
	assert.Nil(t, FindNearestPointOnRoute(Coordinate{0, 0}, []RouteCoordinate{{1, 1, 1}}))
}

func TestDouglasPeucker(t *testing.T) {
	zigzag := []Coordinate{{0, 0}, {1, 1}, {2, 0}, {3, 1}, {4, 0}}

	// Zero tolerance keeps every non-collinear point
	assert.Equal(t, zigzag, DouglasPeucker(zigzag, 0))

	// Collinear interior points are dropped
	line := []Coordinate{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	assert.Equal(t, []Coordinate{{0, 0}, {3, 0}}, DouglasPeucker(line, 0))

	// Base case
	pair := []Coordinate{{0, 0}, {5, 5}}
	assert.Equal(t, pair, DouglasPeucker(pair, 10))

	noisy := []Coordinate{{0, 0}, {1, 0.1}, {2, -0.1}, {3, 5}, {4, 6}, {5, 7}, {6, 8.1}, {7, 9}}
	once := DouglasPeucker(noisy, 0.5)
	twice := DouglasPeucker(once, 0.5)
	assert.Equal(t, once, twice, "Simplification should be idempotent")
	assert.Less(t, len(once), len(noisy))
	assert.Equal(t, noisy[0], once[0])
	assert.Equal(t, noisy[len(noisy)-1], once[len(once)-1])
}

func TestSimplifyRoute_ReattachesElevation(t *testing.T) {
	route := []RouteCoordinate{
		{0, 0, 10},
		{0.5, 0.000001, 20},
		{1, 0, 30},
		{1, 1, 40},
	}

	simplified := SimplifyRoute(route, ToleranceMedium)
	require.Len(t, simplified, 3)
	assert.Equal(t, RouteCoordinate{0, 0, 10}, simplified[0])
	assert.Equal(t, RouteCoordinate{1, 0, 30}, simplified[1])
	assert.Equal(t, RouteCoordinate{1, 1, 40}, simplified[2])
}

func TestSamplePoints(t *testing.T) {
	points := make([]int, 250)
	for i := range points {
		points[i] = i
	}

	sampled := SamplePoints(points, 100)
	require.Len(t, sampled, 100)
	assert.Equal(t, 0, sampled[0])
	assert.Equal(t, 249, sampled[len(sampled)-1])
	for i := 1; i < len(sampled); i++ {
		assert.Greater(t, sampled[i], sampled[i-1], "Sampled indices must be strictly increasing")
	}

	short := SamplePoints(points[:10], 100)
	assert.Equal(t, points[:10], short)

	assert.Len(t, SamplePoints(points, 2), 2)
}

func TestCalculateSegmentStats(t *testing.T) {
	climbing := []RouteCoordinate{{0, 0, 100}, {0.01, 0, 150}, {0.02, 0, 150}, {0.03, 0, 300}}
	stats := CalculateSegmentStats(climbing, 0, 3)
	assert.Equal(t, 200.0, stats.ElevationGain)
	assert.Equal(t, 0.0, stats.ElevationLoss)
	assert.Equal(t, 100.0, stats.StartElevation)
	assert.Equal(t, 300.0, stats.EndElevation)
	assert.InDelta(t, 3.336, stats.DistanceKm, 0.01)

	descending := []RouteCoordinate{{0, 0, 900}, {0.01, 0, 700}, {0.02, 0, 650}}
	stats = CalculateSegmentStats(descending, 0, 2)
	assert.Equal(t, 0.0, stats.ElevationGain)
	assert.Equal(t, 250.0, stats.ElevationLoss)

	mixed := CalculateSegmentStats(equatorRoute, 0, 2)
	assert.Equal(t, 100.0, mixed.ElevationGain)
	assert.Equal(t, 50.0, mixed.ElevationLoss)

	// Out of range indices clamp, inverted ranges are empty
	assert.Equal(t, mixed, CalculateSegmentStats(equatorRoute, -5, 99))
	assert.Equal(t, SegmentStats{}, CalculateSegmentStats(equatorRoute, 2, 1))
	assert.Equal(t, SegmentStats{}, CalculateSegmentStats(nil, 0, 3))
}

func TestEstimateDifficulty(t *testing.T) {
	assert.Equal(t, Easy, EstimateDifficulty(5, 200, 200))
	assert.Equal(t, Moderate, EstimateDifficulty(12, 300, 100))
	assert.Equal(t, Challenging, EstimateDifficulty(15, 800, 400))
	assert.Equal(t, Strenuous, EstimateDifficulty(20, 1200, 1000))
}

func TestEstimateHikingHours(t *testing.T) {
	assert.Equal(t, 2.0, EstimateHikingHours(10, 0, 0))
	assert.Equal(t, 3.0, EstimateHikingHours(10, 600, 0))
	assert.Equal(t, 3.5, EstimateHikingHours(10, 600, 500))
}

func TestPointAtDistance(t *testing.T) {
	total := RouteLength(equatorRoute)

	start, ok := PointAtDistance(equatorRoute, -1)
	require.True(t, ok)
	assert.Equal(t, equatorRoute[0], start)

	end, ok := PointAtDistance(equatorRoute, total+10)
	require.True(t, ok)
	assert.Equal(t, equatorRoute[2], end)

	quarter, ok := PointAtDistance(equatorRoute, total/4)
	require.True(t, ok)
	assert.InDelta(t, 0.5, quarter.Lon(), 1e-6)
	assert.InDelta(t, 150, quarter.Elevation(), 1e-4)

	_, ok = PointAtDistance(equatorRoute[:1], 1)
	assert.False(t, ok)

	assert.Equal(t, 1, IndexAtDistance(equatorRoute, total*0.75))
	assert.Equal(t, -1, IndexAtDistance(nil, 1))
}

func TestPolyline(t *testing.T) {
	route, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, route, 3)
	assert.InDelta(t, 38.5, route[0].Lat(), 1e-5)
	assert.InDelta(t, -120.2, route[0].Lon(), 1e-5)
	assert.InDelta(t, 43.252, route[2].Lat(), 1e-5)

	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", EncodePolyline(route))

	_, err = DecodePolyline("")
	assert.Error(t, err)
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(Coordinate{-120.5, 38.1}))
	assert.False(t, IsValidCoordinate(Coordinate{-300, 200}))
	assert.False(t, math.IsNaN(HaversineDistance(Coordinate{180, 90}, Coordinate{-180, -90})))
}
