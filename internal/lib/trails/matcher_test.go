package trails

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dpup/journeys/server/internal/cache"
	"github.com/dpup/journeys/server/internal/clients/mapbox"
	"github.com/dpup/journeys/server/internal/lib/geo"
)

// MockMatchService is a mock implementation of MatchService
type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) Match(ctx context.Context, req mapbox.MatchRequest) (*mapbox.MatchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*mapbox.MatchResponse)
	return resp, args.Error(1)
}

func okResponse(confidence float64, coords ...geo.Coordinate) *mapbox.MatchResponse {
	return &mapbox.MatchResponse{
		Code: "Ok",
		Matchings: []mapbox.Matching{{
			Confidence: confidence,
			Geometry:   mapbox.GeoJSONGeometry{Type: "LineString", Coordinates: coords},
		}},
	}
}

func newTestMatcher(service MatchService) *Matcher {
	cfg := DefaultConfig()
	cfg.ChunkDelay = 0
	return NewMatcher(service, cache.NewCache(), cfg)
}

// A ~1.1 km stroke heading north
var stroke = []geo.Coordinate{
	{-120.5000, 38.0000},
	{-120.5001, 38.0030},
	{-120.4999, 38.0060},
	{-120.5002, 38.0100},
}

func TestTryMatch_TooFewPointsNeverCallsService(t *testing.T) {
	service := &MockMatchService{}
	matcher := newTestMatcher(service)

	result := matcher.TryMatch(context.Background(), stroke[:1], DefaultOptions())
	assert.False(t, result.Matched)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Coordinates)

	result = matcher.TryMatch(context.Background(), nil, DefaultOptions())
	assert.False(t, result.Matched)

	service.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
}

func TestTryMatch_ShortStrokeReturnsRawPoints(t *testing.T) {
	service := &MockMatchService{}
	matcher := newTestMatcher(service)

	// ~22 m between first and last point
	short := []geo.Coordinate{{-120.5, 38.0}, {-120.5001, 38.0001}, {-120.5, 38.0002}}
	result := matcher.TryMatch(context.Background(), short, DefaultOptions())

	assert.False(t, result.Matched)
	assert.Equal(t, []geo.RouteCoordinate{{-120.5, 38.0, 0}, {-120.5001, 38.0001, 0}, {-120.5, 38.0002, 0}}, result.Coordinates)
	service.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
}

func TestTryMatch_Success(t *testing.T) {
	service := &MockMatchService{}
	snapped := []geo.Coordinate{{-120.50002, 38.0}, {-120.50005, 38.005}, {-120.50008, 38.01}}
	service.On("Match", mock.Anything, mock.MatchedBy(func(req mapbox.MatchRequest) bool {
		return len(req.Coordinates) == len(stroke) && req.SnapRadius == 25 && req.Profile == "walking"
	})).Return(okResponse(0.82, snapped...), nil).Once()

	matcher := newTestMatcher(service)
	result := matcher.TryMatch(context.Background(), stroke, DefaultOptions())

	assert.True(t, result.Matched)
	assert.Equal(t, 0.82, result.Confidence)
	require.Len(t, result.Coordinates, 3)
	assert.Equal(t, geo.RouteCoordinate{-120.50005, 38.005, 0}, result.Coordinates[1])
	service.AssertExpectations(t)
}

func TestTryMatch_LowConfidenceIsUnmatched(t *testing.T) {
	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.Anything).
		Return(okResponse(0.3, stroke...), nil).Once()

	matcher := newTestMatcher(service)
	result := matcher.TryMatch(context.Background(), stroke, DefaultOptions())

	assert.False(t, result.Matched)
	assert.Equal(t, 0.3, result.Confidence, "Caller can still inspect confidence")
	assert.Len(t, result.Coordinates, len(stroke))
}

func TestTryMatch_CachesIdenticalRequests(t *testing.T) {
	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.Anything).
		Return(okResponse(0.9, stroke...), nil).Once()

	matcher := newTestMatcher(service)
	first := matcher.TryMatch(context.Background(), stroke, DefaultOptions())
	second := matcher.TryMatch(context.Background(), stroke, DefaultOptions())

	assert.Equal(t, first, second)
	service.AssertNumberOfCalls(t, "Match", 1)
}

func TestTryMatch_CacheExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	resultCache := cache.NewCacheWithClock(func() time.Time { return now })

	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.Anything).
		Return(okResponse(0.9, stroke...), nil).Twice()

	matcher := NewMatcher(service, resultCache, DefaultConfig())
	matcher.TryMatch(context.Background(), stroke, DefaultOptions())

	now = now.Add(5 * time.Minute)
	matcher.TryMatch(context.Background(), stroke, DefaultOptions())

	service.AssertNumberOfCalls(t, "Match", 2)
}

func TestTryMatch_FailuresAreNoMatch(t *testing.T) {
	tests := []struct {
		name string
		resp *mapbox.MatchResponse
		err  error
	}{
		{"transport error", nil, errors.New("connection refused")},
		{"no match code", &mapbox.MatchResponse{Code: "NoMatch"}, nil},
		{"ok without matchings", &mapbox.MatchResponse{Code: "Ok"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockMatchService{}
			service.On("Match", mock.Anything, mock.Anything).Return(tt.resp, tt.err)

			matcher := newTestMatcher(service)
			result := matcher.TryMatch(context.Background(), stroke, DefaultOptions())

			assert.False(t, result.Matched)
			assert.Equal(t, 0.0, result.Confidence)
			assert.Empty(t, result.Coordinates)

			// Failures are not cached
			matcher.TryMatch(context.Background(), stroke, DefaultOptions())
			service.AssertNumberOfCalls(t, "Match", 2)
		})
	}
}

func TestTryMatch_DownsamplesToRequestLimit(t *testing.T) {
	long := make([]geo.Coordinate, 250)
	for i := range long {
		long[i] = geo.Coordinate{-120.5, 38.0 + float64(i)*0.0001}
	}

	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.MatchedBy(func(req mapbox.MatchRequest) bool {
		return len(req.Coordinates) == MaxRequestPoints &&
			req.Coordinates[0] == long[0] &&
			req.Coordinates[MaxRequestPoints-1] == long[len(long)-1]
	})).Return(okResponse(0.9, long[0], long[249]), nil).Once()

	matcher := newTestMatcher(service)
	result := matcher.TryMatch(context.Background(), long, DefaultOptions())
	assert.True(t, result.Matched)
	service.AssertExpectations(t)
}

func TestProcessDrawnSegment_Snapped(t *testing.T) {
	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.Anything).
		Return(okResponse(0.76, stroke[0], stroke[3]), nil)

	segment := newTestMatcher(service).ProcessDrawnSegment(context.Background(), stroke)
	assert.True(t, segment.WasSnapped)
	assert.Equal(t, 0.76, segment.Confidence)
	assert.Len(t, segment.Coordinates, 2)
}

func TestProcessDrawnSegment_FallsBackOnNoMatch(t *testing.T) {
	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.Anything).
		Return(&mapbox.MatchResponse{Code: "NoMatch", Message: "Could not match the trace."}, nil)

	segment := newTestMatcher(service).ProcessDrawnSegment(context.Background(), stroke)
	assert.False(t, segment.WasSnapped)
	require.NotEmpty(t, segment.Coordinates)
	assert.Equal(t, stroke[0].WithElevation(0), segment.Coordinates[0])
	assert.Equal(t, stroke[3].WithElevation(0), segment.Coordinates[len(segment.Coordinates)-1])
}

func routeOf(n int) []geo.RouteCoordinate {
	route := make([]geo.RouteCoordinate, n)
	for i := range route {
		route[i] = geo.RouteCoordinate{-120.5, 38.0 + float64(i)*0.001, 1000 + float64(i)}
	}
	return route
}

func TestSnapRoute_ChunksAndMerges(t *testing.T) {
	route := routeOf(200)

	service := &MockMatchService{}
	var requests [][]geo.Coordinate
	service.On("Match", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		requests = append(requests, args.Get(1).(mapbox.MatchRequest).Coordinates)
	}).Return(nil, errors.New("unavailable"))

	var progress []float64
	result, err := newTestMatcher(service).SnapRoute(context.Background(), route, func(f float64) {
		progress = append(progress, f)
	})
	require.NoError(t, err)

	// Windows start at 0, 75, 150 (80 points, overlap 5)
	require.Len(t, requests, 3)
	assert.Len(t, requests[0], 80)
	assert.Equal(t, route[75].Coordinate(), requests[1][0])
	assert.Len(t, requests[2], 50)
	assert.Equal(t, []float64{1.0 / 3, 2.0 / 3, 1}, progress)

	// Unsnapped chunks keep original points and the seams vanish
	assert.Equal(t, route, result.Route)
	assert.Equal(t, SnapStats{SnappedChunks: 0, TotalChunks: 3, AverageConfidence: 0}, result.Stats)
}

func TestSnapRoute_PerChunkOutcome(t *testing.T) {
	route := routeOf(100)

	service := &MockMatchService{}
	// First chunk snaps slightly east, second chunk has no match
	service.On("Match", mock.Anything, mock.MatchedBy(func(req mapbox.MatchRequest) bool {
		return req.Coordinates[0] == route[0].Coordinate()
	})).Return(okResponse(0.8,
		geo.Coordinate{-120.49999, 38.0},
		geo.Coordinate{-120.49999, 38.040},
		geo.Coordinate{-120.49999, 38.079},
	), nil).Once()
	service.On("Match", mock.Anything, mock.Anything).
		Return(&mapbox.MatchResponse{Code: "NoMatch"}, nil).Once()

	result, err := newTestMatcher(service).SnapRoute(context.Background(), route, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.SnappedChunks)
	assert.Equal(t, 2, result.Stats.TotalChunks)
	assert.InDelta(t, 0.4, result.Stats.AverageConfidence, 1e-9)

	// Snapped chunk with elevation from nearest original points, then
	// the unsnapped second chunk (75..99) minus its 5 point seam
	require.Len(t, result.Route, 3+20)
	assert.Equal(t, geo.RouteCoordinate{-120.49999, 38.0, 1000}, result.Route[0])
	assert.Equal(t, geo.RouteCoordinate{-120.49999, 38.040, 1040}, result.Route[1])
	assert.Equal(t, geo.RouteCoordinate{-120.49999, 38.079, 1079}, result.Route[2])
	assert.Equal(t, route[80], result.Route[3])
	assert.Equal(t, route[99], result.Route[len(result.Route)-1])
}

func TestSnapRoute_ShortRoute(t *testing.T) {
	service := &MockMatchService{}
	result, err := newTestMatcher(service).SnapRoute(context.Background(), routeOf(1), nil)
	require.NoError(t, err)
	assert.Len(t, result.Route, 1)
	assert.Equal(t, 0, result.Stats.TotalChunks)
	service.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
}

func TestSnapRoute_CancelledDuringDelay(t *testing.T) {
	service := &MockMatchService{}
	service.On("Match", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

	cfg := DefaultConfig()
	cfg.ChunkDelay = time.Hour
	matcher := NewMatcher(service, cache.NewCache(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := matcher.SnapRoute(ctx, routeOf(200), func(float64) { cancel() })

	assert.ErrorIs(t, err, context.Canceled)
	service.AssertNumberOfCalls(t, "Match", 1)
}
