package trails

import (
	"context"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/journeys/server/internal/cache"
	"github.com/dpup/journeys/server/internal/clients/mapbox"
	"github.com/dpup/journeys/server/internal/lib/geo"
)

const (
	// MinSpanKm is the first-to-last distance below which a stroke is never sent for matching
	MinSpanKm = 0.05

	// MaxRequestPoints is the number of points sent in one matching request
	MaxRequestPoints = mapbox.MaxCoordinates
)

// MatchService is the map-matching web service
type MatchService interface {
	Match(ctx context.Context, req mapbox.MatchRequest) (*mapbox.MatchResponse, error)
}

// Options tune a single matching call
type Options struct {
	SnapRadius    int     `json:"snapRadius"`
	Profile       string  `json:"profile"`
	MinConfidence float64 `json:"minConfidence"`
}

// DefaultOptions returns walking-profile defaults
func DefaultOptions() Options {
	return Options{
		SnapRadius:    25,
		Profile:       "walking",
		MinConfidence: 0.5,
	}
}

// Config configures a Matcher
type Config struct {
	Options      Options
	CacheTTL     time.Duration
	ChunkSize    int
	ChunkOverlap int
	ChunkDelay   time.Duration
}

// DefaultConfig returns the standard matcher configuration
func DefaultConfig() Config {
	return Config{
		Options:      DefaultOptions(),
		CacheTTL:     5 * time.Minute,
		ChunkSize:    80,
		ChunkOverlap: 5,
		ChunkDelay:   100 * time.Millisecond,
	}
}

// MatchResult is the outcome of one matching attempt. An empty, unmatched
// result stands for every kind of failure.
type MatchResult struct {
	Coordinates []geo.RouteCoordinate `json:"coordinates"`
	Confidence  float64               `json:"confidence"`
	Matched     bool                  `json:"matched"`
}

// DrawnSegment is a processed freehand stroke ready to append to a route
type DrawnSegment struct {
	Coordinates []geo.RouteCoordinate `json:"coordinates"`
	Confidence  float64               `json:"confidence"`
	WasSnapped  bool                  `json:"wasSnapped"`
}

// Matcher snaps drawn strokes and whole routes onto the trail network
type Matcher struct {
	service MatchService
	cache   *cache.Cache
	config  Config
}

// NewMatcher creates a matcher. Zero values in cfg fall back to DefaultConfig.
func NewMatcher(service MatchService, resultCache *cache.Cache, cfg Config) *Matcher {
	defaults := DefaultConfig()
	if cfg.Options.SnapRadius <= 0 {
		cfg.Options.SnapRadius = defaults.Options.SnapRadius
	}
	if cfg.Options.Profile == "" {
		cfg.Options.Profile = defaults.Options.Profile
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = defaults.ChunkOverlap
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}
	if resultCache == nil {
		resultCache = cache.NewCache()
	}
	return &Matcher{
		service: service,
		cache:   resultCache,
		config:  cfg,
	}
}

// Options returns the matcher's default per-call options
func (m *Matcher) Options() Options {
	return m.config.Options
}

// TryMatch attempts to snap points to trails. It never returns an error:
// transport failures, bad statuses and "no match" responses all produce an
// empty unmatched result.
func (m *Matcher) TryMatch(ctx context.Context, points []geo.Coordinate, opts Options) MatchResult {
	if len(points) < 2 {
		return MatchResult{Coordinates: []geo.RouteCoordinate{}}
	}

	if geo.HaversineDistance(points[0], points[len(points)-1]) < MinSpanKm {
		return MatchResult{Coordinates: geo.WithElevation(points, 0)}
	}

	key := cache.MatchKey(points)
	var cached MatchResult
	if found, err := m.cache.Get(key, &cached); err != nil {
		logging.Warnw(ctx, "Trail match cache read failed", "error", err, "key", key)
	} else if found {
		return cached
	}

	resp, err := m.service.Match(ctx, mapbox.MatchRequest{
		Coordinates: geo.SamplePoints(points, MaxRequestPoints),
		Profile:     opts.Profile,
		SnapRadius:  opts.SnapRadius,
	})
	if err != nil {
		logging.Warnw(ctx, "Trail matching request failed", "error", err, "points", len(points))
		return MatchResult{Coordinates: []geo.RouteCoordinate{}}
	}
	if !resp.OK() {
		logging.Debugw(ctx, "Trail matching found no match", "code", resp.Code, "message", resp.Message)
		return MatchResult{Coordinates: []geo.RouteCoordinate{}}
	}

	best := resp.Matchings[0]
	result := MatchResult{
		Coordinates: geo.WithElevation(best.Geometry.Coordinates, 0),
		Confidence:  best.Confidence,
		Matched:     best.Confidence >= opts.MinConfidence,
	}

	if err := m.cache.Set(key, result, m.config.CacheTTL, "mapbox"); err != nil {
		logging.Warnw(ctx, "Trail match cache write failed", "error", err, "key", key)
	}
	return result
}

// ProcessDrawnSegment snaps a freehand stroke to trails, falling back to the
// simplified stroke itself when there is no confident match
func (m *Matcher) ProcessDrawnSegment(ctx context.Context, points []geo.Coordinate) DrawnSegment {
	result := m.TryMatch(ctx, points, m.config.Options)
	if result.Matched {
		return DrawnSegment{
			Coordinates: result.Coordinates,
			Confidence:  result.Confidence,
			WasSnapped:  true,
		}
	}

	return DrawnSegment{
		Coordinates: geo.WithElevation(geo.DouglasPeucker(points, geo.ToleranceMedium), 0),
		Confidence:  result.Confidence,
		WasSnapped:  false,
	}
}

// SnapStats summarises a bulk re-snap
type SnapStats struct {
	SnappedChunks     int     `json:"snappedChunks"`
	TotalChunks       int     `json:"totalChunks"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// SnapResult is a re-snapped route and its statistics
type SnapResult struct {
	Route []geo.RouteCoordinate `json:"route"`
	Stats SnapStats             `json:"stats"`
}

// ProgressFunc receives the completed fraction (0..1] after each chunk
type ProgressFunc func(fraction float64)

// SnapRoute re-snaps an entire route chunk by chunk. Chunks are requested
// sequentially with a delay between requests; each chunk independently keeps
// its snapped geometry or its original points. Only context cancellation
// produces an error.
func (m *Matcher) SnapRoute(ctx context.Context, route []geo.RouteCoordinate, onProgress ProgressFunc) (*SnapResult, error) {
	if len(route) < 2 {
		return &SnapResult{Route: append([]geo.RouteCoordinate(nil), route...)}, nil
	}

	chunks := m.chunk(route)
	stats := SnapStats{TotalChunks: len(chunks)}
	processed := make([][]geo.RouteCoordinate, len(chunks))
	var confidenceSum float64

	for i, original := range chunks {
		if i > 0 && m.config.ChunkDelay > 0 {
			if err := sleep(ctx, m.config.ChunkDelay); err != nil {
				return nil, fmt.Errorf("route snapping interrupted after %d of %d chunks: %w", i, len(chunks), err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("route snapping interrupted after %d of %d chunks: %w", i, len(chunks), err)
		}

		result := m.TryMatch(ctx, geo.ToCoordinates(original), m.config.Options)
		if result.Matched && len(result.Coordinates) > 0 {
			processed[i] = geo.AttachElevation(geo.ToCoordinates(result.Coordinates), original)
			stats.SnappedChunks++
			confidenceSum += result.Confidence
		} else {
			processed[i] = original
		}

		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(chunks)))
		}
	}

	stats.AverageConfidence = confidenceSum / float64(stats.TotalChunks)

	logging.Infow(ctx, "Route snapped to trails",
		"snapped_chunks", stats.SnappedChunks,
		"total_chunks", stats.TotalChunks,
		"average_confidence", stats.AverageConfidence)

	return &SnapResult{
		Route: m.merge(processed),
		Stats: stats,
	}, nil
}

// chunk splits route into windows of ChunkSize points, each starting
// ChunkOverlap points before the previous window ended
func (m *Matcher) chunk(route []geo.RouteCoordinate) [][]geo.RouteCoordinate {
	size, overlap := m.config.ChunkSize, m.config.ChunkOverlap
	var chunks [][]geo.RouteCoordinate
	for start := 0; ; start += size - overlap {
		end := start + size
		if end >= len(route) {
			chunks = append(chunks, route[start:])
			break
		}
		chunks = append(chunks, route[start:end])
	}
	return chunks
}

// merge concatenates chunks, dropping the seam points each later chunk repeats
func (m *Matcher) merge(chunks [][]geo.RouteCoordinate) []geo.RouteCoordinate {
	var merged []geo.RouteCoordinate
	for i, c := range chunks {
		if i > 0 {
			if len(c) <= m.config.ChunkOverlap {
				continue
			}
			c = c[m.config.ChunkOverlap:]
		}
		merged = append(merged, c...)
	}
	return merged
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
