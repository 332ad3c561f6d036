package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

// MatchKey derives the cache key for a map-matching request from the point
// count and the first, middle and last points rounded to 4 decimal places.
// Sequences differing only in other interior points share a key.
func MatchKey(points []geo.Coordinate) string {
	if len(points) == 0 {
		return "match:0"
	}

	parts := []string{
		strconv.Itoa(len(points)),
		formatPoint(points[0]),
		formatPoint(points[len(points)/2]),
		formatPoint(points[len(points)-1]),
	}
	return "match:" + strings.Join(parts, "|")
}

func formatPoint(c geo.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f", c.Lon(), c.Lat())
}
