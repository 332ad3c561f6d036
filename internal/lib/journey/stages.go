package journey

import (
	"cmp"
	"slices"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

// Stage is the stretch of route walked on one day, ending at a camp or at the finish
type Stage struct {
	Day  int    `json:"day"`
	From string `json:"from"`
	To   string `json:"to"`
	geo.SegmentStats
	Difficulty  geo.Difficulty `json:"difficulty"`
	HikingHours float64        `json:"hikingHours"`
}

// Stages splits route at the camps' route positions. Camps without a route
// position are ignored.
func Stages(route []geo.RouteCoordinate, waypoints []Waypoint) []Stage {
	if len(route) < 2 {
		return nil
	}

	var camps []Waypoint
	for _, w := range waypoints {
		if w.RoutePointIndex != nil && *w.RoutePointIndex > 0 && *w.RoutePointIndex < len(route) {
			camps = append(camps, w)
		}
	}
	slices.SortStableFunc(camps, func(a, b Waypoint) int {
		return cmp.Compare(*a.RoutePointIndex, *b.RoutePointIndex)
	})

	var stages []Stage
	start, from := 0, "Start"
	add := func(end int, to string) {
		stats := geo.CalculateSegmentStats(route, start, end)
		stages = append(stages, Stage{
			Day:          len(stages) + 1,
			From:         from,
			To:           to,
			SegmentStats: stats,
			Difficulty:   geo.EstimateDifficulty(stats.DistanceKm, stats.ElevationGain, stats.ElevationLoss),
			HikingHours:  geo.EstimateHikingHours(stats.DistanceKm, stats.ElevationGain, stats.ElevationLoss),
		})
		start, from = end, to
	}

	for _, c := range camps {
		if *c.RoutePointIndex <= start {
			continue
		}
		add(*c.RoutePointIndex, c.Name)
	}
	if start < len(route)-1 {
		add(len(route)-1, "Finish")
	}
	return stages
}
