package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

func TestStages(t *testing.T) {
	route := []geo.RouteCoordinate{
		{0, 0, 100},
		{0.01, 0, 200},
		{0.02, 0, 150},
		{0.03, 0, 150},
		{0.04, 0, 300},
	}
	waypoints := []Waypoint{
		{Name: "Second", RoutePointIndex: Int(3)},
		{Name: "First", RoutePointIndex: Int(1)},
		{Name: "Unplaced"},
	}

	stages := Stages(route, waypoints)
	require.Len(t, stages, 3)

	assert.Equal(t, 1, stages[0].Day)
	assert.Equal(t, "Start", stages[0].From)
	assert.Equal(t, "First", stages[0].To)
	assert.Equal(t, 100.0, stages[0].ElevationGain)

	assert.Equal(t, "First", stages[1].From)
	assert.Equal(t, "Second", stages[1].To)
	assert.Equal(t, 0.0, stages[1].ElevationGain)
	assert.Equal(t, 50.0, stages[1].ElevationLoss)
	assert.InDelta(t, 2.22, stages[1].DistanceKm, 0.01)

	assert.Equal(t, 3, stages[2].Day)
	assert.Equal(t, "Finish", stages[2].To)
	assert.Equal(t, geo.Easy, stages[2].Difficulty)
}

func TestStages_CampAtFinish(t *testing.T) {
	route := []geo.RouteCoordinate{{0, 0, 0}, {0.01, 0, 0}}
	stages := Stages(route, []Waypoint{{Name: "End", RoutePointIndex: Int(1)}})
	require.Len(t, stages, 1)
	assert.Equal(t, "End", stages[0].To)

	assert.Nil(t, Stages(route[:1], nil))
}
