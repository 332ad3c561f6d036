package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
)

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 1, SampleRate(99))
	assert.Equal(t, 5, SampleRate(100))
	assert.Equal(t, 5, SampleRate(499))
	assert.Equal(t, 10, SampleRate(500))
	assert.Equal(t, 10, SampleRate(1999))
	assert.Equal(t, 10, SampleRate(2000))
	assert.Equal(t, 13, SampleRate(2500))
}

func TestVisibleIndices(t *testing.T) {
	assert.Nil(t, VisibleIndices(0))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, VisibleIndices(5))

	indices := VisibleIndices(120)
	require.Len(t, indices, 25)
	assert.Equal(t, 115, indices[23])
	assert.Equal(t, 119, indices[24], "Last point is always visible")

	// Exactly on stride, no duplicate last point
	indices = VisibleIndices(101)
	assert.Equal(t, 100, indices[len(indices)-1])
	assert.Equal(t, 95, indices[len(indices)-2])
}

func TestSortCamps(t *testing.T) {
	camps := []Camp{
		{Waypoint: journey.Waypoint{ID: "no-distance", DayNumber: 1}},
		{Waypoint: journey.Waypoint{ID: "far", DayNumber: 9, RouteDistanceKm: journey.Float(500)}},
		{Waypoint: journey.Waypoint{ID: "near", DayNumber: 5, RouteDistanceKm: journey.Float(20)}},
	}
	sorted := SortCamps(camps)
	assert.Equal(t, []string{"near", "far", "no-distance"}, campIDs(sorted))
	assert.Equal(t, "no-distance", camps[0].ID, "Input is not reordered")
}

func TestMarkers(t *testing.T) {
	state := State{
		Mode: ModeCamps,
		Camps: []Camp{
			{Waypoint: journey.Waypoint{ID: "b", Coordinates: geo.Coordinate{1.5, 0}, RouteDistanceKm: journey.Float(166)}},
			{Waypoint: journey.Waypoint{ID: "a", Coordinates: geo.Coordinate{0.1, 0}, RouteDistanceKm: journey.Float(11)}, IsDirty: true},
		},
		Route:              equatorRoute,
		SelectedCampID:     "b",
		SelectedRoutePoint: 1,
	}

	markers := Markers(state)
	require.Len(t, markers, 2)
	assert.Equal(t, MarkerSpec{Kind: MarkerCamp, ID: "a", Index: 0, Label: "1", Position: geo.Coordinate{0.1, 0}, Draggable: true, Dirty: true}, markers[0])
	assert.Equal(t, MarkerSpec{Kind: MarkerCamp, ID: "b", Index: 1, Label: "2", Position: geo.Coordinate{1.5, 0}, Selected: true, Draggable: true}, markers[1])

	state.Mode = ModeRoute
	state.RouteSubMode = SubModeEdit
	markers = Markers(state)
	require.Len(t, markers, 5)
	assert.False(t, markers[0].Draggable, "Camps are fixed while editing the route")
	assert.False(t, markers[1].Selected)
	assert.Equal(t, MarkerSpec{Kind: MarkerRoutePoint, ID: "route-1", Index: 1, Position: geo.Coordinate{1, 0}, Selected: true, Draggable: true}, markers[3])

	state.RouteSubMode = SubModeDraw
	assert.Len(t, Markers(state), 2, "No route handles while drawing")

	// Pure: same state, same markers
	assert.Equal(t, Markers(state), Markers(state))
}

func TestHistory(t *testing.T) {
	h := NewHistory(2)
	s := func(lon float64) Snapshot {
		return Snapshot{Route: []geo.RouteCoordinate{{lon, 0, 0}}}
	}

	h.Push(s(1))
	h.Push(s(2))
	h.Push(s(3))

	prev, ok := h.Undo(s(4))
	require.True(t, ok)
	assert.Equal(t, s(3), prev)
	prev, ok = h.Undo(s(3))
	require.True(t, ok)
	assert.Equal(t, s(2), prev)
	_, ok = h.Undo(s(2))
	assert.False(t, ok, "Oldest snapshot was dropped")

	next, ok := h.Redo(s(2))
	require.True(t, ok)
	assert.Equal(t, s(3), next)

	h.Clear()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}
