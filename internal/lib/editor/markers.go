package editor

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
)

// TempIDPrefix marks camps that exist only locally until the next save
const TempIDPrefix = "temp-"

// Camp is an editable waypoint
type Camp struct {
	journey.Waypoint
	IsDirty bool `json:"isDirty"`
}

// IsPendingCreate reports whether the camp has not been persisted yet
func (c Camp) IsPendingCreate() bool {
	return strings.HasPrefix(c.ID, TempIDPrefix)
}

func cloneCamps(camps []Camp) []Camp {
	if camps == nil {
		return nil
	}
	out := make([]Camp, len(camps))
	for i, c := range camps {
		out[i] = Camp{Waypoint: c.Waypoint.Clone(), IsDirty: c.IsDirty}
	}
	return out
}

// campSortKey orders camps along the route. Camps without a known route
// distance fall back to dayNumber*1000.
func campSortKey(c Camp) float64 {
	if c.RouteDistanceKm != nil {
		return *c.RouteDistanceKm
	}
	return float64(c.DayNumber) * 1000
}

// SortCamps returns a copy of camps in route order
func SortCamps(camps []Camp) []Camp {
	sorted := cloneCamps(camps)
	slices.SortStableFunc(sorted, func(a, b Camp) int {
		ka, kb := campSortKey(a), campSortKey(b)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
	return sorted
}

// SampleRate is the stride used to pick which route points get handles
func SampleRate(total int) int {
	switch {
	case total < 100:
		return 1
	case total < 500:
		return 5
	case total < 2000:
		return 10
	default:
		return int(math.Ceil(float64(total) / 200))
	}
}

// VisibleIndices returns the route indices shown as handles. The last point
// is always included.
func VisibleIndices(total int) []int {
	if total == 0 {
		return nil
	}
	rate := SampleRate(total)
	indices := make([]int, 0, total/rate+2)
	for i := 0; i < total; i += rate {
		indices = append(indices, i)
	}
	if indices[len(indices)-1] != total-1 {
		indices = append(indices, total-1)
	}
	return indices
}

// MarkerKind distinguishes the handles drawn on the map
type MarkerKind string

const (
	MarkerCamp       MarkerKind = "camp"
	MarkerRoutePoint MarkerKind = "route-point"
)

// MarkerSpec describes one map marker. It carries no rendering state.
type MarkerSpec struct {
	Kind      MarkerKind     `json:"kind"`
	ID        string         `json:"id"`
	Index     int            `json:"index"`
	Label     string         `json:"label,omitempty"`
	Position  geo.Coordinate `json:"position"`
	Selected  bool           `json:"selected"`
	Draggable bool           `json:"draggable"`
	Dirty     bool           `json:"dirty,omitempty"`
}

// State is the part of the editor that determines what is drawn
type State struct {
	Mode               Mode
	RouteSubMode       RouteSubMode
	Camps              []Camp
	Route              []geo.RouteCoordinate
	SelectedCampID     string
	SelectedRoutePoint int
}

// Markers computes the full marker set for s. Camps are numbered in route
// order. Route point handles appear only in the route edit sub-mode.
func Markers(s State) []MarkerSpec {
	var markers []MarkerSpec

	campsDraggable := s.Mode == ModeCamps
	for i, c := range SortCamps(s.Camps) {
		markers = append(markers, MarkerSpec{
			Kind:      MarkerCamp,
			ID:        c.ID,
			Index:     i,
			Label:     strconv.Itoa(i + 1),
			Position:  c.Coordinates,
			Selected:  s.Mode == ModeCamps && c.ID == s.SelectedCampID,
			Draggable: campsDraggable,
			Dirty:     c.IsDirty,
		})
	}

	if s.Mode != ModeRoute || s.RouteSubMode != SubModeEdit {
		return markers
	}

	for _, idx := range VisibleIndices(len(s.Route)) {
		markers = append(markers, MarkerSpec{
			Kind:      MarkerRoutePoint,
			ID:        "route-" + strconv.Itoa(idx),
			Index:     idx,
			Position:  s.Route[idx].Coordinate(),
			Selected:  idx == s.SelectedRoutePoint,
			Draggable: true,
		})
	}
	return markers
}
