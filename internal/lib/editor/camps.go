package editor

import (
	"fmt"
	"slices"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
)

// moveCamp snaps a dropped camp onto the loaded route, never the edited one
func (e *Editor) moveCamp(id string, position geo.Coordinate) error {
	i := e.campIndex(id)
	if i < 0 {
		return ErrCampNotFound
	}
	nearest := geo.FindNearestPointOnRoute(position, e.originalRoute)
	if nearest == nil {
		return ErrNoRoute
	}

	e.pushHistory()
	c := &e.camps[i]
	c.Coordinates = nearest.Coordinates.Coordinate()
	c.Elevation = nearest.Coordinates.Elevation()
	c.RouteDistanceKm = journey.Float(nearest.RouteDistance)
	c.RoutePointIndex = journey.Int(nearest.Index)
	c.IsDirty = true
	return nil
}

// addCamp creates a camp at the route position nearest the click. Its day is
// provisional; days are renumbered in route order on save.
func (e *Editor) addCamp(position geo.Coordinate) error {
	nearest := geo.FindNearestPointOnRoute(position, e.originalRoute)
	if nearest == nil {
		return ErrNoRoute
	}

	day := 1
	for _, c := range e.camps {
		if c.RouteDistanceKm != nil && *c.RouteDistanceKm < nearest.RouteDistance {
			day++
		}
	}

	e.pushHistory()
	camp := Camp{
		Waypoint: journey.Waypoint{
			ID:              TempIDPrefix + e.opts.NewID(),
			JourneyID:       e.journeyID,
			Name:            fmt.Sprintf("Camp %d", len(e.camps)+1),
			DayNumber:       day,
			Coordinates:     nearest.Coordinates.Coordinate(),
			Elevation:       nearest.Coordinates.Elevation(),
			RouteDistanceKm: journey.Float(nearest.RouteDistance),
			RoutePointIndex: journey.Int(nearest.Index),
		},
		IsDirty: true,
	}
	e.camps = append(e.camps, camp)
	e.selectedCampID = camp.ID
	return nil
}

func (e *Editor) deleteCamp(id string) error {
	i := e.campIndex(id)
	if i < 0 {
		return ErrCampNotFound
	}
	e.pushHistory()
	e.camps = slices.Delete(e.camps, i, i+1)
	if e.selectedCampID == id {
		e.selectedCampID = ""
	}
	return nil
}

func (e *Editor) updateCampDetails(ev UpdateCampDetails) error {
	i := e.campIndex(ev.CampID)
	if i < 0 {
		return ErrCampNotFound
	}
	e.pushHistory()
	c := &e.camps[i]
	if ev.Name != nil {
		c.Name = *ev.Name
	}
	if ev.Notes != nil {
		c.Notes = *ev.Notes
	}
	if ev.Highlights != nil {
		c.Highlights = slices.Clone(ev.Highlights)
	}
	c.IsDirty = true
	return nil
}

func (e *Editor) deleteSelected() error {
	switch {
	case e.mode == ModeCamps && e.selectedCampID != "":
		return e.deleteCamp(e.selectedCampID)
	case e.mode == ModeRoute && e.subMode == SubModeEdit && e.selectedRoutePoint >= 0:
		return e.deleteRoutePoint(e.selectedRoutePoint)
	}
	return nil
}
