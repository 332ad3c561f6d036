package journey

import (
	"context"
	"slices"

	"github.com/dpup/prefab/errors"
	"google.golang.org/grpc/codes"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

var (
	ErrJourneyNotFound  = errors.NewC("journey not found", codes.NotFound)
	ErrWaypointNotFound = errors.NewC("waypoint not found", codes.NotFound)
)

// Waypoint is a persisted camp along a journey
type Waypoint struct {
	ID              string         `json:"id"`
	JourneyID       string         `json:"journeyId"`
	Name            string         `json:"name"`
	DayNumber       int            `json:"dayNumber"`
	Coordinates     geo.Coordinate `json:"coordinates"`
	Elevation       float64        `json:"elevation"`
	Notes           string         `json:"notes,omitempty"`
	Highlights      []string       `json:"highlights,omitempty"`
	RouteDistanceKm *float64       `json:"routeDistanceKm,omitempty"`
	RoutePointIndex *int           `json:"routePointIndex,omitempty"`
}

// Clone returns a deep copy of w
func (w Waypoint) Clone() Waypoint {
	c := w
	c.Highlights = slices.Clone(w.Highlights)
	if w.RouteDistanceKm != nil {
		d := *w.RouteDistanceKm
		c.RouteDistanceKm = &d
	}
	if w.RoutePointIndex != nil {
		i := *w.RoutePointIndex
		c.RoutePointIndex = &i
	}
	return c
}

// Equal reports whether w and o hold the same values
func (w Waypoint) Equal(o Waypoint) bool {
	return w.ID == o.ID &&
		w.JourneyID == o.JourneyID &&
		w.Name == o.Name &&
		w.DayNumber == o.DayNumber &&
		w.Coordinates == o.Coordinates &&
		w.Elevation == o.Elevation &&
		w.Notes == o.Notes &&
		slices.Equal(w.Highlights, o.Highlights) &&
		equalPtr(w.RouteDistanceKm, o.RouteDistanceKm) &&
		equalPtr(w.RoutePointIndex, o.RoutePointIndex)
}

// Fields returns the writable fields of w
func (w Waypoint) Fields() WaypointFields {
	c := w.Clone()
	return WaypointFields{
		JourneyID:       c.JourneyID,
		Name:            c.Name,
		DayNumber:       c.DayNumber,
		Coordinates:     c.Coordinates,
		Elevation:       c.Elevation,
		Notes:           c.Notes,
		Highlights:      c.Highlights,
		RouteDistanceKm: c.RouteDistanceKm,
		RoutePointIndex: c.RoutePointIndex,
	}
}

// WaypointFields is the payload for creating or updating a waypoint
type WaypointFields struct {
	JourneyID       string         `json:"journeyId"`
	Name            string         `json:"name"`
	DayNumber       int            `json:"dayNumber"`
	Coordinates     geo.Coordinate `json:"coordinates"`
	Elevation       float64        `json:"elevation"`
	Notes           string         `json:"notes,omitempty"`
	Highlights      []string       `json:"highlights,omitempty"`
	RouteDistanceKm *float64       `json:"routeDistanceKm,omitempty"`
	RoutePointIndex *int           `json:"routePointIndex,omitempty"`
}

// RouteAndWaypoints is everything the editor loads for one journey
type RouteAndWaypoints struct {
	JourneyID string                `json:"journeyId"`
	Name      string                `json:"name,omitempty"`
	Route     []geo.RouteCoordinate `json:"route"`
	Waypoints []Waypoint            `json:"waypoints"`
}

// Store persists journey routes and their waypoints
type Store interface {
	GetRouteAndWaypoints(ctx context.Context, journeyID string) (*RouteAndWaypoints, error)
	CreateWaypoint(ctx context.Context, fields WaypointFields) (*Waypoint, error)
	UpdateWaypoint(ctx context.Context, id string, fields WaypointFields) error
	DeleteWaypoint(ctx context.Context, id string) error
	UpdateRoute(ctx context.Context, journeyID string, route []geo.RouteCoordinate) error
}

// Transactor is implemented by stores that can apply several writes atomically.
// fn receives a Store bound to the transaction; returning an error rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
