package editor

import (
	"github.com/dpup/journeys/server/internal/lib/geo"
)

// Mode is the top-level editing mode
type Mode string

const (
	ModeCamps Mode = "camps"
	ModeRoute Mode = "route"
)

// RouteSubMode selects how the route is edited while in ModeRoute
type RouteSubMode string

const (
	SubModeEdit RouteSubMode = "edit"
	SubModeDraw RouteSubMode = "draw"
)

// Event is a user interaction fed to Editor.Dispatch
type Event interface {
	eventName() string
}

// SetMode switches between camp and route editing
type SetMode struct {
	Mode Mode
}

// SetRouteSubMode switches between editing points and drawing new route
type SetRouteSubMode struct {
	SubMode RouteSubMode
}

// SelectCamp selects a camp. An empty ID clears the selection.
type SelectCamp struct {
	CampID string
}

// SelectRoutePoint selects a route point. A negative index clears the selection.
type SelectRoutePoint struct {
	Index int
}

// CampDragEnd is the release of a dragged camp marker
type CampDragEnd struct {
	CampID   string
	Position geo.Coordinate
}

// RouteLineClick is a click on the rendered route line. It adds a camp in
// ModeCamps and inserts a route point in the edit sub-mode.
type RouteLineClick struct {
	Position geo.Coordinate
}

// RoutePointDragEnd is the release of a dragged route point handle
type RoutePointDragEnd struct {
	Index    int
	Position geo.Coordinate
}

// DeleteSelected removes the selected camp or route point
type DeleteSelected struct{}

// DrawStart begins a freehand stroke
type DrawStart struct {
	Position geo.Coordinate
}

// DrawMove extends the stroke in progress
type DrawMove struct {
	Position geo.Coordinate
}

// DrawEnd finishes the stroke and appends it to the route
type DrawEnd struct{}

type Undo struct{}

type Redo struct{}

// UpdateCampDetails edits the descriptive fields of a camp. Nil fields are left unchanged.
type UpdateCampDetails struct {
	CampID     string
	Name       *string
	Notes      *string
	Highlights []string
}

func (SetMode) eventName() string           { return "setMode" }
func (SetRouteSubMode) eventName() string   { return "setRouteSubMode" }
func (SelectCamp) eventName() string        { return "selectCamp" }
func (SelectRoutePoint) eventName() string  { return "selectRoutePoint" }
func (CampDragEnd) eventName() string       { return "campDragEnd" }
func (RouteLineClick) eventName() string    { return "routeLineClick" }
func (RoutePointDragEnd) eventName() string { return "routePointDragEnd" }
func (DeleteSelected) eventName() string    { return "deleteSelected" }
func (DrawStart) eventName() string         { return "drawStart" }
func (DrawMove) eventName() string          { return "drawMove" }
func (DrawEnd) eventName() string           { return "drawEnd" }
func (Undo) eventName() string              { return "undo" }
func (Redo) eventName() string              { return "redo" }
func (UpdateCampDetails) eventName() string { return "updateCampDetails" }

// EventName returns the wire name of e
func EventName(e Event) string {
	return e.eventName()
}
