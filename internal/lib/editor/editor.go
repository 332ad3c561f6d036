package editor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
	"github.com/dpup/journeys/server/internal/lib/trails"
)

// DrawProcessor turns a freehand stroke into route geometry
type DrawProcessor interface {
	ProcessDrawnSegment(ctx context.Context, points []geo.Coordinate) trails.DrawnSegment
}

// Options configures an Editor
type Options struct {
	HistoryDepth    int
	DrawThresholdKm float64
	StatusDuration  time.Duration

	// Clock and NewID are replaceable for tests
	Clock func() time.Time
	NewID func() string
}

// DefaultOptions returns the standard editor options
func DefaultOptions() Options {
	return Options{
		HistoryDepth:    DefaultHistoryDepth,
		DrawThresholdKm: 0.005,
		StatusDuration:  2 * time.Second,
		Clock:           time.Now,
		NewID:           uuid.NewString,
	}
}

// Editor is the in-memory editing session for one journey's camps and route.
// All state changes go through Dispatch; nothing is written to the store until Save.
type Editor struct {
	mu sync.Mutex

	journeyID string
	store     journey.Store
	matcher   DrawProcessor
	opts      Options

	// baseline as loaded (or as last saved)
	originalCamps []Camp
	originalRoute []geo.RouteCoordinate

	camps      []Camp
	route      []geo.RouteCoordinate
	routeDirty bool

	mode               Mode
	subMode            RouteSubMode
	selectedCampID     string
	selectedRoutePoint int

	history *History

	drawing        bool
	drawPoints     []geo.Coordinate
	processingDraw bool

	status      string
	statusUntil time.Time

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// Open loads a journey from store and starts an editing session for it
func Open(ctx context.Context, store journey.Store, matcher DrawProcessor, journeyID string, opts Options) (*Editor, error) {
	data, err := store.GetRouteAndWaypoints(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journey %s: %w", journeyID, err)
	}
	return New(store, matcher, data, opts), nil
}

// New starts an editing session over data. data is deep copied; later edits
// never touch it.
func New(store journey.Store, matcher DrawProcessor, data *journey.RouteAndWaypoints, opts Options) *Editor {
	defaults := DefaultOptions()
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = defaults.HistoryDepth
	}
	if opts.DrawThresholdKm <= 0 {
		opts.DrawThresholdKm = defaults.DrawThresholdKm
	}
	if opts.StatusDuration <= 0 {
		opts.StatusDuration = defaults.StatusDuration
	}
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}
	if opts.NewID == nil {
		opts.NewID = defaults.NewID
	}

	camps := make([]Camp, len(data.Waypoints))
	for i, w := range data.Waypoints {
		camps[i] = Camp{Waypoint: w.Clone()}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Editor{
		journeyID:          data.JourneyID,
		store:              store,
		matcher:            matcher,
		opts:               opts,
		originalCamps:      camps,
		originalRoute:      slices.Clone(data.Route),
		camps:              cloneCamps(camps),
		route:              slices.Clone(data.Route),
		mode:               ModeCamps,
		subMode:            SubModeEdit,
		selectedRoutePoint: -1,
		history:            NewHistory(opts.HistoryDepth),
		ctx:                ctx,
		cancel:             cancel,
	}
}

// JourneyID returns the journey being edited
func (e *Editor) JourneyID() string {
	return e.journeyID
}

// Close ends the session. An in-flight draw is cancelled and its result discarded.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.drawing = false
	e.drawPoints = nil
	e.cancel()
}

// Closed reports whether Close has been called
func (e *Editor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Dispatch applies one user event. Rejected events leave state unchanged and
// set the status message to the reason.
func (e *Editor) Dispatch(ctx context.Context, ev Event) error {
	if _, ok := ev.(DrawEnd); ok {
		return e.finishDraw(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEditorClosed
	}
	if err := e.apply(ev); err != nil {
		e.setStatus(err.Error())
		return err
	}
	return nil
}

func (e *Editor) apply(ev Event) error {
	switch ev := ev.(type) {
	case SetMode:
		return e.setMode(ev.Mode)
	case SetRouteSubMode:
		return e.setRouteSubMode(ev.SubMode)
	case SelectCamp:
		return e.selectCamp(ev.CampID)
	case SelectRoutePoint:
		return e.selectRoutePoint(ev.Index)
	case CampDragEnd:
		if e.mode != ModeCamps {
			return ErrWrongMode
		}
		return e.moveCamp(ev.CampID, ev.Position)
	case RouteLineClick:
		switch {
		case e.mode == ModeCamps:
			return e.addCamp(ev.Position)
		case e.subMode == SubModeEdit:
			return e.insertRoutePoint(ev.Position)
		}
		return nil
	case RoutePointDragEnd:
		if e.mode != ModeRoute || e.subMode != SubModeEdit {
			return ErrWrongMode
		}
		return e.moveRoutePoint(ev.Index, ev.Position)
	case DeleteSelected:
		return e.deleteSelected()
	case DrawStart:
		if e.mode != ModeRoute || e.subMode != SubModeDraw {
			return ErrWrongMode
		}
		e.drawing = true
		e.drawPoints = []geo.Coordinate{ev.Position}
		return nil
	case DrawMove:
		if !e.drawing {
			return nil
		}
		last := e.drawPoints[len(e.drawPoints)-1]
		if geo.HaversineDistance(last, ev.Position) > e.opts.DrawThresholdKm {
			e.drawPoints = append(e.drawPoints, ev.Position)
		}
		return nil
	case Undo:
		e.undo()
		return nil
	case Redo:
		e.redo()
		return nil
	case UpdateCampDetails:
		return e.updateCampDetails(ev)
	}
	return ErrUnknownEvent
}

func (e *Editor) setMode(mode Mode) error {
	if mode != ModeCamps && mode != ModeRoute {
		return ErrInvalidMode
	}
	if mode != e.mode {
		e.mode = mode
		e.clearSelection()
		e.drawing = false
		e.drawPoints = nil
	}
	return nil
}

func (e *Editor) setRouteSubMode(subMode RouteSubMode) error {
	if subMode != SubModeEdit && subMode != SubModeDraw {
		return ErrInvalidMode
	}
	if subMode != e.subMode {
		e.subMode = subMode
		e.selectedRoutePoint = -1
		e.drawing = false
		e.drawPoints = nil
	}
	return nil
}

func (e *Editor) selectCamp(id string) error {
	if id == "" {
		e.selectedCampID = ""
		return nil
	}
	if e.campIndex(id) < 0 {
		return ErrCampNotFound
	}
	e.selectedCampID = id
	return nil
}

func (e *Editor) selectRoutePoint(index int) error {
	if index < 0 {
		e.selectedRoutePoint = -1
		return nil
	}
	if index >= len(e.route) {
		return ErrPointOutOfRange
	}
	e.selectedRoutePoint = index
	return nil
}

func (e *Editor) clearSelection() {
	e.selectedCampID = ""
	e.selectedRoutePoint = -1
}

func (e *Editor) campIndex(id string) int {
	return slices.IndexFunc(e.camps, func(c Camp) bool { return c.ID == id })
}

func (e *Editor) pushHistory() {
	e.history.Push(takeSnapshot(e.camps, e.route))
}

func (e *Editor) undo() {
	prev, ok := e.history.Undo(takeSnapshot(e.camps, e.route))
	if !ok {
		return
	}
	e.restore(prev)
}

func (e *Editor) redo() {
	next, ok := e.history.Redo(takeSnapshot(e.camps, e.route))
	if !ok {
		return
	}
	e.restore(next)
}

func (e *Editor) restore(s Snapshot) {
	e.camps = s.Camps
	e.route = s.Route
	e.recomputeDirty()

	if e.selectedCampID != "" && e.campIndex(e.selectedCampID) < 0 {
		e.selectedCampID = ""
	}
	if e.selectedRoutePoint >= len(e.route) {
		e.selectedRoutePoint = -1
	}
}

// recomputeDirty compares current state against the loaded baseline
func (e *Editor) recomputeDirty() {
	originals := make(map[string]journey.Waypoint, len(e.originalCamps))
	for _, c := range e.originalCamps {
		originals[c.ID] = c.Waypoint
	}
	for i := range e.camps {
		orig, ok := originals[e.camps[i].ID]
		e.camps[i].IsDirty = !ok || !orig.Equal(e.camps[i].Waypoint)
	}
	e.routeDirty = !slices.Equal(e.route, e.originalRoute)
}

func (e *Editor) isDirty() bool {
	if e.routeDirty {
		return true
	}
	current := make(map[string]bool, len(e.camps))
	for _, c := range e.camps {
		if c.IsDirty {
			return true
		}
		current[c.ID] = true
	}
	for _, c := range e.originalCamps {
		if !current[c.ID] {
			return true
		}
	}
	return false
}

func (e *Editor) setStatus(msg string) {
	e.status = msg
	e.statusUntil = e.opts.Clock().Add(e.opts.StatusDuration)
}

func (e *Editor) currentStatus() string {
	if e.status == "" || !e.opts.Clock().Before(e.statusUntil) {
		return ""
	}
	return e.status
}

// View is a read-only snapshot of the session for presentation
type View struct {
	JourneyID          string                `json:"journeyId"`
	Mode               Mode                  `json:"mode"`
	RouteSubMode       RouteSubMode          `json:"routeSubMode,omitempty"`
	Camps              []Camp                `json:"camps"`
	Route              []geo.RouteCoordinate `json:"route"`
	RouteLengthKm      float64               `json:"routeLengthKm"`
	VisibleRoutePoints []int                 `json:"visibleRoutePoints,omitempty"`
	SelectedCampID     string                `json:"selectedCampId,omitempty"`
	SelectedRoutePoint *int                  `json:"selectedRoutePoint,omitempty"`
	Markers            []MarkerSpec          `json:"markers"`
	IsDirty            bool                  `json:"isDirty"`
	RouteDirty         bool                  `json:"routeDirty"`
	CanUndo            bool                  `json:"canUndo"`
	CanRedo            bool                  `json:"canRedo"`
	IsDrawing          bool                  `json:"isDrawing"`
	IsProcessingDraw   bool                  `json:"isProcessingDraw"`
	PanEnabled         bool                  `json:"panEnabled"`
	StatusMessage      string                `json:"statusMessage,omitempty"`
}

// State returns a deep copy of the state that determines the markers
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Editor) state() State {
	return State{
		Mode:               e.mode,
		RouteSubMode:       e.subMode,
		Camps:              cloneCamps(e.camps),
		Route:              slices.Clone(e.route),
		SelectedCampID:     e.selectedCampID,
		SelectedRoutePoint: e.selectedRoutePoint,
	}
}

// View returns the current presentation snapshot
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state()
	v := View{
		JourneyID:        e.journeyID,
		Mode:             s.Mode,
		Camps:            SortCamps(s.Camps),
		Route:            s.Route,
		RouteLengthKm:    geo.RouteLength(s.Route),
		SelectedCampID:   s.SelectedCampID,
		Markers:          Markers(s),
		IsDirty:          e.isDirty(),
		RouteDirty:       e.routeDirty,
		CanUndo:          e.history.CanUndo(),
		CanRedo:          e.history.CanRedo(),
		IsDrawing:        e.drawing,
		IsProcessingDraw: e.processingDraw,
		PanEnabled:       !(s.Mode == ModeRoute && s.RouteSubMode == SubModeDraw),
		StatusMessage:    e.currentStatus(),
	}
	if s.Mode == ModeRoute {
		v.RouteSubMode = s.RouteSubMode
		if s.RouteSubMode == SubModeEdit {
			v.VisibleRoutePoints = VisibleIndices(len(s.Route))
		}
	}
	if s.SelectedRoutePoint >= 0 {
		idx := s.SelectedRoutePoint
		v.SelectedRoutePoint = &idx
	}
	return v
}
