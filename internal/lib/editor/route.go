package editor

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

// insertRoutePoint adds a vertex after the segment whose midpoint is nearest
// the click, with elevation interpolated from its new neighbours
func (e *Editor) insertRoutePoint(position geo.Coordinate) error {
	if len(e.route) < 2 {
		return ErrNoRoute
	}

	best, bestDistance := 0, math.Inf(1)
	for i := 0; i+1 < len(e.route); i++ {
		a, b := e.route[i], e.route[i+1]
		mid := geo.Coordinate{(a.Lon() + b.Lon()) / 2, (a.Lat() + b.Lat()) / 2}
		if d := geo.PlanarDistance(position, mid); d < bestDistance {
			best, bestDistance = i, d
		}
	}

	a, b := e.route[best], e.route[best+1]
	t := geo.ProjectOntoSegment(position, a.Coordinate(), b.Coordinate())
	elevation := geo.InterpolateRouteCoordinate(a, b, t).Elevation()

	e.pushHistory()
	e.route = slices.Insert(e.route, best+1, position.WithElevation(elevation))
	e.routeDirty = true
	e.selectedRoutePoint = -1
	return nil
}

// moveRoutePoint moves one vertex and re-interpolates the hidden vertices
// between it and its visible neighbours on both sides
func (e *Editor) moveRoutePoint(index int, position geo.Coordinate) error {
	if index < 0 || index >= len(e.route) {
		return ErrPointOutOfRange
	}

	prev, next := -1, -1
	for _, v := range VisibleIndices(len(e.route)) {
		if v < index {
			prev = v
		} else if v > index && next < 0 {
			next = v
		}
	}

	elevation := e.route[index].Elevation()
	switch {
	case prev >= 0 && next >= 0:
		elevation = (e.route[prev].Elevation() + e.route[next].Elevation()) / 2
	case prev >= 0:
		elevation = e.route[prev].Elevation()
	case next >= 0:
		elevation = e.route[next].Elevation()
	}

	e.pushHistory()
	moved := position.WithElevation(elevation)
	e.route[index] = moved

	if prev >= 0 {
		start := e.route[prev]
		for k := prev + 1; k < index; k++ {
			e.route[k] = geo.InterpolateRouteCoordinate(start, moved, float64(k-prev)/float64(index-prev))
		}
	}
	if next >= 0 {
		end := e.route[next]
		for k := index + 1; k < next; k++ {
			e.route[k] = geo.InterpolateRouteCoordinate(moved, end, float64(k-index)/float64(next-index))
		}
	}

	e.routeDirty = true
	return nil
}

func (e *Editor) deleteRoutePoint(index int) error {
	if index < 0 || index >= len(e.route) {
		return ErrPointOutOfRange
	}
	if len(e.route)-1 < 2 {
		return ErrRouteTooShort
	}
	e.pushHistory()
	e.route = slices.Delete(e.route, index, index+1)
	e.routeDirty = true
	e.selectedRoutePoint = -1
	return nil
}

// finishDraw commits the stroke in progress. Matching runs without holding
// the editor lock so other events are still served; a second stroke cannot
// be committed until the first resolves.
func (e *Editor) finishDraw(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if !e.drawing {
		e.mu.Unlock()
		return nil
	}
	points := e.drawPoints
	e.drawing = false
	e.drawPoints = nil
	if len(points) < 2 {
		e.mu.Unlock()
		return nil
	}
	if e.processingDraw {
		e.setStatus(ErrDrawInProgress.Error())
		e.mu.Unlock()
		return ErrDrawInProgress
	}
	e.processingDraw = true
	sessionCtx := e.ctx
	e.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessionCtx, cancel)
	segment := e.matcher.ProcessDrawnSegment(callCtx, points)
	stop()
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.processingDraw = false

	if e.closed {
		logging.Debugw(ctx, "Editor: discarding drawn segment after close", "journey_id", e.journeyID)
		return ErrEditorClosed
	}
	if len(segment.Coordinates) == 0 {
		return nil
	}

	coords := slices.Clone(segment.Coordinates)
	if !segment.WasSnapped {
		elevation := 0.0
		if len(e.route) > 0 {
			elevation = e.route[len(e.route)-1].Elevation()
		}
		for i := range coords {
			coords[i][2] = elevation
		}
	}

	e.pushHistory()
	e.route = append(e.route, coords...)
	e.routeDirty = true

	if segment.WasSnapped {
		e.setStatus(fmt.Sprintf("Snapped to trail (%d%% match)", int(math.Round(segment.Confidence*100))))
	} else {
		e.setStatus(fmt.Sprintf("Added %d points", len(coords)))
	}
	return nil
}
