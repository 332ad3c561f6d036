package editor

import (
	"context"
	"fmt"
	"slices"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/dpup/journeys/server/internal/lib/journey"
)

// SaveResult reports what a save wrote
type SaveResult struct {
	Created      int  `json:"created"`
	Updated      int  `json:"updated"`
	Deleted      int  `json:"deleted"`
	RouteUpdated bool `json:"routeUpdated"`
}

// Save writes the session to the store. Camps are renumbered 1..N in route
// order, pending camps are created, the rest updated, and camps removed since
// loading are deleted. The route is written only if it changed.
//
// When the store implements journey.Transactor all writes share one
// transaction. Otherwise a failure leaves earlier writes in place; local
// state is not rolled back, but camps that were created keep their new ids
// so a retry does not create them twice.
func (e *Editor) Save(ctx context.Context) (*SaveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEditorClosed
	}

	ordered := SortCamps(e.camps)
	for i := range ordered {
		ordered[i].DayNumber = i + 1
		ordered[i].JourneyID = e.journeyID
	}

	current := make(map[string]bool, len(ordered))
	for _, c := range ordered {
		current[c.ID] = true
	}
	var removed []string
	for _, c := range e.originalCamps {
		if !current[c.ID] {
			removed = append(removed, c.ID)
		}
	}
	routeChanged := !slices.Equal(e.route, e.originalRoute)

	result := &SaveResult{}
	createdIDs := map[string]string{}

	write := func(ctx context.Context, store journey.Store) error {
		for _, c := range ordered {
			if c.IsPendingCreate() {
				created, err := store.CreateWaypoint(ctx, c.Fields())
				if err != nil {
					return fmt.Errorf("failed to create camp %q: %w", c.Name, err)
				}
				createdIDs[c.ID] = created.ID
				result.Created++
				continue
			}
			if err := store.UpdateWaypoint(ctx, c.ID, c.Fields()); err != nil {
				return fmt.Errorf("failed to update camp %q: %w", c.Name, err)
			}
			result.Updated++
		}

		for _, id := range removed {
			if err := store.DeleteWaypoint(ctx, id); err != nil {
				if !errors.Is(err, journey.ErrWaypointNotFound) {
					return fmt.Errorf("failed to delete camp %s: %w", id, err)
				}
				logging.Warnw(ctx, "Editor: camp already deleted", "waypoint_id", id)
			}
			result.Deleted++
		}

		if routeChanged {
			if err := store.UpdateRoute(ctx, e.journeyID, e.route); err != nil {
				return fmt.Errorf("failed to update route: %w", err)
			}
			result.RouteUpdated = true
		}
		return nil
	}

	var err error
	tx, transactional := e.store.(journey.Transactor)
	if transactional {
		err = tx.WithinTransaction(ctx, write)
	} else {
		err = write(ctx, e.store)
	}

	if err != nil {
		if !transactional {
			e.adoptCreatedIDs(ordered, createdIDs)
		}
		logging.Errorw(ctx, "Editor: save failed", "journey_id", e.journeyID, "error", err)
		e.setStatus("Save failed: " + err.Error())
		return nil, fmt.Errorf("failed to save journey %s: %w", e.journeyID, err)
	}

	for i := range ordered {
		if id, ok := createdIDs[ordered[i].ID]; ok {
			if e.selectedCampID == ordered[i].ID {
				e.selectedCampID = id
			}
			ordered[i].ID = id
		}
		ordered[i].IsDirty = false
	}

	e.camps = ordered
	e.originalCamps = cloneCamps(ordered)
	e.originalRoute = slices.Clone(e.route)
	e.routeDirty = false
	e.history.Clear()
	e.setStatus("Saved")

	logging.Infow(ctx, "Editor: journey saved",
		"journey_id", e.journeyID,
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"route_updated", result.RouteUpdated)

	return result, nil
}

// adoptCreatedIDs swaps placeholder ids for ids the store already assigned
// and adds the written camps to the baseline. The live camps and the history
// both get the new ids so undo cannot resurrect a placeholder for a camp that
// now exists upstream.
func (e *Editor) adoptCreatedIDs(written []Camp, createdIDs map[string]string) {
	if len(createdIDs) == 0 {
		return
	}
	for _, c := range written {
		if id, ok := createdIDs[c.ID]; ok {
			saved := Camp{Waypoint: c.Waypoint.Clone()}
			saved.ID = id
			e.originalCamps = append(e.originalCamps, saved)
		}
	}
	rename := func(camps []Camp) {
		for i := range camps {
			if id, ok := createdIDs[camps[i].ID]; ok {
				camps[i].ID = id
			}
		}
	}
	rename(e.camps)
	for i := range e.history.undo {
		rename(e.history.undo[i].Camps)
	}
	for i := range e.history.redo {
		rename(e.history.redo[i].Camps)
	}
	if id, ok := createdIDs[e.selectedCampID]; ok {
		e.selectedCampID = id
	}
	e.recomputeDirty()
}
