package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/journeys/server/internal/config"
	"github.com/dpup/journeys/server/internal/lib/editor"
	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/trails"
	"github.com/dpup/journeys/server/internal/store"
)

var testRoute = []geo.RouteCoordinate{
	{-120.0, 38.0, 1200},
	{-120.01, 38.01, 1250},
	{-120.02, 38.02, 1300},
}

type fakeMatcher struct {
	snapped *trails.SnapResult
	err     error
	calls   int
}

func (f *fakeMatcher) ProcessDrawnSegment(ctx context.Context, points []geo.Coordinate) trails.DrawnSegment {
	return trails.DrawnSegment{}
}

func (f *fakeMatcher) SnapRoute(ctx context.Context, route []geo.RouteCoordinate, onProgress trails.ProgressFunc) (*trails.SnapResult, error) {
	f.calls++
	if onProgress != nil {
		onProgress(1)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.snapped != nil {
		return f.snapped, nil
	}
	return &trails.SnapResult{Route: route, Stats: trails.SnapStats{TotalChunks: 1}}, nil
}

func newTestService(t *testing.T, matcher *fakeMatcher) (*EditorService, *store.Store, string) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	journeyID, err := db.CreateJourney(ctx, "Test", testRoute)
	require.NoError(t, err)

	cfg := config.DefaultConfig().Editor
	return NewEditorService(db, matcher, &cfg), db, journeyID
}

func TestEditorService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, db, journeyID := newTestService(t, &fakeMatcher{})

	sess, err := svc.OpenSession(ctx, journeyID)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, journeyID, sess.View.JourneyID)
	assert.Equal(t, editor.ModeCamps, sess.View.Mode)
	assert.Equal(t, 1, svc.Len())

	view, err := svc.Dispatch(ctx, sess.ID, editor.RouteLineClick{Position: geo.Coordinate{-120.01, 38.01}})
	require.NoError(t, err)
	require.Len(t, view.Camps, 1)
	assert.True(t, view.IsDirty)

	result, view, err := svc.Save(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.False(t, view.IsDirty)

	data, err := db.GetRouteAndWaypoints(ctx, journeyID)
	require.NoError(t, err)
	require.Len(t, data.Waypoints, 1)
	assert.Equal(t, view.Camps[0].ID, data.Waypoints[0].ID)
	assert.Equal(t, 1, data.Waypoints[0].DayNumber)

	require.NoError(t, svc.CloseSession(ctx, sess.ID))
	assert.Equal(t, 0, svc.Len())

	_, err = svc.View(ctx, sess.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(svc.CloseSession(ctx, sess.ID), ErrSessionNotFound))
}

func TestEditorService_RejectedEventReturnsView(t *testing.T) {
	ctx := context.Background()
	svc, _, journeyID := newTestService(t, &fakeMatcher{})

	sess, err := svc.OpenSession(ctx, journeyID)
	require.NoError(t, err)

	view, err := svc.Dispatch(ctx, sess.ID, editor.SetMode{Mode: "unknown"})
	assert.Error(t, err)
	assert.Equal(t, editor.ModeCamps, view.Mode)
	assert.NotEmpty(t, view.StatusMessage)
}

func TestEditorService_OpenUnknownJourney(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeMatcher{})
	_, err := svc.OpenSession(context.Background(), "missing")
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Len())
}

func TestEditorService_CloseIdle(t *testing.T) {
	ctx := context.Background()
	svc, _, journeyID := newTestService(t, &fakeMatcher{})

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale, err := svc.OpenSession(ctx, journeyID)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, err := svc.OpenSession(ctx, journeyID)
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	reaper := NewSessionReaper(svc, svc.config)
	assert.Equal(t, 1, reaper.Sweep(ctx))

	_, err = svc.View(ctx, stale.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = svc.View(ctx, fresh.ID)
	assert.NoError(t, err, "Touched 15 minutes ago")
}

func TestSessionReaper_StartStop(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeMatcher{})
	cfg := config.EditorConfig{SessionIdle: time.Minute, ReapInterval: 10 * time.Millisecond}
	reaper := NewSessionReaper(svc, &cfg)

	reaper.Start(context.Background())
	reaper.Start(context.Background())
	assert.True(t, reaper.IsRunning())

	reaper.Stop()
	assert.False(t, reaper.IsRunning())
	reaper.Stop()
}

func TestEditorService_SnapJourneyRoute(t *testing.T) {
	ctx := context.Background()
	snapped := []geo.RouteCoordinate{{-120.0, 38.0, 1200}, {-120.02, 38.02, 1300}}
	matcher := &fakeMatcher{snapped: &trails.SnapResult{
		Route: snapped,
		Stats: trails.SnapStats{SnappedChunks: 1, TotalChunks: 1, AverageConfidence: 0.9},
	}}
	svc, db, journeyID := newTestService(t, matcher)

	var progress []float64
	result, err := svc.SnapJourneyRoute(ctx, journeyID, true, func(f float64) { progress = append(progress, f) })
	require.NoError(t, err)
	assert.Equal(t, snapped, result.Route)
	assert.Equal(t, []float64{1}, progress)

	data, err := db.GetRouteAndWaypoints(ctx, journeyID)
	require.NoError(t, err)
	assert.Equal(t, testRoute, data.Route, "Dry run leaves the stored route alone")

	_, err = svc.SnapJourneyRoute(ctx, journeyID, false, nil)
	require.NoError(t, err)
	data, err = db.GetRouteAndWaypoints(ctx, journeyID)
	require.NoError(t, err)
	assert.Equal(t, snapped, data.Route)
}

func TestEditorService_SnapJourneyRoute_Errors(t *testing.T) {
	ctx := context.Background()
	matcher := &fakeMatcher{}
	svc, db, journeyID := newTestService(t, matcher)

	// Nothing snapped: the stored route is not rewritten
	require.NoError(t, db.UpdateRoute(ctx, journeyID, testRoute))
	_, err := svc.SnapJourneyRoute(ctx, journeyID, false, nil)
	require.NoError(t, err)

	empty, err := db.CreateJourney(ctx, "Empty", nil)
	require.NoError(t, err)
	_, err = svc.SnapJourneyRoute(ctx, empty, false, nil)
	assert.True(t, errors.Is(err, ErrNothingToSnap))

	matcher.err = context.Canceled
	_, err = svc.SnapJourneyRoute(ctx, journeyID, false, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.SnapJourneyRoute(ctx, "missing", false, nil)
	assert.Error(t, err)
}
