package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/dpup/journeys/server/internal/config"
	"github.com/dpup/journeys/server/internal/lib/editor"
	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
	"github.com/dpup/journeys/server/internal/lib/trails"
)

var (
	ErrSessionNotFound = errors.NewC("editing session not found", codes.NotFound)
	ErrNothingToSnap   = errors.NewC("journey has no route to snap", codes.FailedPrecondition)
)

// TrailMatcher is what the service needs from the trail matcher
type TrailMatcher interface {
	editor.DrawProcessor
	SnapRoute(ctx context.Context, route []geo.RouteCoordinate, onProgress trails.ProgressFunc) (*trails.SnapResult, error)
}

// Session identifies an open editor
type Session struct {
	ID   string      `json:"sessionId"`
	View editor.View `json:"view"`
}

type session struct {
	id       string
	editor   *editor.Editor
	lastUsed time.Time
}

// EditorService keeps the open editing sessions. Each editor serialises its
// own events; the service only guards the registry.
type EditorService struct {
	store   journey.Store
	matcher TrailMatcher
	config  *config.EditorConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewEditorService creates a new EditorService
func NewEditorService(store journey.Store, matcher TrailMatcher, cfg *config.EditorConfig) *EditorService {
	return &EditorService{
		store:    store,
		matcher:  matcher,
		config:   cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// OpenSession loads a journey and starts editing it
func (s *EditorService) OpenSession(ctx context.Context, journeyID string) (*Session, error) {
	ed, err := editor.Open(ctx, s.store, s.matcher, journeyID, s.config.Options())
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{id: id, editor: ed, lastUsed: s.now()}
	count := len(s.sessions)
	s.mu.Unlock()

	logging.Infow(ctx, "Editor session opened", "session_id", id, "journey_id", journeyID, "open_sessions", count)
	return &Session{ID: id, View: ed.View()}, nil
}

// View returns the session's current view
func (s *EditorService) View(ctx context.Context, sessionID string) (editor.View, error) {
	ed, err := s.lookup(sessionID)
	if err != nil {
		return editor.View{}, err
	}
	return ed.View(), nil
}

// Dispatch applies one event. The view is returned even when the event is
// rejected so callers can show the status message.
func (s *EditorService) Dispatch(ctx context.Context, sessionID string, ev editor.Event) (editor.View, error) {
	ed, err := s.lookup(sessionID)
	if err != nil {
		return editor.View{}, err
	}
	err = ed.Dispatch(ctx, ev)
	if err != nil {
		logging.Debugw(ctx, "Editor event rejected", "session_id", sessionID, "event", editor.EventName(ev), "error", err)
	}
	return ed.View(), err
}

// Save writes the session to the store
func (s *EditorService) Save(ctx context.Context, sessionID string) (*editor.SaveResult, editor.View, error) {
	ed, err := s.lookup(sessionID)
	if err != nil {
		return nil, editor.View{}, err
	}
	result, err := ed.Save(ctx)
	return result, ed.View(), err
}

// CloseSession ends a session, discarding unsaved changes
func (s *EditorService) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.editor.Close()
	logging.Infow(ctx, "Editor session closed", "session_id", sessionID, "journey_id", sess.editor.JourneyID())
	return nil
}

// CloseAll ends every open session
func (s *EditorService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.editor.Close()
	}
	if len(sessions) > 0 {
		logging.Infow(ctx, "Editor sessions closed", "count", len(sessions))
	}
}

// Len returns the number of open sessions
func (s *EditorService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseIdle closes sessions unused for longer than maxIdle and returns how
// many were closed
func (s *EditorService) CloseIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var idle []*session
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.editor.Close()
		logging.Infow(ctx, "Editor session expired", "session_id", sess.id, "journey_id", sess.editor.JourneyID())
	}
	return len(idle)
}

// SnapJourneyRoute re-snaps a stored route to trails and, unless dryRun is
// set, writes it back. Open sessions for the journey keep their loaded route.
func (s *EditorService) SnapJourneyRoute(ctx context.Context, journeyID string, dryRun bool, onProgress trails.ProgressFunc) (*trails.SnapResult, error) {
	data, err := s.store.GetRouteAndWaypoints(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journey %s: %w", journeyID, err)
	}
	if len(data.Route) < 2 {
		return nil, ErrNothingToSnap
	}

	result, err := s.matcher.SnapRoute(ctx, data.Route, onProgress)
	if err != nil {
		return nil, err
	}
	if dryRun || result.Stats.SnappedChunks == 0 {
		return result, nil
	}

	if err := s.store.UpdateRoute(ctx, journeyID, result.Route); err != nil {
		return nil, fmt.Errorf("failed to store snapped route: %w", err)
	}
	logging.Infow(ctx, "Journey route re-snapped",
		"journey_id", journeyID,
		"points_before", len(data.Route),
		"points_after", len(result.Route),
		"snapped_chunks", result.Stats.SnappedChunks)
	return result, nil
}

func (s *EditorService) lookup(sessionID string) (*editor.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastUsed = s.now()
	return sess.editor, nil
}
