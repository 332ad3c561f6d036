package services

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/dpup/journeys/server/internal/config"
)

// SessionReaper periodically closes editing sessions nobody has touched for a while
type SessionReaper struct {
	sessions *EditorService
	config   *config.EditorConfig

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

// NewSessionReaper creates a new SessionReaper
func NewSessionReaper(sessions *EditorService, cfg *config.EditorConfig) *SessionReaper {
	return &SessionReaper{
		sessions: sessions,
		config:   cfg,
	}
}

// Start begins sweeping idle sessions every ReapInterval
func (r *SessionReaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.done = make(chan struct{})

	interval := r.config.ReapInterval
	if interval <= 0 {
		interval = time.Minute
	}
	logging.Infow(ctx, "Starting session reaper", "interval", interval, "idle_timeout", r.config.SessionIdle)

	go r.loop(ctx, interval, r.stopChan, r.done)
}

// Stop halts the sweep and waits for the loop to exit
func (r *SessionReaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)
	done := r.done
	r.mu.Unlock()
	<-done
}

// IsRunning returns whether the reaper is active
func (r *SessionReaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *SessionReaper) loop(ctx context.Context, interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		if rec := recover(); rec != nil {
			err, _ := errors.ParseStack(debug.Stack())
			logging.Errorw(ctx, "Session reaper: recovered from panic",
				"error", rec, "error.stack_trace", err.MinimalStack(3, 5))
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Infow(ctx, "Session reaper stopping due to context cancellation")
			return
		case <-stop:
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep closes the idle sessions once and returns how many were closed
func (r *SessionReaper) Sweep(ctx context.Context) int {
	idle := r.config.SessionIdle
	if idle <= 0 {
		return 0
	}
	closed := r.sessions.CloseIdle(ctx, idle)
	if closed > 0 {
		logging.Infow(ctx, "Session reaper closed idle sessions", "closed", closed, "open", r.sessions.Len())
	}
	return closed
}
