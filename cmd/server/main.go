package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/dpup/prefab"

	"github.com/dpup/journeys/server/internal/api"
	"github.com/dpup/journeys/server/internal/cache"
	"github.com/dpup/journeys/server/internal/clients/mapbox"
	"github.com/dpup/journeys/server/internal/config"
	"github.com/dpup/journeys/server/internal/lib/trails"
	"github.com/dpup/journeys/server/internal/services"
	"github.com/dpup/journeys/server/internal/store"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, appConfig.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if appConfig.Mapbox.AccessToken == "" {
		log.Printf("No Mapbox access token configured; drawn segments will not snap to trails")
	}
	mapboxClient := mapbox.NewClientWithHTTPDoer(appConfig.Mapbox.AccessToken, appConfig.Mapbox.BaseURL, &http.Client{
		Timeout: 30 * time.Second,
	})

	matchCache := cache.NewCache()
	matchCache.StartPeriodicCleanup(ctx, time.Minute)
	matcher := trails.NewMatcher(mapboxClient, matchCache, appConfig.Mapbox.Matching())

	sessions := services.NewEditorService(db, matcher, &appConfig.Editor)
	reaper := services.NewSessionReaper(sessions, &appConfig.Editor)
	reaper.Start(ctx)
	defer func() {
		reaper.Stop()
		sessions.CloseAll(context.Background())
	}()

	router := api.NewRouter(api.NewHandler(sessions, db))

	log.Printf("Journey editor API starting (database: %s)", appConfig.Database.Driver)

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithGRPCReflection(),
		prefab.WithHTTPHandlerFunc("/api/v1/", router.ServeHTTP),
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Printf("Server failed: %v", err)
	}
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	if err := prefab.Config.Unmarshal("editor", &appConfig.Editor); err != nil {
		log.Fatalf("Failed to unmarshal editor section: %v", err)
	}

	if err := prefab.Config.Unmarshal("mapbox", &appConfig.Mapbox); err != nil {
		log.Fatalf("Failed to unmarshal mapbox section: %v", err)
	}

	if err := prefab.Config.Unmarshal("database", &appConfig.Database); err != nil {
		log.Fatalf("Failed to unmarshal database section: %v", err)
	}

	return appConfig
}

// homepageHandler serves a short endpoint listing at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	text := `journeys route editor

POST   /api/v1/journeys/{journeyID}/sessions    open an editing session
GET    /api/v1/sessions/{sessionID}             current view
POST   /api/v1/sessions/{sessionID}/events      dispatch an event {"type": ...}
POST   /api/v1/sessions/{sessionID}/undo
POST   /api/v1/sessions/{sessionID}/redo
POST   /api/v1/sessions/{sessionID}/save
DELETE /api/v1/sessions/{sessionID}             close, discarding unsaved changes
POST   /api/v1/journeys/{journeyID}/snap        re-snap the stored route (?dryRun=true)
GET    /api/v1/journeys/{journeyID}/route.kml   KML export
GET    /api/v1/journeys/{journeyID}/stages      per-day distance and climb
GET    /api/v1/health
`

	if _, err := fmt.Fprint(w, text); err != nil {
		slog.Error("Failed to write homepage", "error", err)
	}
}
