package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/dpup/journeys/server/internal/cache"
	"github.com/dpup/journeys/server/internal/clients/mapbox"
	"github.com/dpup/journeys/server/internal/config"
	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/trails"
	"github.com/dpup/journeys/server/internal/services"
	"github.com/dpup/journeys/server/internal/store"
)

func main() {
	defaults := config.DefaultConfig()

	var (
		journeyID = flag.String("journey", "", "Journey ID whose route should be re-snapped")
		dryRun    = flag.Bool("dry-run", false, "Snap and report without storing the result")
		token     = flag.String("token", "", "Mapbox access token (or set MAPBOX_ACCESS_TOKEN env var)")
		driver    = flag.String("db-driver", defaults.Database.Driver, "Database driver: sqlite or pgx")
		dsn       = flag.String("db-dsn", defaults.Database.DSN, "Database file path or connection URL")
		delay     = flag.Duration("delay", defaults.Mapbox.ChunkDelay, "Delay between chunk requests")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *journeyID == "" {
		fmt.Println("Re-snap a stored journey route to the trail network")
		fmt.Println("")
		fmt.Println("Usage:")
		fmt.Println("  snap-route -journey <id> [-dry-run] [-token <mapbox token>]")
		fmt.Println("")
		flag.PrintDefaults()
		if *help {
			return
		}
		os.Exit(1)
	}

	key := *token
	if key == "" {
		key = os.Getenv("MAPBOX_ACCESS_TOKEN")
	}
	if key == "" {
		log.Fatal("A Mapbox access token is required (-token or MAPBOX_ACCESS_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := store.Open(ctx, store.Config{Driver: *driver, DSN: *dsn})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	matching := defaults.Mapbox.Matching()
	matching.ChunkDelay = *delay
	matcher := trails.NewMatcher(mapbox.NewClient(key), cache.NewCache(), matching)
	svc := services.NewEditorService(db, matcher, &defaults.Editor)

	before, err := db.GetRouteAndWaypoints(ctx, *journeyID)
	if err != nil {
		log.Fatalf("Failed to load journey: %v", err)
	}
	fmt.Printf("Journey %s: %d points, %.2f km\n", *journeyID, len(before.Route), geo.RouteLength(before.Route))

	result, err := svc.SnapJourneyRoute(ctx, *journeyID, *dryRun, func(fraction float64) {
		fmt.Printf("  snapped %3.0f%%\n", fraction*100)
	})
	if err != nil {
		log.Fatalf("Snapping failed: %v", err)
	}

	fmt.Println("")
	fmt.Printf("Chunks snapped:     %d of %d\n", result.Stats.SnappedChunks, result.Stats.TotalChunks)
	fmt.Printf("Average confidence: %.0f%%\n", result.Stats.AverageConfidence*100)
	fmt.Printf("Route after:        %d points, %.2f km\n", len(result.Route), geo.RouteLength(result.Route))
	switch {
	case *dryRun:
		fmt.Println("Dry run: route not stored")
	case result.Stats.SnappedChunks == 0:
		fmt.Println("No chunk matched: route left unchanged")
	default:
		fmt.Println("Snapped route stored")
	}
}
