package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dpup/journeys/server/internal/config"
	"github.com/dpup/journeys/server/internal/lib/export"
	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
	"github.com/dpup/journeys/server/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "import":
		handleImport()
	case "export-kml":
		handleExportKML()
	case "stages":
		handleStages()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func databaseFlags(fs *flag.FlagSet) (driver, dsn *string) {
	defaults := config.DefaultConfig().Database
	driver = fs.String("db-driver", defaults.Driver, "Database driver: sqlite or pgx")
	dsn = fs.String("db-dsn", defaults.DSN, "Database file path or connection URL")
	return driver, dsn
}

func openStore(ctx context.Context, driver, dsn string) *store.Store {
	db, err := store.Open(ctx, store.Config{Driver: driver, DSN: dsn})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func handleImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("name", "", "Journey name")
	routeFile := fs.String("route-json", "", "Path to a JSON array of [lon, lat, elevation] points")
	encoded := fs.String("polyline", "", "Route as an encoded polyline (elevation 0)")
	kmlSource := fs.String("kml", "", "KML file path or http(s) URL; Point placemarks become camps")
	simplify := fs.String("simplify", "", "Simplify the route first: low, medium or high")
	driver, dsn := databaseFlags(fs)

	fs.Parse(os.Args[2:])

	if *routeFile == "" && *encoded == "" && *kmlSource == "" {
		fmt.Println("Example usage:")
		fmt.Println("  journey-tool import --name \"Tahoe Rim\" --route-json route.json")
		fmt.Println("  journey-tool import --name \"Loop\" --polyline '_p~iF~ps|U_ulLnnqC' --simplify medium")
		fmt.Println("  journey-tool import --kml https://example.com/trip.kml")
		os.Exit(1)
	}

	ctx := context.Background()

	var route []geo.RouteCoordinate
	var imported *export.ImportedJourney
	if *kmlSource != "" {
		imported = readKML(ctx, *kmlSource)
		route = imported.Route
		if *name == "" {
			*name = imported.Name
		}
	} else if *routeFile != "" {
		data, err := os.ReadFile(*routeFile)
		if err != nil {
			log.Fatalf("Error reading route file %s: %v", *routeFile, err)
		}
		if err := json.Unmarshal(data, &route); err != nil {
			log.Fatalf("Error parsing route JSON: %v", err)
		}
	} else {
		var err error
		route, err = geo.DecodePolyline(*encoded)
		if err != nil {
			log.Fatalf("Error decoding polyline: %v", err)
		}
	}

	if *simplify != "" {
		tolerance, ok := map[string]float64{
			"low":    geo.ToleranceLow,
			"medium": geo.ToleranceMedium,
			"high":   geo.ToleranceHigh,
		}[strings.ToLower(*simplify)]
		if !ok {
			log.Fatalf("Unknown simplification level: %s", *simplify)
		}
		before := len(route)
		route = geo.SimplifyRoute(route, tolerance)
		fmt.Printf("Simplified route from %d to %d points\n", before, len(route))
	}

	db := openStore(ctx, *driver, *dsn)
	defer db.Close()

	id, err := db.CreateJourney(ctx, *name, route)
	if err != nil {
		log.Fatalf("Failed to create journey: %v", err)
	}
	fmt.Printf("Created journey %s (%d points, %.2f km)\n", id, len(route), geo.RouteLength(route))

	if imported == nil {
		return
	}
	// Camps are placed against the final (possibly simplified) route
	imported.Route = route
	for _, fields := range imported.Waypoints(id) {
		if _, err := db.CreateWaypoint(ctx, fields); err != nil {
			log.Fatalf("Failed to create camp %q: %v", fields.Name, err)
		}
		fmt.Printf("  Day %d: %s (%.1f km)\n", fields.DayNumber, fields.Name, *fields.RouteDistanceKm)
	}
}

func readKML(ctx context.Context, source string) *export.ImportedJourney {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		imported, err := export.FetchKML(ctx, &http.Client{Timeout: 30 * time.Second}, source)
		if err != nil {
			log.Fatalf("Error fetching KML: %v", err)
		}
		return imported
	}

	f, err := os.Open(source)
	if err != nil {
		log.Fatalf("Error opening %s: %v", source, err)
	}
	defer f.Close()

	imported, err := export.ReadKML(f)
	if err != nil {
		log.Fatalf("Error reading KML: %v", err)
	}
	return imported
}

func handleExportKML() {
	fs := flag.NewFlagSet("export-kml", flag.ExitOnError)
	journeyID := fs.String("journey", "", "Journey ID")
	out := fs.String("out", "", "Output file (default stdout)")
	driver, dsn := databaseFlags(fs)

	fs.Parse(os.Args[2:])

	if *journeyID == "" {
		fmt.Println("Example usage:")
		fmt.Println("  journey-tool export-kml --journey <id> --out route.kml")
		os.Exit(1)
	}

	ctx := context.Background()
	db := openStore(ctx, *driver, *dsn)
	defer db.Close()

	data, err := db.GetRouteAndWaypoints(ctx, *journeyID)
	if err != nil {
		log.Fatalf("Failed to load journey: %v", err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Error creating %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := export.WriteKML(w, data); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

func handleStages() {
	fs := flag.NewFlagSet("stages", flag.ExitOnError)
	journeyID := fs.String("journey", "", "Journey ID")
	asJSON := fs.Bool("json", false, "Print stages as JSON")
	driver, dsn := databaseFlags(fs)

	fs.Parse(os.Args[2:])

	if *journeyID == "" {
		fmt.Println("Example usage:")
		fmt.Println("  journey-tool stages --journey <id>")
		os.Exit(1)
	}

	ctx := context.Background()
	db := openStore(ctx, *driver, *dsn)
	defer db.Close()

	data, err := db.GetRouteAndWaypoints(ctx, *journeyID)
	if err != nil {
		log.Fatalf("Failed to load journey: %v", err)
	}

	stages := journey.Stages(data.Route, data.Waypoints)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stages); err != nil {
			log.Fatalf("Error encoding stages: %v", err)
		}
		return
	}

	fmt.Printf("%s: %.1f km, %d stages\n\n", data.Name, geo.RouteLength(data.Route), len(stages))
	for _, s := range stages {
		fmt.Printf("Day %d  %s -> %s\n", s.Day, s.From, s.To)
		fmt.Printf("  %.1f km, +%.0f m / -%.0f m, %s, about %.1f h\n",
			s.DistanceKm, s.ElevationGain, s.ElevationLoss, s.Difficulty, s.HikingHours)
	}
}

func printUsage() {
	fmt.Println("journey-tool - manage stored journeys")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  journey-tool <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  import       Create a journey from a route file, encoded polyline or KML")
	fmt.Println("  export-kml   Write a journey's route and camps as KML")
	fmt.Println("  stages       Print per-day distance, climb and difficulty")
	fmt.Println("  help         Show this help")
}
