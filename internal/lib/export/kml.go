// Package export renders journeys in formats other mapping tools can open
package export

import (
	"fmt"
	"image/color"
	"io"
	"slices"
	"strings"

	"github.com/twpayne/go-kml"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
)

var routeColor = color.RGBA{R: 0xe4, G: 0x57, B: 0x2e, A: 0xff}

// JourneyKML builds a KML document with the route as a line and one point per
// camp, camps in day order
func JourneyKML(data *journey.RouteAndWaypoints) *kml.CompoundElement {
	name := data.Name
	if name == "" {
		name = "Journey " + data.JourneyID
	}

	children := []kml.Element{
		kml.Name(name),
		kml.SharedStyle("route", kml.LineStyle(kml.Color(routeColor), kml.Width(3))),
	}

	if len(data.Route) >= 2 {
		coords := make([]kml.Coordinate, len(data.Route))
		for i, c := range data.Route {
			coords[i] = kml.Coordinate{Lon: c.Lon(), Lat: c.Lat(), Alt: c.Elevation()}
		}
		children = append(children, kml.Placemark(
			kml.Name("Route"),
			kml.Description(fmt.Sprintf("%.1f km", geo.RouteLength(data.Route))),
			kml.StyleURL("#route"),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	camps := slices.Clone(data.Waypoints)
	slices.SortStableFunc(camps, func(a, b journey.Waypoint) int {
		return a.DayNumber - b.DayNumber
	})
	for _, w := range camps {
		children = append(children, kml.Placemark(
			kml.Name(w.Name),
			kml.Description(campDescription(w)),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: w.Coordinates.Lon(), Lat: w.Coordinates.Lat(), Alt: w.Elevation})),
		))
	}

	return kml.KML(kml.Document(children...))
}

// WriteKML writes the journey as an indented KML document
func WriteKML(w io.Writer, data *journey.RouteAndWaypoints) error {
	if err := JourneyKML(data).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func campDescription(w journey.Waypoint) string {
	parts := []string{fmt.Sprintf("Day %d", w.DayNumber)}
	if w.RouteDistanceKm != nil {
		parts = append(parts, fmt.Sprintf("%.1f km along the route", *w.RouteDistanceKm))
	}
	if w.Notes != "" {
		parts = append(parts, w.Notes)
	}
	if len(w.Highlights) > 0 {
		parts = append(parts, "Highlights: "+strings.Join(w.Highlights, ", "))
	}
	return strings.Join(parts, "\n")
}
