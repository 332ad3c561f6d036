package export

import (
	"cmp"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
)

// ImportedJourney is a route and its camps read from a KML document
type ImportedJourney struct {
	Name  string
	Route []geo.RouteCoordinate
	Camps []ImportedCamp
}

// ImportedCamp is a Point placemark
type ImportedCamp struct {
	Name        string
	Description string
	Position    geo.RouteCoordinate
}

// HTTPDoer sends HTTP requests
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type kmlContainer struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Folders    []kmlContainer `xml:"Folder"`
	Documents  []kmlContainer `xml:"Document"`
}

type kmlPlacemark struct {
	Name          string          `xml:"name"`
	Description   string          `xml:"description"`
	Point         *kmlGeometry    `xml:"Point"`
	LineString    *kmlGeometry    `xml:"LineString"`
	MultiGeometry *kmlMultiSegment `xml:"MultiGeometry"`
}

type kmlGeometry struct {
	Coordinates string `xml:"coordinates"`
}

type kmlMultiSegment struct {
	LineStrings []kmlGeometry `xml:"LineString"`
}

// FetchKML downloads and reads a KML document
func FetchKML(ctx context.Context, doer HTTPDoer, url string) (*ImportedJourney, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download KML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d downloading KML from %s", resp.StatusCode, url)
	}
	return ReadKML(resp.Body)
}

// ReadKML reads the route and camps from a KML document. LineStrings are
// joined in document order into one route; Points become camps.
func ReadKML(r io.Reader) (*ImportedJourney, error) {
	var root kmlContainer
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse KML: %w", err)
	}

	imported := &ImportedJourney{}
	if err := imported.walk(root); err != nil {
		return nil, err
	}
	if len(imported.Route) < 2 {
		return nil, fmt.Errorf("KML contains no route: found %d line points", len(imported.Route))
	}
	return imported, nil
}

func (j *ImportedJourney) walk(c kmlContainer) error {
	if j.Name == "" {
		j.Name = strings.TrimSpace(c.Name)
	}
	for _, p := range c.Placemarks {
		lines := []kmlGeometry{}
		if p.LineString != nil {
			lines = append(lines, *p.LineString)
		}
		if p.MultiGeometry != nil {
			lines = append(lines, p.MultiGeometry.LineStrings...)
		}
		for _, line := range lines {
			coords, err := parseCoordinates(line.Coordinates)
			if err != nil {
				return fmt.Errorf("placemark %q: %w", p.Name, err)
			}
			j.Route = append(j.Route, coords...)
		}

		if p.Point != nil {
			coords, err := parseCoordinates(p.Point.Coordinates)
			if err != nil {
				return fmt.Errorf("placemark %q: %w", p.Name, err)
			}
			if len(coords) > 0 {
				j.Camps = append(j.Camps, ImportedCamp{
					Name:        strings.TrimSpace(p.Name),
					Description: strings.TrimSpace(p.Description),
					Position:    coords[0],
				})
			}
		}
	}
	for _, f := range c.Documents {
		if err := j.walk(f); err != nil {
			return err
		}
	}
	for _, f := range c.Folders {
		if err := j.walk(f); err != nil {
			return err
		}
	}
	return nil
}

// parseCoordinates reads a KML coordinates list: "lon,lat[,alt]" tuples
// separated by whitespace
func parseCoordinates(s string) ([]geo.RouteCoordinate, error) {
	var coords []geo.RouteCoordinate
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid coordinate %q", tuple)
		}
		var c geo.RouteCoordinate
		for i, part := range parts {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid coordinate %q: %w", tuple, err)
			}
			c[i] = v
		}
		if !geo.IsValidCoordinate(c.Coordinate()) {
			return nil, fmt.Errorf("coordinate out of range %q", tuple)
		}
		coords = append(coords, c)
	}
	return coords, nil
}

// Waypoints places the imported camps on the route and numbers their days in
// route order
func (j *ImportedJourney) Waypoints(journeyID string) []journey.WaypointFields {
	fields := make([]journey.WaypointFields, 0, len(j.Camps))
	for _, c := range j.Camps {
		nearest := geo.FindNearestPointOnRoute(c.Position.Coordinate(), j.Route)
		if nearest == nil {
			continue
		}
		elevation := c.Position.Elevation()
		if elevation == 0 {
			elevation = nearest.Coordinates.Elevation()
		}
		fields = append(fields, journey.WaypointFields{
			JourneyID:       journeyID,
			Name:            c.Name,
			Coordinates:     nearest.Coordinates.Coordinate(),
			Elevation:       elevation,
			Notes:           c.Description,
			RouteDistanceKm: journey.Float(nearest.RouteDistance),
			RoutePointIndex: journey.Int(nearest.Index),
		})
	}
	slices.SortStableFunc(fields, func(a, b journey.WaypointFields) int {
		return cmp.Compare(*a.RouteDistanceKm, *b.RouteDistanceKm)
	})
	for i := range fields {
		fields[i].DayNumber = i + 1
	}
	return fields
}
