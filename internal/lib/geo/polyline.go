package geo

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"
)

// EncodePolyline encodes the 2-D path of route with Google's polyline algorithm
// (precision 5). Elevation is not carried.
func EncodePolyline(route []RouteCoordinate) string {
	coords := make([][]float64, len(route))
	for i, c := range route {
		coords[i] = []float64{c.Lat(), c.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes a Google polyline string into route coordinates with elevation 0
func DecodePolyline(encoded string) ([]RouteCoordinate, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	route := make([]RouteCoordinate, len(coords))
	for i, coord := range coords {
		route[i] = RouteCoordinate{coord[1], coord[0], 0}
		if !IsValidCoordinate(route[i].Coordinate()) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}
	return route, nil
}

// IsValidCoordinate reports whether c lies within WGS84 latitude and longitude bounds
func IsValidCoordinate(c Coordinate) bool {
	return c.Lat() >= -90 && c.Lat() <= 90 &&
		c.Lon() >= -180 && c.Lon() <= 180
}
