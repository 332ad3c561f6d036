package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

// MaxCoordinates is the Map Matching API's per-request coordinate ceiling
const MaxCoordinates = 100

// HTTPDoer is the subset of *http.Client used by the client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to the Mapbox Map Matching API v5
type Client struct {
	accessToken string
	httpClient  HTTPDoer
	baseURL     string
}

// MatchRequest describes one map-matching call
type MatchRequest struct {
	Coordinates []geo.Coordinate
	Profile     string // walking, cycling, driving
	SnapRadius  int    // meters, applied uniformly to every coordinate
}

// NewClient creates a new Map Matching API client
func NewClient(accessToken string) *Client {
	return NewClientWithHTTPDoer(accessToken, "https://api.mapbox.com", &http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewClientWithHTTPDoer creates a client against baseURL using doer for transport
func NewClientWithHTTPDoer(accessToken, baseURL string, doer HTTPDoer) *Client {
	return &Client{
		accessToken: accessToken,
		httpClient:  doer,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Match snaps a trace onto the trail and road network
func (c *Client) Match(ctx context.Context, req MatchRequest) (*MatchResponse, error) {
	if len(req.Coordinates) < 2 {
		return nil, fmt.Errorf("at least 2 coordinates required, got %d", len(req.Coordinates))
	}
	if len(req.Coordinates) > MaxCoordinates {
		return nil, fmt.Errorf("too many coordinates: %d exceeds limit of %d", len(req.Coordinates), MaxCoordinates)
	}
	if c.accessToken == "" {
		return nil, fmt.Errorf("mapbox access token not configured")
	}

	profile := req.Profile
	if profile == "" {
		profile = "walking"
	}

	coords := make([]string, len(req.Coordinates))
	radiuses := make([]string, len(req.Coordinates))
	for i, c := range req.Coordinates {
		coords[i] = strconv.FormatFloat(c.Lon(), 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat(), 'f', 6, 64)
		radiuses[i] = strconv.Itoa(req.SnapRadius)
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	params.Set("radiuses", strings.Join(radiuses, ";"))

	requestURL := fmt.Sprintf("%s/matching/v5/mapbox/%s/%s?%s",
		c.baseURL, profile, strings.Join(coords, ";"), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode == 401 {
		return nil, fmt.Errorf("invalid access token")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response, nil
}

// MatchResponse represents the Map Matching API response
type MatchResponse struct {
	Code      string     `json:"code"`
	Message   string     `json:"message,omitempty"`
	Matchings []Matching `json:"matchings"`
}

// OK reports whether the service found at least one match
func (r *MatchResponse) OK() bool {
	return r != nil && r.Code == "Ok" && len(r.Matchings) > 0
}

// Matching is one candidate matched geometry
type Matching struct {
	Confidence float64         `json:"confidence"`
	Distance   float64         `json:"distance"`
	Duration   float64         `json:"duration"`
	Geometry   GeoJSONGeometry `json:"geometry"`
}

// GeoJSONGeometry is a GeoJSON LineString as returned with geometries=geojson
type GeoJSONGeometry struct {
	Type        string           `json:"type"`
	Coordinates []geo.Coordinate `json:"coordinates"`
}
