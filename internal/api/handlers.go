package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dpup/journeys/server/internal/lib/editor"
	"github.com/dpup/journeys/server/internal/lib/export"
	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
	"github.com/dpup/journeys/server/internal/lib/trails"
	"github.com/dpup/journeys/server/internal/services"
)

const maxEventBytes = 1 << 20

// JourneyReader loads stored journeys for export
type JourneyReader interface {
	GetRouteAndWaypoints(ctx context.Context, journeyID string) (*journey.RouteAndWaypoints, error)
}

// Handler serves the editor API
type Handler struct {
	sessions *services.EditorService
	journeys JourneyReader
}

// NewHandler creates a new Handler
func NewHandler(sessions *services.EditorService, journeys JourneyReader) *Handler {
	return &Handler{sessions: sessions, journeys: journeys}
}

// SaveResponse is returned by the save endpoint
type SaveResponse struct {
	Result *editor.SaveResult `json:"result"`
	View   editor.View        `json:"view"`
}

// SnapResponse is returned by the snap endpoint
type SnapResponse struct {
	JourneyID string           `json:"journeyId"`
	DryRun    bool             `json:"dryRun"`
	Stats     trails.SnapStats `json:"stats"`
	Points    int              `json:"points"`

	// Polyline is the snapped route in Google's encoded polyline format
	Polyline string `json:"polyline"`
}

// OpenSession handles POST /api/v1/journeys/:journeyID/sessions
func (h *Handler) OpenSession(c *gin.Context) {
	sess, err := h.sessions.OpenSession(c.Request.Context(), c.Param("journeyID"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetSession handles GET /api/v1/sessions/:sessionID
func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.sessions.View(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DispatchEvent handles POST /api/v1/sessions/:sessionID/events
func (h *Handler) DispatchEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	ev, err := DecodeEvent(bytes.TrimSpace(body))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	h.dispatch(c, ev)
}

// Undo handles POST /api/v1/sessions/:sessionID/undo
func (h *Handler) Undo(c *gin.Context) {
	h.dispatch(c, editor.Undo{})
}

// Redo handles POST /api/v1/sessions/:sessionID/redo
func (h *Handler) Redo(c *gin.Context) {
	h.dispatch(c, editor.Redo{})
}

func (h *Handler) dispatch(c *gin.Context, ev editor.Event) {
	view, err := h.sessions.Dispatch(c.Request.Context(), c.Param("sessionID"), ev)
	if err != nil {
		if view.JourneyID == "" {
			writeError(c, err, nil)
		} else {
			writeError(c, err, &view)
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// Save handles POST /api/v1/sessions/:sessionID/save
func (h *Handler) Save(c *gin.Context) {
	result, view, err := h.sessions.Save(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if view.JourneyID == "" {
			writeError(c, err, nil)
		} else {
			writeError(c, err, &view)
		}
		return
	}
	c.JSON(http.StatusOK, SaveResponse{Result: result, View: view})
}

// CloseSession handles DELETE /api/v1/sessions/:sessionID
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.sessions.CloseSession(c.Request.Context(), c.Param("sessionID")); err != nil {
		writeError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// SnapRoute handles POST /api/v1/journeys/:journeyID/snap?dryRun=true
func (h *Handler) SnapRoute(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dryRun"))
	journeyID := c.Param("journeyID")

	result, err := h.sessions.SnapJourneyRoute(c.Request.Context(), journeyID, dryRun, nil)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, SnapResponse{
		JourneyID: journeyID,
		DryRun:    dryRun,
		Stats:     result.Stats,
		Points:    len(result.Route),
		Polyline:  geo.EncodePolyline(result.Route),
	})
}

// ExportKML handles GET /api/v1/journeys/:journeyID/route.kml
func (h *Handler) ExportKML(c *gin.Context) {
	data, err := h.journeys.GetRouteAndWaypoints(c.Request.Context(), c.Param("journeyID"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteKML(&buf, data); err != nil {
		writeError(c, err, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="route.kml"`)
	c.Data(http.StatusOK, "application/vnd.google-earth.kml+xml", buf.Bytes())
}

// StagesResponse is returned by the stages endpoint
type StagesResponse struct {
	JourneyID     string          `json:"journeyId"`
	RouteLengthKm float64         `json:"routeLengthKm"`
	Stages        []journey.Stage `json:"stages"`
}

// GetStages handles GET /api/v1/journeys/:journeyID/stages
func (h *Handler) GetStages(c *gin.Context) {
	data, err := h.journeys.GetRouteAndWaypoints(c.Request.Context(), c.Param("journeyID"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, StagesResponse{
		JourneyID:     data.JourneyID,
		RouteLengthKm: geo.RouteLength(data.Route),
		Stages:        journey.Stages(data.Route, data.Waypoints),
	})
}
