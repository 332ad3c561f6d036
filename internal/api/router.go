// Package api exposes editing sessions over HTTP JSON
package api

import (
	"net/http"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine serving /api/v1
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		journeys := v1.Group("/journeys/:journeyID")
		{
			journeys.POST("/sessions", h.OpenSession)
			journeys.POST("/snap", h.SnapRoute)
			journeys.GET("/route.kml", h.ExportKML)
			journeys.GET("/stages", h.GetStages)
		}

		sessions := v1.Group("/sessions/:sessionID")
		{
			sessions.GET("", h.GetSession)
			sessions.DELETE("", h.CloseSession)
			sessions.POST("/events", h.DispatchEvent)
			sessions.POST("/undo", h.Undo)
			sessions.POST("/redo", h.Redo)
			sessions.POST("/save", h.Save)
		}
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.Debugw(c.Request.Context(), "API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"errors", c.Errors.String())
	}
}
