package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"

	"github.com/dpup/journeys/server/internal/lib/editor"
	"github.com/dpup/journeys/server/internal/lib/journey"
	"github.com/dpup/journeys/server/internal/services"
)

// sentinels whose code survives any amount of fmt.Errorf wrapping
var knownErrors = []error{
	ErrInvalidEvent,
	services.ErrSessionNotFound,
	services.ErrNothingToSnap,
	journey.ErrJourneyNotFound,
	journey.ErrWaypointNotFound,
	editor.ErrEditorClosed,
	editor.ErrDrawInProgress,
	editor.ErrRouteTooShort,
	editor.ErrNoRoute,
	editor.ErrCampNotFound,
	editor.ErrPointOutOfRange,
	editor.ErrInvalidMode,
	editor.ErrWrongMode,
	editor.ErrUnknownEvent,
}

// errorCode classifies err as a gRPC code
func errorCode(err error) codes.Code {
	for _, known := range knownErrors {
		if stderrors.Is(err, known) {
			return errors.Code(known)
		}
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return codes.Canceled
	case stderrors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return errors.Code(err)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	View    *editor.View `json:"view,omitempty"`
}

func writeError(c *gin.Context, err error, view *editor.View) {
	code := errorCode(err)
	status := runtime.HTTPStatusFromCode(code)
	if status >= http.StatusInternalServerError {
		logging.Errorw(c.Request.Context(), "API: request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code.String(),
		Message: err.Error(),
		View:    view,
	})
}
