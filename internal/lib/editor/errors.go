package editor

import (
	"github.com/dpup/prefab/errors"
	"google.golang.org/grpc/codes"
)

var (
	ErrEditorClosed    = errors.NewC("editor is closed", codes.FailedPrecondition)
	ErrDrawInProgress  = errors.NewC("a drawn segment is still being processed", codes.Aborted)
	ErrRouteTooShort   = errors.NewC("a route must keep at least 2 points", codes.FailedPrecondition)
	ErrNoRoute         = errors.NewC("journey has no route to snap to", codes.FailedPrecondition)
	ErrCampNotFound    = errors.NewC("camp not found", codes.NotFound)
	ErrPointOutOfRange = errors.NewC("route point index out of range", codes.InvalidArgument)
	ErrInvalidMode     = errors.NewC("invalid editor mode", codes.InvalidArgument)
	ErrWrongMode       = errors.NewC("event not available in the current mode", codes.FailedPrecondition)
	ErrUnknownEvent    = errors.NewC("unknown editor event", codes.InvalidArgument)
)
