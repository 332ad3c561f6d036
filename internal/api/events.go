package api

import (
	"encoding/json"
	"fmt"

	"github.com/dpup/prefab/errors"
	"google.golang.org/grpc/codes"

	"github.com/dpup/journeys/server/internal/lib/editor"
	"github.com/dpup/journeys/server/internal/lib/geo"
)

var ErrInvalidEvent = errors.NewC("invalid event", codes.InvalidArgument)

// eventPayload is the wire form of an editor event, discriminated by Type
type eventPayload struct {
	Type       string              `json:"type"`
	Mode       editor.Mode         `json:"mode,omitempty"`
	SubMode    editor.RouteSubMode `json:"subMode,omitempty"`
	CampID     string              `json:"campId,omitempty"`
	Index      *int                `json:"index,omitempty"`
	Position   *geo.Coordinate     `json:"position,omitempty"`
	Name       *string             `json:"name,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
	Highlights []string            `json:"highlights,omitempty"`
}

// DecodeEvent parses a JSON event such as {"type":"routeLineClick","position":[lon,lat]}
func DecodeEvent(data []byte) (editor.Event, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	position := func() (geo.Coordinate, error) {
		if p.Position == nil {
			return geo.Coordinate{}, fmt.Errorf("%w: %s requires a position", ErrInvalidEvent, p.Type)
		}
		return *p.Position, nil
	}
	index := func() (int, error) {
		if p.Index == nil {
			return 0, fmt.Errorf("%w: %s requires an index", ErrInvalidEvent, p.Type)
		}
		return *p.Index, nil
	}

	switch p.Type {
	case "setMode":
		return editor.SetMode{Mode: p.Mode}, nil
	case "setRouteSubMode":
		return editor.SetRouteSubMode{SubMode: p.SubMode}, nil
	case "selectCamp":
		return editor.SelectCamp{CampID: p.CampID}, nil
	case "selectRoutePoint":
		if p.Index == nil {
			return editor.SelectRoutePoint{Index: -1}, nil
		}
		return editor.SelectRoutePoint{Index: *p.Index}, nil
	case "campDragEnd":
		pos, err := position()
		if err != nil {
			return nil, err
		}
		return editor.CampDragEnd{CampID: p.CampID, Position: pos}, nil
	case "routeLineClick":
		pos, err := position()
		if err != nil {
			return nil, err
		}
		return editor.RouteLineClick{Position: pos}, nil
	case "routePointDragEnd":
		i, err := index()
		if err != nil {
			return nil, err
		}
		pos, err := position()
		if err != nil {
			return nil, err
		}
		return editor.RoutePointDragEnd{Index: i, Position: pos}, nil
	case "deleteSelected":
		return editor.DeleteSelected{}, nil
	case "drawStart":
		pos, err := position()
		if err != nil {
			return nil, err
		}
		return editor.DrawStart{Position: pos}, nil
	case "drawMove":
		pos, err := position()
		if err != nil {
			return nil, err
		}
		return editor.DrawMove{Position: pos}, nil
	case "drawEnd":
		return editor.DrawEnd{}, nil
	case "undo":
		return editor.Undo{}, nil
	case "redo":
		return editor.Redo{}, nil
	case "updateCampDetails":
		return editor.UpdateCampDetails{
			CampID:     p.CampID,
			Name:       p.Name,
			Notes:      p.Notes,
			Highlights: p.Highlights,
		}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, p.Type)
}
