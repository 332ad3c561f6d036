package editor

import (
	"slices"

	"github.com/dpup/journeys/server/internal/lib/geo"
)

// DefaultHistoryDepth is the number of undo steps kept
const DefaultHistoryDepth = 50

// Snapshot is a deep copy of the editable collections
type Snapshot struct {
	Camps []Camp
	Route []geo.RouteCoordinate
}

func takeSnapshot(camps []Camp, route []geo.RouteCoordinate) Snapshot {
	return Snapshot{
		Camps: cloneCamps(camps),
		Route: slices.Clone(route),
	}
}

// History is a bounded undo/redo stack of snapshots
type History struct {
	undo  []Snapshot
	redo  []Snapshot
	depth int
}

// NewHistory creates an empty history holding at most depth undo steps
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

// Push records the state before a mutation and invalidates redo
func (h *History) Push(s Snapshot) {
	h.undo = pushBounded(h.undo, s, h.depth)
	h.redo = nil
}

// Undo swaps current for the most recent snapshot
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = pushBounded(h.redo, current, h.depth)
	return prev, true
}

// Redo swaps current for the most recently undone snapshot
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = pushBounded(h.undo, current, h.depth)
	return next, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear discards all history
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

func pushBounded(stack []Snapshot, s Snapshot, depth int) []Snapshot {
	stack = append(stack, s)
	if len(stack) > depth {
		stack = slices.Delete(stack, 0, len(stack)-depth)
	}
	return stack
}
