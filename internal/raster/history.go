package raster

import (
	"errors"
	"image"
)

// DefaultCapacity bounds the number of retained checkpoints.
const DefaultCapacity = 50

// Sentinel errors for expected history conditions.
var (
	// ErrNoOp means undo/redo had nothing to do. Callers ignore it.
	ErrNoOp = errors.New("nothing to undo or redo")
	// ErrEmpty means the history has never been pushed to.
	ErrEmpty = errors.New("history is empty")
)

// History is a bounded undo/redo stack of raster snapshots with a cursor.
// The cursor always indexes a valid snapshot, or is -1 while empty.
// Pushing while the cursor is not at the tail discards the redo branch;
// pushing past capacity evicts the oldest snapshot and shifts the cursor.
type History struct {
	snaps    []*Snapshot
	cursor   int
	capacity int
}

// NewHistory creates a History with the given capacity. Non-positive or
// oversized capacities fall back to DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 || capacity > DefaultCapacity {
		capacity = DefaultCapacity
	}
	return &History{cursor: -1, capacity: capacity}
}

// Push checkpoints the current state of img. The pixels are copied, so
// subsequent drawing on img cannot corrupt the saved state.
func (h *History) Push(img *image.RGBA) *Snapshot {
	snap := capture(img)

	// Discard the redo branch.
	h.snaps = h.snaps[:h.cursor+1]
	h.snaps = append(h.snaps, snap)
	h.cursor++

	if len(h.snaps) > h.capacity {
		evict := len(h.snaps) - h.capacity
		h.snaps = append(h.snaps[:0], h.snaps[evict:]...)
		h.cursor -= evict
	}
	return snap
}

// Undo moves the cursor back one step and returns the snapshot there.
// Returns ErrNoOp when already at the oldest retained state.
func (h *History) Undo() (*Snapshot, error) {
	if h.cursor <= 0 {
		return nil, ErrNoOp
	}
	h.cursor--
	return h.snaps[h.cursor], nil
}

// Redo moves the cursor forward one step and returns the snapshot there.
// Returns ErrNoOp when already at the tail.
func (h *History) Redo() (*Snapshot, error) {
	if h.cursor >= len(h.snaps)-1 {
		return nil, ErrNoOp
	}
	h.cursor++
	return h.snaps[h.cursor], nil
}

// Current returns the snapshot at the cursor, or ErrEmpty if nothing has
// ever been pushed.
func (h *History) Current() (*Snapshot, error) {
	if h.cursor < 0 {
		return nil, ErrEmpty
	}
	return h.snaps[h.cursor], nil
}

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snaps) }

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return h.cursor < len(h.snaps)-1 }
