package raster

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// markedImage returns a 2x2 RGBA whose top-left alpha identifies the state.
func markedImage(mark uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Pix[3] = mark
	return img
}

func TestHistory_EmptyCurrent(t *testing.T) {
	h := NewHistory(10)

	_, err := h.Current()
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = h.Undo()
	assert.ErrorIs(t, err, ErrNoOp)

	_, err = h.Redo()
	assert.ErrorIs(t, err, ErrNoOp)

	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestHistory_PushCopiesPixels(t *testing.T) {
	h := NewHistory(10)
	img := markedImage(7)
	h.Push(img)

	// Live drawing after the checkpoint must not corrupt the saved state.
	img.Pix[3] = 99

	snap, err := h.Current()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), snap.AlphaAt(0, 0))
}

func TestHistory_CapacityEviction(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(rt, "capacity")
		extra := rapid.IntRange(1, 30).Draw(rt, "extra")

		h := NewHistory(capacity)
		total := capacity + extra
		for i := 0; i < total; i++ {
			h.Push(markedImage(uint8(i)))
		}

		if h.Len() != capacity {
			rt.Fatalf("after %d pushes: len = %d, want %d", total, h.Len(), capacity)
		}
		snap, err := h.Current()
		if err != nil {
			rt.Fatalf("Current: %v", err)
		}
		if got := snap.AlphaAt(0, 0); got != uint8(total-1) {
			rt.Fatalf("current mark = %d, want %d", got, total-1)
		}
	})
}

func TestHistory_UndoRedoRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 40).Draw(rt, "pushes")
		h := NewHistory(DefaultCapacity)
		for i := 0; i < n; i++ {
			h.Push(markedImage(uint8(i)))
		}

		before, err := h.Current()
		if err != nil {
			rt.Fatalf("Current: %v", err)
		}

		if _, err := h.Undo(); err != nil {
			rt.Fatalf("Undo: %v", err)
		}
		after, err := h.Redo()
		if err != nil {
			rt.Fatalf("Redo: %v", err)
		}

		if before.AlphaAt(0, 0) != after.AlphaAt(0, 0) {
			rt.Fatalf("undo+redo changed state: %d != %d",
				before.AlphaAt(0, 0), after.AlphaAt(0, 0))
		}
	})
}

func TestHistory_PushDiscardsRedoBranch(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(3, 20).Draw(rt, "pushes")
		undos := rapid.IntRange(1, n-1).Draw(rt, "undos")

		h := NewHistory(DefaultCapacity)
		for i := 0; i < n; i++ {
			h.Push(markedImage(uint8(i)))
		}
		for i := 0; i < undos; i++ {
			if _, err := h.Undo(); err != nil {
				rt.Fatalf("Undo %d: %v", i, err)
			}
		}

		h.Push(markedImage(200))

		if _, err := h.Redo(); err != ErrNoOp {
			rt.Fatalf("Redo after branch push: err = %v, want ErrNoOp", err)
		}
		snap, err := h.Current()
		if err != nil {
			rt.Fatalf("Current: %v", err)
		}
		if snap.AlphaAt(0, 0) != 200 {
			rt.Fatalf("current mark = %d, want 200", snap.AlphaAt(0, 0))
		}
	})
}

func TestHistory_UndoStopsAtOldestRetained(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(markedImage(uint8(i)))
	}

	// Marks 0 and 1 were evicted; undo can reach mark 2 and no further.
	for i := 0; i < 2; i++ {
		_, err := h.Undo()
		require.NoError(t, err)
	}
	snap, err := h.Current()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), snap.AlphaAt(0, 0))

	_, err = h.Undo()
	assert.ErrorIs(t, err, ErrNoOp)
}
