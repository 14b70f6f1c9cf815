// Package raster implements the native-resolution mask surface: an RGBA
// paint target with brush/eraser compositing and a bounded undo/redo
// history of immutable snapshots.
package raster

import "image"

// Snapshot is an immutable copy of the raster surface at one point in
// time. Pixels are captured by value when the snapshot is taken; the
// history owns the copy and nothing mutates it afterwards.
type Snapshot struct {
	width  int
	height int
	pix    []uint8 // RGBA, premultiplied, row-major
}

// capture copies the current pixels of img into a new Snapshot.
func capture(img *image.RGBA) *Snapshot {
	b := img.Bounds()
	pix := make([]uint8, len(img.Pix))
	copy(pix, img.Pix)
	return &Snapshot{width: b.Dx(), height: b.Dy(), pix: pix}
}

// Width returns the snapshot width in native pixels.
func (s *Snapshot) Width() int { return s.width }

// Height returns the snapshot height in native pixels.
func (s *Snapshot) Height() int { return s.height }

// restore copies the snapshot's pixels back into img. The destination
// must have the same dimensions the snapshot was captured from.
func (s *Snapshot) restore(img *image.RGBA) {
	copy(img.Pix, s.pix)
}

// Image returns a fresh RGBA copy of the snapshot. Mutating the returned
// image does not affect the snapshot.
func (s *Snapshot) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.pix)
	return img
}

// AlphaAt returns the alpha value at native coordinates (x, y), or 0 when
// out of bounds.
func (s *Snapshot) AlphaAt(x, y int) uint8 {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return 0
	}
	return s.pix[(y*s.width+x)*4+3]
}
