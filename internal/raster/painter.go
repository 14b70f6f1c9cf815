package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Mode selects how stamps composite onto the surface.
type Mode int

const (
	// ModeBrush composites with source-over blending.
	ModeBrush Mode = iota
	// ModeEraser composites with destination-out semantics.
	ModeEraser
)

func (m Mode) String() string {
	if m == ModeEraser {
		return "eraser"
	}
	return "brush"
}

// Brush size bounds in display pixels.
const (
	MinBrushSize     = 5
	MaxBrushSize     = 200
	DefaultBrushSize = 40
	DefaultOpacity   = 1.0
)

// Painter owns the native-resolution mask surface and translates
// display-space pointer input into raster mutations, checkpointing each
// completed stroke through its History. No other component mutates the
// surface; undo/redo restore pixels exclusively from history snapshots,
// so input source (pointer, keyboard, script replay) cannot bypass the
// checkpoint discipline.
type Painter struct {
	surface *image.RGBA
	width   int
	height  int

	// displayScale maps native to display space. Pointer coordinates
	// divide by it on the way in.
	displayScale float64

	brushSize int // display pixels
	opacity   float64
	mode      Mode

	drawing bool
	history *History
}

// NewPainter creates a painter with a transparent surface of the source
// image's native dimensions, displayed within maxDisplayWidth x
// maxDisplayHeight. The blank state is checkpointed so the first stroke
// can be undone back to it.
func NewPainter(width, height, maxDisplayWidth, maxDisplayHeight int) (*Painter, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface dimensions %dx%d", width, height)
	}
	if maxDisplayWidth <= 0 || maxDisplayHeight <= 0 {
		return nil, fmt.Errorf("invalid display bounds %dx%d", maxDisplayWidth, maxDisplayHeight)
	}

	scale := math.Min(
		float64(maxDisplayWidth)/float64(width),
		float64(maxDisplayHeight)/float64(height),
	)
	if scale > 1 {
		scale = 1
	}

	p := &Painter{
		surface:      image.NewRGBA(image.Rect(0, 0, width, height)),
		width:        width,
		height:       height,
		displayScale: scale,
		brushSize:    DefaultBrushSize,
		opacity:      DefaultOpacity,
		mode:         ModeBrush,
		history:      NewHistory(DefaultCapacity),
	}
	p.history.Push(p.surface)
	return p, nil
}

// DisplayScale returns the display-to-native scale factor (≤ 1).
func (p *Painter) DisplayScale() float64 { return p.displayScale }

// Size returns the native surface dimensions.
func (p *Painter) Size() (w, h int) { return p.width, p.height }

// Mode returns the active compositing mode.
func (p *Painter) Mode() Mode { return p.mode }

// SetMode selects brush or eraser compositing.
func (p *Painter) SetMode(m Mode) { p.mode = m }

// ToggleMode flips between brush and eraser.
func (p *Painter) ToggleMode() {
	if p.mode == ModeBrush {
		p.mode = ModeEraser
	} else {
		p.mode = ModeBrush
	}
}

// BrushSize returns the brush diameter in display pixels.
func (p *Painter) BrushSize() int { return p.brushSize }

// SetBrushSize sets the brush diameter, clamped to [MinBrushSize, MaxBrushSize].
func (p *Painter) SetBrushSize(size int) {
	if size < MinBrushSize {
		size = MinBrushSize
	}
	if size > MaxBrushSize {
		size = MaxBrushSize
	}
	p.brushSize = size
}

// AdjustBrushSize changes the brush diameter by delta, clamped.
func (p *Painter) AdjustBrushSize(delta int) {
	p.SetBrushSize(p.brushSize + delta)
}

// Opacity returns the brush opacity.
func (p *Painter) Opacity() float64 { return p.opacity }

// SetOpacity sets the brush opacity, clamped to (0, 1].
func (p *Painter) SetOpacity(opacity float64) {
	if opacity <= 0 {
		opacity = 0.01
	}
	if opacity > 1 {
		opacity = 1
	}
	p.opacity = opacity
}

// PointerDown starts a stroke at display coordinates (px, py) and paints
// the first stamp. No checkpoint is taken until the stroke completes.
func (p *Painter) PointerDown(px, py float64) {
	p.drawing = true
	p.stamp(px, py)
}

// PointerMove paints at (px, py) while a stroke is in progress.
// Intra-stroke states are deliberately not checkpointed.
func (p *Painter) PointerMove(px, py float64) {
	if !p.drawing {
		return
	}
	p.stamp(px, py)
}

// PointerUp ends the stroke, checkpointing the surface exactly once.
func (p *Painter) PointerUp() {
	if !p.drawing {
		return
	}
	p.drawing = false
	p.history.Push(p.surface)
}

// PointerLeave is treated like PointerUp when a stroke is in progress:
// the partial stroke is committed as one checkpoint.
func (p *Painter) PointerLeave() {
	p.PointerUp()
}

// Drawing reports whether a stroke is in progress.
func (p *Painter) Drawing() bool { return p.drawing }

// Clear resets the surface to fully transparent and checkpoints once.
func (p *Painter) Clear() {
	for i := range p.surface.Pix {
		p.surface.Pix[i] = 0
	}
	p.drawing = false
	p.history.Push(p.surface)
}

// Undo restores the previous checkpoint. ErrNoOp when at the oldest state.
func (p *Painter) Undo() error {
	snap, err := p.history.Undo()
	if err != nil {
		return err
	}
	snap.restore(p.surface)
	return nil
}

// Redo restores the next checkpoint. ErrNoOp when at the newest state.
func (p *Painter) Redo() error {
	snap, err := p.history.Redo()
	if err != nil {
		return err
	}
	snap.restore(p.surface)
	return nil
}

// CanUndo reports whether Undo would change the surface.
func (p *Painter) CanUndo() bool { return p.history.CanUndo() }

// CanRedo reports whether Redo would change the surface.
func (p *Painter) CanRedo() bool { return p.history.CanRedo() }

// History exposes the painter's checkpoint stack.
func (p *Painter) History() *History { return p.history }

// AlphaAt returns the surface alpha at native coordinates.
func (p *Painter) AlphaAt(x, y int) uint8 {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return 0
	}
	return p.surface.Pix[p.surface.PixOffset(x, y)+3]
}

// ExportMask encodes the current surface as PNG. This is the sole output
// handed to the editing pipeline.
func (p *Painter) ExportMask() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.surface); err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// Preview renders the surface scaled to display dimensions.
func (p *Painter) Preview() *image.RGBA {
	dw := int(math.Round(float64(p.width) * p.displayScale))
	dh := int(math.Round(float64(p.height) * p.displayScale))
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), p.surface, p.surface.Bounds(), xdraw.Src, nil)
	return dst
}

// stamp composites a filled circle at display coordinates (px, py).
// The center and radius are mapped into native space first, so the
// painted region is pixel-exact regardless of display scale.
func (p *Painter) stamp(px, py float64) {
	cx := px / p.displayScale
	cy := py / p.displayScale
	radius := float64(p.brushSize) / 2 / p.displayScale

	alpha := p.opacity
	a := uint32(math.Round(alpha * 255))
	if a == 0 {
		return
	}

	x0 := int(math.Floor(cx - radius))
	x1 := int(math.Ceil(cx + radius))
	y0 := int(math.Floor(cy - radius))
	y1 := int(math.Ceil(cy + radius))
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= p.width {
		x1 = p.width - 1
	}
	if y1 >= p.height {
		y1 = p.height - 1
	}

	r2 := radius * radius
	inv := 255 - a
	pix := p.surface.Pix
	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - cy
		row := p.surface.PixOffset(0, y)
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			off := row + x*4
			if p.mode == ModeEraser {
				// Destination-out: existing coverage multiplied toward
				// zero, fill color irrelevant.
				for i := 0; i < 4; i++ {
					pix[off+i] = uint8(uint32(pix[off+i]) * inv / 255)
				}
			} else {
				// Source-over with a white, premultiplied source.
				for i := 0; i < 4; i++ {
					pix[off+i] = uint8(a + uint32(pix[off+i])*inv/255)
				}
			}
		}
	}
}
