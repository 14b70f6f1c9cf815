package raster

import (
	"errors"
	"fmt"

	"github.com/kvalchek/pictor/internal/models"
)

// NewPainterForScript creates a painter sized to the script's native
// dimensions, displayed within the given bounds.
func NewPainterForScript(s *models.StrokeScript, maxDisplayWidth, maxDisplayHeight int) (*Painter, error) {
	return NewPainter(s.Width, s.Height, maxDisplayWidth, maxDisplayHeight)
}

// ApplyScript replays a recorded stroke script through the pointer and
// command APIs, so replayed input observes the exact same checkpoint
// discipline as live input. Undo/redo actions with nothing to do are
// ignored, matching interactive behavior.
func (p *Painter) ApplyScript(s *models.StrokeScript) error {
	for i, action := range s.Actions {
		switch action.Action {
		case models.StrokeActionPaint:
			p.PointerDown(action.Points[0].X, action.Points[0].Y)
			for _, pt := range action.Points[1:] {
				p.PointerMove(pt.X, pt.Y)
			}
			p.PointerUp()
		case models.StrokeActionUndo:
			if err := p.Undo(); err != nil && !errors.Is(err, ErrNoOp) {
				return fmt.Errorf("action %d: %w", i, err)
			}
		case models.StrokeActionRedo:
			if err := p.Redo(); err != nil && !errors.Is(err, ErrNoOp) {
				return fmt.Errorf("action %d: %w", i, err)
			}
		case models.StrokeActionClear:
			p.Clear()
		case models.StrokeActionSetMode:
			if action.Mode == models.StrokeModeEraser {
				p.SetMode(ModeEraser)
			} else {
				p.SetMode(ModeBrush)
			}
		case models.StrokeActionSetBrush:
			p.SetBrushSize(action.Size)
		case models.StrokeActionOpacity:
			p.SetOpacity(action.Opacity)
		default:
			return fmt.Errorf("action %d: unknown action %q", i, action.Action)
		}
	}
	return nil
}

// RenderScript parses, replays, and exports a stroke script in one step.
func RenderScript(data []byte, maxDisplayWidth, maxDisplayHeight int) ([]byte, error) {
	script, err := models.ParseStrokeScript(data)
	if err != nil {
		return nil, err
	}
	p, err := NewPainterForScript(script, maxDisplayWidth, maxDisplayHeight)
	if err != nil {
		return nil, err
	}
	if err := p.ApplyScript(script); err != nil {
		return nil, err
	}
	return p.ExportMask()
}
