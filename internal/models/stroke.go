package models

import (
	"encoding/json"
	"fmt"
)

// Stroke action names accepted in a stroke script.
const (
	StrokeActionPaint     = "paint"
	StrokeActionUndo      = "undo"
	StrokeActionRedo      = "redo"
	StrokeActionClear     = "clear"
	StrokeActionSetMode   = "mode"
	StrokeActionSetBrush  = "brush"
	StrokeActionOpacity   = "opacity"
	StrokeModeBrush       = "brush"
	StrokeModeEraser      = "eraser"
)

// StrokePoint is a pointer sample in display coordinates.
type StrokePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StrokeAction is one recorded command: either a full drag ("paint", with
// Points carrying pointer-down through pointer-up samples) or a painter
// command (undo/redo/clear/mode/brush/opacity).
type StrokeAction struct {
	Action  string        `json:"action"`
	Points  []StrokePoint `json:"points,omitempty"`
	Mode    string        `json:"mode,omitempty"`
	Size    int           `json:"size,omitempty"`
	Opacity float64       `json:"opacity,omitempty"`
}

// StrokeScript is a replayable recording of mask-editing input. It lets
// the CLI drive the painter without a pointing device.
type StrokeScript struct {
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Actions []StrokeAction `json:"actions"`
}

// ParseStrokeScript decodes and validates a stroke script.
func ParseStrokeScript(data []byte) (*StrokeScript, error) {
	var s StrokeScript
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse stroke script: %w", err)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("stroke script: invalid dimensions %dx%d", s.Width, s.Height)
	}
	for i, a := range s.Actions {
		switch a.Action {
		case StrokeActionPaint:
			if len(a.Points) == 0 {
				return nil, fmt.Errorf("stroke script: action %d: paint with no points", i)
			}
		case StrokeActionUndo, StrokeActionRedo, StrokeActionClear:
		case StrokeActionSetMode:
			if a.Mode != StrokeModeBrush && a.Mode != StrokeModeEraser {
				return nil, fmt.Errorf("stroke script: action %d: unknown mode %q", i, a.Mode)
			}
		case StrokeActionSetBrush:
			if a.Size == 0 {
				return nil, fmt.Errorf("stroke script: action %d: brush with no size", i)
			}
		case StrokeActionOpacity:
			if a.Opacity <= 0 || a.Opacity > 1 {
				return nil, fmt.Errorf("stroke script: action %d: opacity out of range", i)
			}
		default:
			return nil, fmt.Errorf("stroke script: action %d: unknown action %q", i, a.Action)
		}
	}
	return &s, nil
}
