package editor

import "garment-studio/core"

// Mode is the interaction state of the editor.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSelected
	ModeDragging
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeSelected:
		return "selected"
	case ModeDragging:
		return "dragging"
	}
	return "unknown"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Gesture picks how a selected element starts moving.
type Gesture int

const (
	// GesturePressAndDrag starts a drag when the already selected element is pressed.
	GesturePressAndDrag Gesture = iota

	// GestureTwoStep needs the move to be armed first, either by pressing the
	// selected element again or by the Move toolbar action. The next press drags.
	GestureTwoStep
)

// ParseGesture maps a config value to a Gesture. Unknown values fall back to press-and-drag.
func ParseGesture(s string) Gesture {
	if s == "two-step" {
		return GestureTwoStep
	}
	return GesturePressAndDrag
}

// Selection is the single selection shared by both canvases.
type Selection struct {
	ElementID string    `json:"elementId,omitempty"`
	Side      core.Side `json:"side,omitempty"`
	Mode      Mode      `json:"mode"`

	// Armed is only used by GestureTwoStep.
	Armed bool `json:"armed,omitempty"`

	// Cursor to element origin offset recorded on press.
	GrabX float64 `json:"-"`
	GrabY float64 `json:"-"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.ElementID == ""
}
