package editor

import (
	"strings"
	"sync"

	"garment-studio/core"

	"github.com/sirupsen/logrus"
)

// Action is a toolbar command applied to the selected element.
type Action string

const (
	ActionRotate  Action = "rotate"
	ActionZoomIn  Action = "zoom-in"
	ActionZoomOut Action = "zoom-out"
	ActionDelete  Action = "delete"
	ActionMove    Action = "move"
)

// Editor owns the document and the one selection shared by the front and back
// canvases. All methods are safe for concurrent use; each call runs to
// completion before the next one is applied.
type Editor struct {
	mu       sync.Mutex
	doc      *Document
	sel      Selection
	gen      uint64
	gesture  Gesture
	canvases map[core.Side]*Canvas
	closed   bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithGesture selects the move gesture. The default is GesturePressAndDrag.
func WithGesture(g Gesture) Option {
	return func(e *Editor) {
		e.gesture = g
	}
}

// New creates an editor with an empty document and one canvas per side.
func New(front, back Surface, opts ...Option) *Editor {
	e := &Editor{
		doc:      NewDocument(),
		canvases: make(map[core.Side]*Canvas, 2),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.canvases[core.SideFront] = &Canvas{side: core.SideFront, surface: front, editor: e}
	e.canvases[core.SideBack] = &Canvas{side: core.SideBack, surface: back, editor: e}
	return e
}

// Canvas returns the canvas view for a side, or nil for an unknown side.
func (e *Editor) Canvas(side core.Side) *Canvas {
	return e.canvases[side]
}

// Close unmounts the editor. Pointer events received afterwards are ignored.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.setSelection(Selection{})
}

func (e *Editor) setSelection(s Selection) {
	e.sel = s
	e.gen++
}

func (e *Editor) deselect() {
	if e.sel.Mode != ModeIdle || !e.sel.Empty() {
		e.setSelection(Selection{})
	}
}

// fit caps an element's size at core.MaxElementScale canvases per axis and
// clamps it back inside its side's canvas.
func (e *Editor) fit(id string) {
	el, ok := e.doc.Element(id)
	if !ok {
		return
	}
	c := e.canvases[el.Side]
	if c == nil || c.surface == nil {
		return
	}
	b := c.surface.Bounds()
	if b.Width > 0 && b.Height > 0 {
		_ = e.doc.LimitSize(id, b.Width*core.MaxElementScale, b.Height*core.MaxElementScale)
		el, _ = e.doc.Element(id)
	}
	x, y := clampPosition(el.X, el.Y, el.Width, el.Height, b)
	if x != el.X || y != el.Y {
		_ = e.doc.SetPosition(id, x, y)
	}
}

// AddElement places a new element on the active side and selects it.
func (e *Editor) AddElement(kind core.ElementKind, content, color string) core.DesignElement {
	e.mu.Lock()
	defer e.mu.Unlock()

	el := e.doc.AddElement(kind, content, color)
	e.fit(el.ID)
	el, _ = e.doc.Element(el.ID)
	e.setSelection(Selection{ElementID: el.ID, Side: el.Side, Mode: ModeSelected})

	logrus.WithFields(logrus.Fields{
		"element_id": el.ID,
		"kind":       el.Kind,
		"side":       el.Side,
	}).Debug("Element added")
	return el
}

// AddText adds a text element. Empty text is rejected; an empty color falls back to black.
func (e *Editor) AddText(text, color string) (core.DesignElement, error) {
	if strings.TrimSpace(text) == "" {
		return core.DesignElement{}, ErrInvalidInput
	}
	if color == "" {
		color = DefaultTextColor
	}
	return e.AddElement(core.KindText, text, color), nil
}

// AddImage validates raw upload bytes and adds them as an embedded image element.
func (e *Editor) AddImage(data []byte) (core.DesignElement, error) {
	uri, err := ImageFromUpload(data)
	if err != nil {
		return core.DesignElement{}, err
	}
	return e.AddElement(core.KindImage, uri, ""), nil
}

// AddImageReference adds an image element pointing at an already uploaded blob.
func (e *Editor) AddImageReference(ref string) (core.DesignElement, error) {
	if strings.TrimSpace(ref) == "" {
		return core.DesignElement{}, ErrInvalidInput
	}
	return e.AddElement(core.KindImage, ref, ""), nil
}

// RemoveElement deletes an element. Removing the selected element clears the
// selection; an unknown id is a no-op.
func (e *Editor) RemoveElement(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remove(id)
}

func (e *Editor) remove(id string) bool {
	if err := e.doc.RemoveElement(id); err != nil {
		logrus.WithField("element_id", id).Debug("Remove ignored for unknown element")
		return false
	}
	if e.sel.ElementID == id {
		e.setSelection(Selection{})
	}
	return true
}

// Apply runs a toolbar action on the selected element. It reports false when
// nothing is selected or the selection went stale.
func (e *Editor) Apply(action Action) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.sel.Empty() {
		return false
	}
	id := e.sel.ElementID
	if _, ok := e.doc.Element(id); !ok {
		e.setSelection(Selection{})
		return false
	}

	switch action {
	case ActionRotate:
		_ = e.doc.RotateElement(id, RotateStep)
	case ActionZoomIn, ActionZoomOut:
		scale := ZoomIn
		if action == ActionZoomOut {
			scale = ZoomOut
		}
		_ = e.doc.ResizeElement(id, scale)
		e.fit(id)
	case ActionDelete:
		return e.remove(id)
	case ActionMove:
		if e.gesture != GestureTwoStep {
			return false
		}
		s := e.sel
		s.Armed = true
		e.setSelection(s)
	default:
		return false
	}
	return true
}

func (e *Editor) SetShirtStyle(style core.ShirtStyle) error {
	if !style.Valid() {
		return ErrInvalidInput
	}
	e.mu.Lock()
	e.doc.ShirtStyle = style
	e.mu.Unlock()
	return nil
}

func (e *Editor) SetName(name string) {
	e.mu.Lock()
	e.doc.Name = name
	e.mu.Unlock()
}

func (e *Editor) SetActiveSide(side core.Side) error {
	if !side.Valid() {
		return ErrInvalidInput
	}
	e.mu.Lock()
	e.doc.ActiveSide = side
	e.mu.Unlock()
	return nil
}

func (e *Editor) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

func (e *Editor) Mode() Mode {
	return e.Selection().Mode
}

func (e *Editor) ElementsForSide(side core.Side) []core.DesignElement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.ElementsForSide(side)
}

func (e *Editor) Element(id string) (core.DesignElement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Element(id)
}

// Snapshot is a read-only copy of the editor state.
type Snapshot struct {
	Name       string               `json:"name"`
	ShirtStyle core.ShirtStyle      `json:"shirtStyle"`
	ActiveSide core.Side            `json:"activeSide"`
	Front      []core.DesignElement `json:"front"`
	Back       []core.DesignElement `json:"back"`
	Selection  Selection            `json:"selection"`
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Name:       e.doc.Name,
		ShirtStyle: e.doc.ShirtStyle,
		ActiveSide: e.doc.ActiveSide,
		Front:      e.doc.ElementsForSide(core.SideFront),
		Back:       e.doc.ElementsForSide(core.SideBack),
		Selection:  e.sel,
	}
}

// SuspendSelection clears the selection and returns a func that puts it back.
// The restore is skipped when the selection changed in the meantime, so a
// selection made by the user while the selection was suspended wins. A drag in
// progress comes back as a plain selection.
func (e *Editor) SuspendSelection() (restore func()) {
	e.mu.Lock()
	prev := e.sel
	e.setSelection(Selection{})
	gen := e.gen
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || e.gen != gen || prev.Empty() {
			return
		}
		if _, ok := e.doc.Element(prev.ElementID); !ok {
			return
		}
		if prev.Mode == ModeDragging {
			prev.Mode = ModeSelected
		}
		e.setSelection(prev)
	}
}
