package editor

import (
	"garment-studio/core"

	"github.com/sirupsen/logrus"
)

// PointerEvent is a raw pointer sample in client coordinates. Target is the id
// of the element under the pointer, or "" for empty canvas area.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target string  `json:"target,omitempty"`
}

// Canvas turns pointer events on one side's surface into document mutations.
// Both canvases share their editor's selection.
type Canvas struct {
	side    core.Side
	surface Surface
	editor  *Editor
}

func (c *Canvas) Side() core.Side {
	return c.side
}

func (c *Canvas) Bounds() Rect {
	if c.surface == nil {
		return Rect{}
	}
	return c.surface.Bounds()
}

// HitTest returns the topmost element on this side whose box contains the
// client point, or "". Rotation is ignored.
func (c *Canvas) HitTest(x, y float64) string {
	e := c.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	b := c.Bounds()
	lx, ly := x-b.X, y-b.Y
	els := e.doc.ElementsForSide(c.side)
	for i := len(els) - 1; i >= 0; i-- {
		el := els[i]
		if lx >= el.X && lx <= el.X+el.Width && ly >= el.Y && ly <= el.Y+el.Height {
			return el.ID
		}
	}
	return ""
}

func (c *Canvas) log() *logrus.Entry {
	return logrus.WithField("side", c.side)
}

// PointerDown handles a press. Pressing empty area deselects and focuses this
// side; pressing an element selects it or, if it is already selected, starts
// (or arms, for the two-step gesture) a drag.
func (c *Canvas) PointerDown(ev PointerEvent) {
	e := c.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || c.surface == nil {
		return
	}

	// A drag never continues across canvases.
	if e.sel.Mode == ModeDragging && e.sel.Side != c.side {
		s := e.sel
		s.Mode = ModeSelected
		e.setSelection(s)
	}

	if ev.Target == "" {
		e.deselect()
		e.doc.ActiveSide = c.side
		c.log().Debug("Canvas pressed, selection cleared")
		return
	}

	el, ok := e.doc.Element(ev.Target)
	if !ok || el.Side != c.side {
		c.log().WithField("element_id", ev.Target).Debug("Press on unknown element ignored")
		return
	}

	e.doc.ActiveSide = c.side
	b := c.surface.Bounds()
	grabX := ev.X - b.X - el.X
	grabY := ev.Y - b.Y - el.Y

	if e.sel.ElementID == el.ID && e.sel.Mode != ModeIdle {
		s := e.sel
		s.GrabX, s.GrabY = grabX, grabY
		if e.gesture == GestureTwoStep && !s.Armed {
			s.Armed = true
		} else {
			s.Mode = ModeDragging
		}
		e.setSelection(s)
		c.log().WithFields(logrus.Fields{"element_id": el.ID, "mode": s.Mode}).Debug("Selected element pressed")
		return
	}

	e.setSelection(Selection{
		ElementID: el.ID,
		Side:      c.side,
		Mode:      ModeSelected,
		GrabX:     grabX,
		GrabY:     grabY,
	})
	c.log().WithField("element_id", el.ID).Debug("Element selected")
}

// PointerMove drags the selected element while a drag is active on this canvas.
func (c *Canvas) PointerMove(ev PointerEvent) {
	e := c.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || c.surface == nil || e.sel.Mode != ModeDragging || e.sel.Side != c.side {
		return
	}

	el, ok := e.doc.Element(e.sel.ElementID)
	if !ok {
		e.setSelection(Selection{})
		return
	}

	b := c.surface.Bounds()
	x, y := clampPosition(ev.X-b.X-e.sel.GrabX, ev.Y-b.Y-e.sel.GrabY, el.Width, el.Height, b)
	_ = e.doc.SetPosition(el.ID, x, y)
}

// PointerUp ends a drag on this canvas. Releases without a drag are ignored.
func (c *Canvas) PointerUp(PointerEvent) {
	c.endDrag()
}

// PointerLeave ends a drag the same way a release does.
func (c *Canvas) PointerLeave() {
	c.endDrag()
}

func (c *Canvas) endDrag() {
	e := c.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sel.Mode != ModeDragging || e.sel.Side != c.side {
		return
	}
	s := e.sel
	s.Mode = ModeSelected
	e.setSelection(s)
}
