package editor

import (
	"errors"
	"math"

	"garment-studio/core"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultX = 80.0
	DefaultY = 120.0

	DefaultDesignName = "My Custom Design"
	DefaultText       = "Your Text Here"
	DefaultTextColor  = "#000000"

	RotateStep = 45.0
	ZoomIn     = 1.2
	ZoomOut    = 0.8
)

var (
	// ErrNotFound is returned when an operation references an id that is not in the document.
	ErrNotFound = errors.New("element not found")

	// ErrInvalidInput is returned for content the editor cannot place, such as a non-image upload.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultSize returns the size a freshly added element of the given kind gets.
func DefaultSize(kind core.ElementKind) (width, height float64) {
	if kind == core.KindText {
		return 120, 40
	}
	return 80, 80
}

// Document is the full customization state: the ordered layer list for both
// sides plus the presentational settings. Slice order is z-order.
type Document struct {
	ShirtStyle core.ShirtStyle
	ActiveSide core.Side
	Name       string

	elements []core.DesignElement
}

// NewDocument returns the empty document an editor starts with.
func NewDocument() *Document {
	return &Document{
		ShirtStyle: core.StyleHalfSleeve,
		ActiveSide: core.SideFront,
		Name:       DefaultDesignName,
	}
}

// AddElement appends a new element on the active side at the default position.
// Overlap with existing elements is allowed.
func (d *Document) AddElement(kind core.ElementKind, content, color string) core.DesignElement {
	w, h := DefaultSize(kind)
	el := core.DesignElement{
		ID:      ulid.Make().String(),
		Kind:    kind,
		Content: content,
		X:       DefaultX,
		Y:       DefaultY,
		Width:   w,
		Height:  h,
		Side:    d.ActiveSide,
	}
	if kind == core.KindText {
		el.Color = color
	}
	d.elements = append(d.elements, el)
	return el
}

func (d *Document) index(id string) int {
	for i := range d.elements {
		if d.elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Element returns a copy of the element with the given id.
func (d *Document) Element(id string) (core.DesignElement, bool) {
	i := d.index(id)
	if i < 0 {
		return core.DesignElement{}, false
	}
	return d.elements[i], true
}

func (d *Document) RemoveElement(id string) error {
	i := d.index(id)
	if i < 0 {
		return ErrNotFound
	}
	d.elements = append(d.elements[:i], d.elements[i+1:]...)
	return nil
}

// RotateElement adds increment degrees, keeping the result in [0, 360).
func (d *Document) RotateElement(id string, increment float64) error {
	i := d.index(id)
	if i < 0 {
		return ErrNotFound
	}
	r := math.Mod(d.elements[i].Rotation+increment, 360)
	if r < 0 {
		r += 360
	}
	d.elements[i].Rotation = r
	return nil
}

// ResizeElement scales both axes by the same factor and floors each axis at
// core.MinElementSize independently, so the aspect ratio can drift near the floor.
func (d *Document) ResizeElement(id string, scale float64) error {
	i := d.index(id)
	if i < 0 {
		return ErrNotFound
	}
	d.elements[i].Width = math.Max(core.MinElementSize, d.elements[i].Width*scale)
	d.elements[i].Height = math.Max(core.MinElementSize, d.elements[i].Height*scale)
	return nil
}

// LimitSize caps each axis independently at the given maximum.
func (d *Document) LimitSize(id string, maxWidth, maxHeight float64) error {
	i := d.index(id)
	if i < 0 {
		return ErrNotFound
	}
	d.elements[i].Width = math.Min(maxWidth, d.elements[i].Width)
	d.elements[i].Height = math.Min(maxHeight, d.elements[i].Height)
	return nil
}

// SetPosition moves an element. Callers pass coordinates that are already clamped.
func (d *Document) SetPosition(id string, x, y float64) error {
	i := d.index(id)
	if i < 0 {
		return ErrNotFound
	}
	d.elements[i].X = x
	d.elements[i].Y = y
	return nil
}

// ElementsForSide returns copies of the side's elements in z-order.
func (d *Document) ElementsForSide(side core.Side) []core.DesignElement {
	out := make([]core.DesignElement, 0, len(d.elements))
	for _, el := range d.elements {
		if el.Side == side {
			out = append(out, el)
		}
	}
	return out
}

// Elements returns a copy of the whole layer list.
func (d *Document) Elements() []core.DesignElement {
	out := make([]core.DesignElement, len(d.elements))
	copy(out, d.elements)
	return out
}

func (d *Document) Len() int {
	return len(d.elements)
}
