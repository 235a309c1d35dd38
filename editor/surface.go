package editor

import "math"

// Rect is a canvas's placement in client coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Surface is the coordinate-space query every rendering surface provides.
// Bounds is asked on each pointer event so a moved or resized surface is
// picked up without re-registering.
type Surface interface {
	Bounds() Rect
}

// FixedSurface is a Surface that never moves.
type FixedSurface Rect

func (s FixedSurface) Bounds() Rect {
	return Rect(s)
}

// clampPosition keeps a width x height box inside bounds. A box larger than the
// canvas pins to the origin on that axis.
func clampPosition(x, y, width, height float64, bounds Rect) (float64, float64) {
	x = math.Max(0, math.Min(bounds.Width-width, x))
	y = math.Max(0, math.Min(bounds.Height-height, y))
	return x, y
}
