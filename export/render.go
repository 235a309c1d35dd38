package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strconv"
	"strings"

	"garment-studio/core"
	"garment-studio/editor"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

var (
	canvasBackground = color.RGBA{R: 0xf8, G: 0xf8, B: 0xf8, A: 0xff}
	selectionColor   = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
)

// FetchFunc loads the bytes behind an image reference that is not a data URI.
type FetchFunc func(ctx context.Context, ref string) ([]byte, error)

// Renderer rasterizes one canvas side. Elements are drawn in slice order, each
// rotated about its own center. The selected element gets a selection border,
// which is why captures run with the selection suspended.
type Renderer struct {
	Width      int
	Height     int
	Background color.Color
	Fetch      FetchFunc
}

// NewRenderer returns a renderer for a width x height canvas with the editor's backdrop color.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{Width: width, Height: height, Background: canvasBackground}
}

func (r *Renderer) Render(ctx context.Context, elements []core.DesignElement, selectedID string) (*image.RGBA, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, errors.Errorf("invalid canvas size %dx%d", r.Width, r.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	if r.Background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)
	}

	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.checkBox(el); err != nil {
			return nil, err
		}
		layer, err := r.layer(ctx, el)
		if err != nil {
			return nil, errors.Wrapf(err, "render element %s", el.ID)
		}
		if el.ID == selectedID {
			outline(layer, selectionColor, 2)
		}
		place(dst, layer, el)
	}
	return dst, nil
}

func (r *Renderer) RenderPNG(ctx context.Context, elements []core.DesignElement, selectedID string) ([]byte, error) {
	img, err := r.Render(ctx, elements, selectedID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// RenderDataURI renders to a PNG data URI.
func (r *Renderer) RenderDataURI(ctx context.Context, elements []core.DesignElement, selectedID string) (string, error) {
	data, err := r.RenderPNG(ctx, elements, selectedID)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// checkBox rejects elements whose layer would not fit the renderer's memory
// bound of core.MaxElementScale canvases per axis.
func (r *Renderer) checkBox(el core.DesignElement) error {
	for _, v := range []float64{el.X, el.Y, el.Width, el.Height, el.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("element %s has a non-finite box", el.ID)
		}
	}
	maxW := float64(r.Width) * core.MaxElementScale
	maxH := float64(r.Height) * core.MaxElementScale
	if el.Width > maxW || el.Height > maxH {
		return errors.Errorf("element %s is %gx%g, larger than %gx%g", el.ID, el.Width, el.Height, maxW, maxH)
	}
	return nil
}

func layerSize(el core.DesignElement) image.Rectangle {
	w := int(math.Ceil(el.Width))
	h := int(math.Ceil(el.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(0, 0, w, h)
}

func (r *Renderer) layer(ctx context.Context, el core.DesignElement) (*image.RGBA, error) {
	layer := image.NewRGBA(layerSize(el))
	switch el.Kind {
	case core.KindText:
		drawText(layer, el.Content, parseColor(el.Color))
	case core.KindImage:
		src, err := r.decode(ctx, el.Content)
		if err != nil {
			return nil, err
		}
		draw.CatmullRom.Scale(layer, containRect(src.Bounds(), layer.Bounds()), src, src.Bounds(), draw.Over, nil)
	default:
		return nil, errors.Errorf("unknown element kind %q", el.Kind)
	}
	return layer, nil
}

func (r *Renderer) decode(ctx context.Context, ref string) (image.Image, error) {
	var data []byte
	if strings.HasPrefix(ref, "data:") {
		_, payload, err := editor.ParseDataURI(ref)
		if err != nil {
			return nil, errors.Wrap(err, "parse data uri")
		}
		data = payload
	} else {
		if r.Fetch == nil {
			return nil, errors.Errorf("cannot load image reference %q", ref)
		}
		payload, err := r.Fetch(ctx, ref)
		if err != nil {
			return nil, errors.Wrap(err, "fetch image")
		}
		data = payload
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}

// containRect fits src inside box keeping its aspect ratio, centered.
func containRect(src, box image.Rectangle) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	bw, bh := float64(box.Dx()), float64(box.Dy())
	if sw == 0 || sh == 0 {
		return box
	}
	scale := math.Min(bw/sw, bh/sh)
	w, h := int(math.Round(sw*scale)), int(math.Round(sh*scale))
	x := box.Min.X + (box.Dx()-w)/2
	y := box.Min.Y + (box.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func drawText(layer *image.RGBA, text string, c color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(c),
		Face: face,
	}
	b := layer.Bounds()
	width := d.MeasureString(text)
	metrics := face.Metrics()
	x := (fixed.I(b.Dx()) - width) / 2
	y := (fixed.I(b.Dy()) + metrics.Ascent - metrics.Descent) / 2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(text)
}

func outline(layer *image.RGBA, c color.Color, width int) {
	b := layer.Bounds()
	u := image.NewUniform(c)
	draw.Draw(layer, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+width), u, image.Point{}, draw.Src)
	draw.Draw(layer, image.Rect(b.Min.X, b.Max.Y-width, b.Max.X, b.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(layer, image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(layer, image.Rect(b.Max.X-width, b.Min.Y, b.Max.X, b.Max.Y), u, image.Point{}, draw.Src)
}

// place draws layer onto dst at the element's box, rotated clockwise by
// el.Rotation degrees about the box center.
func place(dst *image.RGBA, layer *image.RGBA, el core.DesignElement) {
	lw, lh := float64(layer.Bounds().Dx()), float64(layer.Bounds().Dy())
	sx, sy := el.Width/lw, el.Height/lh
	cx, cy := el.X+el.Width/2, el.Y+el.Height/2
	rad := el.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	m := f64.Aff3{
		cos * sx, -sin * sy, cx - (cos*sx*lw/2 - sin*sy*lh/2),
		sin * sx, cos * sy, cy - (sin*sx*lw/2 + cos*sy*lh/2),
	}
	draw.BiLinear.Transform(dst, m, layer, layer.Bounds(), draw.Over, nil)
}

// parseColor reads #rgb and #rrggbb. Anything else renders black.
func parseColor(s string) color.Color {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
