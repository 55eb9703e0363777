// Package field holds the data shared by every stage of the tone-mapping
// pipeline: the floating-point color field, the per-frame generator
// parameters and the global statistics record.
//
// The types here are plain data. Passes live in internal/kernel (CPU) and
// internal/gpu (WGSL); both read and write the same memory layouts, so a
// frame can move between host and device without conversion.
package field

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"
)

// Channels is the number of float32 values stored per pixel (RGBA).
const Channels = 4

// ErrSizeMismatch is returned when two resources that must share the same
// dimensions do not.
var ErrSizeMismatch = errors.New("field: size mismatch")

// Field is a W×H grid of RGBA float32 samples, stored row-major.
//
// Pixel (x, y) occupies Pix[(y*Width+x)*4 : (y*Width+x)*4+4].
// A Field is mutated in place by passes and never copied by the pipeline.
type Field struct {
	Width  int
	Height int
	Pix    []float32
}

// New allocates a zeroed field. Non-positive dimensions yield an empty field.
func New(width, height int) *Field {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Field{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*Channels),
	}
}

// Len returns the number of pixels.
func (f *Field) Len() int { return f.Width * f.Height }

// Offset returns the index of the red channel of pixel (x, y) in Pix.
func (f *Field) Offset(x, y int) int { return (y*f.Width + x) * Channels }

// InBounds reports whether (x, y) addresses a pixel of the field.
func (f *Field) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

// RGBA returns the four channels of pixel (x, y).
func (f *Field) RGBA(x, y int) (r, g, b, a float32) {
	i := f.Offset(x, y)
	p := f.Pix[i : i+Channels : i+Channels]
	return p[0], p[1], p[2], p[3]
}

// SetRGBA stores the four channels of pixel (x, y).
func (f *Field) SetRGBA(x, y int, r, g, b, a float32) {
	i := f.Offset(x, y)
	p := f.Pix[i : i+Channels : i+Channels]
	p[0], p[1], p[2], p[3] = r, g, b, a
}

// Fill sets every pixel to the same color.
func (f *Field) Fill(r, g, b, a float32) {
	for i := 0; i < len(f.Pix); i += Channels {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, a
	}
}

// Lum returns the luminance of pixel (x, y).
func (f *Field) Lum(x, y int) float32 {
	r, g, b, _ := f.RGBA(x, y)
	return Luminance(r, g, b)
}

// CopyFrom overwrites f with the contents of src.
func (f *Field) CopyFrom(src *Field) error {
	if src.Width != f.Width || src.Height != f.Height {
		return fmt.Errorf("%w: %dx%d into %dx%d", ErrSizeMismatch, src.Width, src.Height, f.Width, f.Height)
	}
	copy(f.Pix, src.Pix)
	return nil
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	c := &Field{Width: f.Width, Height: f.Height, Pix: make([]float32, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// Field implements hdr.Image so that it can be handed to the HDR codecs
// directly.
var _ hdr.Image = (*Field)(nil)

// ColorModel implements image.Image.
func (f *Field) ColorModel() color.Model { return hdrcolor.RGBModel }

// Bounds implements image.Image.
func (f *Field) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *Field) At(x, y int) color.Color { return f.HDRAt(x, y) }

// HDRAt implements hdr.Image. Out-of-bounds coordinates return black.
func (f *Field) HDRAt(x, y int) hdrcolor.Color {
	if !f.InBounds(x, y) {
		return hdrcolor.RGB{}
	}
	r, g, b, _ := f.RGBA(x, y)
	return hdrcolor.RGB{R: float64(r), G: float64(g), B: float64(b)}
}

// Size implements hdr.Image.
func (f *Field) Size() int { return f.Len() }
