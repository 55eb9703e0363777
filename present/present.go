// Package present turns a finished field into displayable and storable
// images: an 8-bit RGBA surface sampled without filtering, PNG and Radiance
// HDR files, and an optional caption.
package present

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/mdouchement/hdr/codec/rgbe"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/tonefield/field"
)

// ToRGBA converts f to an 8-bit surface of width×height. Every destination
// pixel loads exactly one field sample (nearest neighbour, no blending).
// Channels are clamped to [0, 1].
func ToRGBA(f *field.Field, width, height int) *image.RGBA {
	src := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b, a := f.RGBA(x, y)
			i := src.PixOffset(x, y)
			src.Pix[i+0] = to8(r)
			src.Pix[i+1] = to8(g)
			src.Pix[i+2] = to8(b)
			src.Pix[i+3] = to8(a)
		}
	}
	if width == f.Width && height == f.Height {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func to8(v float32) uint8 {
	return uint8(field.Clamp01(v)*255 + 0.5)
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// WriteHDR encodes f as a Radiance RGBE image without clamping.
func WriteHDR(w io.Writer, f *field.Field) error {
	return rgbe.Encode(w, f)
}

// SavePNG writes img to filename.
func SavePNG(filename string, img image.Image) error {
	return saveFile(filename, func(w io.Writer) error { return WritePNG(w, img) })
}

// SaveHDR writes f to filename in Radiance format.
func SaveHDR(filename string, f *field.Field) error {
	return saveFile(filename, func(w io.Writer) error { return WriteHDR(w, f) })
}

func saveFile(filename string, encode func(io.Writer) error) error {
	out, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("present: create %q: %w", filename, err)
	}
	if err := encode(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("present: encode %q: %w", filename, err)
	}
	return out.Close()
}

// SavePath returns "./{prefix}_{unix millis}.{ext}", a name that does not
// collide between runs.
func SavePath(prefix, ext string) string {
	return savePath(prefix, ext, time.Now())
}

func savePath(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("./%s_%d.%s", prefix, now.UnixMilli(), ext)
}

// captionPad is the margin around caption text in pixels.
const captionPad = 4

// Caption draws text on a dark band along the bottom edge of img.
// Lines longer than the image are cut off.
func Caption(img draw.Image, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	b := img.Bounds()
	band := image.Rect(b.Min.X, b.Max.Y-face.Height-2*captionPad, b.Max.X, b.Max.Y).Intersect(b)
	draw.Draw(img, band, image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(b.Min.X+captionPad, b.Max.Y-captionPad-(face.Height-face.Ascent)),
	}
	d.DrawString(text)
}
