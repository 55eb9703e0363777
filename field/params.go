package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateRange is returned by Params.Validate when a coordinate range
// is empty, inverted or not finite.
var ErrDegenerateRange = errors.New("field: degenerate coordinate range")

// MinZoomDelta is the smallest window width Zoom will produce on either axis.
const MinZoomDelta = 1e-10

// Default generator parameters.
const (
	DefaultMaxIter = 100
	DefaultStep    = 0.1
	DefaultCoeff   = 4.5
)

// Uniform buffer sizes for each precision. Both are multiples of 16 so they
// satisfy uniform-buffer alignment on every backend.
const (
	UniformSizeSingle = 48
	UniformSizeDouble = 64
)

// Range is an ordered interval [Lo, Hi] on one axis of the coordinate window.
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Width returns Hi - Lo.
func (r Range) Width() float64 { return r.Hi - r.Lo }

// Center returns the midpoint of the range.
func (r Range) Center() float64 { return r.Lo + r.Width()/2 }

// Valid reports whether Lo < Hi and both bounds are finite.
func (r Range) Valid() bool {
	return !math.IsInf(r.Lo, 0) && !math.IsInf(r.Hi, 0) &&
		!math.IsNaN(r.Lo) && !math.IsNaN(r.Hi) && r.Lo < r.Hi
}

// Shift translates the range by offset.
func (r Range) Shift(offset float64) Range { return Range{r.Lo + offset, r.Hi + offset} }

// Scale multiplies both bounds by factor.
func (r Range) Scale(factor float64) Range { return Range{r.Lo * factor, r.Hi * factor} }

// Map maps v from r into the range out.
func (r Range) Map(v float64, out Range) float64 {
	return (v-r.Lo)/r.Width()*out.Width() + out.Lo
}

// ShiftStep returns the distance of one pan step when the range is split
// into the given number of divisions.
func (r Range) ShiftStep(divisions uint32) float64 {
	if divisions == 0 {
		return 0
	}
	return r.Width() / float64(divisions)
}

// Params is the immutable per-frame generator configuration.
//
// Step and Coeff are carried for alternative generator variants and are
// ignored by the escape-time generator.
type Params struct {
	MaxIter uint32  `yaml:"max_iter"`
	Step    float64 `yaml:"step"`
	Coeff   float64 `yaml:"coeff"`
	X       Range   `yaml:"x"`
	Y       Range   `yaml:"y"`
}

// DefaultParams returns the default window over the main cardioid.
func DefaultParams() Params {
	return Params{
		MaxIter: DefaultMaxIter,
		Step:    DefaultStep,
		Coeff:   DefaultCoeff,
		X:       Range{-2.0, 0.5},
		Y:       Range{-1.25, 1.25},
	}
}

// Validate rejects windows the generator cannot map pixels into.
// Kernels never validate; callers must.
func (p Params) Validate() error {
	if !p.X.Valid() {
		return fmt.Errorf("%w: x [%g, %g]", ErrDegenerateRange, p.X.Lo, p.X.Hi)
	}
	if !p.Y.Valid() {
		return fmt.Errorf("%w: y [%g, %g]", ErrDegenerateRange, p.Y.Lo, p.Y.Hi)
	}
	return nil
}

// ZoomAt scales the window by factor around the absolute point (fx, fy).
// A factor below 1 zooms in. The window is left unchanged when the result
// would be narrower than MinZoomDelta or the factor is not positive.
func (p Params) ZoomAt(factor, fx, fy float64) Params {
	if !(factor > 0) {
		return p
	}
	x := p.X.Shift(-fx).Scale(factor).Shift(fx)
	y := p.Y.Shift(-fy).Scale(factor).Shift(fy)
	if x.Width() < MinZoomDelta || y.Width() < MinZoomDelta {
		return p
	}
	p.X, p.Y = x, y
	return p
}

// Zoom scales the window by factor around a focus point given relative to
// the window, where (0.5, 0.5) is its center.
func (p Params) Zoom(factor, rx, ry float64) Params {
	fx := rx*p.X.Width() + p.X.Lo
	fy := ry*p.Y.Width() + p.Y.Lo
	return p.ZoomAt(factor, fx, fy)
}

// Pan moves the window by dx and dy steps, each step being 1/divisions of
// the window width on that axis. Positive dy moves the window up.
func (p Params) Pan(dx, dy int, divisions uint32) Params {
	p.X = p.X.Shift(float64(dx) * p.X.ShiftStep(divisions))
	p.Y = p.Y.Shift(float64(dy) * p.Y.ShiftStep(divisions))
	return p
}

// AppendUniform appends the uniform-buffer encoding of p for the given
// precision. Reserved padding words are always zero.
//
// Single precision layout (48 bytes):
//
//	0  max_iter u32
//	4  reserved u32 x3
//	16 step f32, coeff f32
//	24 x vec2<f32>
//	32 y vec2<f32>
//	40 reserved
//
// Double precision layout (64 bytes):
//
//	0  max_iter u32
//	4  reserved u32 x3
//	16 step f64, coeff f64
//	32 x vec2<f64>
//	48 y vec2<f64>
func (p Params) AppendUniform(buf []byte, prec Precision) []byte {
	le := binary.LittleEndian
	buf = le.AppendUint32(buf, p.MaxIter)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint32(buf, 0)
	if prec == Double {
		for _, v := range [...]float64{p.Step, p.Coeff, p.X.Lo, p.X.Hi, p.Y.Lo, p.Y.Hi} {
			buf = le.AppendUint64(buf, math.Float64bits(v))
		}
		return buf
	}
	for _, v := range [...]float64{p.Step, p.Coeff, p.X.Lo, p.X.Hi, p.Y.Lo, p.Y.Hi} {
		buf = le.AppendUint32(buf, math.Float32bits(float32(v)))
	}
	return append(buf, make([]byte, UniformSizeSingle-40)...)
}

// UniformSize returns the encoded size of Params for the given precision.
func UniformSize(prec Precision) int {
	if prec == Double {
		return UniformSizeDouble
	}
	return UniformSizeSingle
}
