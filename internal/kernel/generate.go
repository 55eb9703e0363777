// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/tonefield/field"
)

// EscapeRadiusSq is the squared magnitude beyond which an orbit diverges.
const EscapeRadiusSq = 4.0

// float is the coordinate arithmetic used by the generator.
type float interface{ ~float32 | ~float64 }

// Escape iterates z ← z² + c from z = 0 and returns how many steps stayed
// bounded. It returns maxIter when the orbit never left the escape radius.
func Escape[T float](cx, cy T, maxIter uint32) uint32 {
	var zx, zy T
	i := uint32(0)
	for i < maxIter {
		zx, zy = zx*zx-zy*zy+cx, 2*zx*zy+cy
		if zx*zx+zy*zy > EscapeRadiusSq {
			break
		}
		i++
	}
	return i
}

// MapPixel maps pixel (px, py) of a width×height image into the window of
// p. Row 0 is the top of the window.
func MapPixel[T float](p field.Params, px, py, width, height int) (T, T) {
	xl, xw := T(p.X.Lo), T(p.X.Hi)-T(p.X.Lo)
	yh, yw := T(p.Y.Hi), T(p.Y.Hi)-T(p.Y.Lo)
	x := xl + T(px)/T(width)*xw
	y := yh - T(py)/T(height)*yw
	return x, y
}

// Shade converts an iteration count into an RGB color: hue iter/maxIter at
// full saturation, value 0 for bounded points and 1 for diverged ones.
func Shade(iter, maxIter uint32) (r, g, b float32) {
	var hue float64
	if maxIter > 0 {
		hue = float64(iter) / float64(maxIter)
	}
	v := 1.0
	if iter == maxIter {
		v = 0
	}
	c := colorful.Hsv(hue*360, 1, v)
	return float32(c.R), float32(c.G), float32(c.B)
}

// Generate evaluates the escape-time field for every pixel of f.
// Each lane writes its own pixel only, so the result does not depend on the
// order in which workgroups run.
func Generate(d *Dispatcher, f *field.Field, p field.Params, prec field.Precision) {
	if prec == field.Double {
		generate[float64](d, f, p)
		return
	}
	generate[float32](d, f, p)
}

func generate[T float](d *Dispatcher, f *field.Field, p field.Params) {
	w, h := f.Width, f.Height
	d.Dispatch(w, h, func(g *Group) {
		g.Lanes(func(l Lane) {
			if l.X >= w || l.Y >= h {
				return
			}
			cx, cy := MapPixel[T](p, l.X, l.Y, w, h)
			r, gg, b := Shade(Escape(cx, cy, p.MaxIter), p.MaxIter)
			f.SetRGBA(l.X, l.Y, r, gg, b, 1)
		})
	})
}
