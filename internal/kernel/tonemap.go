// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"github.com/gogpu/tonefield/field"
)

// Epsilon floors the equalizer's divisors.
const Epsilon = 1e-6

// Recalibrate rescales the RGB channels of f into [0, 1] using the extrema
// in s. Alpha is preserved. When max - min is not positive the field is
// left untouched, so a uniform field stays exactly as it was.
func Recalibrate(d *Dispatcher, f *field.Field, s *field.Stats) {
	lo, hi := s.Min(), s.Max()
	rng := hi - lo
	if !(rng > 0) {
		return
	}
	inv := 1 / rng

	w, h := f.Width, f.Height
	d.Dispatch(w, h, func(g *Group) {
		g.Lanes(func(l Lane) {
			if l.X >= w || l.Y >= h {
				return
			}
			r, gg, b, a := f.RGBA(l.X, l.Y)
			f.SetRGBA(l.X, l.Y,
				field.Clamp01((r-lo)*inv),
				field.Clamp01((gg-lo)*inv),
				field.Clamp01((b-lo)*inv),
				a)
		})
	})
}

// Histogram counts every pixel whose luminance exceeds s.CDFThreshold into
// its bin and into the sample total. Pixels at or below the threshold are
// ignored.
func Histogram(d *Dispatcher, f *field.Field, s *field.Stats) {
	thr := s.CDFThreshold
	w, h := f.Width, f.Height
	d.Dispatch(w, h, func(g *Group) {
		g.Lanes(func(l Lane) {
			if l.X >= w || l.Y >= h {
				return
			}
			lum := f.Lum(l.X, l.Y)
			if lum > thr {
				s.CountSample(field.Bin(lum))
			}
		})
	})
}

// CDF accumulates the normalized histogram into s.CDF with one sequential
// scan. s.CDFNonZero receives the first strictly positive cumulative value,
// or field.NoForeground when every bin is empty.
func CDF(s *field.Stats) {
	var nInv float32
	if s.HistogramN > 0 {
		nInv = 1 / float32(s.HistogramN)
	}

	s.CDFNonZero = field.NoForeground
	var sum float32
	for i, c := range s.Histogram {
		sum = min(sum+float32(c)*nInv, 1)
		s.CDF[i] = sum
		if s.CDFNonZero < 0 && sum > 0 {
			s.CDFNonZero = sum
		}
	}
}

// Equalize maps every pixel's luminance through the CDF and rescales its
// RGB by the ratio of equalized to original luminance. Hue and saturation
// are preserved; alpha is untouched.
func Equalize(d *Dispatcher, f *field.Field, s *field.Stats) {
	thr := s.CDFThreshold
	denom := max(1-thr, Epsilon)
	w, h := f.Width, f.Height
	d.Dispatch(w, h, func(g *Group) {
		g.Lanes(func(l Lane) {
			if l.X >= w || l.Y >= h {
				return
			}
			r, gg, b, a := f.RGBA(l.X, l.Y)
			lum := field.Luminance(r, gg, b)
			eq := field.Clamp01((s.CDF[field.Bin(lum)] - thr) / denom)
			ratio := eq / max(lum, Epsilon)
			f.SetRGBA(l.X, l.Y,
				field.Clamp01(r*ratio),
				field.Clamp01(gg*ratio),
				field.Clamp01(b*ratio),
				a)
		})
	})
}
