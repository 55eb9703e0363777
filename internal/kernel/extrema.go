// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"math"

	"github.com/gogpu/tonefield/field"
)

// Identity values seeded by lanes that fall outside the image. Luminance is
// never negative, so 0 is the identity of max.
const (
	minIdentity float32 = math.MaxFloat32
	maxIdentity float32 = 0
)

// Extrema merges the global luminance minimum and maximum of f into s.
//
// Each workgroup folds its lanes in shared scratch by halving the stride,
// with a barrier after every step. Lane 0 then merges the group's result
// with atomic min/max. Out-of-bounds lanes seed identity values but still
// reach every barrier.
func Extrema(d *Dispatcher, f *field.Field, s *field.Stats) {
	w, h := f.Width, f.Height
	d.Dispatch(w, h, func(g *Group) {
		mins, maxs := g.Shared(0), g.Shared(1)

		g.Lanes(func(l Lane) {
			if l.X >= w || l.Y >= h {
				mins[l.Index], maxs[l.Index] = minIdentity, maxIdentity
				return
			}
			lum := f.Lum(l.X, l.Y)
			mins[l.Index], maxs[l.Index] = lum, lum
		})

		for stride := g.Invocations() / 2; stride > 0; stride /= 2 {
			g.Lanes(func(l Lane) {
				if l.Index >= stride {
					return
				}
				mins[l.Index] = pickMin(mins[l.Index], mins[l.Index+stride])
				maxs[l.Index] = pickMax(maxs[l.Index], maxs[l.Index+stride])
			})
		}

		s.MergeMin(mins[0])
		s.MergeMax(maxs[0])
	})
}

// pickMin returns the smaller operand; ties keep a.
func pickMin(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}

// pickMax returns the larger operand; ties keep a.
func pickMax(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}
