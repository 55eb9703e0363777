// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/gogpu/tonefield/field"
	"github.com/gogpu/tonefield/internal/parallel"
)

// newTestDispatcher returns a pooled dispatcher that is closed with the test.
func newTestDispatcher(t *testing.T, size int) *Dispatcher {
	t.Helper()
	pool := parallel.NewWorkerPool(4)
	t.Cleanup(pool.Close)
	d, err := NewDispatcher(pool, size)
	if err != nil {
		t.Fatalf("NewDispatcher(%d): %v", size, err)
	}
	return d
}

// randomField fills a field with non-negative colors in [0, scale).
func randomField(w, h int, scale float32, seed uint64) *field.Field {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f := field.New(w, h)
	for i := 0; i < len(f.Pix); i += field.Channels {
		f.Pix[i] = rng.Float32() * scale
		f.Pix[i+1] = rng.Float32() * scale
		f.Pix[i+2] = rng.Float32() * scale
		f.Pix[i+3] = 1
	}
	return f
}

// bruteExtrema scans f sequentially.
func bruteExtrema(f *field.Field) (lo, hi float32) {
	lo, hi = math.MaxFloat32, 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			l := f.Lum(x, y)
			lo, hi = min(lo, l), max(hi, l)
		}
	}
	return lo, hi
}

// =============================================================================
// Dispatcher Tests
// =============================================================================

func TestNewDispatcher_RejectsSize(t *testing.T) {
	if _, err := NewDispatcher(nil, 12); err == nil {
		t.Error("NewDispatcher(12) succeeded, want error")
	}
}

func TestDispatcher_CoversGridWithPadding(t *testing.T) {
	for _, size := range []int{WorkgroupSize8, WorkgroupSize16} {
		d := newTestDispatcher(t, size)

		const w, h = 37, 19
		hits := make([]int32, w*h)
		d.Dispatch(w, h, func(g *Group) {
			g.Lanes(func(l Lane) {
				if l.X >= w || l.Y >= h {
					return
				}
				hits[l.Y*w+l.X]++
			})
		})
		for i, c := range hits {
			if c != 1 {
				t.Fatalf("size %d: pixel %d visited %d times", size, i, c)
			}
		}
		if got, want := d.WorkgroupCount(w), (w+size-1)/size; got != want {
			t.Errorf("WorkgroupCount(%d) = %d, want %d", w, got, want)
		}
	}
}

func TestGroup_LanesIndexing(t *testing.T) {
	g := &Group{GX: 1, GY: 2, Size: 8}
	n := 0
	g.Lanes(func(l Lane) {
		if l.Index != n {
			t.Fatalf("lane %d has Index %d", n, l.Index)
		}
		if l.X != 8+l.LX || l.Y != 16+l.LY {
			t.Fatalf("lane %d global = (%d,%d)", n, l.X, l.Y)
		}
		n++
	})
	if n != 64 {
		t.Errorf("Lanes ran %d invocations, want 64", n)
	}
}

// =============================================================================
// Generator Tests
// =============================================================================

func TestEscape(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		cap    uint32
		want   uint32
	}{
		{"origin stays bounded", 0, 0, 10, 10},
		{"far corner diverges at once", -2, 2, 10, 0},
		{"real axis point", 1, 0, 10, 2},
		{"zero cap", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.cx, tt.cy, tt.cap); got != tt.want {
				t.Errorf("Escape(%v, %v, %d) = %d, want %d", tt.cx, tt.cy, tt.cap, got, tt.want)
			}
			if got := Escape(float32(tt.cx), float32(tt.cy), tt.cap); got != tt.want {
				t.Errorf("Escape[float32] = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerate_CenterBlackCornerRed(t *testing.T) {
	for _, prec := range []field.Precision{field.Single, field.Double} {
		t.Run(prec.String(), func(t *testing.T) {
			d := newTestDispatcher(t, WorkgroupSize16)
			f := field.New(4, 4)
			p := field.Params{MaxIter: 10, X: field.Range{Lo: -2, Hi: 2}, Y: field.Range{Lo: -2, Hi: 2}}

			Generate(d, f, p, prec)

			cx, cy := MapPixel[float64](p, 2, 2, 4, 4)
			if cx != 0 || cy != 0 {
				t.Fatalf("center maps to (%v, %v), want origin", cx, cy)
			}
			if r, g, b, a := f.RGBA(2, 2); r != 0 || g != 0 || b != 0 || a != 1 {
				t.Errorf("center = %v %v %v %v, want opaque black", r, g, b, a)
			}
			if r, g, b, _ := f.RGBA(0, 0); r != 1 || g != 0 || b != 0 {
				t.Errorf("corner = %v %v %v, want hue 0 (red)", r, g, b)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	p := field.DefaultParams()
	a, b := field.New(61, 47), field.New(61, 47)

	Generate(newTestDispatcher(t, WorkgroupSize16), a, p, field.Single)
	serial, _ := NewDispatcher(nil, WorkgroupSize8)
	Generate(serial, b, p, field.Single)

	for i := range a.Pix {
		if math.Float32bits(a.Pix[i]) != math.Float32bits(b.Pix[i]) {
			t.Fatalf("Pix[%d] differs: %v vs %v", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestShade(t *testing.T) {
	if r, g, b := Shade(10, 10); r != 0 || g != 0 || b != 0 {
		t.Errorf("Shade(cap, cap) = %v %v %v, want black", r, g, b)
	}
	// One third of the ramp is pure green at full value.
	if r, g, b := Shade(1, 3); math.Abs(float64(r)) > 1e-6 || math.Abs(float64(g-1)) > 1e-6 || b != 0 {
		t.Errorf("Shade(1, 3) = %v %v %v, want green", r, g, b)
	}
}

// =============================================================================
// Extrema Tests
// =============================================================================

func TestExtrema_MatchesSequentialScan(t *testing.T) {
	for _, size := range []int{WorkgroupSize8, WorkgroupSize16} {
		d := newTestDispatcher(t, size)
		f := randomField(53, 29, 3, uint64(size))

		s := field.NewStats()
		Extrema(d, f, s)

		lo, hi := bruteExtrema(f)
		if s.Min() != lo || s.Max() != hi {
			t.Errorf("size %d: extrema = (%v, %v), want (%v, %v)", size, s.Min(), s.Max(), lo, hi)
		}
		if s.Min() > s.Max() {
			t.Errorf("size %d: min %v > max %v", size, s.Min(), s.Max())
		}
	}
}

func TestExtrema_SinglePixel(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(1, 1)
	f.SetRGBA(0, 0, 0.5, 0.5, 0.5, 1)

	s := field.NewStats()
	Extrema(d, f, s)
	if s.Min() != s.Max() || math.Abs(float64(s.Min()-0.5)) > 1e-6 {
		t.Errorf("extrema = (%v, %v), want 0.5 both", s.Min(), s.Max())
	}
}

// =============================================================================
// Recalibrate Tests
// =============================================================================

func TestRecalibrate_NormalizesToUnitRange(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(40, 40)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			v := 2 + float32(x+y)/10
			f.SetRGBA(x, y, v, v, v, 0.5)
		}
	}

	s := field.NewStats()
	Extrema(d, f, s)
	Recalibrate(d, f, s)

	again := field.NewStats()
	Extrema(d, f, again)
	if math.Abs(float64(again.Min())) > 1e-5 || math.Abs(float64(again.Max()-1)) > 1e-5 {
		t.Errorf("re-measured extrema = (%v, %v), want (0, 1)", again.Min(), again.Max())
	}
	if _, _, _, a := f.RGBA(13, 7); a != 0.5 {
		t.Errorf("alpha = %v, want 0.5", a)
	}

	// Normalizing an already normalized field changes nothing.
	before := f.Clone()
	Recalibrate(d, f, again)
	for i := range f.Pix {
		if math.Abs(float64(f.Pix[i]-before.Pix[i])) > 1e-5 {
			t.Fatalf("second recalibration moved Pix[%d] from %v to %v", i, before.Pix[i], f.Pix[i])
		}
	}
}

func TestRecalibrate_UniformFieldUnchanged(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(9, 9)
	f.Fill(0.3, 0.3, 0.3, 1)
	want := f.Clone()

	s := field.NewStats()
	Extrema(d, f, s)
	if s.Min() != s.Max() {
		t.Fatalf("uniform field extrema = (%v, %v), want equal", s.Min(), s.Max())
	}
	Recalibrate(d, f, s)

	for i := range f.Pix {
		if f.Pix[i] != want.Pix[i] {
			t.Fatalf("Pix[%d] = %v, want %v", i, f.Pix[i], want.Pix[i])
		}
	}
}

// =============================================================================
// Histogram and CDF Tests
// =============================================================================

func TestHistogram_SumMatchesSampleCount(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize8)
	f := randomField(33, 65, 1, 7)

	s := field.NewStats()
	s.CDFThreshold = 0.25
	Histogram(d, f, s)

	if s.HistogramSum() != uint64(s.HistogramN) {
		t.Errorf("sum(histogram) = %d, histogram_n = %d", s.HistogramSum(), s.HistogramN)
	}
	var want uint32
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if f.Lum(x, y) > 0.25 {
				want++
			}
		}
	}
	if s.HistogramN != want {
		t.Errorf("histogram_n = %d, want %d", s.HistogramN, want)
	}
	for i := 0; i < field.Bin(0.25); i++ {
		if s.Histogram[i] != 0 {
			t.Errorf("bin %d below threshold has %d samples", i, s.Histogram[i])
		}
	}
}

func TestCDF_MonotoneEndsAtOne(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := randomField(70, 50, 1, 3)

	s := field.NewStats()
	Histogram(d, f, s)
	CDF(s)

	for i := 0; i < field.Bins-1; i++ {
		if s.CDF[i] > s.CDF[i+1] {
			t.Fatalf("cdf[%d] = %v > cdf[%d] = %v", i, s.CDF[i], i+1, s.CDF[i+1])
		}
	}
	if !scalar.EqualWithinAbs(float64(s.CDF[field.Bins-1]), 1, 1e-5) {
		t.Errorf("cdf[255] = %v, want 1", s.CDF[field.Bins-1])
	}
	if !s.HasForeground() || s.CDFNonZero <= 0 {
		t.Errorf("cdf_non_zero = %v, want positive", s.CDFNonZero)
	}

	first := -1
	for i, c := range s.CDF {
		if c > 0 {
			first = i
			break
		}
	}
	if s.CDFNonZero != s.CDF[first] {
		t.Errorf("cdf_non_zero = %v, want cdf[%d] = %v", s.CDFNonZero, first, s.CDF[first])
	}
}

func TestCDF_KnownHistogram(t *testing.T) {
	s := field.NewStats()
	s.Histogram[10] = 1
	s.Histogram[20] = 3
	s.HistogramN = 4
	CDF(s)

	got := make([]float64, field.Bins)
	want := make([]float64, field.Bins)
	for i := range got {
		got[i] = float64(s.CDF[i])
		switch {
		case i >= 20:
			want[i] = 1
		case i >= 10:
			want[i] = 0.25
		}
	}
	if !floats.EqualApprox(got, want, 1e-6) {
		t.Errorf("cdf = %v", got[8:22])
	}
	if s.CDFNonZero != 0.25 {
		t.Errorf("cdf_non_zero = %v, want 0.25", s.CDFNonZero)
	}
}

func TestUniformBlack_NoForeground(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(17, 17)
	f.Fill(0, 0, 0, 1)

	s := field.NewStats()
	Extrema(d, f, s)
	if s.Min() != 0 || s.Max() != 0 {
		t.Errorf("extrema = (%v, %v), want (0, 0)", s.Min(), s.Max())
	}
	Recalibrate(d, f, s)
	Histogram(d, f, s)
	CDF(s)

	if s.HistogramN != 0 {
		t.Errorf("histogram_n = %d, want 0", s.HistogramN)
	}
	if s.CDFNonZero != field.NoForeground {
		t.Errorf("cdf_non_zero = %v, want sentinel", s.CDFNonZero)
	}
}

// =============================================================================
// Equalize Tests
// =============================================================================

func TestEqualize_HighThresholdIsDefined(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(8, 8)
	f.Fill(0.5, 0.5, 0.5, 0.75)

	s := field.NewStats()
	s.CDFThreshold = 0.9
	Histogram(d, f, s)
	CDF(s)

	if s.HistogramN != 0 {
		t.Fatalf("histogram_n = %d, want 0", s.HistogramN)
	}
	for i, c := range s.CDF {
		if c != 0 {
			t.Fatalf("cdf[%d] = %v, want 0", i, c)
		}
	}

	Equalize(d, f, s)
	for i, v := range f.Pix {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 || v > 1 {
			t.Fatalf("Pix[%d] = %v, want finite value in [0, 1]", i, v)
		}
	}
	if _, _, _, a := f.RGBA(3, 3); a != 0.75 {
		t.Errorf("alpha = %v, want 0.75", a)
	}
}

func TestEqualize_ThresholdAtOne(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize8)
	f := randomField(10, 10, 1, 11)

	s := field.NewStats()
	s.CDFThreshold = 1
	Histogram(d, f, s)
	CDF(s)
	Equalize(d, f, s)

	for i, v := range f.Pix {
		if math.IsNaN(float64(v)) || v < 0 || v > 1 {
			t.Fatalf("Pix[%d] = %v", i, v)
		}
	}
}

func TestEqualize_PreservesHue(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(2, 1)
	f.SetRGBA(0, 0, 0.2, 0.1, 0.05, 1)
	f.SetRGBA(1, 0, 0.8, 0.4, 0.2, 1)

	s := field.NewStats()
	Histogram(d, f, s)
	CDF(s)
	Equalize(d, f, s)

	r, g, b, _ := f.RGBA(0, 0)
	if g == 0 || math.Abs(float64(r/g-2)) > 1e-4 || math.Abs(float64(g/b-2)) > 1e-4 {
		t.Errorf("darker pixel channel ratios changed: %v %v %v", r, g, b)
	}
}

func TestFullPipeline_Invariants(t *testing.T) {
	d := newTestDispatcher(t, WorkgroupSize16)
	f := field.New(64, 48)
	p := field.DefaultParams()

	s := field.NewStats()
	Generate(d, f, p, field.Single)
	Extrema(d, f, s)
	Recalibrate(d, f, s)
	Histogram(d, f, s)
	CDF(s)
	Equalize(d, f, s)

	if s.Min() > s.Max() {
		t.Errorf("min %v > max %v", s.Min(), s.Max())
	}
	if s.HistogramN > 0 {
		if s.HistogramSum() != uint64(s.HistogramN) {
			t.Errorf("sum(histogram) = %d, histogram_n = %d", s.HistogramSum(), s.HistogramN)
		}
		if !scalar.EqualWithinAbs(float64(s.CDF[255]), 1, 1e-5) {
			t.Errorf("cdf[255] = %v", s.CDF[255])
		}
	}
	for i, v := range f.Pix {
		if math.IsNaN(float64(v)) || v < 0 || v > 1 {
			t.Fatalf("Pix[%d] = %v", i, v)
		}
	}
}
