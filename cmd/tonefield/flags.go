package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/tonefield/field"
)

// rangeFlag parses "lo,hi" into a field.Range.
type rangeFlag struct {
	r   field.Range
	set bool
}

func (f *rangeFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return fmt.Sprintf("%g,%g", f.r.Lo, f.r.Hi)
}

func (f *rangeFlag) Set(s string) error {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return fmt.Errorf("want lo,hi, got %q", s)
	}
	l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return err
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return err
	}
	r := field.Range{Lo: l, Hi: h}
	if !r.Valid() {
		return fmt.Errorf("%w: [%g, %g]", field.ErrDegenerateRange, l, h)
	}
	f.r, f.set = r, true
	return nil
}

// iterFlag parses an iteration cap that must fit in 32 bits.
type iterFlag struct {
	n   uint32
	set bool
}

func (f *iterFlag) String() string {
	if f == nil {
		return ""
	}
	return strconv.FormatUint(uint64(f.n), 10)
}

func (f *iterFlag) Set(s string) error {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return fmt.Errorf("iteration cap %q: want 0..%d", s, uint32(math.MaxUint32))
	}
	f.n, f.set = uint32(n), true
	return nil
}
