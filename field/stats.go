package field

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
)

// NoForeground is the CDF marker stored in Stats.CDFNonZero when no bin of
// the frame's CDF became positive.
const NoForeground float32 = -1

// StatsWords is the number of 32-bit words in the storage-buffer encoding
// of Stats; StatsSize is the same in bytes.
const (
	StatsWords = 2 + 1 + Bins + 2 + Bins
	StatsSize  = StatsWords * 4
)

// Stats is the global record shared by the post-processing passes.
//
// The extrema are kept as IEEE-754 bit patterns in uint32 so they can be
// merged with integer atomics. Bit order matches float order only for
// non-negative values; luminance in this module is never negative, and
// negative inputs to MergeMin/MergeMax produce undefined extrema.
//
// Histogram and HistogramN are updated with sync/atomic during the
// histogram pass and read plainly once the pass has returned.
type Stats struct {
	minBits uint32
	maxBits uint32

	HistogramN uint32
	Histogram  [Bins]uint32

	CDFThreshold float32
	CDFNonZero   float32
	CDF          [Bins]float32
}

// NewStats returns a reset record with a zero threshold.
func NewStats() *Stats {
	s := &Stats{}
	s.Reset()
	return s
}

// Reset prepares the record for a new frame. Every field returns to its
// initial value except CDFThreshold, which is the one scalar carried across
// frames. value_min starts at the largest finite float32 so that the first
// merged value always wins.
func (s *Stats) Reset() {
	thr := s.CDFThreshold
	*s = Stats{}
	s.minBits = math.Float32bits(math.MaxFloat32)
	s.CDFThreshold = thr
}

// Min returns the merged minimum.
func (s *Stats) Min() float32 { return math.Float32frombits(atomic.LoadUint32(&s.minBits)) }

// Max returns the merged maximum.
func (s *Stats) Max() float32 { return math.Float32frombits(atomic.LoadUint32(&s.maxBits)) }

// SetExtrema stores min and max directly.
func (s *Stats) SetExtrema(lo, hi float32) {
	atomic.StoreUint32(&s.minBits, math.Float32bits(lo))
	atomic.StoreUint32(&s.maxBits, math.Float32bits(hi))
}

// MergeMin atomically lowers the minimum to v if v is smaller.
func (s *Stats) MergeMin(v float32) {
	bits := math.Float32bits(v)
	for {
		cur := atomic.LoadUint32(&s.minBits)
		if bits >= cur || atomic.CompareAndSwapUint32(&s.minBits, cur, bits) {
			return
		}
	}
}

// MergeMax atomically raises the maximum to v if v is larger.
func (s *Stats) MergeMax(v float32) {
	bits := math.Float32bits(v)
	for {
		cur := atomic.LoadUint32(&s.maxBits)
		if bits <= cur || atomic.CompareAndSwapUint32(&s.maxBits, cur, bits) {
			return
		}
	}
}

// CountSample atomically increments a histogram bin and the sample total.
func (s *Stats) CountSample(bin int) {
	atomic.AddUint32(&s.Histogram[bin], 1)
	atomic.AddUint32(&s.HistogramN, 1)
}

// HistogramSum returns the sum of all bins.
func (s *Stats) HistogramSum() uint64 {
	var n uint64
	for _, c := range s.Histogram {
		n += uint64(c)
	}
	return n
}

// HasForeground reports whether the last CDF pass found a positive bin.
func (s *Stats) HasForeground() bool { return s.CDFNonZero >= 0 }

// AppendBinary appends the little-endian storage-buffer encoding:
// value_min, value_max, histogram_n, histogram[256], cdf_threshold,
// cdf_non_zero, cdf[256].
func (s *Stats) AppendBinary(buf []byte) ([]byte, error) {
	le := binary.LittleEndian
	buf = le.AppendUint32(buf, atomic.LoadUint32(&s.minBits))
	buf = le.AppendUint32(buf, atomic.LoadUint32(&s.maxBits))
	buf = le.AppendUint32(buf, s.HistogramN)
	for _, c := range s.Histogram {
		buf = le.AppendUint32(buf, c)
	}
	buf = le.AppendUint32(buf, math.Float32bits(s.CDFThreshold))
	buf = le.AppendUint32(buf, math.Float32bits(s.CDFNonZero))
	for _, c := range s.CDF {
		buf = le.AppendUint32(buf, math.Float32bits(c))
	}
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Stats) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, StatsSize))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Stats) UnmarshalBinary(data []byte) error {
	if len(data) < StatsSize {
		return fmt.Errorf("field: stats buffer is %d bytes, want %d", len(data), StatsSize)
	}
	le := binary.LittleEndian
	word := func(i int) uint32 { return le.Uint32(data[i*4:]) }

	s.minBits = word(0)
	s.maxBits = word(1)
	s.HistogramN = word(2)
	for i := range s.Histogram {
		s.Histogram[i] = word(3 + i)
	}
	base := 3 + Bins
	s.CDFThreshold = math.Float32frombits(word(base))
	s.CDFNonZero = math.Float32frombits(word(base + 1))
	for i := range s.CDF {
		s.CDF[i] = math.Float32frombits(word(base + 2 + i))
	}
	return nil
}
