package tonefield

import (
	"time"

	"github.com/codahale/hdrhistogram"
)

// Recorded latencies are microseconds in [1µs, 1min] with three
// significant figures.
const (
	timingMin     = 1
	timingMax     = int64(time.Minute / time.Microsecond)
	timingSigFigs = 3
)

// frameTiming is the slot that holds whole-frame latencies.
const frameTiming = int(PassCount)

// Timing summarizes the recorded latencies of one pass, or of whole frames
// when Name is "frame".
type Timing struct {
	Name  string
	Count int64
	Mean  time.Duration
	P50   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// timings keeps one latency histogram per pass plus one for whole frames.
// Backends that run a frame as one submission only fill the frame slot.
type timings struct {
	hists [PassCount + 1]*hdrhistogram.Histogram
}

func newTimings() *timings {
	t := &timings{}
	for i := range t.hists {
		t.hists[i] = hdrhistogram.New(timingMin, timingMax, timingSigFigs)
	}
	return t
}

func (t *timings) record(slot int, d time.Duration) {
	us := min(max(d.Microseconds(), timingMin), timingMax)
	// us is clamped to the trackable range, so RecordValue cannot fail.
	_ = t.hists[slot].RecordValue(us)
}

// summary returns the slots that have samples, passes first.
func (t *timings) summary() []Timing {
	out := make([]Timing, 0, len(t.hists))
	for i, h := range t.hists {
		if h.TotalCount() == 0 {
			continue
		}
		name := "frame"
		if i != frameTiming {
			name = Pass(i).String()
		}
		out = append(out, Timing{
			Name:  name,
			Count: h.TotalCount(),
			Mean:  time.Duration(h.Mean()) * time.Microsecond,
			P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
			P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
			Max:   time.Duration(h.Max()) * time.Microsecond,
		})
	}
	return out
}
