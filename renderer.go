package tonefield

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/tonefield/field"
	"github.com/gogpu/tonefield/internal/kernel"
)

// live tracks backends owned by open renderers so SetLogger reaches them.
var (
	liveMu sync.Mutex
	live   = map[Backend]struct{}{}
)

// Renderer owns the frame state and drives the six passes through a
// backend. The field and stats are allocated once and reused by every
// frame; the only value carried from one frame to the next is the CDF
// threshold.
//
// Renderer is safe for concurrent use; frames are serialized.
type Renderer struct {
	mu sync.Mutex

	width, height int
	opts          options

	backend Backend
	field   *field.Field
	stats   *field.Stats
	timer   *timings
	frames  uint64
	closed  bool
}

// Frame is the result of one Render call.
//
// Field aliases the renderer's field and is overwritten by the next Render;
// Clone it to keep it. Stats is a copy.
type Frame struct {
	Index uint64
	Field *field.Field
	Stats field.Stats

	// Threshold is the value the histogram pass compared against.
	Threshold float32
	// NextThreshold is what the feedback policy carried forward.
	NextThreshold float32

	Duration time.Duration
}

// NewRenderer creates a renderer for width×height frames. Backend and
// device capabilities are checked here: requesting double precision where
// it cannot run fails with ErrPrecisionUnsupported before any frame.
func NewRenderer(width, height int, opts ...Option) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tonefield: invalid size %dx%d", width, height)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.workgroupSize != kernel.WorkgroupSize16 && o.workgroupSize != kernel.WorkgroupSize8 {
		return nil, fmt.Errorf("tonefield: workgroup size %d not supported (want 8 or 16)", o.workgroupSize)
	}

	b, err := openBackend(o.backend, BackendConfig{
		Width:         width,
		Height:        height,
		Precision:     o.precision,
		WorkgroupSize: o.workgroupSize,
		Workers:       o.workers,
	})
	if err != nil {
		return nil, err
	}
	if !b.Supports(o.precision) {
		b.Close()
		return nil, fmt.Errorf("%w: %s backend, %s precision", ErrPrecisionUnsupported, b.Name(), o.precision)
	}

	r := &Renderer{
		width:   width,
		height:  height,
		opts:    o,
		backend: b,
		field:   field.New(width, height),
		stats:   field.NewStats(),
		timer:   newTimings(),
	}
	r.stats.CDFThreshold = o.threshold

	liveMu.Lock()
	live[b] = struct{}{}
	liveMu.Unlock()

	Logger().Info("renderer ready",
		"backend", b.Name(),
		"width", width,
		"height", height,
		"precision", o.precision.String(),
		"workgroup", o.workgroupSize,
		"feedback", o.feedback.String())
	return r, nil
}

// Render runs one frame: generate, extrema, recalibrate, histogram, CDF and
// equalize, each to completion before the next. A failing pass aborts the
// frame and leaves the carried threshold unchanged.
func (r *Renderer) Render(p field.Params) (*Frame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	r.stats.Reset()
	threshold := r.stats.CDFThreshold
	job := &Job{Field: r.field, Stats: r.stats, Params: p}

	start := time.Now()
	if err := r.run(job); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	r.timer.record(frameTiming, elapsed)

	next := r.opts.feedback.Next(r.stats.CDFNonZero)
	frame := &Frame{
		Index:         r.frames,
		Field:         r.field,
		Stats:         *r.stats,
		Threshold:     threshold,
		NextThreshold: next,
		Duration:      elapsed,
	}
	r.stats.CDFThreshold = next
	r.frames++

	Logger().Debug("frame rendered",
		"frame", frame.Index,
		"samples", r.stats.HistogramN,
		"threshold", threshold,
		"next_threshold", next,
		"elapsed", elapsed)
	return frame, nil
}

func (r *Renderer) run(job *Job) error {
	if fr, ok := r.backend.(FrameRunner); ok {
		if err := fr.RunFrame(job); err != nil {
			return fmt.Errorf("tonefield: %s frame: %w", r.backend.Name(), err)
		}
		return nil
	}
	for p := Pass(0); p < PassCount; p++ {
		start := time.Now()
		if err := r.backend.RunPass(p, job); err != nil {
			return fmt.Errorf("tonefield: %s pass: %w", p, err)
		}
		r.timer.record(int(p), time.Since(start))
	}
	return nil
}

// SetThreshold overrides the threshold the next frame starts with.
func (r *Renderer) SetThreshold(t float32) {
	r.mu.Lock()
	r.stats.CDFThreshold = t
	r.mu.Unlock()
}

// Threshold returns the threshold the next frame will use.
func (r *Renderer) Threshold() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.CDFThreshold
}

// Timings returns latency summaries for every pass with samples, followed
// by whole frames.
func (r *Renderer) Timings() []Timing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer.summary()
}

// Backend returns the name of the backend in use.
func (r *Renderer) Backend() string { return r.backend.Name() }

// Size returns the frame dimensions.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// Precision returns the generator precision.
func (r *Renderer) Precision() field.Precision { return r.opts.precision }

// Close releases the backend. Calling Close twice is a no-op.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	liveMu.Lock()
	delete(live, r.backend)
	liveMu.Unlock()

	r.backend.Close()
}
