package tonefield

import (
	"fmt"

	"github.com/gogpu/tonefield/field"
	"github.com/gogpu/tonefield/internal/kernel"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	// CPU rendering with 8×8 workgroups
//	r, err := tonefield.NewRenderer(800, 600,
//	    tonefield.WithBackend(tonefield.BackendSoftware),
//	    tonefield.WithWorkgroupSize(8))
type Option func(*options)

// options holds the Renderer configuration.
type options struct {
	backend       string
	precision     field.Precision
	workgroupSize int
	feedback      Feedback
	workers       int
	threshold     float32
}

func defaultOptions() options {
	return options{
		backend:       BackendAuto,
		precision:     field.Single,
		workgroupSize: kernel.WorkgroupSize16,
		feedback:      FeedbackClamp,
	}
}

// WithBackend selects a backend by registry name. The default, "auto",
// uses wgpu on a hardware adapter when the gpu package is imported and the
// software backend otherwise.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithPrecision selects the coordinate precision of the generator.
// Double fails at NewRenderer on devices without f64 shader support.
func WithPrecision(p field.Precision) Option {
	return func(o *options) {
		o.precision = p
	}
}

// WithWorkgroupSize sets the workgroup edge length (8 or 16).
func WithWorkgroupSize(n int) Option {
	return func(o *options) {
		o.workgroupSize = n
	}
}

// WithFeedback sets how the frame's first nonzero CDF value becomes the
// next frame's threshold.
func WithFeedback(f Feedback) Option {
	return func(o *options) {
		o.feedback = f
	}
}

// WithWorkers bounds the goroutines used by the software backend.
// Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithThreshold sets the threshold used by the first frame.
func WithThreshold(t float32) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// Feedback is the policy applied to a frame's CDF result before it is
// stored as the next threshold.
type Feedback uint8

const (
	// FeedbackClamp stores the "no foreground" sentinel as 0, so an empty
	// frame resets the exclusion threshold.
	FeedbackClamp Feedback = iota

	// FeedbackRaw stores the value unchanged. A negative sentinel makes the
	// next histogram count every pixel.
	FeedbackRaw
)

// String returns "clamp" or "raw".
func (f Feedback) String() string {
	switch f {
	case FeedbackClamp:
		return "clamp"
	case FeedbackRaw:
		return "raw"
	default:
		return fmt.Sprintf("Feedback(%d)", uint8(f))
	}
}

// Next returns the threshold to carry into the next frame.
func (f Feedback) Next(nonZero float32) float32 {
	if f == FeedbackClamp && !(nonZero >= 0) {
		return 0
	}
	return nonZero
}

// ParseFeedback parses "clamp" or "raw". An empty string selects clamp.
func ParseFeedback(s string) (Feedback, error) {
	switch s {
	case "", "clamp":
		return FeedbackClamp, nil
	case "raw":
		return FeedbackRaw, nil
	default:
		return 0, fmt.Errorf("tonefield: unknown feedback policy %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Feedback) UnmarshalText(b []byte) error {
	v, err := ParseFeedback(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Feedback) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
