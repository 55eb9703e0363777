package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/tonefield"
	"github.com/gogpu/tonefield/field"
)

func TestNew_Valid(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Errorf("New().Validate() = %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) = %v", err)
	}
	if c != New() {
		t.Errorf("Parse(nil) = %+v, want defaults", c)
	}
}

func TestParse_Overrides(t *testing.T) {
	src := `
width: 320
height: 200
frames: 5
backend: software
precision: double
workgroup_size: 8
feedback: raw
threshold: 0.25
params:
  max_iter: 500
  x: {lo: -0.75, hi: -0.7}
  y: {lo: 0.1, hi: 0.15}
`
	c, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse = %v", err)
	}
	if c.Width != 320 || c.Height != 200 || c.Frames != 5 {
		t.Errorf("size/frames = %dx%d/%d", c.Width, c.Height, c.Frames)
	}
	if c.Backend != tonefield.BackendSoftware {
		t.Errorf("Backend = %q", c.Backend)
	}
	if c.Precision != field.Double {
		t.Errorf("Precision = %v, want double", c.Precision)
	}
	if c.Feedback != tonefield.FeedbackRaw {
		t.Errorf("Feedback = %v, want raw", c.Feedback)
	}
	if c.Threshold != 0.25 {
		t.Errorf("Threshold = %v, want 0.25", c.Threshold)
	}
	if c.Params.MaxIter != 500 || c.Params.X != (field.Range{Lo: -0.75, Hi: -0.7}) {
		t.Errorf("Params = %+v", c.Params)
	}
	// Keys not present keep their defaults.
	if c.Params.Step != field.DefaultStep || c.Zoom != 1 {
		t.Errorf("Step = %v, Zoom = %v; want defaults", c.Params.Step, c.Zoom)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"size", "width: 0"},
		{"frames", "frames: 0"},
		{"zoom", "zoom: -1"},
		{"workgroup", "workgroup_size: 32"},
		{"precision", "precision: quad"},
		{"feedback", "feedback: maybe"},
		{"syntax", "width: [1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.src)); err == nil {
				t.Errorf("Parse(%q) = nil error", tt.src)
			}
		})
	}
}

func TestParse_DegenerateRange(t *testing.T) {
	_, err := Parse([]byte("params:\n  x: {lo: 1, hi: 1}\n"))
	if !errors.Is(err, field.ErrDegenerateRange) {
		t.Errorf("Parse = %v, want ErrDegenerateRange", err)
	}
}

func TestAsYAML_RoundTrip(t *testing.T) {
	c := New()
	c.Precision = field.Double
	c.Feedback = tonefield.FeedbackRaw
	s, err := c.AsYAML()
	if err != nil {
		t.Fatalf("AsYAML = %v", err)
	}
	if !strings.Contains(s, "precision: double") || !strings.Contains(s, "feedback: raw") {
		t.Errorf("AsYAML missing text-encoded enums:\n%s", s)
	}
	back, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(AsYAML) = %v", err)
	}
	if back != c {
		t.Errorf("round trip = %+v, want %+v", back, c)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tonefield.yaml")
	if err := os.WriteFile(path, []byte("frames: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if c.Frames != 3 {
		t.Errorf("Frames = %d, want 3", c.Frames)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) = nil error")
	}
}

func TestNextParams(t *testing.T) {
	c := New()
	p := field.DefaultParams()
	if c.NextParams(p) != p {
		t.Error("zoom 1 changed the window")
	}
	c.Zoom = 0.5
	next := c.NextParams(p)
	if got, want := next.X.Width(), p.X.Width()*0.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("x width = %v, want %v", got, want)
	}
}

func TestRendererOptions(t *testing.T) {
	c := New()
	c.Backend = tonefield.BackendSoftware
	r, err := tonefield.NewRenderer(8, 8, c.RendererOptions()...)
	if err != nil {
		t.Fatalf("NewRenderer = %v", err)
	}
	defer r.Close()
	if r.Backend() != tonefield.BackendSoftware {
		t.Errorf("Backend() = %q", r.Backend())
	}
}
