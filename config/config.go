// Package config loads the tonefield CLI settings from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/gogpu/tonefield"
	"github.com/gogpu/tonefield/field"
)

// Config holds everything a render run needs. Zero-valued YAML keys keep
// the defaults from New.
type Config struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Frames is how many frames are rendered; the CDF threshold settles
	// over successive frames.
	Frames int `yaml:"frames"`

	// Zoom scales the window between frames about (FocusX, FocusY), given
	// relative to the window. 1 keeps the window fixed.
	Zoom   float64 `yaml:"zoom"`
	FocusX float64 `yaml:"focus_x"`
	FocusY float64 `yaml:"focus_y"`

	Backend       string             `yaml:"backend"`
	Precision     field.Precision    `yaml:"precision"`
	WorkgroupSize int                `yaml:"workgroup_size"`
	Workers       int                `yaml:"workers"`
	Feedback      tonefield.Feedback `yaml:"feedback"`
	Threshold     float32            `yaml:"threshold"`

	Params field.Params `yaml:"params"`

	Output  string `yaml:"output"`
	HDR     string `yaml:"hdr"`
	Caption bool   `yaml:"caption"`

	Verbosity int `yaml:"verbosity"`
}

// New returns the default configuration.
func New() Config {
	return Config{
		Width:         800,
		Height:        600,
		Frames:        1,
		Zoom:          1,
		FocusX:        0.5,
		FocusY:        0.5,
		Backend:       tonefield.BackendAuto,
		Precision:     field.Single,
		WorkgroupSize: 16,
		Feedback:      tonefield.FeedbackClamp,
		Params:        field.DefaultParams(),
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (Config, error) {
	c := New()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	return c, c.Validate()
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return New(), fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

// AsYAML returns c encoded as YAML.
func (c Config) AsYAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return string(b), nil
}

// Validate reports the first setting that cannot be rendered.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("config: invalid size %dx%d", c.Width, c.Height)
	case c.Frames < 1:
		return fmt.Errorf("config: frames must be at least 1, got %d", c.Frames)
	case !(c.Zoom > 0):
		return fmt.Errorf("config: zoom must be positive, got %g", c.Zoom)
	case c.WorkgroupSize != 8 && c.WorkgroupSize != 16:
		return fmt.Errorf("config: workgroup_size must be 8 or 16, got %d", c.WorkgroupSize)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RendererOptions translates c into renderer options.
func (c Config) RendererOptions() []tonefield.Option {
	return []tonefield.Option{
		tonefield.WithBackend(c.Backend),
		tonefield.WithPrecision(c.Precision),
		tonefield.WithWorkgroupSize(c.WorkgroupSize),
		tonefield.WithWorkers(c.Workers),
		tonefield.WithFeedback(c.Feedback),
		tonefield.WithThreshold(c.Threshold),
	}
}

// NextParams returns the window for the frame after p.
func (c Config) NextParams(p field.Params) field.Params {
	if c.Zoom == 1 {
		return p
	}
	return p.Zoom(c.Zoom, c.FocusX, c.FocusY)
}
