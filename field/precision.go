package field

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPrecisionUnsupported is returned at renderer creation when the backend
// or device cannot evaluate the generator at the requested precision.
var ErrPrecisionUnsupported = errors.New("field: precision not supported by device")

// Precision selects the arithmetic used for coordinate mapping and the
// escape-time iteration. Color channels are always float32.
type Precision uint8

const (
	// Single evaluates the generator in float32.
	Single Precision = iota
	// Double evaluates the generator in float64. GPU backends require the
	// shader-f64 device feature.
	Double
)

// String returns "single" or "double".
func (p Precision) String() string {
	switch p {
	case Single:
		return "single"
	case Double:
		return "double"
	default:
		return fmt.Sprintf("Precision(%d)", uint8(p))
	}
}

// ParsePrecision parses "single"/"f32" or "double"/"f64".
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single", "f32", "float32":
		return Single, nil
	case "double", "f64", "float64":
		return Double, nil
	}
	return Single, fmt.Errorf("field: unknown precision %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Precision) UnmarshalText(b []byte) error {
	v, err := ParsePrecision(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Precision) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
