package field

// Bins is the number of histogram and CDF bins.
const Bins = 256

// Perceptual weights applied to the RGB channels.
const (
	WeightR = 0.299
	WeightG = 0.587
	WeightB = 0.114
)

// Luminance returns the perceptually weighted brightness of an RGB triple.
// Luminance is never negative for the fields produced by this module; the
// atomic extrema in Stats rely on that.
func Luminance(r, g, b float32) float32 {
	return WeightR*r + WeightG*g + WeightB*b
}

// Bin quantizes a luminance value into [0, Bins-1] using floor(l*255).
// Values outside [0, 1] are clamped to the edge bins.
func Bin(l float32) int {
	v := l * (Bins - 1)
	if !(v > 0) {
		return 0
	}
	if v >= Bins-1 {
		return Bins - 1
	}
	return int(v)
}

// Clamp01 clamps v to [0, 1]. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
