// Package tonefield renders an escape-time fractal field and tone-maps it
// with adaptive histogram equalization.
//
// # Overview
//
// A frame is six passes over one floating-point RGBA field, each finishing
// before the next starts:
//
//  1. generate: escape-time iteration per pixel, colored by iteration count
//  2. extrema: global luminance min and max
//  3. recalibrate: normalize the field into [0, 1]
//  4. histogram: 256-bin luminance histogram of pixels above the threshold
//  5. cdf: cumulative distribution of the histogram
//  6. equalize: map each pixel's luminance through the distribution
//
// The first nonzero CDF value of a frame becomes the next frame's
// threshold, so pixels near the background stop counting toward the
// histogram once the scene has foreground content.
//
// # Quick Start
//
//	import "github.com/gogpu/tonefield"
//
//	r, err := tonefield.NewRenderer(800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	frame, err := r.Render(field.DefaultParams())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	img := present.ToRGBA(frame.Field, 800, 600)
//
// # Backends
//
// The software backend runs the kernels of internal/kernel on a worker
// pool and is always available. Importing github.com/gogpu/tonefield/gpu
// registers "wgpu", which runs the same passes as WGSL compute shaders.
// WithBackend("auto"), the default, picks wgpu on a hardware adapter.
//
// # Precision
//
// The generator maps pixels and iterates in float32 or float64 (see
// WithPrecision). Requesting float64 from a GPU without shader-f64 support
// fails in NewRenderer with ErrPrecisionUnsupported.
//
// # Logging
//
// tonefield is silent by default. Call SetLogger with a *slog.Logger to see
// backend selection, pipeline setup and per-frame diagnostics.
package tonefield
