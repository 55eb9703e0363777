// Command tonefield renders an escape-time field with adaptive histogram
// equalization and writes the result as PNG and, optionally, Radiance HDR.
//
// Several frames can be rendered in a row so the carried CDF threshold
// settles; with -zoom the window shrinks between frames.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/tonefield"
	"github.com/gogpu/tonefield/config"
	"github.com/gogpu/tonefield/field"
	"github.com/gogpu/tonefield/present"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		width      = flag.Int("width", 800, "image width")
		height     = flag.Int("height", 600, "image height")
		frames     = flag.Int("frames", 1, "frames to render")
		zoom       = flag.Float64("zoom", 1, "window scale applied between frames")
		threshold  = flag.Float64("threshold", 0, "CDF threshold of the first frame")
		backend    = flag.String("backend", tonefield.BackendAuto, "backend: auto, software or wgpu")
		workgroup  = flag.Int("workgroup", 16, "workgroup edge length: 8 or 16")
		workers    = flag.Int("workers", 0, "CPU workers for the software backend (0 = all cores)")
		output     = flag.String("out", "", "PNG output file (default ./tonefield_<millis>.png)")
		hdrOut     = flag.String("hdr", "", "Radiance HDR output file")
		caption    = flag.Bool("caption", false, "draw a caption with the window and threshold")
		verbose    = flag.Bool("v", false, "log debug output to stderr")
		check      = flag.Bool("check-shaders", false, "compile the GPU shaders for the configured precision and exit")

		precision field.Precision
		feedback  tonefield.Feedback
		xr, yr    rangeFlag
		iter      = iterFlag{n: field.DefaultMaxIter}
	)
	flag.TextVar(&precision, "precision", field.Single, "coordinate precision: single or double")
	flag.TextVar(&feedback, "feedback", tonefield.FeedbackClamp, "threshold feedback: clamp or raw")
	flag.Var(&iter, "iter", "iteration cap (0..4294967295)")
	flag.Var(&xr, "x", "x window as lo,hi")
	flag.Var(&yr, "y", "y window as lo,hi")
	flag.Parse()

	cfg := config.New()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "iter":
			cfg.Params.MaxIter = iter.n
		case "frames":
			cfg.Frames = *frames
		case "zoom":
			cfg.Zoom = *zoom
		case "threshold":
			cfg.Threshold = float32(*threshold)
		case "backend":
			cfg.Backend = *backend
		case "workgroup":
			cfg.WorkgroupSize = *workgroup
		case "workers":
			cfg.Workers = *workers
		case "out":
			cfg.Output = *output
		case "hdr":
			cfg.HDR = *hdrOut
		case "caption":
			cfg.Caption = *caption
		case "v":
			if *verbose {
				cfg.Verbosity = 1
			}
		case "precision":
			cfg.Precision = precision
		case "feedback":
			cfg.Feedback = feedback
		case "x":
			cfg.Params.X = xr.r
		case "y":
			cfg.Params.Y = yr.r
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Verbosity > 0 {
		tonefield.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if *check {
		if checkShaders == nil {
			log.Fatal("Built without GPU support (nogpu)")
		}
		if err := checkShaders(cfg.Precision, cfg.WorkgroupSize); err != nil {
			log.Fatalf("Shader check failed: %v", err)
		}
		log.Printf("Shaders compile for %s precision, %dx%d workgroups\n", cfg.Precision, cfg.WorkgroupSize, cfg.WorkgroupSize)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
}

// checkShaders is set when the binary is built with GPU support.
var checkShaders func(prec field.Precision, workgroupSize int) error

func run(cfg config.Config) error {
	r, err := tonefield.NewRenderer(cfg.Width, cfg.Height, cfg.RendererOptions()...)
	if err != nil {
		return err
	}
	defer r.Close()

	p := message.NewPrinter(language.English)
	p.Printf("backend %s, %dx%d, %s precision\n", r.Backend(), cfg.Width, cfg.Height, r.Precision())

	params := cfg.Params
	var frame *tonefield.Frame
	for i := 0; i < cfg.Frames; i++ {
		if i > 0 {
			params = cfg.NextParams(params)
		}
		if frame, err = r.Render(params); err != nil {
			return err
		}
		s := &frame.Stats
		p.Printf("frame %d: threshold %.4f -> %.4f, samples %d, extrema [%.4f, %.4f], %v\n",
			frame.Index, frame.Threshold, frame.NextThreshold, s.HistogramN, s.Min(), s.Max(), frame.Duration)
	}

	mean, std := luminanceStats(frame.Field)
	p.Printf("luminance mean %.4f, stddev %.4f over %d pixels\n", mean, std, frame.Field.Len())
	for _, t := range r.Timings() {
		p.Printf("%-12s n=%d p50=%v p99=%v max=%v\n", t.Name, t.Count, t.P50, t.P99, t.Max)
	}

	img := present.ToRGBA(frame.Field, cfg.Width, cfg.Height)
	if cfg.Caption {
		present.Caption(img, fmt.Sprintf("x [%g, %g]  y [%g, %g]  iter %d  thr %.3f",
			params.X.Lo, params.X.Hi, params.Y.Lo, params.Y.Hi, params.MaxIter, frame.Threshold))
	}

	out := cfg.Output
	if out == "" {
		out = present.SavePath("tonefield", "png")
	}
	if err := present.SavePNG(out, img); err != nil {
		return err
	}
	log.Printf("Saved %s (%dx%d)\n", out, cfg.Width, cfg.Height)

	if cfg.HDR != "" {
		if err := present.SaveHDR(cfg.HDR, frame.Field); err != nil {
			return err
		}
		log.Printf("Saved %s\n", cfg.HDR)
	}
	return nil
}

// luminanceStats returns the mean and standard deviation of the field's
// luminance.
func luminanceStats(f *field.Field) (mean, std float64) {
	lum := make([]float64, 0, f.Len())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			lum = append(lum, float64(f.Lum(x, y)))
		}
	}
	return stat.MeanStdDev(lum, nil)
}
