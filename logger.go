package tonefield

import (
	"log/slog"
	"sync/atomic"
)

var (
	silent    = slog.New(slog.DiscardHandler)
	loggerPtr atomic.Pointer[slog.Logger]
)

func init() {
	loggerPtr.Store(silent)
}

// SetLogger configures the logger for tonefield and its backends.
// By default nothing is logged. Pass nil to silence logging again.
//
// Log levels:
//   - [slog.LevelDebug]: per-pass dispatch details, buffer sizes
//   - [slog.LevelInfo]: lifecycle (adapter selected, pipelines ready)
//   - [slog.LevelWarn]: fallbacks (wgpu unavailable, software adapter)
//
// Example:
//
//	tonefield.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	loggerPtr.Store(l)

	// Backends of open renderers were handed the previous logger at creation.
	liveMu.Lock()
	backends := make([]Backend, 0, len(live))
	for b := range live {
		backends = append(backends, b)
	}
	liveMu.Unlock()
	for _, b := range backends {
		propagateLogger(b, l)
	}
}

// Logger returns the current logger. Sub-packages (gpu/, cmd/) use it to
// share the configuration without an import cycle.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to b when b accepts a logger. Called when a
// backend is created and on every SetLogger.
func propagateLogger(b Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
