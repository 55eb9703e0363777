package tonefield

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/tonefield/field"
)

var (
	// ErrUnknownBackend is returned when a backend name is not registered.
	ErrUnknownBackend = errors.New("tonefield: unknown backend")

	// ErrClosed is returned by a Renderer after Close.
	ErrClosed = errors.New("tonefield: renderer closed")

	// ErrPrecisionUnsupported is returned when double precision is requested
	// from a backend whose device cannot run it.
	ErrPrecisionUnsupported = field.ErrPrecisionUnsupported
)

// Backend names understood by WithBackend.
const (
	BackendAuto     = "auto"
	BackendSoftware = "software"
	BackendWGPU     = "wgpu"
)

// Pass identifies one stage of a frame. Passes run strictly in
// declaration order and each one sees every write of the one before.
type Pass int

const (
	// PassGenerate writes the escape-time color field.
	PassGenerate Pass = iota
	// PassExtrema reduces luminance to a global min and max.
	PassExtrema
	// PassRecalibrate normalizes the field into [0, 1].
	PassRecalibrate
	// PassHistogram counts pixels brighter than the carried threshold.
	PassHistogram
	// PassCDF scans the histogram into a cumulative distribution.
	PassCDF
	// PassEqualize maps luminance through the distribution.
	PassEqualize

	// PassCount is the number of passes in a frame.
	PassCount
)

// String returns the pass name.
func (p Pass) String() string {
	switch p {
	case PassGenerate:
		return "generate"
	case PassExtrema:
		return "extrema"
	case PassRecalibrate:
		return "recalibrate"
	case PassHistogram:
		return "histogram"
	case PassCDF:
		return "cdf"
	case PassEqualize:
		return "equalize"
	default:
		return fmt.Sprintf("Pass(%d)", int(p))
	}
}

// BackendConfig is handed to Backend.Init. Width and Height are fixed for
// the backend's lifetime.
type BackendConfig struct {
	Width, Height int
	Precision     field.Precision
	WorkgroupSize int

	// Workers bounds CPU parallelism; 0 means GOMAXPROCS.
	Workers int
}

// Job is the frame state a backend reads and writes. The renderer owns it;
// a backend must not keep references past the call.
type Job struct {
	Field  *field.Field
	Stats  *field.Stats
	Params field.Params
}

// Backend executes passes over a Job.
//
// Implementations are provided by the software path in this package and by
// GPU packages opted into with a blank import:
//
//	import _ "github.com/gogpu/tonefield/gpu" // registers "wgpu"
type Backend interface {
	// Name returns the registry name.
	Name() string

	// Init allocates resources for cfg. Requesting a precision the device
	// cannot run fails with ErrPrecisionUnsupported.
	Init(cfg BackendConfig) error

	// Close releases all resources.
	Close()

	// Supports reports whether the initialized backend can run prec.
	Supports(prec field.Precision) bool

	// RunPass runs a single pass to completion.
	RunPass(p Pass, job *Job) error
}

// FrameRunner is implemented by backends that submit a whole frame at once.
// The renderer prefers it over six RunPass calls.
type FrameRunner interface {
	RunFrame(job *Job) error
}

// AdapterReporter is implemented by backends that run on a GPU adapter.
type AdapterReporter interface {
	AdapterInfo() gpucontext.AdapterInfo
}

// DeviceProviderAware is implemented by backends that can run on a device
// owned by a host application instead of opening their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider gpucontext.DeviceProvider) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Backend{
		BackendSoftware: func() Backend { return newSoftwareBackend() },
	}
	provider gpucontext.DeviceProvider
)

// RegisterBackend makes a backend factory available under name. Registering
// a name twice replaces the earlier factory.
//
// Typical usage from a GPU package:
//
//	func init() {
//	    tonefield.RegisterBackend("wgpu", func() tonefield.Backend { return gpuimpl.NewBackend() })
//	}
func RegisterBackend(name string, factory func() Backend) error {
	if name == "" || name == BackendAuto {
		return fmt.Errorf("tonefield: invalid backend name %q", name)
	}
	if factory == nil {
		return errors.New("tonefield: backend factory must not be nil")
	}
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
	return nil
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}

// SetDeviceProvider makes backends created afterwards share the provider's
// GPU device. Pass nil to let backends open their own.
func SetDeviceProvider(p gpucontext.DeviceProvider) {
	registryMu.Lock()
	provider = p
	registryMu.Unlock()
}

// newBackend instantiates a registered backend and hands it the logger and
// the device provider.
func newBackend(name string) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	p := provider
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, name, Backends())
	}

	b := factory()
	propagateLogger(b, Logger())
	if p != nil {
		if dpa, ok := b.(DeviceProviderAware); ok {
			if err := dpa.SetDeviceProvider(p); err != nil {
				return nil, fmt.Errorf("tonefield: %s: device provider: %w", name, err)
			}
		}
	}
	return b, nil
}

// openBackend creates and initializes the named backend. "auto" tries the
// wgpu backend on a hardware adapter and falls back to software otherwise.
func openBackend(name string, cfg BackendConfig) (Backend, error) {
	if name != BackendAuto {
		b, err := newBackend(name)
		if err != nil {
			return nil, err
		}
		if err := b.Init(cfg); err != nil {
			b.Close()
			return nil, fmt.Errorf("tonefield: init %s backend: %w", name, err)
		}
		return b, nil
	}

	if b := tryHardware(cfg); b != nil {
		return b, nil
	}
	return openBackend(BackendSoftware, cfg)
}

// tryHardware returns an initialized wgpu backend, or nil when it is not
// registered, fails to start or only found a software adapter.
func tryHardware(cfg BackendConfig) Backend {
	registryMu.RLock()
	_, ok := registry[BackendWGPU]
	registryMu.RUnlock()
	if !ok {
		return nil
	}

	b, err := newBackend(BackendWGPU)
	if err != nil {
		Logger().Warn("wgpu backend unavailable, using software", "err", err)
		return nil
	}
	if err := b.Init(cfg); err != nil {
		b.Close()
		Logger().Warn("wgpu backend init failed, using software", "err", err)
		return nil
	}
	if ar, ok := b.(AdapterReporter); ok {
		info := ar.AdapterInfo()
		if info.Type == gpucontext.AdapterTypeSoftware {
			Logger().Info("software adapter found, using CPU backend", "adapter", info.Name)
			b.Close()
			return nil
		}
	}
	return b
}
