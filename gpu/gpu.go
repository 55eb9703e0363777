//go:build !nogpu

// Package gpu registers the WebGPU compute backend under the name "wgpu".
//
// Import it for side effects to let tonefield run the tone-mapping passes
// on a GPU. With the default "auto" backend the renderer then prefers a
// hardware adapter and falls back to the CPU when only a software adapter
// or none is found.
//
// Usage:
//
//	import _ "github.com/gogpu/tonefield/gpu" // enable GPU compute
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/tonefield"
	"github.com/gogpu/tonefield/field"
	gpuimpl "github.com/gogpu/tonefield/internal/gpu"
)

func init() {
	if err := tonefield.RegisterBackend(tonefield.BackendWGPU, func() tonefield.Backend {
		return gpuimpl.NewBackend()
	}); err != nil {
		tonefield.Logger().Warn("wgpu backend not registered", "err", err)
	}
}

// SetDeviceProvider makes renderers created afterwards run on the
// provider's GPU device (for example a gogpu window) instead of opening
// their own. The device must be a *wgpu.Device.
func SetDeviceProvider(provider gpucontext.DeviceProvider) {
	tonefield.SetDeviceProvider(provider)
}

// CheckShaders compiles every compute stage for prec and the given
// workgroup edge (8 or 16) to SPIR-V without opening a device. It returns
// all compilation failures joined.
func CheckShaders(prec field.Precision, workgroupSize int) error {
	if workgroupSize != 8 && workgroupSize != 16 {
		return fmt.Errorf("gpu: workgroup size %d not supported (want 8 or 16)", workgroupSize)
	}
	var errs []error
	for _, stage := range gpuimpl.AllStages() {
		if _, err := gpuimpl.CompileSPIRV(stage, prec, uint32(workgroupSize)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
