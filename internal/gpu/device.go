// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/tonefield/field"

	// Register every available HAL backend (Vulkan, Metal, DX12, GLES, software).
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// ErrNoAdapter is returned when no GPU adapter could be obtained.
var ErrNoAdapter = errors.New("tonemap compute: no GPU adapter available")

// gpuDevice is an opened device together with what is needed to release it.
type gpuDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	info     gpucontext.AdapterInfo

	// external devices belong to a DeviceProvider and are not released.
	external bool
}

// openDevice creates an instance, picks a high-performance adapter and
// opens a device with the features the precision needs. Requesting Double
// on an adapter without shader-f64 fails here, before any pipeline exists.
func openDevice(prec field.Precision) (*gpuDevice, error) {
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("tonemap compute: create instance: %w", err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}

	hwInfo := adapter.Info()
	features, err := requiredFeatures(prec, adapter.Features(), hwInfo.Name)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, err
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "tonefield",
		RequiredFeatures: features,
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("tonemap compute: request device: %w", err)
	}

	info := adapterInfo(hwInfo)
	slogger().Info("tonemap compute: adapter selected",
		"name", info.Name,
		"type", info.Type.String(),
		"precision", prec.String())

	return &gpuDevice{instance: instance, adapter: adapter, device: device, info: info}, nil
}

// deviceFromProvider wraps a device owned by a host application.
func deviceFromProvider(provider gpucontext.DeviceProvider, prec field.Precision) (*gpuDevice, error) {
	device, ok := provider.Device().(*wgpu.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("tonemap compute: provider device is %T, want *wgpu.Device", provider.Device())
	}
	info := provider.AdapterInfo()
	if _, err := requiredFeatures(prec, device.Features(), info.Name); err != nil {
		return nil, err
	}
	return &gpuDevice{device: device, info: info, external: true}, nil
}

// requiredFeatures returns the device features needed for prec, or
// field.ErrPrecisionUnsupported when available lacks them.
func requiredFeatures(prec field.Precision, available wgpu.Features, name string) (wgpu.Features, error) {
	var features wgpu.Features
	if prec != field.Double {
		return features, nil
	}
	if !available.Contains(gputypes.FeatureShaderFloat64) {
		return features, fmt.Errorf("%w: adapter %q has no shader-f64 support", field.ErrPrecisionUnsupported, name)
	}
	features.Insert(gputypes.FeatureShaderFloat64)
	return features, nil
}

// adapterInfo converts hardware adapter metadata into the form shared
// with host applications.
func adapterInfo(hw wgpu.AdapterInfo) gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: hw.Name, Type: adapterType(hw.DeviceType)}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

func (g *gpuDevice) release() {
	if g.external {
		g.device = nil
		return
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}
