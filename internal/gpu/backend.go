// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/tonefield"
	"github.com/gogpu/tonefield/field"
)

// Backend runs the tone-mapping passes as WGSL compute shaders on a
// gogpu/wgpu device. It implements tonefield.Backend and submits whole
// frames as one command buffer through tonefield.FrameRunner.
type Backend struct {
	mu sync.Mutex

	provider gpucontext.DeviceProvider

	dev  *gpuDevice
	disp *Dispatcher
	bufs *FrameBuffers
}

var (
	_ tonefield.Backend             = (*Backend)(nil)
	_ tonefield.FrameRunner         = (*Backend)(nil)
	_ tonefield.AdapterReporter     = (*Backend)(nil)
	_ tonefield.DeviceProviderAware = (*Backend)(nil)
)

// NewBackend returns an uninitialized backend.
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns "wgpu".
func (b *Backend) Name() string { return tonefield.BackendWGPU }

// SetLogger sets the logger for the compute backend.
// Called by tonefield.SetLogger to propagate logging configuration.
func (b *Backend) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// SetDeviceProvider makes Init use the provider's device instead of opening
// one. It must be called before Init.
func (b *Backend) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev != nil {
		return errors.New("tonemap compute: device provider set after Init")
	}
	b.provider = provider
	return nil
}

// Init opens the device, compiles all six pipelines and allocates the frame
// buffers. Double precision without shader-f64 fails here with
// field.ErrPrecisionUnsupported.
func (b *Backend) Init(cfg tonefield.BackendConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev != nil {
		return nil
	}

	var (
		dev *gpuDevice
		err error
	)
	if b.provider != nil {
		dev, err = deviceFromProvider(b.provider, cfg.Precision)
	} else {
		dev, err = openDevice(cfg.Precision)
	}
	if err != nil {
		return err
	}

	disp := NewDispatcher(dev.device, cfg.Precision, uint32(cfg.WorkgroupSize))
	if err := disp.Init(); err != nil {
		dev.release()
		return err
	}
	bufs, err := disp.AllocateBuffers(cfg.Width, cfg.Height)
	if err != nil {
		disp.Close()
		dev.release()
		return err
	}

	b.dev, b.disp, b.bufs = dev, disp, bufs
	return nil
}

// Close releases buffers, pipelines and, unless shared, the device.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return
	}
	if err := b.dev.device.WaitIdle(); err != nil {
		slogger().Warn("tonemap compute: wait idle on close", "err", err)
	}
	b.disp.DestroyBuffers(b.bufs)
	b.disp.Close()
	b.dev.release()
	b.dev, b.disp, b.bufs = nil, nil, nil
}

// Supports reports whether the device can run prec. Single always runs;
// Double needs shader-f64.
func (b *Backend) Supports(prec field.Precision) bool {
	if prec != field.Double {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return false
	}
	return b.dev.device.Features().Contains(gputypes.FeatureShaderFloat64)
}

// AdapterInfo describes the adapter in use. It is zero before Init.
func (b *Backend) AdapterInfo() gpucontext.AdapterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return gpucontext.AdapterInfo{}
	}
	return b.dev.info
}

// RunPass runs one stage as its own submission.
func (b *Backend) RunPass(p tonefield.Pass, job *tonefield.Job) error {
	if p < 0 || p >= tonefield.PassCount {
		return fmt.Errorf("tonemap compute: unknown pass %v", p)
	}
	return b.run([]Stage{Stage(p)}, job)
}

// RunFrame records all six stages into one command buffer.
func (b *Backend) RunFrame(job *tonefield.Job) error {
	return b.run(AllStages(), job)
}

func (b *Backend) run(stages []Stage, job *tonefield.Job) error {
	b.mu.Lock()
	disp, bufs := b.disp, b.bufs
	b.mu.Unlock()

	if disp == nil {
		return ErrNotInitialized
	}
	return disp.Run(context.Background(), bufs, stages, Job{
		Field:  job.Field,
		Stats:  job.Stats,
		Params: job.Params,
	})
}
