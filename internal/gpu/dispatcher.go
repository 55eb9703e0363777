// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// dispatcher.go owns the compute pipelines of the six tone-mapping stages:
// shader compilation, bind group layouts and pipeline lifetime.

package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/tonefield/field"
)

// mapTimeout bounds how long a frame waits for its readback.
const mapTimeout = 5 * time.Second

// Dispatcher compiles and holds one compute pipeline per Stage.
//
// Pipelines depend only on precision and workgroup size; frame-sized
// resources live in FrameBuffers.
type Dispatcher struct {
	mu sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
	prec   field.Precision
	wgSize uint32

	shaderModules   [StageCount]*wgpu.ShaderModule
	bgLayouts       [StageCount]*wgpu.BindGroupLayout
	pipelineLayouts [StageCount]*wgpu.PipelineLayout
	pipelines       [StageCount]*wgpu.ComputePipeline

	initialized bool
}

// NewDispatcher creates a dispatcher. Call Init before use.
func NewDispatcher(device *wgpu.Device, prec field.Precision, wgSize uint32) *Dispatcher {
	return &Dispatcher{
		device: device,
		queue:  device.Queue(),
		prec:   prec,
		wgSize: wgSize,
	}
}

// Init compiles every stage. Calling Init on an initialized dispatcher is
// a no-op. On failure all partially created resources are released.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	for i := Stage(0); i < StageCount; i++ {
		src := ShaderSource(i, d.prec, d.wgSize)
		if src == "" {
			return fmt.Errorf("tonemap compute: missing shader source for stage %s", i)
		}
		label := "tonemap_" + i.String()

		module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: label,
			WGSL:  src,
		})
		if err != nil {
			d.destroyPartialInit(i)
			return fmt.Errorf("tonemap compute: create shader module for %s: %w", i, err)
		}
		d.shaderModules[i] = module

		entries := stageBindGroupLayoutEntries(i)
		bgLayout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   label + "_bgl",
			Entries: entries,
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("tonemap compute: create bind group layout for %s: %w", i, err)
		}
		d.bgLayouts[i] = bgLayout

		plLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            label + "_pl",
			BindGroupLayouts: []*wgpu.BindGroupLayout{bgLayout},
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("tonemap compute: create pipeline layout for %s: %w", i, err)
		}
		d.pipelineLayouts[i] = plLayout

		pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:      label,
			Layout:     plLayout,
			Module:     module,
			EntryPoint: "main",
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("tonemap compute: create compute pipeline for %s: %w", i, err)
		}
		d.pipelines[i] = pipeline

		slogger().Debug("tonemap compute: pipeline created",
			"stage", i.String(),
			"bindings", len(entries),
			"shader_bytes", len(src))
	}

	slogger().Info("tonemap compute: all pipelines initialized",
		"stages", int(StageCount),
		"precision", d.prec.String(),
		"workgroup", d.wgSize)

	d.initialized = true
	return nil
}

// destroyPartialInit releases resources of stages [0, upTo).
func (d *Dispatcher) destroyPartialInit(upTo Stage) {
	for j := Stage(0); j < upTo; j++ {
		d.releaseStage(j)
	}
}

func (d *Dispatcher) releaseStage(s Stage) {
	if d.pipelines[s] != nil {
		d.pipelines[s].Release()
		d.pipelines[s] = nil
	}
	if d.pipelineLayouts[s] != nil {
		d.pipelineLayouts[s].Release()
		d.pipelineLayouts[s] = nil
	}
	if d.bgLayouts[s] != nil {
		d.bgLayouts[s].Release()
		d.bgLayouts[s] = nil
	}
	if d.shaderModules[s] != nil {
		d.shaderModules[s].Release()
		d.shaderModules[s] = nil
	}
}

// Close releases all pipelines. The dispatcher may be re-initialized.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := Stage(0); i < StageCount; i++ {
		d.releaseStage(i)
	}
	d.initialized = false
}

// Precision returns the generator precision the pipelines were built for.
func (d *Dispatcher) Precision() field.Precision { return d.prec }

// WorkgroupSize returns the workgroup edge length.
func (d *Dispatcher) WorkgroupSize() uint32 { return d.wgSize }
