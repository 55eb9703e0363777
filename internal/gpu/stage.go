// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// Bind group slots shared by every stage. A stage declares only the
// bindings it uses.
const (
	bindingParams = 0
	bindingDims   = 1
	bindingPixels = 2
	bindingStats  = 3
)

// Stage identifies one compute pass of the tone-mapping pipeline.
// Stages run strictly in declaration order.
type Stage int

const (
	// StageGenerate writes the escape-time color field.
	// Bindings: params (uniform), dims (uniform), pixels (read_write).
	StageGenerate Stage = iota

	// StageExtrema reduces luminance to a global min/max.
	// Bindings: dims, pixels (read), stats (read_write, atomic).
	StageExtrema

	// StageRecalibrate normalizes the field with the extrema.
	// Bindings: dims, pixels (read_write), stats (read).
	StageRecalibrate

	// StageHistogram counts luminance above the carried threshold.
	// Bindings: dims, pixels (read), stats (read_write, atomic).
	StageHistogram

	// StageCDF scans the histogram on a single invocation.
	// Bindings: stats (read_write).
	StageCDF

	// StageEqualize maps luminance through the CDF.
	// Bindings: dims, pixels (read_write), stats (read).
	StageEqualize

	// StageCount is the number of stages.
	StageCount
)

// String returns the stage name used in labels and logs.
func (s Stage) String() string {
	switch s {
	case StageGenerate:
		return "generate"
	case StageExtrema:
		return "extrema"
	case StageRecalibrate:
		return "recalibrate"
	case StageHistogram:
		return "histogram"
	case StageCDF:
		return "cdf"
	case StageEqualize:
		return "equalize"
	default:
		return "unknown"
	}
}

// AllStages returns the stages in pipeline order.
func AllStages() []Stage {
	return []Stage{StageGenerate, StageExtrema, StageRecalibrate, StageHistogram, StageCDF, StageEqualize}
}

// stageBindGroupLayoutEntries returns the layout entries for a stage. They
// match the @group(0) @binding(N) declarations of its WGSL module exactly.
func stageBindGroupLayoutEntries(stage Stage) []wgpu.BindGroupLayoutEntry {
	uniform := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
	}
	storageRO := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	switch stage {
	case StageGenerate:
		return []wgpu.BindGroupLayoutEntry{
			uniform(bindingParams), uniform(bindingDims), storageRW(bindingPixels),
		}
	case StageExtrema, StageHistogram:
		return []wgpu.BindGroupLayoutEntry{
			uniform(bindingDims), storageRO(bindingPixels), storageRW(bindingStats),
		}
	case StageRecalibrate, StageEqualize:
		return []wgpu.BindGroupLayoutEntry{
			uniform(bindingDims), storageRW(bindingPixels), storageRO(bindingStats),
		}
	case StageCDF:
		return []wgpu.BindGroupLayoutEntry{
			storageRW(bindingStats),
		}
	default:
		return nil
	}
}

// WorkgroupCount returns the dispatch size of a stage for a width×height
// image: ceiling division on both axes, or a single workgroup for the
// sequential CDF scan.
func WorkgroupCount(stage Stage, width, height, wgSize uint32) (x, y uint32) {
	if stage == StageCDF {
		return 1, 1
	}
	if width == 0 || height == 0 {
		return 0, 0
	}
	return (width + wgSize - 1) / wgSize, (height + wgSize - 1) / wgSize
}
