// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/tonefield/field"
)

// =============================================================================
// Embedded WGSL Shader Sources
// =============================================================================

//go:embed shaders/generate_f32.wgsl
var shaderGenerateF32 string

//go:embed shaders/generate_f64.wgsl
var shaderGenerateF64 string

//go:embed shaders/extrema.wgsl
var shaderExtrema string

//go:embed shaders/recalibrate.wgsl
var shaderRecalibrate string

//go:embed shaders/histogram.wgsl
var shaderHistogram string

//go:embed shaders/cdf.wgsl
var shaderCDF string

//go:embed shaders/equalize.wgsl
var shaderEqualize string

// stageShaderBody returns the embedded WGSL for a stage without the
// workgroup-size prelude.
func stageShaderBody(stage Stage, prec field.Precision) string {
	switch stage {
	case StageGenerate:
		if prec == field.Double {
			return shaderGenerateF64
		}
		return shaderGenerateF32
	case StageExtrema:
		return shaderExtrema
	case StageRecalibrate:
		return shaderRecalibrate
	case StageHistogram:
		return shaderHistogram
	case StageCDF:
		return shaderCDF
	case StageEqualize:
		return shaderEqualize
	default:
		return ""
	}
}

// ShaderSource returns the complete WGSL module for a stage. The shaders
// reference WG_SIZE and WG_INVOCATIONS, which are declared here so one
// source serves both 8×8 and 16×16 workgroups.
func ShaderSource(stage Stage, prec field.Precision, wgSize uint32) string {
	body := stageShaderBody(stage, prec)
	if body == "" {
		return ""
	}
	return fmt.Sprintf("const WG_SIZE: u32 = %du;\nconst WG_INVOCATIONS: u32 = %du;\n\n%s",
		wgSize, wgSize*wgSize, body)
}

// CompileSPIRV compiles a stage's WGSL to SPIR-V with naga. It lets callers
// reject a shader configuration before any device is opened.
func CompileSPIRV(stage Stage, prec field.Precision, wgSize uint32) ([]byte, error) {
	src := ShaderSource(stage, prec, wgSize)
	if src == "" {
		return nil, fmt.Errorf("tonemap compute: no shader for stage %v", stage)
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("tonemap compute: compile %s (%s): %w", stage, prec, err)
	}
	return spirv, nil
}
