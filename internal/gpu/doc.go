// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu runs the tone-mapping passes as WGSL compute shaders through
// gogpu/wgpu (Vulkan, Metal, DX12, GLES or the software adapter).
//
// # Pipeline
//
// One compute pipeline exists per Stage:
//
//	generate -> extrema -> recalibrate -> histogram -> cdf -> equalize
//
// A frame records every stage as its own compute pass in a single command
// encoder. Pass boundaries order the storage writes, so each stage observes
// the complete result of the previous one. The field and stats buffers are
// then copied to staging buffers and mapped for readback.
//
// # Resources
//
//   - Dispatcher: shader modules, bind group layouts and pipelines. Built
//     once per precision and workgroup size.
//   - FrameBuffers: params and dims uniforms, the field and stats storage
//     buffers and their staging copies. Built once per image size.
//   - Backend: tonefield.Backend on top of both, registered as "wgpu" by
//     github.com/gogpu/tonefield/gpu.
//
// # Bindings
//
// Every shader uses @group(0) with fixed slots: 0 params, 1 dims, 2 pixels,
// 3 stats. A stage declares only the slots it reads or writes.
//
// # Precision
//
// The generator has an f32 and an f64 variant. The f64 variant needs the
// shader-f64 device feature; without it Init fails before any pipeline is
// created.
package gpu
