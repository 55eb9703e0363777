// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/tonefield/field"
)

// dimsSize is the size of the Dims uniform: width, height and two
// reserved words.
const dimsSize = 16

// FrameBuffers holds every GPU resource sized for one image resolution.
// Buffers are created once and reused by every frame of that size.
type FrameBuffers struct {
	Width, Height uint32

	params       *wgpu.Buffer
	dims         *wgpu.Buffer
	pixels       *wgpu.Buffer
	stats        *wgpu.Buffer
	pixelStaging *wgpu.Buffer
	statsStaging *wgpu.Buffer

	bindGroups [StageCount]*wgpu.BindGroup

	paramsSize uint64
	pixelsSize uint64
}

// bufferSpec describes one buffer of a FrameBuffers set.
type bufferSpec struct {
	label string
	size  uint64
	usage wgpu.BufferUsage
	dst   **wgpu.Buffer
}

// AllocateBuffers creates the buffers and per-stage bind groups for a
// width×height field.
func (d *Dispatcher) AllocateBuffers(width, height int) (*FrameBuffers, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tonemap compute: invalid frame size %dx%d", width, height)
	}

	b := &FrameBuffers{
		Width:      uint32(width),
		Height:     uint32(height),
		paramsSize: uint64(field.UniformSize(d.prec)),
		pixelsSize: uint64(width) * uint64(height) * field.Channels * 4,
	}

	specs := []bufferSpec{
		{"params", b.paramsSize, wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst, &b.params},
		{"dims", dimsSize, wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst, &b.dims},
		{"pixels", b.pixelsSize, wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc, &b.pixels},
		{"stats", field.StatsSize, wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc, &b.stats},
		{"pixels_staging", b.pixelsSize, wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead, &b.pixelStaging},
		{"stats_staging", field.StatsSize, wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead, &b.statsStaging},
	}
	for _, s := range specs {
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "tonemap_" + s.label,
			Size:  s.size,
			Usage: s.usage,
		})
		if err != nil {
			d.DestroyBuffers(b)
			return nil, fmt.Errorf("tonemap compute: create %s buffer: %w", s.label, err)
		}
		*s.dst = buf
	}

	dims := make([]byte, 0, dimsSize)
	dims = binary.LittleEndian.AppendUint32(dims, b.Width)
	dims = binary.LittleEndian.AppendUint32(dims, b.Height)
	dims = append(dims, make([]byte, 8)...)
	if err := d.queue.WriteBuffer(b.dims, 0, dims); err != nil {
		d.DestroyBuffers(b)
		return nil, fmt.Errorf("tonemap compute: write dims: %w", err)
	}

	for i := Stage(0); i < StageCount; i++ {
		bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "tonemap_" + i.String() + "_bg",
			Layout:  d.bgLayouts[i],
			Entries: stageBindGroupEntries(i, b),
		})
		if err != nil {
			d.DestroyBuffers(b)
			return nil, fmt.Errorf("tonemap compute: create bind group for %s: %w", i, err)
		}
		b.bindGroups[i] = bg
	}

	slogger().Debug("tonemap compute: buffers allocated",
		"width", width,
		"height", height,
		"pixel_bytes", b.pixelsSize)
	return b, nil
}

// stageBindGroupEntries binds the frame buffers to the slots declared by
// stageBindGroupLayoutEntries.
func stageBindGroupEntries(stage Stage, b *FrameBuffers) []wgpu.BindGroupEntry {
	layout := stageBindGroupLayoutEntries(stage)
	entries := make([]wgpu.BindGroupEntry, 0, len(layout))
	for _, l := range layout {
		e := wgpu.BindGroupEntry{Binding: l.Binding}
		switch l.Binding {
		case bindingParams:
			e.Buffer, e.Size = b.params, b.paramsSize
		case bindingDims:
			e.Buffer, e.Size = b.dims, dimsSize
		case bindingPixels:
			e.Buffer, e.Size = b.pixels, b.pixelsSize
		case bindingStats:
			e.Buffer, e.Size = b.stats, field.StatsSize
		}
		entries = append(entries, e)
	}
	return entries
}

// DestroyBuffers releases every resource of b. Nil entries are skipped, so
// it is safe on a partially allocated set.
func (d *Dispatcher) DestroyBuffers(b *FrameBuffers) {
	if b == nil {
		return
	}
	for i := range b.bindGroups {
		if b.bindGroups[i] != nil {
			b.bindGroups[i].Release()
			b.bindGroups[i] = nil
		}
	}
	for _, p := range []**wgpu.Buffer{&b.params, &b.dims, &b.pixels, &b.stats, &b.pixelStaging, &b.statsStaging} {
		if *p != nil {
			(*p).Release()
			*p = nil
		}
	}
}

// pixelsToBytes encodes RGBA float32 samples as little-endian bytes.
func pixelsToBytes(pix []float32) []byte {
	buf := make([]byte, len(pix)*4)
	for i, v := range pix {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToPixels decodes little-endian float32 samples into pix.
func bytesToPixels(pix []float32, data []byte) {
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}
