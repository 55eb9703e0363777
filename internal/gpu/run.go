// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/tonefield/field"
)

// ErrNotInitialized is returned when Run is called before Init.
var ErrNotInitialized = errors.New("tonemap compute: dispatcher not initialized")

// Job is the data one submission reads and writes.
type Job struct {
	Field  *field.Field
	Stats  *field.Stats
	Params field.Params
}

// Run uploads the job, records the given stages into one command buffer
// and reads the field and stats back into the job.
//
// Each stage is its own compute pass, so every dispatch observes all
// writes of the previous one. The field is uploaded only when the first
// stage consumes it; the generator overwrites it otherwise.
func (d *Dispatcher) Run(ctx context.Context, b *FrameBuffers, stages []Stage, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return ErrNotInitialized
	}
	if len(stages) == 0 {
		return nil
	}
	if job.Field.Width != int(b.Width) || job.Field.Height != int(b.Height) {
		return fmt.Errorf("tonemap compute: %w: field %dx%d, buffers %dx%d",
			field.ErrSizeMismatch, job.Field.Width, job.Field.Height, b.Width, b.Height)
	}

	if err := d.upload(b, stages[0], job); err != nil {
		return err
	}

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "tonemap_frame"})
	if err != nil {
		return fmt.Errorf("tonemap compute: create command encoder: %w", err)
	}
	if err := d.encodeStages(encoder, b, stages); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	encoder.CopyBufferToBuffer(b.pixels, 0, b.pixelStaging, 0, b.pixelsSize)
	encoder.CopyBufferToBuffer(b.stats, 0, b.statsStaging, 0, field.StatsSize)

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("tonemap compute: finish encoder: %w", err)
	}
	defer cmd.Release()

	if _, err := d.queue.Submit(cmd); err != nil {
		return fmt.Errorf("tonemap compute: submit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mapTimeout)
	defer cancel()

	if err := readBack(ctx, b.pixelStaging, b.pixelsSize, func(data []byte) error {
		bytesToPixels(job.Field.Pix, data)
		return nil
	}); err != nil {
		return fmt.Errorf("tonemap compute: read pixels: %w", err)
	}
	if err := readBack(ctx, b.statsStaging, field.StatsSize, job.Stats.UnmarshalBinary); err != nil {
		return fmt.Errorf("tonemap compute: read stats: %w", err)
	}
	return nil
}

func (d *Dispatcher) upload(b *FrameBuffers, first Stage, job Job) error {
	params := job.Params.AppendUniform(make([]byte, 0, b.paramsSize), d.prec)
	if err := d.queue.WriteBuffer(b.params, 0, params); err != nil {
		return fmt.Errorf("tonemap compute: write params: %w", err)
	}

	stats, err := job.Stats.MarshalBinary()
	if err != nil {
		return fmt.Errorf("tonemap compute: encode stats: %w", err)
	}
	if err := d.queue.WriteBuffer(b.stats, 0, stats); err != nil {
		return fmt.Errorf("tonemap compute: write stats: %w", err)
	}

	if first != StageGenerate {
		if err := d.queue.WriteBuffer(b.pixels, 0, pixelsToBytes(job.Field.Pix)); err != nil {
			return fmt.Errorf("tonemap compute: write pixels: %w", err)
		}
	}
	return nil
}

// encodeStages records one compute pass per stage.
func (d *Dispatcher) encodeStages(encoder *wgpu.CommandEncoder, b *FrameBuffers, stages []Stage) error {
	for _, s := range stages {
		if s < 0 || s >= StageCount {
			return fmt.Errorf("tonemap compute: invalid stage %d", int(s))
		}
		x, y := WorkgroupCount(s, b.Width, b.Height, d.wgSize)

		pass, err := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "tonemap_" + s.String()})
		if err != nil {
			return fmt.Errorf("tonemap compute: begin %s pass: %w", s, err)
		}
		pass.SetPipeline(d.pipelines[s])
		pass.SetBindGroup(0, b.bindGroups[s], nil)
		pass.Dispatch(x, y, 1)
		if err := pass.End(); err != nil {
			return fmt.Errorf("tonemap compute: end %s pass: %w", s, err)
		}

		slogger().Debug("tonemap compute: stage encoded",
			"stage", s.String(),
			"workgroups_x", x,
			"workgroups_y", y)
	}
	return nil
}

// readBack maps a staging buffer, hands its bytes to consume and unmaps it.
func readBack(ctx context.Context, buf *wgpu.Buffer, size uint64, consume func([]byte) error) error {
	if err := buf.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("map: %w", err)
	}
	rng, err := buf.MappedRange(0, size)
	if err != nil {
		_ = buf.Unmap()
		return fmt.Errorf("mapped range: %w", err)
	}
	consumeErr := consume(rng.Bytes())
	if err := buf.Unmap(); err != nil {
		return fmt.Errorf("unmap: %w", err)
	}
	return consumeErr
}
