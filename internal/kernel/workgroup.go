// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package kernel is the CPU reference for the tone-mapping compute passes.
//
// Every pass is written against the same execution model as its WGSL twin:
// a 2-D grid of square workgroups, each made of Size×Size lanes that share
// scratch memory and synchronize at barriers. A workgroup runs on one
// goroutine; each call to Group.Lanes executes one barrier-delimited phase
// for all lanes before returning, so data written to scratch in one phase is
// visible to every lane in the next. Workgroups run concurrently on a
// parallel.WorkerPool and only meet through atomics in field.Stats.
package kernel

import (
	"fmt"
	"sync"

	"github.com/gogpu/tonefield/internal/parallel"
)

// Supported workgroup edge lengths.
const (
	WorkgroupSize16 = 16
	WorkgroupSize8  = 8
)

// Lane identifies one invocation inside a workgroup.
type Lane struct {
	// Index is the flattened local invocation index (y*Size + x).
	Index int
	// LX, LY are the local invocation coordinates.
	LX, LY int
	// X, Y are the global invocation coordinates (pixel coordinates).
	X, Y int
}

// Group is one workgroup of a dispatch.
type Group struct {
	// GX, GY are the workgroup coordinates in the dispatch grid.
	GX, GY int
	// Size is the workgroup edge length.
	Size int

	shared [2][]float32
}

// Invocations returns the number of lanes in the group.
func (g *Group) Invocations() int { return g.Size * g.Size }

// Lanes runs fn once per lane. Returning from Lanes is a workgroup barrier.
func (g *Group) Lanes(fn func(l Lane)) {
	ox, oy := g.GX*g.Size, g.GY*g.Size
	i := 0
	for ly := 0; ly < g.Size; ly++ {
		for lx := 0; lx < g.Size; lx++ {
			fn(Lane{Index: i, LX: lx, LY: ly, X: ox + lx, Y: oy + ly})
			i++
		}
	}
}

// Shared returns workgroup scratch slot k (0 or 1) holding one float32 per
// lane. Contents are undefined until written, as on the GPU.
func (g *Group) Shared(k int) []float32 {
	n := g.Invocations()
	if cap(g.shared[k]) < n {
		g.shared[k] = make([]float32, n)
	}
	return g.shared[k][:n]
}

// Dispatcher runs kernels over a 2-D grid of workgroups.
type Dispatcher struct {
	pool   *parallel.WorkerPool
	size   int
	groups sync.Pool
}

// NewDispatcher returns a dispatcher with the given workgroup edge length.
// A nil pool runs every workgroup on the calling goroutine.
func NewDispatcher(pool *parallel.WorkerPool, size int) (*Dispatcher, error) {
	if size != WorkgroupSize16 && size != WorkgroupSize8 {
		return nil, fmt.Errorf("kernel: workgroup size %d not supported (want 8 or 16)", size)
	}
	d := &Dispatcher{pool: pool, size: size}
	d.groups.New = func() any { return &Group{Size: size} }
	return d, nil
}

// WorkgroupSize returns the workgroup edge length.
func (d *Dispatcher) WorkgroupSize() int { return d.size }

// WorkgroupCount returns the number of workgroups needed to cover n
// invocations along one axis (ceiling division).
func (d *Dispatcher) WorkgroupCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + d.size - 1) / d.size
}

// Dispatch covers a width×height invocation grid and blocks until every
// workgroup has finished. The grid is rounded up to whole workgroups, so
// kernels must ignore lanes outside the image.
func (d *Dispatcher) Dispatch(width, height int, kernel func(g *Group)) {
	gx, gy := d.WorkgroupCount(width), d.WorkgroupCount(height)
	n := gx * gy
	run := func(i int) {
		g := d.groups.Get().(*Group)
		g.GX, g.GY = i%gx, i/gx
		kernel(g)
		d.groups.Put(g)
	}
	if d.pool == nil {
		for i := 0; i < n; i++ {
			run(i)
		}
		return
	}
	d.pool.Dispatch(n, run)
}
