//go:build !nogpu

package main

import "github.com/gogpu/tonefield/gpu" // registers the wgpu backend

func init() {
	checkShaders = gpu.CheckShaders
}
