// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/tonefield"
)

var pkgLogger atomic.Pointer[slog.Logger]

func init() {
	pkgLogger.Store(slog.New(slog.DiscardHandler))
}

// slogger returns the logger used by the compute backend. Records carry
// backend=wgpu.
func slogger() *slog.Logger { return pkgLogger.Load() }

// setLogger replaces the package logger; nil silences it.
func setLogger(l *slog.Logger) {
	if l == nil {
		pkgLogger.Store(slog.New(slog.DiscardHandler))
		return
	}
	pkgLogger.Store(l.With("backend", tonefield.BackendWGPU))
}
