// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/tonefield"
	"github.com/gogpu/tonefield/field"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageGenerate, "generate"},
		{StageExtrema, "extrema"},
		{StageRecalibrate, "recalibrate"},
		{StageHistogram, "histogram"},
		{StageCDF, "cdf"},
		{StageEqualize, "equalize"},
		{StageCount, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}

// Stages and renderer passes share ordinals so RunPass can convert directly.
func TestStage_MatchesPass(t *testing.T) {
	if int(StageCount) != int(tonefield.PassCount) {
		t.Fatalf("StageCount = %d, PassCount = %d", StageCount, tonefield.PassCount)
	}
	for i, s := range AllStages() {
		if s.String() != tonefield.Pass(i).String() {
			t.Errorf("stage %d = %q, pass = %q", i, s, tonefield.Pass(i))
		}
	}
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		name         string
		stage        Stage
		w, h, wg     uint32
		wantX, wantY uint32
	}{
		{"exact", StageGenerate, 32, 16, 16, 2, 1},
		{"padded", StageExtrema, 33, 17, 16, 3, 2},
		{"small", StageEqualize, 4, 4, 16, 1, 1},
		{"wg8", StageHistogram, 100, 50, 8, 13, 7},
		{"cdf is single", StageCDF, 1920, 1080, 16, 1, 1},
		{"empty", StageRecalibrate, 0, 10, 16, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := WorkgroupCount(tt.stage, tt.w, tt.h, tt.wg)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("WorkgroupCount = (%d, %d), want (%d, %d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestPixelBytes_RoundTrip(t *testing.T) {
	pix := []float32{0, 1, 0.5, -2, float32(math.Inf(1)), math.SmallestNonzeroFloat32, 0.25, 1}
	data := pixelsToBytes(pix)
	if len(data) != len(pix)*4 {
		t.Fatalf("len = %d, want %d", len(data), len(pix)*4)
	}
	got := make([]float32, len(pix))
	bytesToPixels(got, data)
	for i := range pix {
		if math.Float32bits(got[i]) != math.Float32bits(pix[i]) {
			t.Errorf("pix[%d] = %v, want %v", i, got[i], pix[i])
		}
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucontext.AdapterType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{gputypes.DeviceTypeIntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{gputypes.DeviceTypeCPU, gpucontext.AdapterTypeSoftware},
		{gputypes.DeviceTypeVirtualGPU, gpucontext.AdapterTypeUnknown},
		{gputypes.DeviceTypeOther, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		if got := adapterType(tt.in); got != tt.want {
			t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequiredFeatures(t *testing.T) {
	var none, f64 gputypes.Features
	f64.Insert(gputypes.FeatureShaderFloat64)

	got, err := requiredFeatures(field.Single, none, "test")
	if err != nil || got.Contains(gputypes.FeatureShaderFloat64) {
		t.Errorf("single: features = %v, err = %v", got, err)
	}

	got, err = requiredFeatures(field.Double, f64, "test")
	if err != nil || !got.Contains(gputypes.FeatureShaderFloat64) {
		t.Errorf("double with f64: features = %v, err = %v", got, err)
	}

	if _, err = requiredFeatures(field.Double, none, "test"); !errors.Is(err, field.ErrPrecisionUnsupported) {
		t.Errorf("double without f64: err = %v, want ErrPrecisionUnsupported", err)
	}
}
