package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

// =============================================================================
// Core Scaling Benchmarks
// =============================================================================
//
// Run with: go test -bench=BenchmarkDispatch -benchmem ./internal/parallel/...
//
// =============================================================================

// setMaxProcs sets GOMAXPROCS and returns a cleanup function to restore it.
func setMaxProcs(n int) func() {
	old := runtime.GOMAXPROCS(n)
	return func() {
		runtime.GOMAXPROCS(old)
	}
}

// benchmarkDispatch runs one 1920x1080 grid of 16x16 workgroups per op.
func benchmarkDispatch(b *testing.B, workers int) {
	cleanup := setMaxProcs(workers)
	defer cleanup()

	pool := NewWorkerPool(workers)
	defer pool.Close()

	groups := (1920 / 16) * ((1080 + 15) / 16)
	var sink atomic.Uint64

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		pool.Dispatch(groups, func(g int) {
			var acc uint64
			for l := 0; l < 256; l++ {
				acc += uint64(g*256 + l)
			}
			sink.Add(acc)
		})
	}
}

func BenchmarkDispatch_1Core(b *testing.B)  { benchmarkDispatch(b, 1) }
func BenchmarkDispatch_2Cores(b *testing.B) { benchmarkDispatch(b, 2) }
func BenchmarkDispatch_4Cores(b *testing.B) { benchmarkDispatch(b, 4) }
func BenchmarkDispatch_8Cores(b *testing.B) { benchmarkDispatch(b, 8) }

// BenchmarkRun_SmallTasks measures per-task overhead.
func BenchmarkRun_SmallTasks(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 1024)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		pool.Run(work...)
	}
}
