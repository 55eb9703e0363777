// Package parallel runs the workgroups of a CPU compute dispatch across a
// fixed set of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// chunksPerWorker sets how finely a dispatch is cut. Escape-time workgroups
// vary widely in cost, so every worker gets several chunks to trade.
const chunksPerWorker = 8

// span is one worker's share of a dispatch. Chunks are claimed from the
// front through an atomic cursor, by the owner first and then by any
// worker that ran out of its own.
type span struct {
	next atomic.Int64
	end  int64
	_    [48]byte // one span per cache line
}

// grid is a single Dispatch call in flight.
type grid struct {
	fn    func(i int)
	chunk int64
	spans []span
	wg    sync.WaitGroup
}

func newGrid(n, workers int, fn func(i int)) *grid {
	g := &grid{
		fn:    fn,
		chunk: int64(max(1, n/(workers*chunksPerWorker))),
		spans: make([]span, workers),
	}
	for w := range g.spans {
		g.spans[w].next.Store(int64(w * n / workers))
		g.spans[w].end = int64((w + 1) * n / workers)
	}
	return g
}

// claim takes the next chunk of s, reporting false once s is exhausted.
func (g *grid) claim(s *span) (lo, hi int64, ok bool) {
	lo = s.next.Add(g.chunk) - g.chunk
	if lo >= s.end {
		return 0, 0, false
	}
	return lo, min(lo+g.chunk, s.end), true
}

// run drains the worker's own span, then steals from the others in ring
// order.
func (g *grid) run(self int) {
	defer g.wg.Done()
	n := len(g.spans)
	for k := range n {
		s := &g.spans[(self+k)%n]
		for {
			lo, hi, ok := g.claim(s)
			if !ok {
				break
			}
			for i := lo; i < hi; i++ {
				g.fn(int(i))
			}
		}
	}
}

// WorkerPool executes dispatches over a fixed set of goroutines.
//
// Every worker joins every dispatch. It starts on its own contiguous span of
// indices and steals chunks of other spans when done, so a few slow
// workgroups do not leave the remaining cores idle.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	inbox   []chan *grid

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &WorkerPool{
		workers: workers,
		inbox:   make([]chan *grid, workers),
	}
	p.wg.Add(workers)
	for id := range workers {
		p.inbox[id] = make(chan *grid, 1)
		go p.worker(id)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for g := range p.inbox[id] {
		g.run(id)
	}
}

// Dispatch calls fn(i) for every i in [0, n) exactly once and returns when
// all calls have finished. A closed pool runs fn on the calling goroutine.
func (p *WorkerPool) Dispatch(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		for i := range n {
			fn(i)
		}
		return
	}
	g := newGrid(n, p.workers, fn)
	g.wg.Add(p.workers)
	for _, in := range p.inbox {
		in <- g
	}
	p.mu.RUnlock()

	g.wg.Wait()
}

// Run executes every task and waits for all of them.
func (p *WorkerPool) Run(tasks ...func()) {
	p.Dispatch(len(tasks), func(i int) { tasks[i]() })
}

// Close waits for in-flight dispatches and stops the workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, in := range p.inbox {
		close(in)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether dispatches are spread over the workers.
func (p *WorkerPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}
