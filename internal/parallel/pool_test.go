package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateNonPositiveWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

// =============================================================================
// ExecuteAll Tests
// =============================================================================

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	pool.ExecuteAll(work)

	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
}

func TestWorkerPool_ExecuteAllDisjointWrites(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	out := make([]int, 37)
	bands := SplitRows(len(out), 5)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			for y := b.Y0; y < b.Y1; y++ {
				out[y] = y * 2
			}
		}
	}
	pool.ExecuteAll(work)

	for y, v := range out {
		if v != y*2 {
			t.Fatalf("out[%d] = %d, want %d", y, v, y*2)
		}
	}
}

func TestWorkerPool_ExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	pool.ExecuteAll(nil) // must not block
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var ran atomic.Bool
	pool.ExecuteAll([]func(){func() { ran.Store(true) }})

	if ran.Load() {
		t.Error("work ran on a closed pool")
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
}
