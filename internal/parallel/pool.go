package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines for parallel pixel passes.
//
// Each worker owns a queue. Idle workers steal from other queues, which
// balances bands that take longer (for example bands crossing the character
// where most pixels fall into the falloff band and need a square root).
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	mine := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drain(mine)
			return

		case work := <-mine:
			if work != nil {
				work()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(mine)
				return
			case work := <-mine:
				if work != nil {
					work()
				}
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// steal takes one item from another worker's queue, or returns nil.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes work across workers and waits for all of it to
// complete. Items are assigned round-robin. If the pool is closed, this is
// a no-op; if it is closed while submitting, unsubmitted items are skipped.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 || !p.running.Load() {
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(work))

	for i, fn := range work {
		wrapped := func() {
			defer completion.Done()
			fn()
		}

		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			completion.Done()
		}
	}

	completion.Wait()
}

// Close stops accepting work, runs what is already queued and stops all
// workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
