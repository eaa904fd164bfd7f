// Package workerpool runs independent tasks on a fixed number of goroutines.
package workerpool

import (
	"runtime/debug"
	"sync"

	"github.com/breeze-rmm/swcheck/internal/logging"
)

var log = logging.L("workerpool")

// Task is a unit of work submitted to the pool.
type Task func()

// Pool hands tasks to a fixed set of workers. Submit blocks until a worker
// takes the task, so at most the configured number of tasks run at once.
type Pool struct {
	tasks   chan Task
	workers sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// New starts a pool with the given number of workers (at least one).
func New(workers int) *Pool {
	workers = max(workers, 1)
	p := &Pool{tasks: make(chan Task)}
	p.workers.Add(workers)
	for range workers {
		go p.work()
	}
	log.Debug("worker pool started", "workers", workers)
	return p
}

// Submit blocks until a worker accepts task. It returns false once Wait has
// been called.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// Wait stops accepting tasks and returns when every submitted task has
// finished and the workers have exited. Calling it again is a no-op.
func (p *Pool) Wait() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.workers.Wait()
}

func (p *Pool) work() {
	defer p.workers.Done()
	for task := range p.tasks {
		run(task)
	}
}

// run keeps a panicking task from taking its worker down.
func run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}

// Map calls fn for every item on up to workers goroutines and returns the
// results in item order, whatever order they complete in. With one worker
// (or one item) fn runs on the calling goroutine.
func Map[T, R any](workers int, items []T, fn func(i int, item T) R) []R {
	out := make([]R, len(items))
	workers = min(workers, len(items))
	if workers <= 1 {
		for i, item := range items {
			out[i] = fn(i, item)
		}
		return out
	}

	p := New(workers)
	for i, item := range items {
		p.Submit(func() { out[i] = fn(i, item) })
	}
	p.Wait()
	return out
}
