package application

import (
	"sync"
)

const (
	defaultControlQueue = 16
	defaultVideoQueue   = 4
	defaultAudioQueue   = 256
)

// worker is a sequential task queue backed by one goroutine.
type worker struct {
	name  string
	tasks chan func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func newWorker(name string, queueSize int) *worker {
	if queueSize <= 0 {
		queueSize = 1
	}
	w := &worker{
		name:  name,
		tasks: make(chan func(), queueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *worker) loop() {
	defer w.wg.Done()
	for fn := range w.tasks {
		fn()
	}
}

// TrySubmit queues fn without blocking. It returns false when the queue is
// full or the worker is closed.
func (w *worker) TrySubmit(fn func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.tasks <- fn:
		return true
	default:
		return false
	}
}

// Submit queues fn, waiting for room. It returns false when the worker is closed.
func (w *worker) Submit(fn func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	w.tasks <- fn
	return true
}

// Do runs fn on the worker and waits for it. Must not be called from the
// worker itself.
func (w *worker) Do(fn func()) bool {
	done := make(chan struct{})
	if !w.Submit(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

// Flush waits until every task queued before the call has run.
func (w *worker) Flush() {
	w.Do(func() {})
}

// Close stops accepting tasks, runs what is queued and waits for the goroutine.
func (w *worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.wg.Wait()
		return
	}
	w.closed = true
	close(w.tasks)
	w.mu.Unlock()
	w.wg.Wait()
}
