package spanz

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	ErrWorkerPoolEnabled = errors.New("worker pool already enabled")
	ErrInvalidWorkers    = errors.New("workers must be > 0")
	ErrInvalidQueueSize  = errors.New("queueSize must be > 0")
)

// SpanHandler is called with the snapshot of every span that ends.
type SpanHandler func(span FinishedSpan)

type handlerEntry struct {
	handler SpanHandler
	id      uint64
	async   bool
}

// handlerRegistry runs completion handlers outside every tracer lock.
//
//nolint:govet // Field order optimized for functionality over memory
type handlerRegistry struct {
	handlers []handlerEntry
	workers  *workerPool
	logger   *zap.Logger
	mu       sync.RWMutex
	nextID   atomic.Uint64
	dropped  atomic.Uint64
	inflight sync.WaitGroup
}

func newHandlerRegistry(logger *zap.Logger) *handlerRegistry {
	return &handlerRegistry{
		handlers: make([]handlerEntry, 0),
		logger:   logger,
	}
}

func (r *handlerRegistry) register(handler SpanHandler, async bool) uint64 {
	if handler == nil {
		return 0
	}

	id := r.nextID.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, handlerEntry{
		id:      id,
		handler: handler,
		async:   async,
	})

	return id
}

func (r *handlerRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Preserve order
	for i, h := range r.handlers {
		if h.id == id {
			copy(r.handlers[i:], r.handlers[i+1:])
			r.handlers = r.handlers[:len(r.handlers)-1]
			return
		}
	}
}

func (r *handlerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// execute calls every registered handler with span.
func (r *handlerRegistry) execute(span FinishedSpan) {
	r.mu.RLock()
	if len(r.handlers) == 0 {
		r.mu.RUnlock()
		return
	}

	handlers := make([]handlerEntry, len(r.handlers))
	copy(handlers, r.handlers)
	workers := r.workers
	if workers == nil {
		// Counted under the lock so close never waits on a zero counter
		// while a goroutine is about to be added.
		for _, h := range handlers {
			if h.async {
				r.inflight.Add(1)
			}
		}
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		if !h.async {
			r.safeCall(h, span)
			continue
		}
		// Each async handler gets its own copy of the snapshot.
		entry, snapshot := h, span.clone()
		if workers != nil {
			if !workers.submit(func() { r.safeCall(entry, snapshot) }) {
				r.dropped.Add(1)
				r.logger.Warn("async span handler snapshot dropped",
					zap.Uint64("handler_id", entry.id),
					zap.String("span", snapshot.Name))
			}
		} else {
			go func() {
				defer r.inflight.Done()
				r.safeCall(entry, snapshot)
			}()
		}
	}
}

func (r *handlerRegistry) safeCall(entry handlerEntry, span FinishedSpan) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("span handler panicked",
				zap.Uint64("handler_id", entry.id),
				zap.String("span", span.Name),
				zap.String("trace_id", span.Context.TraceID),
				zap.Any("panic", rec))
		}
	}()
	entry.handler(span)
}

func (r *handlerRegistry) enableWorkers(workers, queueSize int) error {
	if workers <= 0 {
		return ErrInvalidWorkers
	}
	if queueSize <= 0 {
		return ErrInvalidQueueSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.workers != nil {
		return ErrWorkerPoolEnabled
	}

	r.workers = &workerPool{
		tasks: make(chan func(), queueSize),
		stop:  make(chan struct{}),
	}
	r.workers.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.workers.run()
	}

	return nil
}

// close drops every handler and waits for in-flight async work.
func (r *handlerRegistry) close() {
	r.mu.Lock()
	r.handlers = nil
	workers := r.workers
	r.workers = nil
	r.mu.Unlock()

	if workers != nil {
		workers.shutdown()
	}
	r.inflight.Wait()
}

// workerPool manages a fixed number of workers for processing async handlers.
//
//nolint:govet // Field order optimized for functionality over memory
type workerPool struct {
	tasks  chan func()
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func (w *workerPool) run() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain runs tasks queued before stop closed.
func (w *workerPool) drain() {
	for {
		select {
		case task := <-w.tasks:
			task()
		default:
			return
		}
	}
}

// submit queues task without blocking. Returns false if the queue is full
// or the pool has shut down. Accepted tasks always run.
func (w *workerPool) submit(task func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}
	select {
	case w.tasks <- task:
		return true
	default:
		return false
	}
}

func (w *workerPool) shutdown() {
	w.mu.Lock()
	w.closed = true
	close(w.stop)
	w.mu.Unlock()

	w.wg.Wait()
}
