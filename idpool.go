package spanz

import (
	"sync"
)

// IDGenerator mints trace and span identifiers.
// Implementations must be safe for concurrent use.
type IDGenerator interface {
	NewTraceID() string
	NewSpanID() string
}

// idPool manages a pool of pre-generated IDs to amortize crypto/rand overhead.
type idPool struct {
	factory func() string
	ids     chan string
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// newIDPool creates a new ID pool with the specified capacity.
func newIDPool(capacity int, factory func() string) *idPool {
	pool := &idPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// get retrieves an ID from the pool or generates one if the pool is empty.
func (p *idPool) get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		// Burst load drained the pool.
		return p.factory()
	}
}

// refill keeps the pool topped up until close.
func (p *idPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		case p.ids <- p.factory():
		}
	}
}

// close stops the refill goroutine. Safe to call multiple times.
func (p *idPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}

// pooledIDs is the default IDGenerator used by InMemoryTracer.
type pooledIDs struct {
	traces *idPool
	spans  *idPool
}

func newPooledIDs(capacity int) *pooledIDs {
	return &pooledIDs{
		traces: newIDPool(capacity, NewTraceID),
		spans:  newIDPool(capacity, NewSpanID),
	}
}

func (p *pooledIDs) NewTraceID() string { return p.traces.get() }

func (p *pooledIDs) NewSpanID() string { return p.spans.get() }

func (p *pooledIDs) close() {
	p.traces.close()
	p.spans.close()
}
