package spanz

import (
	"sync"
)

// spanStore holds the active spans and finished snapshots of an
// InMemoryTracer behind a single lock. The lock is only held for map and
// slice updates, never across caller code.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type spanStore struct {
	active   map[string]*memorySpan
	finished []FinishedSpan
	mu       sync.Mutex
}

func newSpanStore() *spanStore {
	return &spanStore{
		active:   make(map[string]*memorySpan),
		finished: make([]FinishedSpan, 0, 8), // Start with small capacity.
	}
}

// register records span as active.
func (s *spanStore) register(span *memorySpan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[span.context.SpanID] = span
}

// complete moves span from the active set to the finished sequence.
// This is the single serialization point for span completion, so the
// finished order is end-completion order.
func (s *spanStore) complete(span *memorySpan, snapshot FinishedSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A custom IDGenerator may repeat ids; only remove our own entry.
	if s.active[span.context.SpanID] == span {
		delete(s.active, span.context.SpanID)
	}

	if len(s.finished) >= cap(s.finished) {
		currentCap := cap(s.finished)
		var newCap int
		if currentCap < 1024 {
			// Double capacity for small buffers.
			newCap = currentCap * 2
		} else {
			// Grow by 50% for large buffers to avoid excessive memory usage.
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]FinishedSpan, len(s.finished), newCap)
		copy(grown, s.finished)
		s.finished = grown
	}
	s.finished = append(s.finished, snapshot)
}

// finishedCopy returns a deep copy of the finished sequence, optionally
// filtered. The result never aliases store memory.
func (s *spanStore) finishedCopy(keep func(*FinishedSpan) bool) []FinishedSpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]FinishedSpan, 0, len(s.finished))
	for i := range s.finished {
		if keep != nil && !keep(&s.finished[i]) {
			continue
		}
		result = append(result, s.finished[i].clone())
	}
	return result
}

// clearFinished drops every finished snapshot. Active spans are untouched.
func (s *spanStore) clearFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Only shrink if the buffer is very oversized to avoid allocation churn.
	if cap(s.finished) > 256 {
		s.finished = make([]FinishedSpan, 0, 32)
		return
	}
	clear(s.finished)
	s.finished = s.finished[:0]
}

func (s *spanStore) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *spanStore) finishedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.finished)
}

// activeNames lists the operation names of spans that never ended.
func (s *spanStore) activeNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.active))
	for _, span := range s.active {
		names = append(names, span.name)
	}
	return names
}
