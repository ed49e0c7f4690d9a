package spanz

import (
	"sync/atomic"
)

// tracerHolder lets atomic.Pointer store an interface value.
type tracerHolder struct {
	tracer Tracer
}

var globalTracer atomic.Pointer[tracerHolder]

// Bootstrap installs tracer as the process-wide default. The last call wins;
// a nil tracer restores the no-op default. Prefer passing a Tracer
// explicitly where call sites allow it.
func Bootstrap(tracer Tracer) {
	if tracer == nil {
		globalTracer.Store(nil)
		return
	}
	globalTracer.Store(&tracerHolder{tracer: tracer})
}

// CurrentTracer returns the bootstrapped tracer, or a NoopTracer if none
// was installed.
func CurrentTracer() Tracer {
	if holder := globalTracer.Load(); holder != nil {
		return holder.tracer
	}
	return NoopTracer{}
}
