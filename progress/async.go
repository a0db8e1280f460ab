package progress

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the event queue length used by NewAsync when size <= 0
const DefaultBuffer = 256

// Async forwards updates to another Emitter on its own goroutine. Emits never
// block: when the queue is full the update is dropped and counted.
type Async struct {
	next    Emitter
	events  chan func(Emitter)
	done    chan struct{}
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts forwarding to next. Call Close to drain and stop.
func NewAsync(next Emitter, size int) *Async {
	if size <= 0 {
		size = DefaultBuffer
	}
	a := &Async{
		next:   OrNop(next),
		events: make(chan func(Emitter), size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.events {
		ev(a.next)
	}
}

func (a *Async) enqueue(ev func(Emitter)) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.events <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Close stops accepting updates and waits until queued ones are delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	<-a.done
}

// Dropped reports how many updates were discarded because the queue was full
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

func (a *Async) EmitStage(stage string, message string) {
	a.enqueue(func(e Emitter) { e.EmitStage(stage, message) })
}

func (a *Async) EmitProgress(count int, metadata map[string]interface{}) {
	a.enqueue(func(e Emitter) { e.EmitProgress(count, metadata) })
}

func (a *Async) EmitComplete(summary map[string]interface{}) {
	a.enqueue(func(e Emitter) { e.EmitComplete(summary) })
}

func (a *Async) EmitError(stage string, err error) {
	a.enqueue(func(e Emitter) { e.EmitError(stage, err) })
}

func (a *Async) EmitInfo(message string) {
	a.enqueue(func(e Emitter) { e.EmitInfo(message) })
}
