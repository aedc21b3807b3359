package monitor

import (
	"sync/atomic"

	"ember/kernel"
)

const ringSlots = 256

// ring is a fixed-size single-producer, single-consumer event queue.
// The kernel calls the tracer with interrupts masked, so pushes never race
// each other. The render loop is the only consumer.
type ring struct {
	_       [0]func() // prevent accidental copying.
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint32
	slots   [ringSlots]kernel.Event
}

// tryPush enqueues ev, counting it as dropped if the ring is full.
func (r *ring) tryPush(ev kernel.Event) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= ringSlots {
		r.dropped.Add(1)
		return false
	}
	r.slots[head%ringSlots] = ev
	r.head.Store(head + 1)
	return true
}

// tryPop dequeues one event, returning false if the ring is empty.
func (r *ring) tryPop() (kernel.Event, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return kernel.Event{}, false
	}
	ev := r.slots[tail%ringSlots]
	r.tail.Store(tail + 1)
	return ev, true
}
