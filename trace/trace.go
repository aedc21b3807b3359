// Package trace records kernel scheduling events.
//
// Sinks implement kernel.Tracer. TraceEvent runs with interrupts disabled,
// so the file and database sinks hand records to a writer goroutine and
// drop them when it falls behind.
package trace

import (
	"errors"
	"sync"
	"sync/atomic"

	"ember/kernel"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by Close of an already closed sink.
var ErrClosed = errors.New("trace sink closed")

// Record is the stored form of a kernel.Event.
type Record struct {
	Tick     uint64 `json:"tick"`
	Kind     string `json:"kind"`
	ID       uint32 `json:"id"`
	Task     string `json:"task,omitempty"`
	State    string `json:"state,omitempty"`
	Priority int    `json:"prio"`
}

// FromEvent converts ev to a Record.
func FromEvent(ev kernel.Event) Record {
	r := Record{
		Tick:     ev.Tick,
		Kind:     ev.Kind.String(),
		ID:       uint32(ev.Task),
		Task:     ev.Name,
		Priority: ev.Priority,
	}
	if ev.Task != kernel.NoTask {
		r.State = ev.State.String()
	}
	return r
}

// Multi fans events out to several tracers.
type Multi []kernel.Tracer

func (m Multi) TraceEvent(ev kernel.Event) {
	for _, t := range m {
		t.TraceEvent(ev)
	}
}

const pipeDepth = 4096

// pipe queues records for a writer goroutine.
type pipe struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan Record
	dropped atomic.Uint64
	g       errgroup.Group
}

func (p *pipe) start(write func(<-chan Record) error) {
	p.ch = make(chan Record, pipeDepth)
	p.g.Go(func() error { return write(p.ch) })
}

func (p *pipe) TraceEvent(ev kernel.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- FromEvent(ev):
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns the number of events lost because the writer fell behind.
func (p *pipe) Dropped() uint64 { return p.dropped.Load() }

// stop closes the queue and waits for the writer to drain it.
func (p *pipe) stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()
	return p.g.Wait()
}
