package kernel

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ember/hal"
)

// harness runs a kernel on the simulated CPU with a free-running tick source.
type harness struct {
	t   *testing.T
	cpu *hal.SimCPU
	k   *Kernel

	mu     sync.Mutex
	marks  []string
	errs   []string
	faults chan Fault

	done     chan struct{}
	doneOnce sync.Once
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		cpu:    hal.NewSimCPU(),
		faults: make(chan Fault, 1),
		done:   make(chan struct{}),
	}
	cfg.FaultHandler = func(f Fault) { h.faults <- f }
	k, err := New(h.cpu, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.k = k
	return h
}

func (h *harness) mark(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marks = append(h.marks, fmt.Sprintf(format, args...))
}

func (h *harness) got() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.marks...)
}

// errorf records a failure from task context, where t.Errorf could outlive the test.
func (h *harness) errorf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, fmt.Sprintf(format, args...))
}

func (h *harness) finish() {
	h.doneOnce.Do(func() { close(h.done) })
}

func (h *harness) task(name string, prio int, fn func()) TaskID {
	return h.k.Create(TaskSettings{
		Name:     name,
		Function: func(any) { fn() },
		Stack:    NewStack(1024),
		Priority: prio,
	})
}

// run starts the kernel and returns once a task called finish or the
// kernel faulted.
func (h *harness) run() (Fault, bool) {
	h.t.Helper()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		h.k.Start()
	}()

	stopTicks := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopTicks:
				return
			case <-h.cpu.Halted():
				return
			default:
			}
			h.k.Tick()
			time.Sleep(20 * time.Microsecond)
		}
	}()

	var (
		f       Fault
		faulted bool
	)
	select {
	case <-h.done:
	case f = <-h.faults:
		faulted = true
	case <-time.After(10 * time.Second):
		h.t.Errorf("timed out, marks = %q", h.got())
	}
	close(stopTicks)
	h.cpu.Stop()
	<-stopped

	h.mu.Lock()
	for _, e := range h.errs {
		h.t.Error(e)
	}
	h.mu.Unlock()
	return f, faulted
}

// expectFault runs fn on its own goroutine, which the halt terminates, and
// returns the reported fault.
func (h *harness) expectFault(kind FaultKind, fn func()) Fault {
	h.t.Helper()
	go fn()
	select {
	case f := <-h.faults:
		if f.Kind != kind {
			h.t.Fatalf("fault kind = %v, want %v (%v)", f.Kind, kind, f)
		}
		return f
	case <-time.After(5 * time.Second):
		h.t.Fatalf("no %v fault", kind)
	}
	return Fault{}
}

func (h *harness) wantMarks(want ...string) {
	h.t.Helper()
	got := h.got()
	if len(got) != len(want) {
		h.t.Fatalf("marks = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Fatalf("marks = %q, want %q", got, want)
		}
	}
}
