//go:build !kernel_nocheck

package kernel

import (
	"strings"
	"testing"
)

func TestCreateUsageErrors(t *testing.T) {
	nop := func(any) {}
	tests := []struct {
		name string
		s    TaskSettings
		msg  string
	}{
		{"nil function", TaskSettings{Stack: NewStack(512)}, "function is nil"},
		{"small stack", TaskSettings{Function: nop, Stack: NewStack(128)}, "at least 256"},
		{"odd size", TaskSettings{Function: nop, Stack: NewStack(300)}, "multiple of 8"},
		{"misaligned", TaskSettings{Function: nop, Stack: NewStack(520)[4:268]}, "aligned"},
		{"priority", TaskSettings{Function: nop, Stack: NewStack(512), Priority: DefaultPriorityLevels}, "priority"},
		{"negative priority", TaskSettings{Function: nop, Stack: NewStack(512), Priority: -1}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			f := h.expectFault(FaultUsage, func() { h.k.Create(tt.s) })
			if !strings.Contains(f.Msg, tt.msg) {
				t.Fatalf("fault msg = %q, want it to contain %q", f.Msg, tt.msg)
			}
			if f.File == "" || f.Line == 0 {
				t.Fatalf("fault location = %s:%d", f.File, f.Line)
			}
		})
	}
}

func TestArenaExhaustedIsUsageError(t *testing.T) {
	h := newHarness(t, Config{MaxTasks: 1})
	h.task("one", 1, func() {})
	f := h.expectFault(FaultUsage, func() { h.task("two", 1, func() {}) })
	if !strings.Contains(f.Msg, "no free task slot") {
		t.Fatalf("fault msg = %q", f.Msg)
	}
}

func TestCallBeforeStartIsUsageError(t *testing.T) {
	h := newHarness(t, Config{})
	h.expectFault(FaultUsage, func() { h.k.Yield() })
}

func TestMutexCeilingOutOfRange(t *testing.T) {
	h := newHarness(t, Config{})
	h.expectFault(FaultUsage, func() { h.k.NewMutex(DefaultPriorityLevels) })
}

func TestQueueBufferTooSmall(t *testing.T) {
	h := newHarness(t, Config{})
	h.expectFault(FaultUsage, func() { h.k.NewMQueue(make([]byte, 7), 2, 4) })
}

// taskFault runs fn as the only task and returns the fault it raises.
func taskFault(t *testing.T, cfg Config, fn func(h *harness)) Fault {
	t.Helper()
	h := newHarness(t, cfg)
	h.task("culprit", 1, func() {
		fn(h)
		h.errorf("task continued after usage error")
		h.finish()
	})
	f, faulted := h.run()
	if !faulted {
		t.Fatalf("no fault")
	}
	if f.Kind != FaultUsage {
		t.Fatalf("fault kind = %v, want usage error (%v)", f.Kind, f)
	}
	return f
}

func TestTaskUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(h *harness)
		msg  string
	}{
		{"start twice", func(h *harness) { h.k.Start() }, "already started"},
		{"sleep zero", func(h *harness) { h.k.Sleep(0) }, "greater than zero"},
		{"join self", func(h *harness) { h.k.Join(h.k.Self()) }, "join itself"},
		{"resume nil", func(h *harness) { h.k.Resume(NoTask) }, "nil task"},
		{"double lock", func(h *harness) {
			m := h.k.NewMutex(1)
			m.Lock()
			m.Lock()
		}, "locked twice"},
		{"unlock not owner", func(h *harness) {
			m := h.k.NewMutex(1)
			m.Unlock()
		}, "does not own"},
		{"above ceiling", func(h *harness) {
			m := h.k.NewMutex(0)
			m.TryLock()
		}, "above mutex ceiling"},
		{"destroy locked", func(h *harness) {
			m := h.k.NewMutex(1)
			m.Lock()
			m.Destroy()
		}, "locked mutex"},
		{"wait without mutex", func(h *harness) {
			m := h.k.NewMutex(1)
			h.k.NewCond().Wait(m)
		}, "without owning"},
		{"destroy cond with waiters", func(h *harness) {
			m := h.k.NewMutex(2)
			c := h.k.NewCond()
			h.task("waiter", 2, func() {
				m.Lock()
				c.Wait(m)
			})
			c.Destroy()
		}, "cond with waiters"},
		{"destroy queue with waiters", func(h *harness) {
			q := h.k.NewMQueue(make([]byte, 8), 2, 4)
			h.task("consumer", 2, func() {
				q.Dequeue(make([]byte, 4))
			})
			q.Destroy()
		}, "queue with waiters"},
		{"wrong slot size", func(h *harness) {
			q := h.k.NewMQueue(make([]byte, 8), 2, 4)
			q.Enqueue(make([]byte, 3))
		}, "slot size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := taskFault(t, Config{}, tt.fn)
			if !strings.Contains(f.Msg, tt.msg) {
				t.Fatalf("fault msg = %q, want it to contain %q", f.Msg, tt.msg)
			}
		})
	}
}

func TestCondBoundToOtherMutex(t *testing.T) {
	h := newHarness(t, Config{})
	c := h.k.NewCond()
	m1 := h.k.NewMutex(2)
	m2 := h.k.NewMutex(2)
	h.task("w1", 2, func() {
		m1.Lock()
		c.Wait(m1)
	})
	h.task("w2", 1, func() {
		m2.Lock()
		c.Wait(m2)
	})

	f, faulted := h.run()
	if !faulted || f.Kind != FaultUsage || !strings.Contains(f.Msg, "another mutex") {
		t.Fatalf("fault = %v (%v), want cond bound to another mutex", f, faulted)
	}
}
