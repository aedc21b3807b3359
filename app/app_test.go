//go:build !tinygo

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"ember/hal"
	"ember/kernel"
)

type eventLog struct {
	mu     sync.Mutex
	events []kernel.Event
}

func (l *eventLog) TraceEvent(ev kernel.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(kind kernel.EventKind, name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind && (name == "*" || ev.Name == name) {
			n++
		}
	}
	return n
}

func TestDemoRunsHeadless(t *testing.T) {
	var log eventLog
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
		return NewWithConfig(h, Config{Tracer: &log, Quiet: true})
	}, hal.HeadlessConfig{Enabled: true, Hz: 2000, Ticks: 600, StepEvery: 100, IRQEvery: 150})
	if err != nil {
		t.Fatalf("RunHeadless() error = %v", err)
	}

	if log.count(kernel.EventStart, "") != 1 {
		t.Fatalf("no start event")
	}
	for _, name := range []string{"sensor", "filter", "report", "keys", "blink", "burst"} {
		if log.count(kernel.EventCreate, name) != 1 {
			t.Fatalf("task %q created %d times, want 1", name, log.count(kernel.EventCreate, name))
		}
		if log.count(kernel.EventSwitch, name) == 0 {
			t.Fatalf("task %q never ran", name)
		}
	}
	if log.count(kernel.EventFault, "*") != 0 {
		t.Fatalf("kernel faulted")
	}
	if log.count(kernel.EventExit, "worker") == 0 {
		t.Fatalf("space key never ran a worker to completion")
	}
	if log.count(kernel.EventSwitch, "sensor") < 10 {
		t.Fatalf("sensor ran %d times, want at least 10", log.count(kernel.EventSwitch, "sensor"))
	}
}

func TestBadConfigSurfacesFromStep(t *testing.T) {
	step := NewWithConfig(hal.New(), Config{PriorityLevels: 1})
	if err := step(); err == nil {
		t.Fatalf("step() error = nil, want config error")
	}
}
