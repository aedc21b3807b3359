package trace

import (
	"strings"
	"testing"

	"ember/kernel"
)

type lineLogger struct {
	lines []string
}

func (l *lineLogger) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *lineLogger) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func sampleEvents() []kernel.Event {
	return []kernel.Event{
		{Tick: 0, Kind: kernel.EventStart},
		{Tick: 0, Kind: kernel.EventSwitch, Task: 0x10002, Name: "sensor", State: kernel.TaskRunning, Priority: 2},
		{Tick: 3, Kind: kernel.EventBlock, Task: 0x10002, Name: "sensor", State: kernel.TaskSleeping, Priority: 2},
		{Tick: 3, Kind: kernel.EventSwitch, Task: 0x10001, Name: "idle", State: kernel.TaskRunning, Priority: 0},
	}
}

func TestFromEvent(t *testing.T) {
	r := FromEvent(sampleEvents()[2])
	want := Record{Tick: 3, Kind: "block", ID: 0x10002, Task: "sensor", State: "sleeping", Priority: 2}
	if r != want {
		t.Fatalf("FromEvent() = %+v, want %+v", r, want)
	}
	if r := FromEvent(sampleEvents()[0]); r.State != "" || r.ID != 0 {
		t.Fatalf("FromEvent(start) = %+v, want no task", r)
	}
}

func TestLogFiltersKinds(t *testing.T) {
	var l lineLogger
	tr := NewLog(&l, kernel.EventSwitch)
	for _, ev := range sampleEvents() {
		tr.TraceEvent(ev)
	}
	if len(l.lines) != 2 {
		t.Fatalf("logged %d lines, want 2: %q", len(l.lines), l.lines)
	}
	if !strings.Contains(l.lines[0], "sensor(2.1)") || !strings.Contains(l.lines[0], "prio=2") {
		t.Fatalf("line = %q", l.lines[0])
	}
}

func TestMultiFansOut(t *testing.T) {
	var a, b lineLogger
	m := Multi{NewLog(&a), NewLog(&b)}
	for _, ev := range sampleEvents() {
		m.TraceEvent(ev)
	}
	if len(a.lines) != 4 || len(b.lines) != 4 {
		t.Fatalf("lines = %d, %d, want 4, 4", len(a.lines), len(b.lines))
	}
}
