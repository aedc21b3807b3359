package trace

import (
	"fmt"

	"ember/hal"
	"ember/kernel"
)

// Log writes events to a hal.Logger.
type Log struct {
	l     hal.Logger
	kinds map[kernel.EventKind]bool
}

// NewLog logs events of the given kinds, or all events if none are given.
func NewLog(l hal.Logger, kinds ...kernel.EventKind) *Log {
	t := &Log{l: l}
	if len(kinds) > 0 {
		t.kinds = make(map[kernel.EventKind]bool, len(kinds))
		for _, k := range kinds {
			t.kinds[k] = true
		}
	}
	return t
}

func (t *Log) TraceEvent(ev kernel.Event) {
	if t.kinds != nil && !t.kinds[ev.Kind] {
		return
	}
	t.l.WriteLineString(Format(ev))
}

// Format renders ev as a single log line.
func Format(ev kernel.Event) string {
	if ev.Task == kernel.NoTask {
		return fmt.Sprintf("[%8d] %s", ev.Tick, ev.Kind)
	}
	return fmt.Sprintf("[%8d] %-6s %s(%s) %s prio=%d", ev.Tick, ev.Kind, ev.Name, ev.Task, ev.State, ev.Priority)
}
