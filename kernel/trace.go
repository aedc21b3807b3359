package kernel

// EventKind is the type of a trace event.
type EventKind uint8

const (
	EventStart EventKind = iota + 1
	EventCreate
	EventReady
	EventBlock
	EventSwitch
	EventExit
	EventFault
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventCreate:
		return "create"
	case EventReady:
		return "ready"
	case EventBlock:
		return "block"
	case EventSwitch:
		return "switch"
	case EventExit:
		return "exit"
	case EventFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Event is one scheduling event.
//
// State and Priority describe the task after the event. For EventSwitch the
// task is the one switched in.
type Event struct {
	Tick     uint64
	Kind     EventKind
	Task     TaskID
	Name     string
	State    TaskState
	Priority int
}

// Tracer receives kernel events.
//
// TraceEvent runs with interrupts disabled: it must not block and must not
// call into the kernel.
type Tracer interface {
	TraceEvent(ev Event)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Event)

func (f TracerFunc) TraceEvent(ev Event) { f(ev) }

func (k *Kernel) emit(kind EventKind, slot uint16) {
	if k.cfg.Tracer == nil {
		return
	}
	ev := Event{Tick: k.ticks, Kind: kind}
	if slot != 0 {
		t := &k.tasks[slot]
		ev.Task = makeTaskID(slot, t.gen)
		ev.Name = t.name
		ev.State = t.state
		ev.Priority = t.priority
	}
	k.cfg.Tracer.TraceEvent(ev)
}
