package kernel

import "fmt"

// TaskState is the scheduling state of a task.
type TaskState uint8

const (
	// TaskFree marks an arena slot that never held a task.
	TaskFree TaskState = iota
	TaskReady
	TaskRunning
	TaskSuspended
	TaskSleeping
	TaskWaitingOnMutex
	TaskWaitingOnCond
	TaskWaitingToEnqueue
	TaskWaitingToDequeue
	TaskWaitingForJoin
	// TaskExited is terminal. The slot may be reused by a later Create.
	TaskExited
)

func (s TaskState) String() string {
	switch s {
	case TaskFree:
		return "free"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskSleeping:
		return "sleeping"
	case TaskWaitingOnMutex:
		return "wait-mutex"
	case TaskWaitingOnCond:
		return "wait-cond"
	case TaskWaitingToEnqueue:
		return "wait-enqueue"
	case TaskWaitingToDequeue:
		return "wait-dequeue"
	case TaskWaitingForJoin:
		return "wait-join"
	case TaskExited:
		return "exited"
	default:
		return "unknown"
	}
}

// TaskID is a task handle: arena slot in the low 16 bits, slot generation
// in the high 16 bits. The zero value is no task.
type TaskID uint32

// NoTask is the zero TaskID.
const NoTask TaskID = 0

func makeTaskID(slot, gen uint16) TaskID { return TaskID(gen)<<16 | TaskID(slot) }

func (id TaskID) slot() uint16 { return uint16(id) }
func (id TaskID) gen() uint16  { return uint16(id >> 16) }

func (id TaskID) String() string {
	if id == NoTask {
		return "none"
	}
	return fmt.Sprintf("%d.%d", id.slot(), id.gen())
}
