package kernel

import (
	"unsafe"

	"ember/hal"
)

// TaskFunc is the body of a task. Returning from it exits the task.
type TaskFunc func(arg any)

// TaskSettings configures a new task.
type TaskSettings struct {
	Name     string
	Function TaskFunc
	Arg      any

	// Stack is the task's stack memory. Its top must be 8-byte aligned and
	// its size a multiple of 8, at least MinStackSize. See NewStack.
	Stack []byte

	Priority int

	// Privileged tasks may execute privileged instructions such as masking
	// interrupts.
	Privileged bool
}

// tcb is a task control block. Tasks are arena slots; lists link them by slot.
type tcb struct {
	prev, next uint16
	linked     bool

	stack []byte
	// sp is the offset of the saved switch frame in stack. It is valid only
	// while the task is not running. Offset 0 is the stack limit.
	sp int

	priority     int
	basePriority int
	slice        uint32
	wakeTime     uint64
	state        TaskState

	joiners tlist
	// mqData is the caller buffer of a blocked Enqueue or Dequeue.
	mqData []byte

	privileged bool
	name       string
	fn         TaskFunc
	arg        any
	gen        uint16

	runTicks uint64
	switches uint64
}

// NewStack allocates task stack memory of size bytes with an 8-byte aligned base.
func NewStack(size int) []byte {
	if size <= 0 {
		return nil
	}
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}

func stackTopAligned(stack []byte) bool {
	if len(stack) == 0 {
		return false
	}
	top := uintptr(unsafe.Pointer(unsafe.SliceData(stack))) + uintptr(len(stack))
	return top&7 == 0
}

// buildSwitchFrame writes the first frame of task id at the top of stack and
// returns its offset. Restoring it starts the entry stub with r0 = id.
func (k *Kernel) buildSwitchFrame(stack []byte, id TaskID) int {
	k.usageAssert(len(stack) >= MinStackSize, "len(stack) >= MinStackSize", "stack size must be at least 256 bytes")
	k.usageAssert(len(stack)%8 == 0, "len(stack)%8 == 0", "stack size must be a multiple of 8")
	k.usageAssert(stackTopAligned(stack), "stackTopAligned(stack)", "stack top must be 8-byte aligned")

	f := hal.SwitchFrame{ExcReturn: hal.ExcReturnThreadPSPNoFP}
	f.Regs.R[0] = uint32(id)
	f.Regs.PC = hal.EntryStub
	f.Regs.XPSR = hal.XPSRThumb

	sp := len(stack) - f.Size()
	f.Put(stack[sp:])
	return sp
}

func (k *Kernel) taskInit(slot uint16, s *TaskSettings) TaskID {
	gen := k.tasks[slot].gen + 1
	if gen == 0 {
		gen = 1
	}
	id := makeTaskID(slot, gen)

	sp := k.buildSwitchFrame(s.Stack, id)
	k.tasks[slot] = tcb{
		stack:        s.Stack,
		sp:           sp,
		priority:     s.Priority,
		basePriority: s.Priority,
		slice:        k.cfg.TicksPerSlice,
		state:        TaskReady,
		privileged:   s.Privileged,
		name:         s.Name,
		fn:           s.Function,
		arg:          s.Arg,
		gen:          gen,
	}
	return id
}

// allocSlot returns a slot that is free or holds an exited task, or 0.
func (k *Kernel) allocSlot() uint16 {
	for i := firstTaskSlot; i < len(k.tasks); i++ {
		switch k.tasks[i].state {
		case TaskFree, TaskExited:
			return uint16(i)
		}
	}
	return 0
}

func (k *Kernel) idOf(slot uint16) TaskID {
	return makeTaskID(slot, k.tasks[slot].gen)
}

// resolve maps a handle to its slot. ok is false for handles of slots that
// were reused or never allocated.
func (k *Kernel) resolve(id TaskID) (slot uint16, ok bool) {
	slot = id.slot()
	if slot == 0 || int(slot) >= len(k.tasks) {
		return 0, false
	}
	t := &k.tasks[slot]
	if t.state == TaskFree || t.gen != id.gen() {
		return 0, false
	}
	return slot, true
}
