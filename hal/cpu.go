package hal

import "errors"

var (
	// ErrPrivileged is the hard fault raised when an unprivileged task executes
	// a privileged instruction.
	ErrPrivileged = errors.New("privileged instruction in unprivileged mode")

	// ErrBadFrame is the hard fault raised when an exception return pops a
	// frame that does not describe a runnable task.
	ErrBadFrame = errors.New("invalid exception return frame")

	// ErrHalted is returned by runners once the CPU halted after a fault.
	ErrHalted = errors.New("cpu halted")
)

// CONTROL register bits.
const (
	ControlNPriv uint32 = 1 << 0 // thread mode is unprivileged
	ControlSPSel uint32 = 1 << 1 // thread mode uses PSP
	ControlFPCA  uint32 = 1 << 2 // floating-point context active
)

// IRQState is the interrupt mask saved by DisableIRQ.
type IRQState uintptr

// Context locates the saved register frame of a task.
type Context struct {
	Stack      []byte
	SP         int // offset of the frame within Stack
	Privileged bool
}

// Hooks are the kernel entry points the CPU calls from exception context.
type Hooks struct {
	// Outgoing returns the stack of the task being switched out. ok is false
	// when its context must not be saved: it exited, or nothing ran yet.
	Outgoing func() (stack []byte, ok bool)

	// Switch is called by the context switch exception with the stack
	// pointer of the just-saved frame and returns the context to restore.
	Switch func(savedSP int) Context

	// Entry runs a task whose first frame was restored with PC == EntryStub.
	// It must not return.
	Entry func(r0, r1 uint32)

	// Fault reports a hard fault. The CPU halts afterwards.
	Fault func(err error)
}

// CPU is the architecture port the kernel runs on.
//
// Kernel state may only be touched inside Trap or between DisableIRQ and
// RestoreIRQ. Both sections exclude each other.
type CPU interface {
	// Attach installs the kernel's exception hooks. It is called once,
	// before the first Trap.
	Attach(h Hooks)

	// Trap runs fn as a system call from task context. A context switch that
	// is pending on entry, or requested by fn, is taken before Trap returns.
	Trap(fn func())

	// DisableIRQ masks interrupts. It is the critical section used by
	// interrupt handlers, which must not go through Trap.
	DisableIRQ() IRQState
	RestoreIRQ(s IRQState)

	// PendSwitch requests the context switch exception. Interrupts must be
	// disabled.
	PendSwitch()

	// Poll is a preemption point for task code that does not enter the
	// kernel otherwise. On hardware it is a no-op.
	Poll()

	// WaitForInterrupt sleeps until an exception is pending and takes it.
	WaitForInterrupt()

	// EnableLazyFP turns on automatic, lazily stacked floating-point state.
	EnableLazyFP()

	// Privileged reports whether the running task is privileged.
	Privileged() bool

	// Halt stops the CPU for good. Interrupts must be disabled; it does not
	// return.
	Halt()
}
