package kernel

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// FaultKind classifies a fatal kernel error.
type FaultKind uint8

const (
	// FaultUsage is a caller error: double lock, bad stack, call before Start.
	FaultUsage FaultKind = iota + 1
	// FaultInternal is a broken kernel invariant.
	FaultInternal
	// FaultStackOverflow is a task whose saved frame fell below its stack.
	FaultStackOverflow
	// FaultPanic is a task function that panicked.
	FaultPanic
	// FaultHard is an exception raised by the CPU.
	FaultHard
)

func (k FaultKind) String() string {
	switch k {
	case FaultUsage:
		return "usage error"
	case FaultInternal:
		return "internal error"
	case FaultStackOverflow:
		return "stack overflow"
	case FaultPanic:
		return "task panic"
	case FaultHard:
		return "hard fault"
	default:
		return "unknown"
	}
}

// Fault describes the error that halted the kernel.
type Fault struct {
	Kind FaultKind

	// Cond is the failed condition of an assertion.
	Cond string
	File string
	Line int
	Msg  string

	// Task is the task running when the fault was raised, if any.
	Task TaskID

	// Value is the recovered value of a task panic.
	Value any
	// Err is the CPU error of a hard fault.
	Err error

	Stack []byte
}

func (f Fault) Error() string {
	switch f.Kind {
	case FaultPanic:
		return fmt.Sprintf("%s: task %s: %v", f.Kind, f.Task, f.Value)
	case FaultHard:
		return fmt.Sprintf("%s: task %s: %v", f.Kind, f.Task, f.Err)
	}
	if f.File == "" {
		return fmt.Sprintf("%s: task %s: %s", f.Kind, f.Task, f.Msg)
	}
	if f.Cond != "" {
		return fmt.Sprintf("%s: %s:%d: %s (%s)", f.Kind, f.File, f.Line, f.Msg, f.Cond)
	}
	return fmt.Sprintf("%s: %s:%d: %s", f.Kind, f.File, f.Line, f.Msg)
}

// SetFaultHandler installs the fault handler, replacing Config.FaultHandler.
//
// The handler is invoked at most once (on the first fault). It runs with
// interrupts disabled and must not call into the kernel.
func (k *Kernel) SetFaultHandler(fn func(Fault)) {
	k.faultHandler.Store(fn)
}

// Faulted reports whether the kernel halted on a fault.
func (k *Kernel) Faulted() bool {
	return k.faulted.Load()
}

// LastFault returns the fault that halted the kernel.
func (k *Kernel) LastFault() (Fault, bool) {
	f, ok := k.lastFault.Load().(Fault)
	return f, ok
}

func (k *Kernel) usageAssert(ok bool, cond, msg string) {
	if usageChecks && !ok {
		k.failAt(FaultUsage, cond, msg, 2)
	}
}

func (k *Kernel) internalAssert(ok bool, cond string) {
	if internalChecks && !ok {
		k.failAt(FaultInternal, cond, "kernel invariant violated", 2)
	}
}

func (k *Kernel) failAt(kind FaultKind, cond, msg string, skip int) {
	_, file, line, _ := runtime.Caller(skip)
	k.fail(Fault{Kind: kind, Cond: cond, File: filepath.Base(file), Line: line, Msg: msg})
}

// fail reports f and halts. Interrupts must be disabled.
func (k *Kernel) fail(f Fault) {
	k.report(f)
	k.cpu.Halt()
}

func (k *Kernel) report(f Fault) {
	k.faultOnce.Do(func() {
		k.faulted.Store(true)
		if k.current != 0 {
			f.Task = k.idOf(k.current)
		}
		k.lastFault.Store(f)
		k.emit(EventFault, k.current)
		if v := k.faultHandler.Load(); v != nil {
			if fn, ok := v.(func(Fault)); ok && fn != nil {
				fn(f)
			}
		}
	})
}
