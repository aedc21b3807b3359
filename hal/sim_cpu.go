package hal

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// SimCPU is a software model of a single-core Cortex-M CPU.
//
// Tasks run as fibers: one goroutine per task, and only the fiber that owns
// the CPU executes. PRIMASK is modelled by a mutex, so Trap sections and
// DisableIRQ sections exclude each other. A pending context switch is taken by
// the owning fiber the next time it goes through Trap, Poll or
// WaitForInterrupt, the way PendSV tail-chains after SVC on hardware.
//
// The context switch really saves and restores the register file through the
// task's stack bytes, using the SwitchFrame layout.
type SimCPU struct {
	mu   sync.Mutex
	idle sync.Cond

	hooks Hooks

	regs    Registers
	psp     int
	control uint32
	aspen   bool
	pendSV  bool

	running *fiber
	fibers  map[*byte]*fiber

	halted   atomic.Bool
	haltCh   chan struct{}
	haltOnce sync.Once

	switches atomic.Uint64
}

type fiber struct {
	key     *byte
	wake    chan struct{}
	r0, r1  uint32
	started bool
	exited  bool
}

// NewSimCPU returns a CPU in thread mode with no task loaded.
func NewSimCPU() *SimCPU {
	c := &SimCPU{
		fibers: make(map[*byte]*fiber),
		haltCh: make(chan struct{}),
	}
	c.idle.L = &c.mu
	return c
}

func (c *SimCPU) Attach(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

func (c *SimCPU) Trap(fn func()) {
	c.mu.Lock()
	c.exitIfHalted()
	c.takePending()
	fn()
	c.takePending()
	c.mu.Unlock()
}

func (c *SimCPU) DisableIRQ() IRQState {
	c.mu.Lock()
	return 0
}

func (c *SimCPU) RestoreIRQ(IRQState) {
	c.mu.Unlock()
}

func (c *SimCPU) PendSwitch() {
	c.pendSV = true
	c.idle.Broadcast()
}

func (c *SimCPU) Poll() {
	c.mu.Lock()
	c.exitIfHalted()
	c.takePending()
	c.mu.Unlock()
}

func (c *SimCPU) WaitForInterrupt() {
	c.mu.Lock()
	for !c.pendSV && !c.halted.Load() {
		c.idle.Wait()
	}
	c.exitIfHalted()
	c.takePending()
	c.mu.Unlock()
}

func (c *SimCPU) EnableLazyFP() { c.aspen = true }

func (c *SimCPU) Privileged() bool { return c.control&ControlNPriv == 0 }

func (c *SimCPU) Halt() {
	c.stopLocked()
	c.mu.Unlock()
	runtime.Goexit()
}

// Stop halts the CPU from outside: parked fibers terminate and the boot
// context blocked in the first Trap returns.
func (c *SimCPU) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

// Halted is closed once the CPU stops.
func (c *SimCPU) Halted() <-chan struct{} { return c.haltCh }

// Switches returns the number of context switch exceptions taken.
func (c *SimCPU) Switches() uint64 { return c.switches.Load() }

// Regs returns the register file. Only the running task may use it.
func (c *SimCPU) Regs() *Registers { return &c.regs }

// SetFP writes single-precision register i. Like the first FP instruction on
// hardware, it activates FP context when lazy stacking is enabled.
func (c *SimCPU) SetFP(i int, v float32) {
	if c.aspen {
		c.control |= ControlFPCA
	}
	c.regs.SetS(i, v)
}

// FP reads single-precision register i.
func (c *SimCPU) FP(i int) float32 { return c.regs.GetS(i) }

// FPActive reports CONTROL.FPCA for the running task.
func (c *SimCPU) FPActive() bool { return c.control&ControlFPCA != 0 }

// SP returns the process stack pointer as an offset into the running task's stack.
func (c *SimCPU) SP() int { return c.psp }

// AdjustSP moves the process stack pointer, modelling stack use by the
// running task. Negative values grow the stack.
func (c *SimCPU) AdjustSP(delta int) { c.psp += delta }

// DisableInterrupts executes CPSID I on behalf of the running task.
func (c *SimCPU) DisableInterrupts() {
	c.mu.Lock()
	if !c.Privileged() {
		c.fault(ErrPrivileged)
	}
}

// EnableInterrupts executes CPSIE I on behalf of the running task.
func (c *SimCPU) EnableInterrupts() {
	c.mu.Unlock()
}

func (c *SimCPU) exitIfHalted() {
	if c.halted.Load() {
		c.mu.Unlock()
		runtime.Goexit()
	}
}

func (c *SimCPU) stopLocked() {
	c.haltOnce.Do(func() {
		c.halted.Store(true)
		close(c.haltCh)
	})
	c.idle.Broadcast()
}

func (c *SimCPU) fault(err error) {
	if c.hooks.Fault != nil {
		c.hooks.Fault(err)
	}
	c.Halt()
}

func (c *SimCPU) takePending() {
	for c.pendSV && !c.halted.Load() {
		c.pendSV = false
		from := c.running
		to := c.pendSVHandler()
		if to == from {
			continue
		}
		c.resume(from, to)
	}
}

func (c *SimCPU) pendSVHandler() *fiber {
	c.switches.Add(1)

	saved := 0
	if stack, ok := c.hooks.Outgoing(); ok {
		saved = c.save(stack)
	} else if c.running != nil {
		c.running.exited = true
		delete(c.fibers, c.running.key)
	}
	return c.restore(c.hooks.Switch(saved))
}

// save pushes the exception frame and the callee-saved registers below PSP.
// A frame that would fall below the stack is not written; the kernel detects
// the overflow from the returned stack pointer.
func (c *SimCPU) save(stack []byte) int {
	f := SwitchFrame{ExcReturn: ExcReturnThreadPSPNoFP, Regs: c.regs}
	if c.control&ControlFPCA != 0 {
		f.ExcReturn = ExcReturnThreadPSPFP
	}
	sp := c.psp - f.Size()
	if sp >= 0 && c.psp <= len(stack) {
		f.Put(stack[sp:])
	}
	return sp
}

func (c *SimCPU) restore(ctx Context) *fiber {
	if ctx.SP < 0 || ctx.SP >= len(ctx.Stack) {
		c.fault(fmt.Errorf("restore sp %d of %d byte stack: %w", ctx.SP, len(ctx.Stack), ErrBadFrame))
	}
	f, err := ReadSwitchFrame(ctx.Stack[ctx.SP:])
	if err != nil {
		c.fault(err)
	}

	c.regs = f.Regs
	c.psp = ctx.SP + f.Size()
	c.control |= ControlSPSel
	if f.HasFP() {
		c.control |= ControlFPCA
	} else {
		c.control &^= ControlFPCA
	}
	if ctx.Privileged {
		c.control &^= ControlNPriv
	} else {
		c.control |= ControlNPriv
	}

	key := &ctx.Stack[0]
	fb := c.fibers[key]
	if fb == nil {
		if f.Regs.PC != EntryStub {
			c.fault(fmt.Errorf("restore pc %#08x of unstarted task: %w", f.Regs.PC, ErrBadFrame))
		}
		fb = &fiber{key: key, wake: make(chan struct{}, 1), r0: f.Regs.R[0], r1: f.Regs.R[1]}
		c.fibers[key] = fb
	}
	return fb
}

// resume hands the CPU from one fiber to another and parks the caller until
// it is switched back in. from is nil for the boot context, which parks until
// the CPU stops.
func (c *SimCPU) resume(from, to *fiber) {
	c.running = to
	if to.started {
		to.wake <- struct{}{}
	} else {
		to.started = true
		go c.hooks.Entry(to.r0, to.r1)
	}
	c.mu.Unlock()

	switch {
	case from == nil:
		<-c.haltCh
	case from.exited:
		runtime.Goexit()
	default:
		select {
		case <-from.wake:
		case <-c.haltCh:
			runtime.Goexit()
		}
	}
	c.mu.Lock()
}
