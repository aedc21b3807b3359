package hal

import (
	"errors"
	"testing"
	"time"
)

// toy is a minimal scheduler on the SimCPU hooks: it runs the task in next
// at each switch.
type toy struct {
	cpu    *SimCPU
	stacks [][]byte
	sps    []int
	priv   []bool
	fns    []func()

	cur    int
	next   int
	faults chan error
}

func newToy(fns ...func()) *toy {
	ty := &toy{cpu: NewSimCPU(), cur: -1, faults: make(chan error, 1), fns: fns}
	for i := range fns {
		stack := make([]byte, 512)
		f := SwitchFrame{ExcReturn: ExcReturnThreadPSPNoFP}
		f.Regs.R[0] = uint32(i)
		f.Regs.PC = EntryStub
		f.Regs.XPSR = XPSRThumb
		sp := len(stack) - f.Size()
		f.Put(stack[sp:])
		ty.stacks = append(ty.stacks, stack)
		ty.sps = append(ty.sps, sp)
		ty.priv = append(ty.priv, true)
	}
	ty.cpu.Attach(Hooks{
		Outgoing: func() ([]byte, bool) {
			if ty.cur < 0 {
				return nil, false
			}
			return ty.stacks[ty.cur], true
		},
		Switch: func(saved int) Context {
			if ty.cur >= 0 {
				ty.sps[ty.cur] = saved
			}
			ty.cur = ty.next
			return Context{Stack: ty.stacks[ty.cur], SP: ty.sps[ty.cur], Privileged: ty.priv[ty.cur]}
		},
		Entry: func(r0, _ uint32) {
			ty.fns[r0]()
			<-ty.cpu.Halted()
		},
		Fault: func(err error) { ty.faults <- err },
	})
	return ty
}

// switchTo requests a switch to task i from task context.
func (ty *toy) switchTo(i int) {
	ty.cpu.Trap(func() {
		ty.next = i
		ty.cpu.PendSwitch()
	})
}

// boot starts task 0 and returns once the CPU halted.
func (ty *toy) boot(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ty.switchTo(0)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		ty.cpu.Stop()
		t.Fatalf("CPU did not halt")
	}
}

func TestSimCPUPreservesRegistersAcrossSwitch(t *testing.T) {
	var ty *toy
	var got0, got1 uint32
	ty = newToy(
		func() {
			ty.cpu.Regs().R[4] = 0xAA
			ty.switchTo(1)
			got0 = ty.cpu.Regs().R[4]
			ty.cpu.Stop()
		},
		func() {
			got1 = ty.cpu.Regs().R[4]
			ty.cpu.Regs().R[4] = 0xBB
			ty.switchTo(0)
		},
	)
	ty.boot(t)

	if got0 != 0xAA {
		t.Fatalf("task 0 r4 = %#x, want 0xAA", got0)
	}
	if got1 != 0 {
		t.Fatalf("task 1 initial r4 = %#x, want 0", got1)
	}
	if n := ty.cpu.Switches(); n != 3 {
		t.Fatalf("Switches() = %d, want 3", n)
	}
}

func TestSimCPUPrivilegeFault(t *testing.T) {
	var ty *toy
	ty = newToy(func() {
		if ty.cpu.Privileged() {
			t.Errorf("Privileged() = true for unprivileged task")
		}
		ty.cpu.DisableInterrupts()
		t.Errorf("DisableInterrupts() returned in unprivileged mode")
	})
	ty.priv[0] = false
	ty.boot(t)

	select {
	case err := <-ty.faults:
		if !errors.Is(err, ErrPrivileged) {
			t.Fatalf("fault = %v, want ErrPrivileged", err)
		}
	default:
		t.Fatalf("no fault reported")
	}
}

func TestSimCPURejectsBadInitialFrame(t *testing.T) {
	ty := newToy(func() {})
	f := SwitchFrame{ExcReturn: ExcReturnThreadPSPNoFP}
	f.Regs.PC = 0x1234
	f.Regs.XPSR = XPSRThumb
	f.Put(ty.stacks[0][ty.sps[0]:])
	ty.boot(t)

	select {
	case err := <-ty.faults:
		if !errors.Is(err, ErrBadFrame) {
			t.Fatalf("fault = %v, want ErrBadFrame", err)
		}
	default:
		t.Fatalf("no fault reported")
	}
}

func TestSimCPUInterruptWakesIdle(t *testing.T) {
	var ty *toy
	ran := make(chan struct{})
	idling := make(chan struct{})
	ty = newToy(
		func() {
			close(idling)
			for {
				ty.cpu.WaitForInterrupt()
			}
		},
		func() {
			close(ran)
			<-ty.cpu.Halted()
		},
	)

	go func() {
		<-idling
		s := ty.cpu.DisableIRQ()
		ty.next = 1
		ty.cpu.PendSwitch()
		ty.cpu.RestoreIRQ(s)
	}()
	go func() {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
		}
		ty.cpu.Stop()
	}()
	ty.boot(t)

	select {
	case <-ran:
	default:
		t.Fatalf("interrupt did not switch away from the idle task")
	}
}

func TestSimCPULazyFP(t *testing.T) {
	var ty *toy
	var active bool
	var s0 float32
	ty = newToy(
		func() {
			ty.cpu.SetFP(0, 2.5)
			ty.switchTo(1)
			active = ty.cpu.FPActive()
			s0 = ty.cpu.FP(0)
			ty.cpu.Stop()
		},
		func() {
			if ty.cpu.FPActive() {
				t.Errorf("FPActive() = true in a task without FP context")
			}
			ty.cpu.SetFP(0, -1)
			ty.switchTo(0)
		},
	)
	ty.cpu.EnableLazyFP()
	ty.boot(t)

	if !active || s0 != 2.5 {
		t.Fatalf("FPActive, s0 = %v, %v, want true, 2.5", active, s0)
	}
}
