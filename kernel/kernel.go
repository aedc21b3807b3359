package kernel

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"ember/hal"
)

const (
	idleSlot      = 1
	firstTaskSlot = 2

	idleStackSize = MinStackSize
)

// Kernel is a priority-preemptive scheduler for one CPU.
//
// Task-context operations enter the kernel through CPU.Trap. Tick,
// ResumeFromISR, TryEnqueueISR, Snapshot and Ticks may be called from
// interrupt context.
type Kernel struct {
	cpu hal.CPU
	cfg Config

	// tasks is the TCB arena. Slot 0 is the nil slot, slot 1 the idle task.
	tasks []tcb

	current    uint16
	started    bool
	preempting bool
	ticks      uint64

	ready    []tlist
	sleeping tlist

	idleStack [idleStackSize / 8]uint64

	faultOnce    sync.Once
	faulted      atomic.Bool
	faultHandler atomic.Value // func(Fault)
	lastFault    atomic.Value // Fault
}

// New creates a kernel on cpu and installs its exception hooks.
func New(cpu hal.CPU, cfg Config) (*Kernel, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		cpu:   cpu,
		cfg:   cfg,
		tasks: make([]tcb, firstTaskSlot+cfg.MaxTasks),
		ready: make([]tlist, cfg.PriorityLevels),
	}
	if cfg.FaultHandler != nil {
		k.faultHandler.Store(cfg.FaultHandler)
	}

	cpu.Attach(hal.Hooks{
		Outgoing: k.outgoing,
		Switch:   k.chooseNext,
		Entry:    k.entry,
		Fault:    k.hardFault,
	})
	return k, nil
}

// Config returns the effective configuration.
func (k *Kernel) Config() Config { return k.cfg }

// Start starts scheduling. It must be called exactly once, after the
// initial tasks were created.
//
// Start does not return while the CPU runs. On the simulated CPU it
// returns after the CPU halted.
func (k *Kernel) Start() {
	k.syscall(request{no: sysStart})
}

func (k *Kernel) start() {
	k.usageAssert(!k.started, "!k.started", "kernel already started")
	k.started = true
	k.cpu.EnableLazyFP()

	k.taskInit(idleSlot, &TaskSettings{
		Name:       "idle",
		Function:   k.idle,
		Stack:      unsafe.Slice((*byte)(unsafe.Pointer(&k.idleStack[0])), idleStackSize),
		Priority:   0,
		Privileged: true,
	})
	k.emit(EventStart, 0)
	k.cpu.PendSwitch()
}

func (k *Kernel) idle(any) {
	for {
		k.cpu.WaitForInterrupt()
	}
}

// Tick advances kernel time by one tick. Call it from the timer interrupt.
func (k *Kernel) Tick() {
	s := k.cpu.DisableIRQ()
	k.tick()
	k.cpu.RestoreIRQ(s)
}

func (k *Kernel) tick() {
	if !k.started || k.current == 0 {
		return
	}
	k.ticks++

	cur := &k.tasks[k.current]
	running := cur.state == TaskRunning
	onIdle := k.current == idleSlot

	rotate := false
	if running {
		cur.runTicks++
		if !onIdle {
			cur.slice--
			if cur.slice == 0 {
				cur.slice = k.cfg.TicksPerSlice
				rotate = !k.soleAt(cur.priority)
			}
		}
	}

	preempt := false
	for !k.sleeping.empty() && k.tasks[k.sleeping.front()].wakeTime <= k.ticks {
		i := k.popFront(&k.sleeping)
		w := &k.tasks[i]
		k.internalAssert(w.state == TaskSleeping, "w.state == TaskSleeping")
		w.state = TaskReady
		k.readyPushBack(i)
		k.emit(EventReady, i)
		if onIdle || w.priority > cur.priority {
			preempt = true
		}
	}

	if !running || k.preempting || !(rotate || preempt) {
		return
	}
	k.preempting = true
	cur.state = TaskReady
	switch {
	case onIdle:
	case rotate:
		k.readyPushBack(k.current)
	default:
		k.readyPushFront(k.current)
	}
	k.cpu.PendSwitch()
}

// Ticks returns the number of ticks since Start.
func (k *Kernel) Ticks() uint64 {
	s := k.cpu.DisableIRQ()
	n := k.ticks
	k.cpu.RestoreIRQ(s)
	return n
}

// Poll is a preemption point for task code that runs without entering the
// kernel for long stretches.
func (k *Kernel) Poll() { k.cpu.Poll() }

// makeReady puts a blocked task on its ready list and preempts the running
// task if the woken one outranks it.
func (k *Kernel) makeReady(i uint16) {
	t := &k.tasks[i]
	t.state = TaskReady
	k.readyPushBack(i)
	k.emit(EventReady, i)
	k.preemptFor(t.priority)
}

// preemptFor demotes the running task to the front of its ready list when a
// task of priority p is ready and outranks it. The idle task yields to any
// ready task.
func (k *Kernel) preemptFor(p int) {
	if k.current == 0 || k.preempting {
		return
	}
	cur := &k.tasks[k.current]
	if cur.state != TaskRunning {
		return
	}
	if k.current != idleSlot && p <= cur.priority {
		return
	}

	k.preempting = true
	cur.state = TaskReady
	if k.current != idleSlot {
		k.readyPushFront(k.current)
	}
	k.cpu.PendSwitch()
}

// checkPreempt preempts the running task if any ready task outranks it.
func (k *Kernel) checkPreempt() {
	if p := k.highestReady(); p >= 0 {
		k.preemptFor(p)
	}
}

// block takes the running task off the CPU in state st. The caller puts it
// on the list it waits on.
func (k *Kernel) block(st TaskState) uint16 {
	i := k.current
	t := &k.tasks[i]
	k.internalAssert(t.state == TaskRunning, "t.state == TaskRunning")
	t.state = st
	k.emit(EventBlock, i)
	k.cpu.PendSwitch()
	return i
}

func (k *Kernel) outgoing() ([]byte, bool) {
	if k.current == 0 {
		return nil, false
	}
	return k.tasks[k.current].stack, true
}

// chooseNext is the context switch handler. savedSP is where the outgoing
// task's frame was saved, or meaningless if there was none.
func (k *Kernel) chooseNext(savedSP int) hal.Context {
	if k.current != 0 {
		cur := &k.tasks[k.current]
		if savedSP < 0 {
			k.fail(Fault{
				Kind: FaultStackOverflow,
				Msg:  "task stack overflow",
				Cond: "savedSP >= 0",
			})
		}
		k.internalAssert(cur.state != TaskRunning, "cur.state != TaskRunning")
		cur.sp = savedSP
	}

	next := k.popHighest()
	if next == 0 {
		next = idleSlot
	}
	t := &k.tasks[next]
	k.internalAssert(t.state == TaskReady, "t.state == TaskReady")
	t.state = TaskRunning
	t.switches++
	k.preempting = false
	k.current = next
	k.emit(EventSwitch, next)

	return hal.Context{Stack: t.stack, SP: t.sp, Privileged: t.privileged}
}

// entry is the task entry stub. r0 holds the task handle.
func (k *Kernel) entry(r0, _ uint32) {
	t := &k.tasks[TaskID(r0).slot()]
	k.run(t.fn, t.arg)
	k.Exit()
}

func (k *Kernel) run(fn TaskFunc, arg any) {
	defer func() {
		// recover is nil while the goroutine exits on halt.
		if r := recover(); r != nil {
			k.cpu.DisableIRQ()
			k.fail(Fault{Kind: FaultPanic, Value: r, Stack: captureStack()})
		}
	}()
	fn(arg)
}

func (k *Kernel) hardFault(err error) {
	k.report(Fault{Kind: FaultHard, Err: err, Msg: err.Error()})
}
