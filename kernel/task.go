package kernel

import "math"

// Create creates a ready task and returns its handle. It may be called
// before or after Start. A task created by a lower-priority task preempts it.
func (k *Kernel) Create(s TaskSettings) TaskID {
	return k.syscall(request{no: sysTaskCreate, settings: &s}).task
}

func (k *Kernel) create(s *TaskSettings) TaskID {
	k.usageAssert(s.Function != nil, "s.Function != nil", "task function is nil")
	k.usageAssert(s.Priority >= 0 && s.Priority <= k.cfg.MaxPriority(),
		"0 <= s.Priority <= MaxPriority", "task priority out of range")
	slot := k.allocSlot()
	k.usageAssert(slot != 0, "slot != 0", "no free task slot")

	id := k.taskInit(slot, s)
	k.emit(EventCreate, slot)
	k.makeReady(slot)
	return id
}

// Self returns the handle of the running task.
func (k *Kernel) Self() TaskID {
	return k.syscall(request{no: sysTaskSelf}).task
}

func (k *Kernel) self() TaskID {
	k.usageAssert(k.started, "k.started", "kernel not started")
	return k.idOf(k.current)
}

// Exit ends the running task and wakes its joiners. It does not return.
func (k *Kernel) Exit() {
	k.syscall(request{no: sysTaskExit})
}

func (k *Kernel) exit() {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.usageAssert(k.current != idleSlot, "k.current != idleSlot", "idle task cannot exit")

	i := k.current
	t := &k.tasks[i]
	t.state = TaskExited
	k.emit(EventExit, i)

	// No current task: the switch handler will not save the exited context
	// and woken joiners cannot preempt it.
	k.current = 0
	for !t.joiners.empty() {
		j := k.popFront(&t.joiners)
		k.internalAssert(k.tasks[j].state == TaskWaitingForJoin, "state == TaskWaitingForJoin")
		k.makeReady(j)
	}
	t.fn, t.arg, t.stack = nil, nil, nil
	k.cpu.PendSwitch()
}

// Yield gives the CPU to the next ready task of the same priority and
// restarts the caller's time slice. Without such a task it returns at once.
func (k *Kernel) Yield() {
	k.syscall(request{no: sysTaskYield})
}

func (k *Kernel) yield() {
	k.usageAssert(k.started, "k.started", "kernel not started")
	t := &k.tasks[k.current]
	t.slice = k.cfg.TicksPerSlice
	if k.soleAt(t.priority) {
		return
	}
	t.state = TaskReady
	k.readyPushBack(k.current)
	k.cpu.PendSwitch()
}

// Sleep blocks the running task for n ticks. Wake times past the end of the
// tick counter saturate, so a task asleep that long never wakes.
func (k *Kernel) Sleep(n uint64) {
	k.syscall(request{no: sysTaskSleep, ticks: n})
}

func (k *Kernel) sleep(n uint64) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.usageAssert(n > 0, "n > 0", "sleep ticks must be greater than zero")
	wake := k.ticks + n
	if wake < k.ticks {
		wake = math.MaxUint64
	}
	k.tasks[k.current].wakeTime = wake
	i := k.block(TaskSleeping)
	k.insertByWake(&k.sleeping, i)
}

// Suspend blocks the running task until another task or an interrupt
// resumes it.
func (k *Kernel) Suspend() {
	k.syscall(request{no: sysTaskSuspend})
}

func (k *Kernel) suspend() {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.block(TaskSuspended)
}

// Resume makes a suspended task ready. Resuming a task that is not
// suspended does nothing.
func (k *Kernel) Resume(id TaskID) {
	k.syscall(request{no: sysTaskResume, task: id})
}

// ResumeFromISR is Resume for interrupt handlers.
func (k *Kernel) ResumeFromISR(id TaskID) {
	s := k.cpu.DisableIRQ()
	k.resume(id)
	k.cpu.RestoreIRQ(s)
}

func (k *Kernel) resume(id TaskID) {
	k.usageAssert(id != NoTask, "id != NoTask", "resume of nil task handle")
	if !k.started {
		return
	}
	i, ok := k.resolve(id)
	if !ok || k.tasks[i].state != TaskSuspended {
		return
	}
	k.makeReady(i)
}

// Join blocks until task id exits. Joining a task that already exited
// returns at once. Joiners are woken in the order they joined.
func (k *Kernel) Join(id TaskID) {
	k.syscall(request{no: sysTaskJoin, task: id})
}

func (k *Kernel) join(id TaskID) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.usageAssert(id != NoTask, "id != NoTask", "join of nil task handle")
	i, ok := k.resolve(id)
	if !ok || k.tasks[i].state == TaskExited {
		return
	}
	k.usageAssert(i != k.current, "i != k.current", "task cannot join itself")
	k.usageAssert(i != idleSlot, "i != idleSlot", "cannot join the idle task")

	self := k.block(TaskWaitingForJoin)
	k.pushBack(&k.tasks[i].joiners, self)
}

// TaskInfo is a row of Snapshot.
type TaskInfo struct {
	ID           TaskID
	Name         string
	State        TaskState
	Priority     int
	BasePriority int
	StackSize    int
	RunTicks     uint64
	Switches     uint64
}

// Snapshot returns the live tasks, idle task included.
func (k *Kernel) Snapshot() []TaskInfo {
	s := k.cpu.DisableIRQ()
	defer k.cpu.RestoreIRQ(s)

	var out []TaskInfo
	for i := idleSlot; i < len(k.tasks); i++ {
		t := &k.tasks[i]
		if t.state == TaskFree || t.state == TaskExited {
			continue
		}
		out = append(out, TaskInfo{
			ID:           makeTaskID(uint16(i), t.gen),
			Name:         t.name,
			State:        t.state,
			Priority:     t.priority,
			BasePriority: t.basePriority,
			StackSize:    len(t.stack),
			RunTicks:     t.runTicks,
			Switches:     t.switches,
		})
	}
	return out
}
