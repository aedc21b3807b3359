package kernel

// Cond is a condition variable. It binds to the mutex of its first waiter
// and stays bound until no task waits on it.
type Cond struct {
	k       *Kernel
	mutex   *Mutex
	waiting tlist
}

// NewCond creates a condition variable.
func (k *Kernel) NewCond() *Cond {
	c := &Cond{k: k}
	k.syscall(request{no: sysCondCreate, cond: c})
	return c
}

// Destroy checks that no task waits on c.
func (c *Cond) Destroy() {
	c.k.syscall(request{no: sysCondDestroy, cond: c})
}

func (k *Kernel) condDestroy(c *Cond) {
	k.usageAssert(c.waiting.empty(), "c.waiting.empty()", "destroying a cond with waiters")
	k.internalAssert(c.mutex == nil, "c.mutex == nil")
}

// Wait unlocks m, blocks until signalled and returns with m locked again.
// The caller must own m.
func (c *Cond) Wait(m *Mutex) {
	c.k.syscall(request{no: sysCondWait, cond: c, mutex: m})
}

// Signal wakes the longest waiting task.
func (c *Cond) Signal() {
	c.k.syscall(request{no: sysCondSignal, cond: c})
}

// Broadcast wakes every waiting task.
func (c *Cond) Broadcast() {
	c.k.syscall(request{no: sysCondBroadcast, cond: c})
}

func (k *Kernel) condWait(c *Cond, m *Mutex) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.usageAssert(c.mutex == nil || c.mutex == m, "c.mutex == nil || c.mutex == m", "cond already bound to another mutex")
	k.usageAssert(m.owner == k.current, "m.owner == k.current", "cond wait without owning the mutex")

	// Blocked first, so the unlock hand-off cannot requeue the caller.
	i := k.block(TaskWaitingOnCond)
	k.mutexUnlock(m)
	c.mutex = m
	k.pushBack(&c.waiting, i)
}

// condWake moves the front waiter to the mutex: it owns it at once if free,
// otherwise it queues behind the other lockers.
func (k *Kernel) condWake(c *Cond) {
	i := k.popFront(&c.waiting)
	w := &k.tasks[i]
	k.internalAssert(w.state == TaskWaitingOnCond, "w.state == TaskWaitingOnCond")

	m := c.mutex
	w.priority = m.ceiling
	if m.owner == 0 {
		m.owner = i
		k.makeReady(i)
		return
	}
	w.state = TaskWaitingOnMutex
	k.pushBack(&m.blocked, i)
}

func (k *Kernel) condSignal(c *Cond) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	if !c.waiting.empty() {
		k.condWake(c)
	}
	if c.waiting.empty() {
		c.mutex = nil
	}
}

func (k *Kernel) condBroadcast(c *Cond) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	for !c.waiting.empty() {
		k.condWake(c)
	}
	c.mutex = nil
}
