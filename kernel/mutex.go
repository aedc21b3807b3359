package kernel

// Mutex is a kernel mutex with immediate priority ceiling: its owner runs
// at the ceiling priority until it unlocks. Blocked lockers acquire it in
// FIFO order.
type Mutex struct {
	k       *Kernel
	owner   uint16
	blocked tlist
	ceiling int
}

// NewMutex creates a mutex with the given priority ceiling, the highest
// priority of any task that locks it.
func (k *Kernel) NewMutex(ceiling int) *Mutex {
	m := &Mutex{k: k}
	k.syscall(request{no: sysMutexCreate, mutex: m, ceiling: ceiling})
	return m
}

func (k *Kernel) mutexCreate(m *Mutex, ceiling int) {
	k.usageAssert(ceiling >= 0 && ceiling <= k.cfg.MaxPriority(),
		"0 <= ceiling <= MaxPriority", "mutex ceiling out of range")
	m.ceiling = ceiling
}

// Ceiling returns the mutex priority ceiling.
func (m *Mutex) Ceiling() int { return m.ceiling }

// Destroy checks that the mutex is unlocked and unused.
func (m *Mutex) Destroy() {
	m.k.syscall(request{no: sysMutexDestroy, mutex: m})
}

func (k *Kernel) mutexDestroy(m *Mutex) {
	k.usageAssert(m.owner == 0, "m.owner == 0", "destroying a locked mutex")
	k.internalAssert(m.blocked.empty(), "m.blocked.empty()")
}

// Lock acquires the mutex, blocking while another task owns it.
func (m *Mutex) Lock() {
	m.k.syscall(request{no: sysMutexLock, mutex: m})
}

// TryLock acquires the mutex if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	return m.k.syscall(request{no: sysMutexTryLock, mutex: m}).ok
}

// Unlock releases the mutex, handing it to the first blocked task if any.
// The caller drops back to its base priority.
func (m *Mutex) Unlock() {
	m.k.syscall(request{no: sysMutexUnlock, mutex: m})
}

func (k *Kernel) mutexTryLock(m *Mutex) bool {
	k.usageAssert(k.started, "k.started", "kernel not started")
	cur := &k.tasks[k.current]
	k.usageAssert(cur.priority <= m.ceiling, "cur.priority <= m.ceiling", "task priority above mutex ceiling")
	k.usageAssert(m.owner != k.current, "m.owner != k.current", "mutex locked twice")

	if m.owner != 0 {
		return false
	}
	k.internalAssert(m.blocked.empty(), "m.blocked.empty()")
	cur.priority = m.ceiling
	m.owner = k.current
	return true
}

func (k *Kernel) mutexLock(m *Mutex) {
	if k.mutexTryLock(m) {
		return
	}
	k.tasks[k.current].priority = m.ceiling
	i := k.block(TaskWaitingOnMutex)
	k.pushBack(&m.blocked, i)
}

func (k *Kernel) mutexUnlock(m *Mutex) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.usageAssert(m.owner == k.current, "m.owner == k.current", "mutex unlocked by a task that does not own it")

	cur := &k.tasks[k.current]
	cur.priority = cur.basePriority

	if m.blocked.empty() {
		m.owner = 0
	} else {
		next := k.popFront(&m.blocked)
		k.internalAssert(k.tasks[next].state == TaskWaitingOnMutex, "state == TaskWaitingOnMutex")
		m.owner = next
		k.makeReady(next)
	}
	// Ready tasks the ceiling held off may now outrank the caller.
	k.checkPreempt()
}
