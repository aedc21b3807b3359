package kernel

// sysno numbers the kernel calls.
type sysno uint8

const (
	sysStart sysno = iota
	sysTaskCreate
	sysTaskSelf
	sysTaskExit
	sysTaskYield
	sysTaskSleep
	sysTaskSuspend
	sysTaskResume
	sysTaskJoin
	sysMutexCreate
	sysMutexDestroy
	sysMutexLock
	sysMutexTryLock
	sysMutexUnlock
	sysCondCreate
	sysCondDestroy
	sysCondWait
	sysCondSignal
	sysCondBroadcast
	sysMQueueCreate
	sysMQueueDestroy
	sysMQueueEnqueue
	sysMQueueTryEnqueue
	sysMQueueDequeue
)

// request is a kernel call and its arguments.
type request struct {
	no sysno

	task     TaskID
	ticks    uint64
	settings *TaskSettings

	mutex   *Mutex
	ceiling int
	cond    *Cond

	mqueue   *MQueue
	data     []byte
	slots    int
	slotSize int
}

type response struct {
	task TaskID
	ok   bool
}

// syscall traps into the kernel. Any context switch the call causes is
// taken before syscall returns; a blocking call returns once the caller
// runs again.
func (k *Kernel) syscall(r request) response {
	var res response
	k.cpu.Trap(func() {
		res = k.dispatch(&r)
	})
	return res
}

func (k *Kernel) dispatch(r *request) response {
	var res response
	switch r.no {
	case sysStart:
		k.start()
	case sysTaskCreate:
		res.task = k.create(r.settings)
	case sysTaskSelf:
		res.task = k.self()
	case sysTaskExit:
		k.exit()
	case sysTaskYield:
		k.yield()
	case sysTaskSleep:
		k.sleep(r.ticks)
	case sysTaskSuspend:
		k.suspend()
	case sysTaskResume:
		k.resume(r.task)
	case sysTaskJoin:
		k.join(r.task)
	case sysMutexCreate:
		k.mutexCreate(r.mutex, r.ceiling)
	case sysMutexDestroy:
		k.mutexDestroy(r.mutex)
	case sysMutexLock:
		k.mutexLock(r.mutex)
	case sysMutexTryLock:
		res.ok = k.mutexTryLock(r.mutex)
	case sysMutexUnlock:
		k.mutexUnlock(r.mutex)
	case sysCondCreate:
		*r.cond = Cond{k: k}
	case sysCondDestroy:
		k.condDestroy(r.cond)
	case sysCondWait:
		k.condWait(r.cond, r.mutex)
	case sysCondSignal:
		k.condSignal(r.cond)
	case sysCondBroadcast:
		k.condBroadcast(r.cond)
	case sysMQueueCreate:
		k.mqueueCreate(r.mqueue, r.data, r.slots, r.slotSize)
	case sysMQueueDestroy:
		k.mqueueDestroy(r.mqueue)
	case sysMQueueEnqueue:
		k.mqueueEnqueue(r.mqueue, r.data)
	case sysMQueueTryEnqueue:
		res.ok = k.mqueueTryEnqueue(r.mqueue, r.data)
	case sysMQueueDequeue:
		k.mqueueDequeue(r.mqueue, r.data)
	default:
		k.internalAssert(false, "known sysno")
	}
	return res
}
