package kernel

// MQueue is a bounded FIFO of fixed-size messages in caller memory.
//
// A message sent while a consumer waits goes straight into the consumer's
// buffer; a slot freed while a producer waits is refilled from the
// producer's buffer.
type MQueue struct {
	k        *Kernel
	buf      []byte
	slots    int
	slotSize int

	head, tail int
	full       bool

	// waiting holds consumers while the queue is empty and producers while
	// it is full.
	waiting tlist
}

// NewMQueue creates a queue of slots messages of slotSize bytes stored in buf.
func (k *Kernel) NewMQueue(buf []byte, slots, slotSize int) *MQueue {
	q := &MQueue{k: k}
	k.syscall(request{no: sysMQueueCreate, mqueue: q, data: buf, slots: slots, slotSize: slotSize})
	return q
}

func (k *Kernel) mqueueCreate(q *MQueue, buf []byte, slots, slotSize int) {
	k.usageAssert(slots > 0 && slotSize > 0, "slots > 0 && slotSize > 0", "queue needs at least one non-empty slot")
	k.usageAssert(len(buf) >= slots*slotSize, "len(buf) >= slots*slotSize", "queue buffer too small")
	q.buf = buf[:slots*slotSize]
	q.slots = slots
	q.slotSize = slotSize
}

// SlotSize returns the message size.
func (q *MQueue) SlotSize() int { return q.slotSize }

// Destroy checks that no task waits on q.
func (q *MQueue) Destroy() {
	q.k.syscall(request{no: sysMQueueDestroy, mqueue: q})
}

func (k *Kernel) mqueueDestroy(q *MQueue) {
	k.usageAssert(q.waiting.empty(), "q.waiting.empty()", "destroying a queue with waiters")
}

// Enqueue copies msg into the queue, blocking while it is full.
func (q *MQueue) Enqueue(msg []byte) {
	q.k.syscall(request{no: sysMQueueEnqueue, mqueue: q, data: msg})
}

// TryEnqueue is Enqueue without blocking. It reports whether msg was queued.
func (q *MQueue) TryEnqueue(msg []byte) bool {
	return q.k.syscall(request{no: sysMQueueTryEnqueue, mqueue: q, data: msg}).ok
}

// TryEnqueueISR is TryEnqueue for interrupt handlers.
func (q *MQueue) TryEnqueueISR(msg []byte) bool {
	s := q.k.cpu.DisableIRQ()
	ok := q.k.mqueueTryEnqueue(q, msg)
	q.k.cpu.RestoreIRQ(s)
	return ok
}

// Dequeue copies the oldest message into dst, blocking while the queue is empty.
func (q *MQueue) Dequeue(dst []byte) {
	q.k.syscall(request{no: sysMQueueDequeue, mqueue: q, data: dst})
}

// Len returns the number of queued messages.
func (q *MQueue) Len() int {
	s := q.k.cpu.DisableIRQ()
	defer q.k.cpu.RestoreIRQ(s)
	return q.count()
}

func (q *MQueue) count() int {
	if q.full {
		return q.slots
	}
	return (q.head - q.tail + q.slots) % q.slots
}

func (q *MQueue) slot(i int) []byte {
	return q.buf[i*q.slotSize : (i+1)*q.slotSize]
}

func (q *MQueue) push(msg []byte) {
	copy(q.slot(q.head), msg)
	q.head = (q.head + 1) % q.slots
	q.full = q.head == q.tail
}

func (q *MQueue) pop(dst []byte) {
	copy(dst, q.slot(q.tail))
	q.tail = (q.tail + 1) % q.slots
	q.full = false
}

func (k *Kernel) mqueueTryEnqueue(q *MQueue, msg []byte) bool {
	k.usageAssert(len(msg) == q.slotSize, "len(msg) == q.slotSize", "message size does not match queue slot size")
	if q.full {
		return false
	}
	if !q.waiting.empty() {
		i := k.popFront(&q.waiting)
		w := &k.tasks[i]
		k.internalAssert(w.state == TaskWaitingToDequeue, "w.state == TaskWaitingToDequeue")
		copy(w.mqData, msg)
		w.mqData = nil
		k.makeReady(i)
		return true
	}
	q.push(msg)
	return true
}

func (k *Kernel) mqueueEnqueue(q *MQueue, msg []byte) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	if k.mqueueTryEnqueue(q, msg) {
		return
	}
	k.tasks[k.current].mqData = msg
	i := k.block(TaskWaitingToEnqueue)
	k.pushBack(&q.waiting, i)
}

func (k *Kernel) mqueueDequeue(q *MQueue, dst []byte) {
	k.usageAssert(k.started, "k.started", "kernel not started")
	k.usageAssert(len(dst) == q.slotSize, "len(dst) == q.slotSize", "buffer size does not match queue slot size")

	if q.count() == 0 {
		k.tasks[k.current].mqData = dst
		i := k.block(TaskWaitingToDequeue)
		k.pushBack(&q.waiting, i)
		return
	}

	q.pop(dst)
	if !q.waiting.empty() {
		i := k.popFront(&q.waiting)
		w := &k.tasks[i]
		k.internalAssert(w.state == TaskWaitingToEnqueue, "w.state == TaskWaitingToEnqueue")
		q.push(w.mqData)
		w.mqData = nil
		k.makeReady(i)
	}
}
