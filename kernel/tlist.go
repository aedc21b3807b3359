package kernel

// tlist is an intrusive doubly linked list of task slots. Links live in the
// tcb, so a task is on at most one list at a time. The zero value is empty.
type tlist struct {
	head, tail uint16
}

func (l *tlist) empty() bool { return l.head == 0 }

func (l *tlist) front() uint16 { return l.head }

func (k *Kernel) link(i uint16) *tcb {
	t := &k.tasks[i]
	k.internalAssert(i != 0 && !t.linked, "i != 0 && !t.linked")
	t.linked = true
	return t
}

func (k *Kernel) pushFront(l *tlist, i uint16) {
	t := k.link(i)
	t.prev = 0
	t.next = l.head
	if l.head != 0 {
		k.tasks[l.head].prev = i
	} else {
		l.tail = i
	}
	l.head = i
}

func (k *Kernel) pushBack(l *tlist, i uint16) {
	t := k.link(i)
	t.next = 0
	t.prev = l.tail
	if l.tail != 0 {
		k.tasks[l.tail].next = i
	} else {
		l.head = i
	}
	l.tail = i
}

// insertByWake keeps l sorted by ascending wake time. A task goes after
// tasks with the same wake time.
func (k *Kernel) insertByWake(l *tlist, i uint16) {
	wake := k.tasks[i].wakeTime
	at := l.head
	for at != 0 && k.tasks[at].wakeTime <= wake {
		at = k.tasks[at].next
	}
	if at == 0 {
		k.pushBack(l, i)
		return
	}
	if at == l.head {
		k.pushFront(l, i)
		return
	}

	t := k.link(i)
	before := &k.tasks[at]
	t.prev = before.prev
	t.next = at
	k.tasks[before.prev].next = i
	before.prev = i
}

func (k *Kernel) remove(l *tlist, i uint16) {
	t := &k.tasks[i]
	k.internalAssert(t.linked, "t.linked")
	if t.prev != 0 {
		k.tasks[t.prev].next = t.next
	} else {
		l.head = t.next
	}
	if t.next != 0 {
		k.tasks[t.next].prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.prev, t.next = 0, 0
	t.linked = false
}

func (k *Kernel) popFront(l *tlist) uint16 {
	k.internalAssert(!l.empty(), "!l.empty()")
	i := l.head
	k.remove(l, i)
	return i
}
