package kernel

// The ready queue is one tlist per priority level, indexed by the task's
// effective priority.

func (k *Kernel) readyPushFront(i uint16) {
	k.pushFront(&k.ready[k.tasks[i].priority], i)
}

func (k *Kernel) readyPushBack(i uint16) {
	k.pushBack(&k.ready[k.tasks[i].priority], i)
}

// popHighest returns the front task of the highest non-empty level, or 0.
func (k *Kernel) popHighest() uint16 {
	for p := len(k.ready) - 1; p >= 0; p-- {
		if !k.ready[p].empty() {
			return k.popFront(&k.ready[p])
		}
	}
	return 0
}

// highestReady returns the highest level with a ready task, or -1.
func (k *Kernel) highestReady() int {
	for p := len(k.ready) - 1; p >= 0; p-- {
		if !k.ready[p].empty() {
			return p
		}
	}
	return -1
}

// soleAt reports whether no task other than the running one is ready at level p.
func (k *Kernel) soleAt(p int) bool {
	return k.ready[p].empty()
}
