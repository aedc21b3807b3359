package kernel

import "testing"

func listKernel(n int) *Kernel {
	return &Kernel{tasks: make([]tcb, n+1)}
}

func listSlots(k *Kernel, l *tlist) []uint16 {
	var out []uint16
	for i := l.head; i != 0; i = k.tasks[i].next {
		out = append(out, i)
	}
	return out
}

func equalSlots(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListPushPop(t *testing.T) {
	k := listKernel(4)
	var l tlist

	if !l.empty() {
		t.Fatalf("empty() = false for zero list")
	}
	k.pushBack(&l, 1)
	k.pushBack(&l, 2)
	k.pushFront(&l, 3)

	if got, want := listSlots(k, &l), []uint16{3, 1, 2}; !equalSlots(got, want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	if got := k.popFront(&l); got != 3 {
		t.Fatalf("popFront() = %d, want 3", got)
	}
	if k.tasks[3].linked {
		t.Fatalf("popped task still linked")
	}
	k.pushBack(&l, 3)
	if got, want := listSlots(k, &l), []uint16{1, 2, 3}; !equalSlots(got, want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	if l.tail != 3 {
		t.Fatalf("tail = %d, want 3", l.tail)
	}
}

func TestListRemoveMiddle(t *testing.T) {
	k := listKernel(3)
	var l tlist
	for i := uint16(1); i <= 3; i++ {
		k.pushBack(&l, i)
	}

	k.remove(&l, 2)
	if got, want := listSlots(k, &l), []uint16{1, 3}; !equalSlots(got, want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	if k.tasks[3].prev != 1 {
		t.Fatalf("prev of 3 = %d, want 1", k.tasks[3].prev)
	}

	k.remove(&l, 1)
	k.remove(&l, 3)
	if !l.empty() || l.tail != 0 {
		t.Fatalf("list not empty after removing all: %+v", l)
	}
}

func TestListInsertByWakeIsStable(t *testing.T) {
	k := listKernel(6)
	wakes := map[uint16]uint64{1: 30, 2: 10, 3: 20, 4: 10, 5: 40, 6: 5}
	var l tlist
	for i := uint16(1); i <= 6; i++ {
		k.tasks[i].wakeTime = wakes[i]
		k.insertByWake(&l, i)
	}

	want := []uint16{6, 2, 4, 3, 1, 5}
	if got := listSlots(k, &l); !equalSlots(got, want) {
		t.Fatalf("list = %v, want %v", got, want)
	}

	var back []uint16
	for i := l.tail; i != 0; i = k.tasks[i].prev {
		back = append(back, i)
	}
	if got, wantBack := back, []uint16{5, 1, 3, 4, 2, 6}; !equalSlots(got, wantBack) {
		t.Fatalf("reverse list = %v, want %v", got, wantBack)
	}
}

func TestReadyQueuePopHighest(t *testing.T) {
	k := listKernel(4)
	k.ready = make([]tlist, 3)
	prio := map[uint16]int{1: 0, 2: 2, 3: 1, 4: 2}
	for i := uint16(1); i <= 4; i++ {
		k.tasks[i].priority = prio[i]
		k.readyPushBack(i)
	}

	if k.soleAt(2) {
		t.Fatalf("soleAt(2) = true with two tasks at level 2")
	}
	want := []uint16{2, 4, 3, 1, 0}
	for _, w := range want {
		if got := k.popHighest(); got != w {
			t.Fatalf("popHighest() = %d, want %d", got, w)
		}
	}
	if k.highestReady() != -1 {
		t.Fatalf("highestReady() = %d, want -1", k.highestReady())
	}
}
