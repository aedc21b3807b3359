package app

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"ember/hal"
	"ember/kernel"
)

const (
	prioLow  = 0
	prioMid  = 1
	prioHigh = 2

	demoStackSize = 2048
	sampleSlots   = 8
	keySlots      = 4
	reportEvery   = 50
)

// stats is shared by the filter and report tasks under demo.mu.
type stats struct {
	n        int
	sum      int64
	min, max int32
	fresh    bool
}

// demo is a small control-loop workload: a periodic sensor feeds a filter
// through a message queue, the filter publishes running stats to a reporter
// under a ceiling mutex and a condition variable, and key presses arrive
// from an interrupt handler.
type demo struct {
	k     *kernel.Kernel
	h     hal.HAL
	quiet bool

	samples *kernel.MQueue
	keys    *kernel.MQueue
	mu      *kernel.Mutex
	updated *kernel.Cond
	st      stats

	burst       kernel.TaskID
	workerStack []byte

	sent    atomic.Uint64
	reports atomic.Uint64
	bursts  atomic.Uint64
}

func newDemo(k *kernel.Kernel, h hal.HAL, quiet bool) *demo {
	top := k.Config().MaxPriority()
	return &demo{
		k:           k,
		h:           h,
		quiet:       quiet,
		samples:     k.NewMQueue(make([]byte, sampleSlots*4), sampleSlots, 4),
		keys:        k.NewMQueue(make([]byte, keySlots*4), keySlots, 4),
		mu:          k.NewMutex(min(prioHigh, top)),
		updated:     k.NewCond(),
		workerStack: kernel.NewStack(demoStackSize),
	}
}

func (d *demo) create() {
	top := d.k.Config().MaxPriority()
	high := min(prioHigh, top)
	d.spawn("sensor", high, d.sensor, true)
	d.spawn("filter", prioMid, d.filter, true)
	d.spawn("report", prioMid, d.report, true)
	d.spawn("keys", high, d.keyTask, true)
	d.spawn("blink", prioLow, d.blink, false)
	d.burst = d.spawn("burst", prioMid, d.burstTask, true)
}

func (d *demo) spawn(name string, prio int, fn func(), privileged bool) kernel.TaskID {
	return d.k.Create(kernel.TaskSettings{
		Name:       name,
		Function:   func(any) { fn() },
		Stack:      kernel.NewStack(demoStackSize),
		Priority:   prio,
		Privileged: privileged,
	})
}

func (d *demo) logf(format string, args ...any) {
	if d.quiet {
		return
	}
	if l := d.h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf(format, args...))
	}
}

// sensor produces a triangle wave every 5 ticks.
func (d *demo) sensor() {
	var msg [4]byte
	for n := int32(0); ; n++ {
		d.k.Sleep(5)
		v := n*7%200 - 100
		if v < 0 {
			v = -v
		}
		binary.LittleEndian.PutUint32(msg[:], uint32(v))
		d.samples.Enqueue(msg[:])
		d.sent.Add(1)
	}
}

func (d *demo) filter() {
	var msg [4]byte
	for {
		d.samples.Dequeue(msg[:])
		v := int32(binary.LittleEndian.Uint32(msg[:]))

		d.mu.Lock()
		if d.st.n == 0 || v < d.st.min {
			d.st.min = v
		}
		if d.st.n == 0 || v > d.st.max {
			d.st.max = v
		}
		d.st.n++
		d.st.sum += int64(v)
		d.st.fresh = true
		d.updated.Signal()
		d.mu.Unlock()
	}
}

func (d *demo) report() {
	for {
		d.mu.Lock()
		for !d.st.fresh {
			d.updated.Wait(d.mu)
		}
		d.st.fresh = false
		st := d.st
		d.mu.Unlock()

		if n := d.reports.Add(1); n%reportEvery == 0 {
			d.logf("report: n=%d avg=%d min=%d max=%d tick=%d",
				st.n, st.sum/int64(st.n), st.min, st.max, d.k.Ticks())
		}
	}
}

func (d *demo) blink() {
	led := d.h.LED()
	for on := false; ; on = !on {
		if led != nil {
			if on {
				led.High()
			} else {
				led.Low()
			}
		}
		d.k.Sleep(250)
	}
}

// keyISR runs on the keyboard interrupt.
func (d *demo) keyISR(ev hal.KeyEvent) {
	if !ev.Press {
		return
	}
	if ev.Code == hal.KeySpace {
		d.k.ResumeFromISR(d.burst)
	}
	var msg [4]byte
	binary.LittleEndian.PutUint16(msg[0:], uint16(ev.Code))
	binary.LittleEndian.PutUint16(msg[2:], uint16(ev.Rune))
	d.keys.TryEnqueueISR(msg[:])
}

func (d *demo) keyTask() {
	var msg [4]byte
	for {
		d.keys.Dequeue(msg[:])
		code := hal.KeyCode(binary.LittleEndian.Uint16(msg[0:]))
		r := rune(binary.LittleEndian.Uint16(msg[2:]))
		if r != 0 {
			d.logf("key: %q", r)
		} else {
			d.logf("key: code %d", code)
		}
	}
}

// burstTask sleeps suspended until the space key, then runs a short-lived
// worker to completion.
func (d *demo) burstTask() {
	for {
		d.k.Suspend()

		var sum uint64
		w := d.k.Create(kernel.TaskSettings{
			Name:     "worker",
			Function: func(any) { sum = d.work(200_000) },
			Stack:    d.workerStack,
			Priority: prioLow,
		})
		d.k.Join(w)
		n := d.bursts.Add(1)
		d.logf("burst %d: worker %s sum=%d tick=%d", n, w, sum, d.k.Ticks())
	}
}

func (d *demo) work(n int) uint64 {
	var sum uint64
	for i := 0; i < n; i++ {
		sum += uint64(i) * uint64(i)
		if i%1000 == 0 {
			d.k.Poll()
		}
	}
	return sum
}
