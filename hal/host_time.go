//go:build !tinygo

package hal

import "time"

// DefaultTickPeriod is the kernel tick period of the host timer.
const DefaultTickPeriod = time.Millisecond

type hostTime struct {
	ch     chan uint64
	seq    uint64
	period time.Duration

	last time.Time
	acc  time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024), period: DefaultTickPeriod}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// advance emits as many ticks as wall time elapsed since the previous call.
func (t *hostTime) advance() {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.period)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % t.period
	t.stepN(ticks)
}

// stepN emits n ticks. Ticks are dropped when the consumer falls behind,
// like a timer interrupt that fires while its flag is still set.
func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
