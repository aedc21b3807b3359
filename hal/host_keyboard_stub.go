//go:build !tinygo && !cgo

package hal

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

// poll has nothing to read without the window backend; events only come
// from inject.
func (k *hostKeyboard) poll() {}

func (k *hostKeyboard) inject(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}
