//go:build !tinygo && !cgo

package hal

// RunWindow reports ErrNoWindow: the ebiten backend needs cgo.
func RunWindow(_ func(h HAL) func() error) error {
	return ErrNoWindow
}
