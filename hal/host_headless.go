//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is the kernel tick rate.
	Hz int
	// Ticks stops the run after that many ticks (0 = run forever).
	Ticks uint64
	// StepEvery calls the app step function every N ticks.
	StepEvery int
	// IRQEvery raises the external interrupt line (a space key press)
	// every N ticks (0 = never).
	IRQEvery uint64
}

var errTicksDone = errors.New("tick budget reached")

// RunHeadless runs the system without opening a window.
//
// It returns nil once cfg.Ticks ticks elapsed, ctx.Err() when ctx is done,
// and ErrHalted when the CPU halted on a fault.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 1000
	}
	if cfg.StepEvery <= 0 {
		cfg.StepEvery = 1
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := New().(*hostHAL)
	step := newApp(h)
	defer h.cpu.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()

		var tick uint64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				h.t.stepN(1)
				tick++
				if cfg.IRQEvery > 0 && tick%cfg.IRQEvery == 0 {
					h.kbd.inject(KeyEvent{Code: KeySpace, Press: true})
				}
				if step != nil && tick%uint64(cfg.StepEvery) == 0 {
					if err := step(); err != nil {
						return err
					}
				}
				if cfg.Ticks > 0 && tick >= cfg.Ticks {
					return errTicksDone
				}
			}
		}
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-h.cpu.Halted():
			return ErrHalted
		}
	})

	err := g.Wait()
	if errors.Is(err, errTicksDone) {
		return nil
	}
	return err
}
