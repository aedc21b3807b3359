// Package app wires the kernel to a HAL: tick and keyboard interrupt
// sources, the on-screen monitor, trace sinks, fault reporting and the
// demo workload.
package app

import (
	"ember/hal"
	"ember/kernel"
	"ember/monitor"
	"ember/trace"
)

type Config struct {
	PriorityLevels int
	TicksPerSlice  uint32
	MaxTasks       int
	// Tracer receives kernel events alongside the monitor.
	Tracer kernel.Tracer
	// Quiet turns off the demo's periodic report lines.
	Quiet bool
}

type system struct {
	h    hal.HAL
	k    *kernel.Kernel
	mon  *monitor.Monitor
	demo *demo
}

// New initializes and starts the system with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig starts the kernel on its own goroutine and returns the
// per-frame step function that redraws the monitor.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	s.startInterrupts()
	go s.k.Start()
	return s.step
}

// Run starts the system and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

func RunWithConfig(h hal.HAL, cfg Config) {
	s, err := newSystem(h, cfg)
	if err != nil {
		h.Logger().WriteLineString("ember: " + err.Error())
		select {}
	}
	s.startInterrupts()
	s.k.Start()
	select {}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	s := &system{h: h, mon: monitor.New(fb)}

	tracer := kernel.Tracer(s.mon)
	if cfg.Tracer != nil {
		tracer = trace.Multi{s.mon, cfg.Tracer}
	}

	k, err := kernel.New(h.CPU(), kernel.Config{
		PriorityLevels: cfg.PriorityLevels,
		TicksPerSlice:  cfg.TicksPerSlice,
		MaxTasks:       cfg.MaxTasks,
		Tracer:         tracer,
		FaultHandler:   s.onFault,
	})
	if err != nil {
		return nil, err
	}
	s.k = k
	s.demo = newDemo(k, h, cfg.Quiet)
	s.demo.create()
	return s, nil
}

// startInterrupts forwards the HAL timer to Tick and key presses to the
// demo's interrupt handler.
func (s *system) startInterrupts() {
	if ht := s.h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for range ch {
					if s.k.Faulted() {
						return
					}
					s.k.Tick()
				}
			}()
		}
	}

	if in := s.h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			if ch := kbd.Events(); ch != nil {
				go func() {
					for ev := range ch {
						if s.k.Faulted() {
							return
						}
						s.demo.keyISR(ev)
					}
				}()
			}
		}
	}
}

func (s *system) step() error {
	if s.k.Faulted() {
		return nil
	}
	return s.mon.Render(s.k)
}

// onFault runs once, with interrupts disabled, on the faulting context.
func (s *system) onFault(f kernel.Fault) {
	if l := s.h.Logger(); l != nil {
		for _, line := range monitor.FaultLines(f) {
			l.WriteLineString(line)
		}
	}
	_ = s.mon.RenderFault(f)
}
