package kernel

import (
	"errors"
	"fmt"
)

const (
	// DefaultPriorityLevels is the number of ready lists when Config leaves it unset.
	DefaultPriorityLevels = 3

	// DefaultTicksPerSlice is the round-robin time slice in ticks.
	DefaultTicksPerSlice = 10

	// DefaultMaxTasks is the number of task slots, not counting the idle task.
	DefaultMaxTasks = 32

	// MinStackSize is the smallest stack a task may be created with.
	MinStackSize = 256

	maxTaskSlots = 1<<16 - 2
)

// ErrConfig is returned by New for an unusable Config.
var ErrConfig = errors.New("invalid kernel config")

// Config holds kernel build-time parameters. Zero fields take defaults.
type Config struct {
	// PriorityLevels is the number of priorities, 0 (lowest) to
	// PriorityLevels-1. At least 2.
	PriorityLevels int

	// TicksPerSlice is the time slice of equal-priority round robin.
	TicksPerSlice uint32

	// MaxTasks bounds the number of live tasks. Slots of exited tasks are reused.
	MaxTasks int

	// Tracer receives scheduling events. It may be nil.
	Tracer Tracer

	// FaultHandler is called once, on the first fault, before the CPU halts.
	FaultHandler func(Fault)
}

func (c Config) withDefaults() (Config, error) {
	if c.PriorityLevels == 0 {
		c.PriorityLevels = DefaultPriorityLevels
	}
	if c.TicksPerSlice == 0 {
		c.TicksPerSlice = DefaultTicksPerSlice
	}
	if c.MaxTasks == 0 {
		c.MaxTasks = DefaultMaxTasks
	}

	if c.PriorityLevels < 2 {
		return c, fmt.Errorf("priority levels %d, need at least 2: %w", c.PriorityLevels, ErrConfig)
	}
	if c.MaxTasks < 0 || c.MaxTasks > maxTaskSlots {
		return c, fmt.Errorf("max tasks %d out of range: %w", c.MaxTasks, ErrConfig)
	}
	return c, nil
}

// MaxPriority returns the highest task priority.
func (c Config) MaxPriority() int { return c.PriorityLevels - 1 }
