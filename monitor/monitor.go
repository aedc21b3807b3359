// Package monitor draws a live view of the kernel on a framebuffer: a task
// table refreshed from kernel snapshots and a log of the most recent
// scheduler events.
package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"ember/hal"
	"ember/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

var (
	colorBG       = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorFG       = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorDim      = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorHeaderBG = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xff}
	colorRunning  = color.RGBA{R: 0x4a, G: 0xdf, B: 0x6a, A: 0xff}
	colorBlocked  = color.RGBA{R: 0xff, G: 0xdd, B: 0x66, A: 0xff}
)

const (
	lineHeight = 10
	fontOffset = 7
	tableRows  = 10
	logHistory = 64
)

var font = &proggy.TinySZ8pt7b

// Source is what the monitor samples every frame.
type Source interface {
	Ticks() uint64
	Snapshot() []kernel.TaskInfo
}

// Monitor is a kernel.Tracer that renders to a framebuffer.
//
// TraceEvent may be called from any context. Render and Lines must be called
// from a single goroutine. RenderFault may race with Render; once it has run,
// Render leaves the fault screen alone.
type Monitor struct {
	fb   hal.Framebuffer
	d    *fbDisplay
	ev   ring
	cols int

	// mu guards the framebuffer and faulted.
	mu      sync.Mutex
	faulted bool

	log   [logHistory]string
	next  int
	count int
}

// New returns a monitor drawing on fb. A nil fb yields a monitor that only
// records events.
func New(fb hal.Framebuffer) *Monitor {
	m := &Monitor{fb: fb, d: newFBDisplay(fb)}
	_, fw := tinyfont.LineWidth(font, "0")
	if fw > 0 {
		w, _ := m.d.Size()
		m.cols = int(w) / int(fw)
	}
	return m
}

func (m *Monitor) TraceEvent(ev kernel.Event) { m.ev.tryPush(ev) }

// Dropped reports how many events arrived while the event ring was full.
func (m *Monitor) Dropped() uint32 { return m.ev.dropped.Load() }

// Lines returns the buffered event log, oldest first.
func (m *Monitor) Lines() []string {
	m.drain()
	out := make([]string, 0, m.count)
	for i := m.count; i > 0; i-- {
		out = append(out, m.log[(m.next-i+logHistory)%logHistory])
	}
	return out
}

func (m *Monitor) drain() {
	for {
		ev, ok := m.ev.tryPop()
		if !ok {
			return
		}
		m.log[m.next] = formatEvent(ev)
		m.next = (m.next + 1) % logHistory
		if m.count < logHistory {
			m.count++
		}
	}
}

// Render draws one frame and presents it.
func (m *Monitor) Render(src Source) error {
	lines := m.Lines()
	if m.fb == nil {
		return nil
	}
	// Sample before taking mu: the fault handler holds the kernel lock
	// while it waits for mu.
	tasks := src.Snapshot()
	ticks := src.Ticks()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.faulted {
		return nil
	}

	w, h := m.d.Size()
	m.d.FillRectangle(0, 0, w, h, colorBG)

	y := 0
	m.d.FillRectangle(0, 0, w, lineHeight+2, colorHeaderBG)
	m.text(2, y, colorFG, fmt.Sprintf("ember  tick %d  tasks %d  lost %d", ticks, len(tasks), m.Dropped()))
	y += lineHeight + 4

	m.text(2, y, colorDim, fmt.Sprintf("%-10s %-6s %-12s %3s %3s %7s", "TASK", "ID", "STATE", "PRI", "BAS", "RUN"))
	y += lineHeight
	for i, t := range tasks {
		if i == tableRows {
			m.text(2, y, colorDim, fmt.Sprintf("... %d more", len(tasks)-tableRows))
			y += lineHeight
			break
		}
		m.text(2, y, stateColor(t.State), fmt.Sprintf("%-10.10s %-6s %-12s %3d %3d %7d",
			t.Name, t.ID, t.State, t.Priority, t.BasePriority, t.RunTicks))
		y += lineHeight
	}
	y += 4

	if err := m.renderLog(m.d.region(0, y, m.d.w, int(h)-y), lines); err != nil {
		return err
	}
	return m.fb.Present()
}

// renderLog writes the newest lines that fit into d through a terminal sized
// to d. It never writes more rows than the terminal holds.
func (m *Monitor) renderLog(d *fbDisplay, lines []string) error {
	rows := d.h / lineHeight
	if rows <= 0 {
		return nil
	}
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}

	t := tinyterm.NewTerminal(d)
	t.Configure(&tinyterm.Config{
		Font:       font,
		FontHeight: lineHeight,
		FontOffset: fontOffset,
	})

	var buf bytes.Buffer
	for i, s := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if m.cols > 1 && len(s) >= m.cols {
			s = s[:m.cols-1]
		}
		buf.WriteString(s)
	}
	_, err := t.Write(buf.Bytes())
	return err
}

func (m *Monitor) text(x, y int, c color.RGBA, s string) {
	if m.cols > 1 && len(s) >= m.cols {
		s = s[:m.cols-1]
	}
	tinyfont.WriteLine(m.d, font, int16(x), int16(y+fontOffset), s, c)
}

func stateColor(s kernel.TaskState) color.RGBA {
	switch s {
	case kernel.TaskRunning:
		return colorRunning
	case kernel.TaskReady:
		return colorFG
	default:
		return colorBlocked
	}
}

func formatEvent(ev kernel.Event) string {
	if ev.Task == kernel.NoTask {
		return fmt.Sprintf("%6d %s", ev.Tick, ev.Kind)
	}
	return fmt.Sprintf("%6d %-6s %-10s %s p%d", ev.Tick, ev.Kind, ev.Name, ev.State, ev.Priority)
}
