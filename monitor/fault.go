package monitor

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"ember/kernel"
)

var (
	colorFaultBG = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorFaultFG = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
)

// FaultLines returns the report shown for f, one entry per line before wrapping.
func FaultLines(f kernel.Fault) []string {
	lines := []string{
		"ember fault: " + f.Kind.String(),
		fmt.Sprintf("task: %s", f.Task),
	}
	switch f.Kind {
	case kernel.FaultPanic:
		lines = append(lines, fmt.Sprintf("panic: %v", f.Value))
	case kernel.FaultHard:
		lines = append(lines, fmt.Sprintf("error: %v", f.Err))
	default:
		if f.File != "" {
			lines = append(lines, fmt.Sprintf("at: %s:%d", f.File, f.Line))
		}
		lines = append(lines, f.Msg)
		if f.Cond != "" {
			lines = append(lines, "check: "+f.Cond)
		}
	}
	if len(f.Stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(f.Stack), "\n") {
			if line == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// RenderFault replaces the monitor with a fault screen and presents it.
// It is safe to call from a fault handler.
func (m *Monitor) RenderFault(f kernel.Fault) error {
	if m.fb == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faulted = true

	w, h := m.d.Size()
	m.d.FillRectangle(0, 0, w, h, colorFaultBG)

	cols := m.cols - 1
	if cols <= 0 {
		cols = 1
	}
	y := 0
	for _, line := range FaultLines(f) {
		for len(line) > 0 {
			if y+lineHeight > int(h) {
				return m.fb.Present()
			}
			chunk, rest := takeRunes(line, cols)
			m.text(0, y, colorFaultFG, chunk)
			y += lineHeight
			line = strings.TrimLeft(rest, " \t")
		}
	}
	return m.fb.Present()
}

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	var i, count int
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
