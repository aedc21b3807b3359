package main

import (
	"fmt"

	"github.com/fogleman/gg"
)

const (
	rowHeight   = 18
	labelWidth  = 110
	axisHeight  = 20
	chartMargin = 8
)

// prioColors is indexed by task priority, wrapping for larger ranges.
var prioColors = [][3]int{
	{0x88, 0x88, 0x88},
	{0x4a, 0x90, 0xdf},
	{0x4a, 0xdf, 0x6a},
	{0xff, 0xaa, 0x33},
	{0xdf, 0x4a, 0x4a},
}

// renderGantt draws one row per task, in order of first appearance, with a
// bar for every segment the task ran.
func renderGantt(segs []segment, end uint64, width int) *gg.Context {
	var rows []uint32
	rowOf := make(map[uint32]int)
	names := make(map[uint32]string)
	for _, s := range segs {
		if _, ok := rowOf[s.id]; !ok {
			rowOf[s.id] = len(rows)
			rows = append(rows, s.id)
			names[s.id] = s.task
		}
	}

	if width < labelWidth+2*chartMargin+10 {
		width = labelWidth + 2*chartMargin + 10
	}
	height := 2*chartMargin + axisHeight + len(rows)*rowHeight
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(width - labelWidth - 2*chartMargin)
	span := float64(end)
	if span == 0 {
		span = 1
	}
	x0 := float64(chartMargin + labelWidth)
	xOf := func(tick uint64) float64 { return x0 + plotW*float64(tick)/span }

	for i, id := range rows {
		y := float64(chartMargin + i*rowHeight)
		if i%2 == 1 {
			dc.SetRGB255(0xf2, 0xf2, 0xf2)
			dc.DrawRectangle(x0, y, plotW, rowHeight)
			dc.Fill()
		}
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(names[id], chartMargin, y+rowHeight/2, 0, 0.5)
	}

	for _, s := range segs {
		c := prioColors[s.prio%len(prioColors)]
		dc.SetRGB255(c[0], c[1], c[2])
		x := xOf(s.start)
		w := xOf(s.end) - x
		if w < 1 {
			w = 1
		}
		y := float64(chartMargin + rowOf[s.id]*rowHeight)
		dc.DrawRectangle(x, y+2, w, rowHeight-4)
		dc.Fill()
	}

	axisY := float64(chartMargin + len(rows)*rowHeight)
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(x0, axisY, x0+plotW, axisY)
	dc.Stroke()
	dc.DrawStringAnchored("0", x0, axisY+axisHeight/2, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d ticks", end), x0+plotW, axisY+axisHeight/2, 1, 0.5)
	return dc
}
