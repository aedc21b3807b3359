package monitor

import (
	"image/color"

	"ember/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay is a drivers.Displayer over a rectangle of a hal.Framebuffer.
// Pixels outside the rectangle are clipped.
type fbDisplay struct {
	fb   hal.Framebuffer
	x, y int
	w, h int
}

func newFBDisplay(fb hal.Framebuffer) *fbDisplay {
	if fb == nil {
		return &fbDisplay{}
	}
	return &fbDisplay{fb: fb, w: fb.Width(), h: fb.Height()}
}

// region returns a view of the rectangle at (x, y) clipped to d.
func (d *fbDisplay) region(x, y, w, h int) *fbDisplay {
	x0 := clampInt(x, 0, d.w)
	y0 := clampInt(y, 0, d.h)
	x1 := clampInt(x+w, 0, d.w)
	y1 := clampInt(y+h, 0, d.h)
	return &fbDisplay{fb: d.fb, x: d.x + x0, y: d.y + y0, w: x1 - x0, h: y1 - y0}
}

func (d *fbDisplay) usable() bool {
	return d.fb != nil && d.fb.Format() == hal.PixelFormatRGB565 && d.fb.Buffer() != nil
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.w), int16(d.h)
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if !d.usable() {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.w || iy < 0 || iy >= d.h {
		return
	}

	off := (d.y+iy)*d.fb.StrideBytes() + (d.x+ix)*2
	hal.PutRGB565(d.fb.Buffer(), off, hal.RGB565(c.R, c.G, c.B))
}

// Display is a no-op: the monitor presents the whole framebuffer once per frame.
func (d *fbDisplay) Display() error { return nil }

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if !d.usable() {
		return nil
	}
	x0 := clampInt(int(x), 0, d.w)
	y0 := clampInt(int(y), 0, d.h)
	x1 := clampInt(int(x)+int(width), 0, d.w)
	y1 := clampInt(int(y)+int(height), 0, d.h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := hal.RGB565(c.R, c.G, c.B)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := (d.y + py) * stride
		for px := x0; px < x1; px++ {
			hal.PutRGB565(buf, row+(d.x+px)*2, pixel)
		}
	}
	return nil
}

// SetScroll is ignored. The event log redraws its visible lines every frame
// and never scrolls.
func (d *fbDisplay) SetScroll(line int16) {
	_ = line
}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
