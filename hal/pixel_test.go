package hal

import "testing"

func TestRGB565RoundTrip(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{0xff, 0xff, 0xff, 0xffff},
		{0xff, 0, 0, 0xf800},
		{0, 0xff, 0, 0x07e0},
		{0, 0, 0xff, 0x001f},
	}
	for _, tt := range tests {
		p := RGB565(tt.r, tt.g, tt.b)
		if p != tt.want {
			t.Fatalf("RGB565(%d,%d,%d) = %#04x, want %#04x", tt.r, tt.g, tt.b, p, tt.want)
		}
		if r, g, b := RGB888(p); r != tt.r || g != tt.g || b != tt.b {
			t.Fatalf("RGB888(%#04x) = %d,%d,%d, want %d,%d,%d", p, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestPutRGB565IgnoresOutOfRange(t *testing.T) {
	buf := make([]byte, 4)
	PutRGB565(buf, 2, 0x1234)
	PutRGB565(buf, 3, 0xffff)
	PutRGB565(buf, -1, 0xffff)
	if buf[0] != 0 || buf[1] != 0 || buf[2] != 0x34 || buf[3] != 0x12 {
		t.Fatalf("buf = % x", buf)
	}
}
