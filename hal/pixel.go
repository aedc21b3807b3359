package hal

// RGB565 packs an 8-bit-per-channel color into the framebuffer pixel format.
func RGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// RGB888 expands an RGB565 pixel to 8 bits per channel.
func RGB888(p uint16) (r, g, b uint8) {
	r = uint8(uint32(p>>11&0x1F) * 255 / 31)
	g = uint8(uint32(p>>5&0x3F) * 255 / 63)
	b = uint8(uint32(p&0x1F) * 255 / 31)
	return r, g, b
}

// PutRGB565 stores p little-endian at buf[off:off+2]. Out-of-range offsets
// are ignored.
func PutRGB565(buf []byte, off int, p uint16) {
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}
