package hal

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EXC_RETURN values for returning to thread mode on the process stack.
const (
	ExcReturnThreadPSPNoFP uint32 = 0xFFFFFFFD
	ExcReturnThreadPSPFP   uint32 = 0xFFFFFFED

	excReturnNoFP uint32 = 1 << 4
)

const (
	// XPSRThumb is the EPSR Thumb bit. It must be set in every frame.
	XPSRThumb uint32 = 1 << 24

	// EntryStub is the address tasks start executing at. The stub calls the
	// task function and exits the task when it returns.
	EntryStub uint32 = 0x08000200
)

// Switch frame sizes in bytes.
const (
	SwitchFrameSize   = 17 * 4
	SwitchFrameFPSize = 50 * 4
)

// Registers is the register file of the CPU.
type Registers struct {
	R     [13]uint32 // r0-r12
	LR    uint32
	PC    uint32
	XPSR  uint32
	S     [32]uint32 // s0-s31, raw bits
	FPSCR uint32
}

// SetS stores a float in single-precision register i.
func (r *Registers) SetS(i int, v float32) { r.S[i] = math.Float32bits(v) }

// GetS loads single-precision register i.
func (r *Registers) GetS(i int) float32 { return math.Float32frombits(r.S[i]) }

// SwitchFrame is the register image kept at a suspended task's stack pointer.
//
// Layout, lowest address first. The part from r0 up is what exception entry
// pushes; the rest is pushed by the context switch handler.
//
//	no FP: EXC_RETURN, r4-r11, r0-r3, r12, lr, pc, xPSR
//	FP:    EXC_RETURN, s16-s31, r4-r11, r0-r3, r12, lr, pc, xPSR, s0-s15, FPSCR
type SwitchFrame struct {
	ExcReturn uint32
	Regs      Registers
}

// HasFP reports whether the frame carries floating-point context.
func (f *SwitchFrame) HasFP() bool { return f.ExcReturn&excReturnNoFP == 0 }

// Size returns the encoded size of the frame in bytes.
func (f *SwitchFrame) Size() int {
	if f.HasFP() {
		return SwitchFrameFPSize
	}
	return SwitchFrameSize
}

// Put encodes the frame into b, which must hold at least Size bytes.
func (f *SwitchFrame) Put(b []byte) {
	w := frameWriter{b: b}
	w.put(f.ExcReturn)
	if f.HasFP() {
		for i := 16; i < 32; i++ {
			w.put(f.Regs.S[i])
		}
	}
	for i := 4; i <= 11; i++ {
		w.put(f.Regs.R[i])
	}
	for i := 0; i <= 3; i++ {
		w.put(f.Regs.R[i])
	}
	w.put(f.Regs.R[12])
	w.put(f.Regs.LR)
	w.put(f.Regs.PC)
	w.put(f.Regs.XPSR)
	if f.HasFP() {
		for i := 0; i < 16; i++ {
			w.put(f.Regs.S[i])
		}
		w.put(f.Regs.FPSCR)
	}
}

// ReadSwitchFrame decodes the frame at the start of b.
func ReadSwitchFrame(b []byte) (SwitchFrame, error) {
	var f SwitchFrame
	if len(b) < SwitchFrameSize {
		return f, fmt.Errorf("switch frame: %d bytes: %w", len(b), ErrBadFrame)
	}
	r := frameReader{b: b}
	f.ExcReturn = r.get()
	if f.ExcReturn != ExcReturnThreadPSPNoFP && f.ExcReturn != ExcReturnThreadPSPFP {
		return f, fmt.Errorf("switch frame: exc_return %#08x: %w", f.ExcReturn, ErrBadFrame)
	}
	if len(b) < f.Size() {
		return f, fmt.Errorf("switch frame: %d bytes for fp frame: %w", len(b), ErrBadFrame)
	}
	if f.HasFP() {
		for i := 16; i < 32; i++ {
			f.Regs.S[i] = r.get()
		}
	}
	for i := 4; i <= 11; i++ {
		f.Regs.R[i] = r.get()
	}
	for i := 0; i <= 3; i++ {
		f.Regs.R[i] = r.get()
	}
	f.Regs.R[12] = r.get()
	f.Regs.LR = r.get()
	f.Regs.PC = r.get()
	f.Regs.XPSR = r.get()
	if f.HasFP() {
		for i := 0; i < 16; i++ {
			f.Regs.S[i] = r.get()
		}
		f.Regs.FPSCR = r.get()
	}
	if f.Regs.XPSR&XPSRThumb == 0 {
		return f, fmt.Errorf("switch frame: xpsr %#08x without thumb bit: %w", f.Regs.XPSR, ErrBadFrame)
	}
	return f, nil
}

type frameWriter struct {
	b   []byte
	off int
}

func (w *frameWriter) put(v uint32) {
	binary.LittleEndian.PutUint32(w.b[w.off:], v)
	w.off += 4
}

type frameReader struct {
	b   []byte
	off int
}

func (r *frameReader) get() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}
