package hal

import (
	"errors"
	"testing"
)

func testRegisters() Registers {
	var r Registers
	for i := range r.R {
		r.R[i] = 0x1000 + uint32(i)
	}
	r.LR = 0xFFFFFFF9
	r.PC = 0x08000400
	r.XPSR = XPSRThumb | 3
	for i := range r.S {
		r.SetS(i, float32(i)*1.25)
	}
	r.FPSCR = 0x03C00000
	return r
}

func TestSwitchFrameRoundTripNoFP(t *testing.T) {
	f := SwitchFrame{ExcReturn: ExcReturnThreadPSPNoFP, Regs: testRegisters()}
	if f.HasFP() {
		t.Fatalf("HasFP() = true for %#x", f.ExcReturn)
	}
	if f.Size() != SwitchFrameSize {
		t.Fatalf("Size() = %d, want %d", f.Size(), SwitchFrameSize)
	}

	b := make([]byte, f.Size())
	f.Put(b)
	got, err := ReadSwitchFrame(b)
	if err != nil {
		t.Fatalf("ReadSwitchFrame() error = %v", err)
	}
	if got.Regs.R != f.Regs.R || got.Regs.LR != f.Regs.LR || got.Regs.PC != f.Regs.PC || got.Regs.XPSR != f.Regs.XPSR {
		t.Fatalf("core registers = %+v, want %+v", got.Regs, f.Regs)
	}
	if got.Regs.S != [32]uint32{} {
		t.Fatalf("no-FP frame decoded FP registers")
	}
}

func TestSwitchFrameRoundTripFP(t *testing.T) {
	f := SwitchFrame{ExcReturn: ExcReturnThreadPSPFP, Regs: testRegisters()}
	if !f.HasFP() {
		t.Fatalf("HasFP() = false for %#x", f.ExcReturn)
	}

	b := make([]byte, SwitchFrameFPSize)
	f.Put(b)
	got, err := ReadSwitchFrame(b)
	if err != nil {
		t.Fatalf("ReadSwitchFrame() error = %v", err)
	}
	if got.Regs != f.Regs {
		t.Fatalf("registers = %+v, want %+v", got.Regs, f.Regs)
	}
	if got.Regs.GetS(9) != 11.25 {
		t.Fatalf("s9 = %v, want 11.25", got.Regs.GetS(9))
	}
}

func TestSwitchFrameLayout(t *testing.T) {
	f := SwitchFrame{ExcReturn: ExcReturnThreadPSPNoFP, Regs: testRegisters()}
	b := make([]byte, f.Size())
	f.Put(b)

	word := func(i int) uint32 {
		return uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
	}
	if word(0) != ExcReturnThreadPSPNoFP {
		t.Fatalf("word 0 = %#x, want exc_return", word(0))
	}
	if word(1) != f.Regs.R[4] {
		t.Fatalf("word 1 = %#x, want r4", word(1))
	}
	if word(9) != f.Regs.R[0] {
		t.Fatalf("word 9 = %#x, want r0", word(9))
	}
	if word(15) != f.Regs.PC {
		t.Fatalf("word 15 = %#x, want pc", word(15))
	}
	if word(16) != f.Regs.XPSR {
		t.Fatalf("word 16 = %#x, want xpsr", word(16))
	}
}

func TestReadSwitchFrameRejectsBadFrames(t *testing.T) {
	good := SwitchFrame{ExcReturn: ExcReturnThreadPSPNoFP, Regs: testRegisters()}

	badExc := good
	badExc.ExcReturn = 0xFFFFFFF1
	noThumb := good
	noThumb.Regs.XPSR = 0

	tests := []struct {
		name string
		b    []byte
	}{
		{"short", make([]byte, SwitchFrameSize-4)},
		{"exc_return", encodeFrame(badExc, SwitchFrameSize)},
		{"thumb", encodeFrame(noThumb, SwitchFrameSize)},
		{"short fp", encodeFrame(SwitchFrame{ExcReturn: ExcReturnThreadPSPFP, Regs: testRegisters()}, SwitchFrameFPSize)[:SwitchFrameSize]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadSwitchFrame(tt.b); !errors.Is(err, ErrBadFrame) {
				t.Fatalf("ReadSwitchFrame() error = %v, want ErrBadFrame", err)
			}
		})
	}
}

func encodeFrame(f SwitchFrame, size int) []byte {
	b := make([]byte, size)
	f.Put(b)
	return b
}
