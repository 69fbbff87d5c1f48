package arm64

import (
	"fmt"
)

type (
	Reg struct {
		N    int
		Kind RegKind
	}

	RegKind uint8

	// Addr is a stack location addressed off sp.
	Addr int

	MOV struct {
		Out [1]Reg
		In  [1]Reg
	}

	FMOV struct {
		Out [1]Reg
		In  [1]Reg
	}

	// MOVZ/MOVK set 16 bits at Shift of a register, zeroing or keeping the rest.
	MOVZ struct {
		Out   [1]Reg
		Imm   uint16
		Shift int
	}

	MOVK struct {
		Out   [1]Reg
		Imm   uint16
		Shift int
	}

	LDR struct {
		Out  [1]Reg
		Addr Addr
	}

	STR struct {
		In   [1]Reg
		Addr Addr
	}
)

const (
	W RegKind = iota
	X
	S
	D
	Q
)

// ZR is register 31 of W and X kinds.
const ZR = 31

func (r Reg) Is64Bit() bool { return r.Kind == X || r.Kind == D }

func (r Reg) IsFP() bool { return r.Kind >= S }

func (r Reg) String() string {
	if r.N == ZR && !r.IsFP() {
		return [...]string{W: "WZR", X: "XZR"}[r.Kind]
	}

	return fmt.Sprintf("%c%d", "WXSDQ"[r.Kind], r.N)
}

func (a Addr) String() string {
	if a == 0 {
		return "[SP]"
	}

	return fmt.Sprintf("[SP, #%d]", int(a))
}

func (x MOV) AppendAsm(b []byte) []byte {
	return fmt.Appendf(b, "MOV\t%v, %v", x.Out[0], x.In[0])
}

func (x FMOV) AppendAsm(b []byte) []byte {
	return fmt.Appendf(b, "FMOV\t%v, %v", x.Out[0], x.In[0])
}

func (x MOVZ) AppendAsm(b []byte) []byte {
	return appendMovWide(b, "MOVZ", x.Out[0], x.Imm, x.Shift)
}

func (x MOVK) AppendAsm(b []byte) []byte {
	return appendMovWide(b, "MOVK", x.Out[0], x.Imm, x.Shift)
}

func (x LDR) AppendAsm(b []byte) []byte {
	return fmt.Appendf(b, "LDR\t%v, %v", x.Out[0], x.Addr)
}

func (x STR) AppendAsm(b []byte) []byte {
	return fmt.Appendf(b, "STR\t%v, %v", x.In[0], x.Addr)
}

func appendMovWide(b []byte, op string, r Reg, imm uint16, sh int) []byte {
	if sh == 0 {
		return fmt.Appendf(b, "%s\t%v, #%d", op, r, imm)
	}

	return fmt.Appendf(b, "%s\t%v, #%d, LSL #%d", op, r, imm, sh)
}
