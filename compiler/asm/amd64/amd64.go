package amd64

import (
	"context"
	"math"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/asm"
	"github.com/slowlang/pmove/compiler/back"
	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/set"
	"github.com/slowlang/pmove/compiler/tp"
)

type (
	// Arch emits amd64 code in AT&T syntax resolving cycles with swaps.
	Arch struct {
		r    *back.SwapResolver
		code asm.Code

		// core registers a memory to memory exchange may take
		scratch set.Bitmap
	}
)

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	NumRegs = 16

	// TMP is reserved by the register allocator.
	TMP = R11

	WordSize = 8
)

var _ back.SwapEmitter = (*Arch)(nil)

func New() *Arch {
	a := &Arch{
		scratch: set.Range(0, NumRegs),
	}

	a.scratch.Clear(int(RSP))
	a.scratch.Clear(int(TMP))

	a.r = back.NewSwapResolver(a)

	return a
}

func (a *Arch) Name() string { return "amd64" }

func (a *Arch) Resolve(ctx context.Context, pm *ir.ParallelMove) {
	a.r.Resolve(ctx, pm)
}

func (a *Arch) Flush(b []byte) []byte {
	return a.code.Flush(b)
}

func (a *Arch) Code() *asm.Code { return &a.code }

func (a *Arch) EmitMove(src, dst ir.Location, t tp.Type) {
	switch {
	case src.IsRegister():
		s := gpr(src)

		switch {
		case dst.IsRegister():
			a.ins("movq", 8, s, gpr(dst))
		case dst.IsFpuRegister():
			a.ins(movd(t), width(t), s, xmm(dst))
		case dst.IsStackSlot():
			a.ins("movl", 4, s, stack(dst, 0))
		case dst.IsDoubleStackSlot():
			a.ins("movq", 8, s, stack(dst, 0))
		default:
			unsupported("move", src, dst)
		}
	case src.IsStackSlot():
		s := stack(src, 0)

		switch {
		case dst.IsRegister():
			a.ins("movl", 4, s, gpr(dst))
		case dst.IsFpuRegister():
			a.ins("movss", 0, s, xmm(dst))
		case dst.IsStackSlot():
			a.ins("movl", 4, s, TMP)
			a.ins("movl", 4, TMP, stack(dst, 0))
		default:
			unsupported("move", src, dst)
		}
	case src.IsDoubleStackSlot():
		s := stack(src, 0)

		switch {
		case dst.IsRegister():
			a.ins("movq", 8, s, gpr(dst))
		case dst.IsFpuRegister():
			a.ins("movsd", 0, s, xmm(dst))
		case dst.IsDoubleStackSlot():
			a.ins("movq", 8, s, TMP)
			a.ins("movq", 8, TMP, stack(dst, 0))
		default:
			unsupported("move", src, dst)
		}
	case src.IsSIMDStackSlot():
		switch {
		case dst.IsFpuRegister():
			a.ins("movups", 0, stack(src, 0), xmm(dst))
		case dst.IsSIMDStackSlot():
			for off := 0; off < 2*WordSize; off += WordSize {
				a.ins("movq", 8, stack(src, off), TMP)
				a.ins("movq", 8, TMP, stack(dst, off))
			}
		default:
			unsupported("move", src, dst)
		}
	case src.IsFpuRegister():
		s := xmm(src)

		switch {
		case dst.IsFpuRegister():
			a.ins("movaps", 0, s, xmm(dst))
		case dst.IsRegister():
			a.ins(movd(t), width(t), s, gpr(dst))
		case dst.IsStackSlot():
			a.ins("movss", 0, s, stack(dst, 0))
		case dst.IsDoubleStackSlot():
			a.ins("movsd", 0, s, stack(dst, 0))
		case dst.IsSIMDStackSlot():
			a.ins("movups", 0, s, stack(dst, 0))
		default:
			unsupported("move", src, dst)
		}
	case src.IsConstant():
		a.emitConstant(src, dst)
	default:
		unsupported("move", src, dst)
	}
}

func (a *Arch) emitConstant(src, dst ir.Location) {
	t, v := src.ConstValue()

	switch {
	case dst.IsRegister():
		if t.Is64Bit() {
			a.load64(gpr(dst), v)
		} else {
			a.load32(gpr(dst), int32(v))
		}
	case dst.IsFpuRegister():
		if v == 0 {
			op := "xorps"
			if t.Is64Bit() {
				op = "xorpd"
			}

			a.ins(op, 0, xmm(dst), xmm(dst))

			return
		}

		// no constant area, go through TMP
		if t.Is64Bit() {
			a.load64(TMP, v)
			a.ins("movq", 8, TMP, xmm(dst))
		} else {
			a.load32(TMP, int32(v))
			a.ins("movd", 4, TMP, xmm(dst))
		}
	case dst.IsStackSlot():
		a.ins("movl", 4, Imm(int32(v)), stack(dst, 0))
	case dst.IsDoubleStackSlot():
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			a.ins("movq", 8, Imm(v), stack(dst, 0))
			return
		}

		a.load64(TMP, v)
		a.ins("movq", 8, TMP, stack(dst, 0))
	default:
		unsupported("move", src, dst)
	}
}

func (a *Arch) load32(r Reg, v int32) {
	if v == 0 {
		a.ins("xorl", 4, r, r)
		return
	}

	a.ins("movl", 4, Imm(v), r)
}

func (a *Arch) load64(r Reg, v int64) {
	switch {
	case v == 0:
		// clears upper bits too
		a.ins("xorl", 4, r, r)
	case v >= 0 && v <= math.MaxUint32:
		// zero extended
		a.ins("movl", 4, Imm(v), r)
	case v >= math.MinInt32 && v <= math.MaxInt32:
		a.ins("movq", 8, Imm(v), r)
	default:
		a.ins("movabsq", 8, Imm(v), r)
	}
}

func (a *Arch) EmitSwap(src, dst ir.Location, t tp.Type) {
	switch {
	case src.IsRegister() && dst.IsRegister():
		a.exchange64(gpr(src), gpr(dst))
	case src.IsRegister() && dst.IsStackSlot():
		a.exchange32(gpr(src), dst.StackIndex())
	case src.IsStackSlot() && dst.IsRegister():
		a.exchange32(gpr(dst), src.StackIndex())
	case src.IsStackSlot() && dst.IsStackSlot():
		a.exchangeMemory(4, dst.StackIndex(), src.StackIndex(), 1)
	case src.IsRegister() && dst.IsDoubleStackSlot():
		a.exchangeMem64(gpr(src), dst.StackIndex())
	case src.IsDoubleStackSlot() && dst.IsRegister():
		a.exchangeMem64(gpr(dst), src.StackIndex())
	case src.IsDoubleStackSlot() && dst.IsDoubleStackSlot():
		a.exchangeMemory(8, dst.StackIndex(), src.StackIndex(), 1)
	case src.IsFpuRegister() && dst.IsFpuRegister():
		a.ins("movq", 8, xmm(src), TMP)
		a.ins("movaps", 0, xmm(dst), xmm(src))
		a.ins("movq", 8, TMP, xmm(dst))
	case src.IsFpuRegister() && dst.IsStackSlot():
		a.exchangeXmm32(xmm(src), dst.StackIndex())
	case src.IsStackSlot() && dst.IsFpuRegister():
		a.exchangeXmm32(xmm(dst), src.StackIndex())
	case src.IsFpuRegister() && dst.IsDoubleStackSlot():
		a.exchangeXmm64(xmm(src), dst.StackIndex())
	case src.IsDoubleStackSlot() && dst.IsFpuRegister():
		a.exchangeXmm64(xmm(dst), src.StackIndex())
	case src.IsSIMDStackSlot() && dst.IsSIMDStackSlot():
		a.exchangeMemory(8, dst.StackIndex(), src.StackIndex(), 2)
	case src.IsFpuRegister() && dst.IsSIMDStackSlot():
		a.exchange128(xmm(src), dst.StackIndex())
	case src.IsSIMDStackSlot() && dst.IsFpuRegister():
		a.exchange128(xmm(dst), src.StackIndex())
	default:
		unsupported("swap", src, dst)
	}
}

func (a *Arch) exchange32(r Reg, off int) {
	a.ins("movl", 4, Mem(off), TMP)
	a.ins("movl", 4, r, Mem(off))
	a.ins("movl", 4, TMP, r)
}

func (a *Arch) exchange64(x, y Reg) {
	a.ins("movq", 8, x, TMP)
	a.ins("movq", 8, y, x)
	a.ins("movq", 8, TMP, y)
}

func (a *Arch) exchangeMem64(r Reg, off int) {
	a.ins("movq", 8, Mem(off), TMP)
	a.ins("movq", 8, r, Mem(off))
	a.ins("movq", 8, TMP, r)
}

func (a *Arch) exchangeXmm32(x Xmm, off int) {
	a.ins("movl", 4, Mem(off), TMP)
	a.ins("movss", 0, x, Mem(off))
	a.ins("movd", 4, TMP, x)
}

func (a *Arch) exchangeXmm64(x Xmm, off int) {
	a.ins("movq", 8, Mem(off), TMP)
	a.ins("movsd", 0, x, Mem(off))
	a.ins("movq", 8, TMP, x)
}

func (a *Arch) exchange128(x Xmm, off int) {
	const extra = 2 * WordSize

	a.ins("subq", 8, Imm(extra), RSP)
	a.ins("movups", 0, x, Mem(0))
	a.exchangeMemory(8, 0, off+extra, 2)
	a.ins("movups", 0, Mem(0), x)
	a.ins("addq", 8, Imm(extra), RSP)
}

// exchangeMemory swaps n words of size w at off1 and off2.
// It needs a second register besides TMP.
func (a *Arch) exchangeMemory(w, off1, off2, n int) {
	s := a.r.ScratchRegister(int(TMP), int(RAX), &a.scratch)
	defer s.Release()

	op := "movl"
	if w == 8 {
		op = "movq"
	}

	sr := Reg(s.Reg())

	// pushq moved rsp
	sh := 0
	if s.IsSpilled() {
		sh = WordSize
	}

	for i := 0; i < n; i++ {
		a.ins(op, w, Mem(off1+sh), TMP)
		a.ins(op, w, Mem(off2+sh), sr)
		a.ins(op, w, TMP, Mem(off2+sh))
		a.ins(op, w, sr, Mem(off1+sh))

		sh += WordSize
	}
}

func (a *Arch) SpillScratch(reg int) {
	a.ins("pushq", 8, Reg(reg))
}

func (a *Arch) RestoreScratch(reg int) {
	a.ins("popq", 8, Reg(reg))
}

func (a *Arch) ins(op string, w int, args ...Operand) {
	a.code.Add(Inst{Op: op, W: w, Args: args})
}

func gpr(l ir.Location) Reg {
	r := l.Reg()
	if r < 0 || r >= NumRegs {
		panic(errors.New("no such register: %v", l))
	}

	return Reg(r)
}

func xmm(l ir.Location) Xmm {
	r := l.Reg()
	if r < 0 || r >= NumRegs {
		panic(errors.New("no such register: %v", l))
	}

	return Xmm(r)
}

func stack(l ir.Location, off int) Mem {
	return Mem(l.StackIndex() + off)
}

func movd(t tp.Type) string {
	if t.Is64Bit() {
		return "movq"
	}

	return "movd"
}

func width(t tp.Type) int {
	if t.Is64Bit() {
		return 8
	}

	return 4
}

func unsupported(what string, src, dst ir.Location) {
	panic(errors.New("amd64: unsupported %v: %v, %v", what, src, dst))
}
