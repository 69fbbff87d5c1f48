// Package trace implements emitters which record resolved moves instead of
// producing machine code.
//
// Locations are written in a short notation:
//
//	1         register 1
//	0,1       register pair
//	T0        scratch register minted by NoSwap
//	8(sp)     stack slot
//	2x8(sp)   double stack slot
//	4x8(sp)   SIMD stack slot
//	C         constant
package trace

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/pmove/compiler/back"
	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/tp"
)

type (
	rec struct {
		b []byte
	}

	// Swap records moves and swaps of a SwapResolver.
	Swap struct {
		rec

		r *back.SwapResolver

		// Spills counts SpillScratch calls.
		Spills int
	}

	// NoSwap records moves of a NoSwapResolver.
	// Scratch locations are fresh registers starting at ScratchBase.
	NoSwap struct {
		rec

		r *back.NoSwapResolver

		next int
	}
)

// ScratchBase is the first register number NoSwap mints as a scratch.
const ScratchBase = 100

func NewSwap() *Swap {
	s := &Swap{}
	s.r = back.NewSwapResolver(s)

	return s
}

func (s *Swap) Name() string { return "trace-swap" }

func (s *Swap) Resolve(ctx context.Context, pm *ir.ParallelMove) {
	s.r.Resolve(ctx, pm)
}

func (s *Swap) Resolver() *back.SwapResolver { return s.r }

func (s *Swap) EmitMove(src, dst ir.Location, t tp.Type) {
	s.add(src, " -> ", dst)
}

func (s *Swap) EmitSwap(a, b ir.Location, t tp.Type) {
	s.add(a, " <-> ", b)
}

func (s *Swap) SpillScratch(reg int)   { s.Spills++ }
func (s *Swap) RestoreScratch(reg int) {}

func NewNoSwap() *NoSwap {
	s := &NoSwap{next: ScratchBase}
	s.r = back.NewNoSwapResolver(s)

	return s
}

func (s *NoSwap) Name() string { return "trace-noswap" }

func (s *NoSwap) Resolve(ctx context.Context, pm *ir.ParallelMove) {
	s.r.Resolve(ctx, pm)
}

func (s *NoSwap) Resolver() *back.NoSwapResolver { return s.r }

func (s *NoSwap) EmitMove(src, dst ir.Location, t tp.Type) {
	s.add(src, " -> ", dst)
}

func (s *NoSwap) PrepareForEmitNativeCode() {
	s.next = ScratchBase
}

func (s *NoSwap) FinishEmitNativeCode() {}

// AllocateScratchLocationFor simulates a 32-bit backend: single words go to
// a register, wider values to a register pair.
func (s *NoSwap) AllocateScratchLocationFor(kind ir.Kind) ir.Location {
	switch kind {
	case ir.KindStackSlot, ir.KindFpuRegister, ir.KindRegister:
		kind = ir.KindRegister
	default:
		kind = ir.KindRegisterPair
	}

	l := s.r.ScratchLocation(kind)
	if l.IsValid() {
		return l
	}

	s.r.AddScratchLocation(ir.Register(s.next))
	s.r.AddScratchLocation(ir.Register(s.next + 1))
	s.r.AddScratchLocation(ir.RegisterPair(s.next, s.next+1))

	if kind == ir.KindRegister {
		l = ir.Register(s.next)
	} else {
		l = ir.RegisterPair(s.next, s.next+1)
	}

	s.next += 2

	return l
}

func (s *NoSwap) FreeScratchLocation(l ir.Location) {}

// Message returns moves recorded since the last Reset or Flush.
func (r *rec) Message() string { return string(r.b) }

func (r *rec) Reset() { r.b = r.b[:0] }

// Flush appends recorded moves as one line.
func (r *rec) Flush(b []byte) []byte {
	if len(r.b) == 0 {
		return b
	}

	b = append(b, '\t')
	b = append(b, r.b...)
	b = append(b, '\n')

	r.b = r.b[:0]

	return b
}

func (r *rec) add(src ir.Location, op string, dst ir.Location) {
	if len(r.b) != 0 {
		r.b = append(r.b, ' ')
	}

	r.b = append(r.b, '(')
	r.b = AppendLocation(r.b, src)
	r.b = append(r.b, op...)
	r.b = AppendLocation(r.b, dst)
	r.b = append(r.b, ')')
}

func AppendLocation(b []byte, l ir.Location) []byte {
	switch {
	case l.IsConstant():
		return append(b, 'C')
	case l.IsPair():
		b = appendReg(b, l.Low())
		b = append(b, ',')
		return appendReg(b, l.High())
	case l.IsRegister(), l.IsFpuRegister():
		return appendReg(b, l.Reg())
	case l.IsStackSlot():
		return hfmt.Appendf(b, "%d(sp)", l.StackIndex())
	case l.IsDoubleStackSlot():
		return hfmt.Appendf(b, "2x%d(sp)", l.StackIndex())
	case l.IsSIMDStackSlot():
		return hfmt.Appendf(b, "4x%d(sp)", l.StackIndex())
	default:
		return l.AppendText(b)
	}
}

func appendReg(b []byte, r int) []byte {
	if r >= ScratchBase {
		return hfmt.Appendf(b, "T%d", r-ScratchBase)
	}

	return hfmt.Appendf(b, "%d", r)
}
