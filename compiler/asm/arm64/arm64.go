package arm64

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/asm"
	"github.com/slowlang/pmove/compiler/back"
	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/set"
	"github.com/slowlang/pmove/compiler/tp"
)

type (
	// Arch emits arm64 code resolving cycles through scratch locations.
	// Scratch registers come from the temp pool when no move destination
	// can serve.
	Arch struct {
		r    *back.NoSwapResolver
		code asm.Code

		core pool
		fp   pool

		open bool
	}

	// pool of temp registers. The lowest free one is acquired first.
	pool struct {
		heap.Heap[int]

		all  []int
		held set.Bitmap
	}
)

const (
	IP0 = 16
	IP1 = 17

	// FPTemp is the fp temp register.
	FPTemp = 31

	WordSize = 8
)

var _ back.ScratchEmitter = (*Arch)(nil)

func New() *Arch {
	a := &Arch{
		core: newPool(IP0, IP1),
		fp:   newPool(FPTemp),
	}

	a.r = back.NewNoSwapResolver(a)

	return a
}

func (a *Arch) Name() string { return "arm64" }

func (a *Arch) Resolve(ctx context.Context, pm *ir.ParallelMove) {
	a.r.Resolve(ctx, pm)
}

func (a *Arch) Flush(b []byte) []byte {
	return a.code.Flush(b)
}

func (a *Arch) Code() *asm.Code { return &a.code }

func (a *Arch) PrepareForEmitNativeCode() {
	a.core.reset()
	a.fp.reset()
	a.open = true
}

func (a *Arch) FinishEmitNativeCode() {
	if n := a.core.held.Size() + a.fp.held.Size(); n != 0 {
		tlog.Printw("temps are still held", "core", a.core.held, "fp", a.fp.held, "from", a.Name())
	}

	a.open = false
}

// AllocateScratchLocationFor returns a free move destination of a compatible
// kind or a temp register.
func (a *Arch) AllocateScratchLocationFor(kind ir.Kind) ir.Location {
	switch kind {
	case ir.KindFpuRegister, ir.KindSIMDStackSlot:
		kind = ir.KindFpuRegister
	case ir.KindRegister, ir.KindStackSlot, ir.KindDoubleStackSlot:
		kind = ir.KindRegister
	default:
		panic(errors.New("arm64: no scratch location for %v", kind))
	}

	l := a.r.ScratchLocation(kind)
	if l.IsValid() {
		return l
	}

	if kind == ir.KindRegister {
		l = ir.Register(a.acquire(&a.core))
	} else {
		l = ir.FpuRegister(a.acquire(&a.fp))
	}

	a.r.AddScratchLocation(l)

	return l
}

func (a *Arch) FreeScratchLocation(l ir.Location) {
	switch {
	case l.IsRegister():
		a.core.release(l.Reg())
	case l.IsFpuRegister():
		a.fp.release(l.Reg())
	default:
		panic(errors.New("arm64: free scratch location %v", l))
	}

	a.r.RemoveScratchLocation(l)
}

// EmitMove picks operand sizes from locations.
// Register to register moves are 64 bit.
func (a *Arch) EmitMove(src, dst ir.Location, t tp.Type) {
	if src == dst {
		return
	}

	if src.IsPair() || dst.IsPair() {
		panic(errors.New("arm64: register pairs are not supported: %v -> %v", src, dst))
	}

	switch {
	case dst.IsRegister() || dst.IsFpuRegister():
		a.moveToRegister(src, dst)
	case dst.IsSIMDStackSlot():
		a.moveToSIMDSlot(src, dst)
	case dst.IsStackSlot() || dst.IsDoubleStackSlot():
		a.moveToStack(src, dst)
	default:
		unsupported(src, dst)
	}
}

func (a *Arch) moveToRegister(src, dst ir.Location) {
	wide := true

	switch {
	case src.IsStackSlot():
		wide = false
	case src.IsConstant():
		t, _ := src.ConstValue()
		wide = t.Is64Bit()
	}

	d := reg(dst, wide)

	switch {
	case src.IsStackSlot() || src.IsDoubleStackSlot():
		a.code.Add(LDR{Out: [1]Reg{d}, Addr: Addr(src.StackIndex())})
	case src.IsSIMDStackSlot():
		a.code.Add(LDR{Out: [1]Reg{qreg(dst)}, Addr: Addr(src.StackIndex())})
	case src.IsConstant():
		a.moveConstant(d, src)
	case src.IsRegister() && dst.IsRegister():
		a.code.Add(MOV{Out: [1]Reg{d}, In: [1]Reg{reg(src, true)}})
	case src.IsRegister() || src.IsFpuRegister():
		a.code.Add(FMOV{Out: [1]Reg{d}, In: [1]Reg{reg(src, true)}})
	default:
		unsupported(src, dst)
	}
}

func (a *Arch) moveToSIMDSlot(src, dst ir.Location) {
	switch {
	case src.IsFpuRegister():
		a.code.Add(STR{In: [1]Reg{qreg(src)}, Addr: Addr(dst.StackIndex())})
	case src.IsSIMDStackSlot():
		if fp, ok := a.fp.acquire(); ok {
			defer a.fp.release(fp)

			tmp := Reg{N: fp, Kind: Q}

			a.code.Add(
				LDR{Out: [1]Reg{tmp}, Addr: Addr(src.StackIndex())},
				STR{In: [1]Reg{tmp}, Addr: Addr(dst.StackIndex())},
			)

			return
		}

		tmp := Reg{N: a.acquire(&a.core), Kind: X}
		defer a.core.release(tmp.N)

		for off := 0; off < 2*WordSize; off += WordSize {
			a.code.Add(
				LDR{Out: [1]Reg{tmp}, Addr: Addr(src.StackIndex() + off)},
				STR{In: [1]Reg{tmp}, Addr: Addr(dst.StackIndex() + off)},
			)
		}
	default:
		unsupported(src, dst)
	}
}

func (a *Arch) moveToStack(src, dst ir.Location) {
	wide := dst.IsDoubleStackSlot()
	addr := Addr(dst.StackIndex())

	switch {
	case src.IsRegister() || src.IsFpuRegister():
		a.code.Add(STR{In: [1]Reg{reg(src, wide)}, Addr: addr})
	case src.IsConstant():
		_, v := src.ConstValue()

		if v == 0 {
			a.code.Add(STR{In: [1]Reg{zr(wide)}, Addr: addr})
			return
		}

		n := a.acquire(&a.core)
		defer a.core.release(n)

		tmp := Reg{N: n, Kind: W}
		if wide {
			tmp.Kind = X
		}

		a.moveImm(tmp, v)
		a.code.Add(STR{In: [1]Reg{tmp}, Addr: addr})
	case src.IsStackSlot() || src.IsDoubleStackSlot():
		// Any temp will do. The fp one may be a scratch of this move set.
		tmp, release := a.anyTemp(wide)
		defer release()

		a.code.Add(
			LDR{Out: [1]Reg{tmp}, Addr: Addr(src.StackIndex())},
			STR{In: [1]Reg{tmp}, Addr: addr},
		)
	default:
		unsupported(src, dst)
	}
}

func (a *Arch) moveConstant(d Reg, src ir.Location) {
	_, v := src.ConstValue()

	if !d.IsFP() {
		a.moveImm(d, v)
		return
	}

	if v == 0 {
		a.code.Add(FMOV{Out: [1]Reg{d}, In: [1]Reg{zr(d.Is64Bit())}})
		return
	}

	n := a.acquire(&a.core)
	defer a.core.release(n)

	tmp := Reg{N: n, Kind: W}
	if d.Is64Bit() {
		tmp.Kind = X
	}

	a.moveImm(tmp, v)
	a.code.Add(FMOV{Out: [1]Reg{d}, In: [1]Reg{tmp}})
}

// moveImm materializes v with MOVZ and as many MOVK as non-zero halfwords.
func (a *Arch) moveImm(d Reg, v int64) {
	bits := 32
	if d.Is64Bit() {
		bits = 64
	}

	u := uint64(v)
	done := false

	for sh := 0; sh < bits; sh += 16 {
		hw := uint16(u >> sh)
		if hw == 0 {
			continue
		}

		if done {
			a.code.Add(MOVK{Out: [1]Reg{d}, Imm: hw, Shift: sh})
		} else {
			a.code.Add(MOVZ{Out: [1]Reg{d}, Imm: hw, Shift: sh})
		}

		done = true
	}

	if !done {
		a.code.Add(MOVZ{Out: [1]Reg{d}})
	}
}

func (a *Arch) anyTemp(wide bool) (Reg, func()) {
	if n, ok := a.fp.acquire(); ok {
		r := Reg{N: n, Kind: S}
		if wide {
			r.Kind = D
		}

		return r, func() { a.fp.release(n) }
	}

	n := a.acquire(&a.core)

	r := Reg{N: n, Kind: W}
	if wide {
		r.Kind = X
	}

	return r, func() { a.core.release(n) }
}

func (a *Arch) acquire(p *pool) int {
	if !a.open {
		panic(errors.New("arm64: temp pool is closed"))
	}

	r, ok := p.acquire()
	if !ok {
		panic(errors.New("arm64: out of temp registers"))
	}

	return r
}

func newPool(regs ...int) pool {
	return pool{
		Heap: heap.Heap[int]{Less: func(d []int, i, j int) bool { return d[i] < d[j] }},
		all:  regs,
	}
}

func (p *pool) reset() {
	p.Data = p.Data[:0]
	p.held = set.Bitmap{}

	for _, r := range p.all {
		p.Push(r)
	}
}

func (p *pool) acquire() (int, bool) {
	if p.Len() == 0 {
		return -1, false
	}

	r := p.Pop()
	p.held.Set(r)

	return r, true
}

func (p *pool) release(r int) {
	if !p.held.IsSet(r) {
		panic(errors.New("arm64: release of temp %d which is not held", r))
	}

	p.held.Clear(r)
	p.Push(r)
}

func reg(l ir.Location, wide bool) Reg {
	r := Reg{N: l.Reg()}

	switch {
	case l.IsRegister() && wide:
		r.Kind = X
	case l.IsRegister():
		r.Kind = W
	case wide:
		r.Kind = D
	default:
		r.Kind = S
	}

	return r
}

func qreg(l ir.Location) Reg {
	if !l.IsFpuRegister() {
		panic(errors.New("arm64: not an fp register: %v", l))
	}

	return Reg{N: l.Reg(), Kind: Q}
}

func zr(wide bool) Reg {
	if wide {
		return Reg{N: ZR, Kind: X}
	}

	return Reg{N: ZR, Kind: W}
}

func unsupported(src, dst ir.Location) {
	panic(errors.New("arm64: unsupported move: %v -> %v", src, dst))
}
