package back_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pmove/compiler/asm/trace"
	"github.com/slowlang/pmove/compiler/back"
	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/tp"
)

type (
	// words tracks 32-bit words. Pairs and double slots are two words each.
	words struct {
		val map[ir.Location]int64
	}

	wordSwap struct {
		words
		r *back.SwapResolver
	}

	wordNoSwap struct {
		words
		r    *back.NoSwapResolver
		next int
	}

	wordSim interface {
		init()
		resolve(context.Context, *ir.ParallelMove)
		read(ir.Location) []int64
	}
)

func TestResolveRandomWords(t *testing.T) {
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(2))

	units := []ir.Location{
		p(0, 1), p(2, 3), p(4, 5),
		ir.DoubleStackSlot(0), ir.DoubleStackSlot(8), ir.DoubleStackSlot(16),
	}

	var pool []ir.Location

	for _, u := range units {
		pool = append(pool, u.ToLow(), u.ToHigh())
	}

	s := &wordSwap{}
	s.r = back.NewSwapResolver(s)

	n := &wordNoSwap{}
	n.r = back.NewNoSwapResolver(n)

	const iters = 1000

	var failed int

	for iter := 0; iter < iters; iter++ {
		var moves []mv

		wide := func(dst ir.Location) {
			src := units[rnd.Intn(len(units))]

			if rnd.Intn(8) == 0 {
				src = ir.LongConstant(int64(iter)<<32 | 0x5555)
			}

			moves = append(moves, mv{src: src, dst: dst, t: tp.Int64})
		}

		word := func(dst ir.Location) {
			src := pool[rnd.Intn(len(pool))]

			if rnd.Intn(8) == 0 {
				src = ir.IntConstant(int32(1000 + iter))
			}

			moves = append(moves, mv{src: src, dst: dst, t: tp.Int32})
		}

		for _, u := range units {
			switch rnd.Intn(5) {
			case 0:
			case 1:
				wide(u)
			case 2:
				word(u.ToLow())
			case 3:
				word(u.ToHigh())
			case 4:
				word(u.ToLow())
				word(u.ToHigh())
			}
		}

		rnd.Shuffle(len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })

		// words nobody reads or writes
		idle := make(map[ir.Location]bool)
		for _, l := range pool {
			idle[l] = true
		}

		for _, m := range moves {
			for _, l := range append(halves(m.src), halves(m.dst)...) {
				delete(idle, l)
			}
		}

		err := checkWords(ctx, n, pool, idle, moves)
		require.NoError(t, err, "iter %d noswap: %v", iter, moves)

		err = checkWords(ctx, s, pool, idle, moves)
		if _, ok := err.(resolvePanic); ok {
			// unsupported overlap shapes are asserted
			failed++
			continue
		}

		require.NoError(t, err, "iter %d swap: %v", iter, moves)
	}

	t.Logf("swap resolver asserted on %d of %d", failed, iters)

	assert.Less(t, failed, iters/2)
}

type resolvePanic struct {
	p interface{}
}

func (e resolvePanic) Error() string { return fmt.Sprintf("panic: %v", e.p) }

// checkWords resolves moves and checks every destination holds the value
// its source had before, while idle words are left alone.
func checkWords(ctx context.Context, sim wordSim, pool []ir.Location, idle map[ir.Location]bool, moves []mv) (err error) {
	sim.init()

	before := make(map[ir.Location]int64)
	for _, l := range pool {
		before[l] = sim.read(l)[0]
	}

	want := make([][]int64, len(moves))
	for i, m := range moves {
		want[i] = sim.read(m.src)
	}

	func() {
		defer func() {
			if x := recover(); x != nil {
				err = resolvePanic{p: x}
			}
		}()

		sim.resolve(ctx, parallel(moves))
	}()

	if err != nil {
		return err
	}

	for i, m := range moves {
		if got := sim.read(m.dst); !assert.ObjectsAreEqual(want[i], got) {
			return fmt.Errorf("%v -> %v: want %v, got %v", m.src, m.dst, want[i], got)
		}
	}

	for l := range idle {
		if got := sim.read(l)[0]; got != before[l] {
			return fmt.Errorf("idle %v changed: %v -> %v", l, before[l], got)
		}
	}

	return nil
}

func halves(l ir.Location) []ir.Location {
	switch {
	case l.IsConstant():
		return nil
	case l.Is64Bit():
		return []ir.Location{l.ToLow(), l.ToHigh()}
	default:
		return []ir.Location{l}
	}
}

func (w *words) init() {
	w.val = make(map[ir.Location]int64)
}

func (w *words) read(l ir.Location) []int64 {
	if l.IsConstant() {
		t, v := l.ConstValue()
		if t.Is64Bit() {
			return []int64{int64(uint32(v)), int64(uint32(v >> 32))}
		}

		return []int64{v}
	}

	hs := halves(l)
	vals := make([]int64, len(hs))

	for i, h := range hs {
		v, ok := w.val[h]
		if !ok {
			v = initial(h)
		}

		vals[i] = v
	}

	return vals
}

func (w *words) write(l ir.Location, vals []int64) {
	hs := halves(l)

	if len(hs) != len(vals) {
		panic(fmt.Sprintf("write %v: %d words", l, len(vals)))
	}

	for i, h := range hs {
		w.val[h] = vals[i]
	}
}

func (s *wordSwap) resolve(ctx context.Context, pm *ir.ParallelMove) { s.r.Resolve(ctx, pm) }

func (s *wordSwap) EmitMove(src, dst ir.Location, t tp.Type) { s.write(dst, s.read(src)) }

func (s *wordSwap) EmitSwap(a, b ir.Location, t tp.Type) {
	va, vb := s.read(a), s.read(b)

	s.write(a, vb)
	s.write(b, va)
}

func (s *wordSwap) SpillScratch(reg int)   {}
func (s *wordSwap) RestoreScratch(reg int) {}

func (s *wordNoSwap) resolve(ctx context.Context, pm *ir.ParallelMove) { s.r.Resolve(ctx, pm) }

func (s *wordNoSwap) EmitMove(src, dst ir.Location, t tp.Type) { s.write(dst, s.read(src)) }

func (s *wordNoSwap) PrepareForEmitNativeCode() { s.next = trace.ScratchBase }
func (s *wordNoSwap) FinishEmitNativeCode()     {}

func (s *wordNoSwap) AllocateScratchLocationFor(kind ir.Kind) ir.Location {
	switch kind {
	case ir.KindStackSlot, ir.KindRegister:
		kind = ir.KindRegister
	default:
		kind = ir.KindRegisterPair
	}

	l := s.r.ScratchLocation(kind)
	if l.IsValid() {
		return l
	}

	s.r.AddScratchLocation(r(s.next))
	s.r.AddScratchLocation(r(s.next + 1))
	s.r.AddScratchLocation(p(s.next, s.next+1))

	if kind == ir.KindRegister {
		l = r(s.next)
	} else {
		l = p(s.next, s.next+1)
	}

	s.next += 2

	return l
}

func (s *wordNoSwap) FreeScratchLocation(l ir.Location) {}
