package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/set"
)

type (
	// SwapResolver breaks cycles by exchanging two locations in place.
	SwapResolver struct {
		e SwapEmitter

		moves moveList
		fixed []ir.Location // destinations of dropped no-op moves
		depth int

		swaps     int
		rootSwaps int

		tr tlog.Span
	}

	// ScratchRegisterScope holds a scratch register while one primitive is
	// emitted. If no register was free the fallback register is spilled
	// until Release.
	ScratchRegisterScope struct {
		r        *SwapResolver
		reg      int
		spilled  bool
		released bool
	}

	// result of performMove: done, restart or the index of the move to be
	// swapped.
	result int
)

const (
	done result = -1

	// restart unwinds to the root move. Swaps deeper in the path changed
	// the sources the path was built on.
	restart result = -2
)

func NewSwapResolver(e SwapEmitter) *SwapResolver {
	return &SwapResolver{e: e}
}

func (r *SwapResolver) Resolve(ctx context.Context, pm *ir.ParallelMove) {
	tr := tlog.SpawnFromContext(ctx, "resolve parallel move", "strategy", "swap", "moves", pm.Len())
	defer tr.Finish()

	if len(r.moves) != 0 {
		panic(errors.New("swap resolver re-entered"))
	}

	r.tr = tr
	defer func() {
		r.tr = tlog.Span{}
		r.depth = 0
		r.fixed = r.fixed[:0]
		r.moves.reset()
	}()

	r.moves.build(pm)

	for _, m := range pm.Moves {
		if !m.IsEliminated() && m.Source() == m.Destination() && m.Destination().IsValid() && !m.Destination().IsUnallocated() {
			r.fixed = append(r.fixed, m.Destination())
		}
	}

	if tr.If("dump") {
		for i, m := range r.moves {
			tr.Printw("move", "i", i, "move", m)
		}
	}

	// Stack to stack moves first, to take advantage of a free register on
	// constrained machines.
	for i, m := range r.moves {
		if m.IsEliminated() || m.Source().IsConstant() {
			continue
		}

		if isWordStackSlot(m.Source()) && isWordStackSlot(m.Destination()) {
			r.perform(i)
		}
	}

	// Constants don't block other moves. Leaving them for the end keeps their
	// destination registers free for the whole algorithm.
	for i, m := range r.moves {
		if !m.IsEliminated() && !m.Source().IsConstant() {
			r.perform(i)
		}
	}

	for _, m := range r.moves {
		if m.IsEliminated() {
			continue
		}

		if !m.Source().IsConstant() {
			panic(errors.New("unresolved move: %v", m))
		}

		r.e.EmitMove(m.Source(), m.Destination(), m.Type())

		// Following moves may need a scratch register.
		m.Eliminate()
	}
}

// perform resolves the move i, from scratch again on restart.
// Every restart follows a swap, so it ends.
func (r *SwapResolver) perform(i int) {
	for !r.moves[i].IsEliminated() {
		r.rootSwaps = r.swaps

		if r.performMove(i) != restart {
			return
		}

		r.tr.V("pmove_swap").Printw("restart", "i", i, "move", r.moves[i])
	}
}

// performMove performs i after every move blocking it, depth first.
// Pending moves mark the path being visited, reaching one means a cycle.
// Swaps rewrite the sources of the remaining moves, so any source may change
// during the call.
func (r *SwapResolver) performMove(i int) result {
	m := r.moves[i]

	if m.IsPending() {
		panic(errors.New("perform move: %v is pending", m))
	}

	// Swapping register pairs first can make a later move a no-op.
	if m.IsRedundant() {
		m.Eliminate()
		return done
	}

	r.depth++
	defer func() { r.depth-- }()

	if r.depth > len(r.moves) {
		panic(errors.New("perform move: recursion is deeper than %d moves", len(r.moves)))
	}

	dst := m.MarkPending()

	r.tr.V("pmove_perform").Printw("perform move", "i", i, "move", m, "depth", r.depth)

	req := done

	for j := 0; j < len(r.moves); j++ {
		o := r.moves[j]

		if !o.Blocks(dst) || o.IsPending() {
			continue
		}

		swaps := r.swaps

		req = r.performMove(j)

		switch req {
		case result(i):
			// it's us to swap, nothing blocks a swap
		case result(j):
			// o was swapped, look for a new cycle from the start
			req = done
			j = -1

			continue
		case done:
			// Swaps rewrite sources, any move may block dst now.
			if r.swaps != swaps {
				j = -1
			}

			continue
		default:
			// unwind to the 64-bit move of the cycle
			m.ClearPending(dst)

			return req
		}

		break
	}

	m.ClearPending(dst)

	// Swaps may have made it the last move of the cycle.
	if m.Source() == dst {
		m.Eliminate()

		if req != done {
			panic(errors.New("perform move: swap of no-op move %v", m))
		}

		return done
	}

	swap := req != done

	if swap && req != result(i) {
		panic(errors.New("perform move: unexpected swap request %d for %d", req, i))
	}

	if !swap {
		wide := -1

		for j, o := range r.moves {
			if !o.Blocks(dst) {
				continue
			}

			if !o.IsPending() {
				panic(errors.New("perform move: %v blocked by %v", m, o))
			}

			if wide < 0 && o.Is64Bit() {
				wide = j
			}

			swap = true
		}

		// 64-bit moves are swapped first. Swapping a half of a pair
		// leaves the pair inconsistent.
		if !m.Is64Bit() && wide >= 0 {
			return result(wide)
		}
	}

	src := m.Source()

	if !swap {
		r.e.EmitMove(src, dst, m.Type())
		m.Eliminate()

		return done
	}

	// The swap writes src. If it holds a finished value the path is stale:
	// an earlier swap moved a pending move's source out of the cycle.
	if l, ok := r.filled(src); ok {
		if r.swaps == r.rootSwaps {
			panic(errors.New("perform move: swap of %v overwrites %v", m, l))
		}

		return restart
	}

	r.tr.V("pmove_swap").Printw("swap", "i", i, "src", src, "dst", dst, "type", m.Type())

	r.e.EmitSwap(src, dst, m.Type())
	r.swaps++
	m.Eliminate()

	for _, o := range r.moves {
		switch {
		case o.Blocks(src):
			updateSourceOf(o, src, dst)
		case o.Blocks(dst):
			updateSourceOf(o, dst, src)
		}
	}

	// Tell the caller the 64-bit move in the middle of the cycle is swapped,
	// it must rescan its dependencies.
	return req
}

// updateSourceOf rewrites m after updated was exchanged with newSrc.
// updated may be a pair while m reads one half of it.
func updateSourceOf(m *ir.Move, updated, newSrc ir.Location) {
	src := m.Source()

	switch {
	case ir.LowOf(updated) == src:
		m.SetSource(ir.LowOf(newSrc))
	case ir.HighOf(updated) == src:
		m.SetSource(ir.HighOf(newSrc))
	case updated == src:
		m.SetSource(newSrc)
	default:
		panic(errors.New("update source: %v is not a part of %v", src, updated))
	}
}

// filled returns a location overlapping loc which already holds its final
// value.
func (r *SwapResolver) filled(loc ir.Location) (ir.Location, bool) {
	for _, l := range r.fixed {
		if l.OverlapsWith(loc) {
			return l, true
		}
	}

	for _, m := range r.moves {
		if m.IsEliminated() && m.Destination().OverlapsWith(loc) {
			return m.Destination(), true
		}
	}

	return ir.NoLocation(), false
}

// IsScratchLocation reports whether loc holds nothing live: no move reads
// from it and some move is going to overwrite it anyway.
func (r *SwapResolver) IsScratchLocation(loc ir.Location) bool {
	if r.moves.blocked(loc) {
		return false
	}

	for _, m := range r.moves {
		if m.State() == ir.MoveNormal && m.Destination() == loc {
			return true
		}
	}

	return false
}

// AllocateScratchRegister picks a register from candidates other than
// blocked which IsScratchLocation. If there is none it returns ifScratch,
// the caller must spill it first.
func (r *SwapResolver) AllocateScratchRegister(blocked, ifScratch int, candidates *set.Bitmap) (reg int, spilled bool) {
	if blocked == ifScratch {
		panic(errors.New("scratch register %d is blocked", ifScratch))
	}

	reg = -1

	candidates.Range(func(x int) bool {
		if x != blocked && r.IsScratchLocation(ir.Register(x)) {
			reg = x
			return false
		}

		return true
	})

	if reg == -1 {
		return ifScratch, true
	}

	return reg, false
}

// ScratchRegister acquires a scratch register. The scope must be released,
// typically with defer.
func (r *SwapResolver) ScratchRegister(blocked, ifScratch int, candidates *set.Bitmap) *ScratchRegisterScope {
	reg, spilled := r.AllocateScratchRegister(blocked, ifScratch, candidates)

	r.tr.V("pmove_scratch").Printw("scratch register", "reg", reg, "spilled", spilled, "blocked", blocked, "from", loc.Caller(1))

	if spilled {
		r.e.SpillScratch(reg)
	}

	return &ScratchRegisterScope{
		r:       r,
		reg:     reg,
		spilled: spilled,
	}
}

func (s *ScratchRegisterScope) Reg() int { return s.reg }

func (s *ScratchRegisterScope) IsSpilled() bool { return s.spilled }

// Release restores the spilled register. It's safe to call more than once.
func (s *ScratchRegisterScope) Release() {
	if s.released {
		return
	}

	s.released = true

	if s.spilled {
		s.r.e.RestoreScratch(s.reg)
	}
}

func isWordStackSlot(l ir.Location) bool {
	return l.IsStackSlot() || l.IsDoubleStackSlot()
}
