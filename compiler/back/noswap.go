package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/ir"
)

type (
	// NoSwapResolver breaks cycles by moving one value of the cycle aside
	// into a scratch location and moving it to its destination once the
	// cycle is unblocked. It never emits a swap.
	NoSwapResolver struct {
		e ScratchEmitter

		moves     moveList
		scratches []ir.Location
		pending   []*ir.Move
		depth     int

		tr tlog.Span
	}
)

func NewNoSwapResolver(e ScratchEmitter) *NoSwapResolver {
	return &NoSwapResolver{e: e}
}

func (r *NoSwapResolver) Resolve(ctx context.Context, pm *ir.ParallelMove) {
	tr := tlog.SpawnFromContext(ctx, "resolve parallel move", "strategy", "noswap", "moves", pm.Len())
	defer tr.Finish()

	if len(r.moves) != 0 || len(r.pending) != 0 || len(r.scratches) != 0 {
		panic(errors.New("noswap resolver re-entered"))
	}

	r.tr = tr
	defer r.reset()

	r.e.PrepareForEmitNativeCode()

	r.moves.build(pm)

	if tr.If("dump") {
		for i, m := range r.moves {
			tr.Printw("move", "i", i, "move", m)
		}
	}

	// Constants don't block other moves. Leaving them for the end keeps their
	// destination registers free for the whole algorithm.
	for i, m := range r.moves {
		if !m.IsEliminated() && !m.Source().IsConstant() {
			r.performMove(i)
		}
	}

	// Constants to registers. Following moves of the same constant read the
	// register instead, that saves literal loads:
	//	#1.5 -> f0; #1.5 -> f1  =>  #1.5 -> f0; f0 -> f1
	// Stack destinations gain nothing from it.
	for _, m := range r.moves {
		if m.IsEliminated() || m.Destination().IsStackSlot() || m.Destination().IsDoubleStackSlot() {
			continue
		}

		src, dst := m.Source(), m.Destination()

		r.e.EmitMove(src, dst, m.Type())
		m.Eliminate()

		r.UpdateMoveSource(src, dst)
	}

	for _, m := range r.moves {
		if m.IsEliminated() {
			continue
		}

		r.e.EmitMove(m.Source(), m.Destination(), m.Type())
		m.Eliminate()
	}

	if len(r.pending) != 0 {
		panic(errors.New("%d pending moves left", len(r.pending)))
	}

	r.e.FinishEmitNativeCode()
}

func (r *NoSwapResolver) reset() {
	r.tr = tlog.Span{}
	r.depth = 0
	r.moves.reset()
	r.scratches = r.scratches[:0]

	for i := range r.pending {
		r.pending[i] = nil
	}

	r.pending = r.pending[:0]
}

// performMove performs i after every move blocking it, depth first.
// A move still blocked after that is in a cycle: its value goes to a scratch
// location and a pending move from the scratch to the real destination is
// queued. Sources are retargeted after each performed move.
func (r *NoSwapResolver) performMove(i int) {
	m := r.moves[i]

	if m.IsPending() || m.IsEliminated() {
		panic(errors.New("perform move: %v is %v", m, m.State()))
	}

	// Earlier moves can turn this one into a no-op. Say (0 -> 1) (1 -> 0)
	// (1 -> 2) gets 2 as the scratch for the cycle, then (1 -> 2) is done
	// while resolving it and 1 is retargeted to 2, leaving (2 -> 2).
	if m.IsRedundant() {
		m.Eliminate()
		return
	}

	r.depth++
	defer func() { r.depth-- }()

	if r.depth > len(r.moves) {
		panic(errors.New("perform move: recursion is deeper than %d moves", len(r.moves)))
	}

	dst := m.MarkPending()

	r.tr.V("pmove_perform").Printw("perform move", "i", i, "move", m, "depth", r.depth)

	for j, o := range r.moves {
		if o.Blocks(dst) && !o.IsPending() {
			r.performMove(j)
		}
	}

	m.ClearPending(dst)

	// nobody else writes to dst
	if m.IsRedundant() {
		panic(errors.New("perform move: %v became redundant", m))
	}

	src := m.Source()

	if r.IsBlockedByMoves(dst) {
		// (A -> B) (B -> C) (C -> A) becomes
		//	(C -> scratch)     emitted right now
		//	(A -> B) (B -> C)  unblocked
		//	(scratch -> A)     pending, blocked by (A -> B)
		if src.IsConstant() {
			panic(errors.New("perform move: constant %v in a cycle", m))
		}

		scratch := r.e.AllocateScratchLocationFor(src.Kind())
		if scratch.IsInvalid() {
			panic(errors.New("perform move: no scratch location for %v", src.Kind()))
		}

		r.tr.V("pmove_scratch").Printw("break cycle", "move", m, "scratch", scratch)

		m.SetDestination(scratch)
		r.e.EmitMove(src, scratch, m.Type())
		m.Eliminate()

		r.UpdateMoveSource(src, scratch)

		r.pending = append(r.pending, ir.NewMove(scratch, dst, m.Type(), nil))
	} else {
		r.e.EmitMove(src, dst, m.Type())
		m.Eliminate()

		r.UpdateMoveSource(src, dst)
	}

	r.drainPendingMoves(src)
}

// drainPendingMoves performs pending moves unblocked by reading loc for the
// last time. A performed pending move frees its own source, which may
// unblock one more: (T0 -> 2) waits for (2 -> 1) which waits for loc.
// Pending moves don't block other moves, but performing them frees
// scratch locations, so do it as early as possible.
func (r *NoSwapResolver) drainPendingMoves(loc ir.Location) {
	freed := []ir.Location{loc}

	for k := 0; k < len(freed); k++ {
		for {
			pm := r.unblockedPendingMove(freed[k])
			if pm == nil {
				break
			}

			psrc, pdst := pm.Source(), pm.Destination()

			r.deletePendingMove(pm)

			r.e.EmitMove(psrc, pdst, pm.Type())
			pm.Eliminate()

			r.UpdateMoveSource(psrc, pdst)

			r.freeScratches(psrc)

			freed = append(freed, psrc)
		}
	}
}

// freeScratches frees every scratch location overlapping a location just
// read for the last time. FreeScratchLocation may remove it from the list.
func (r *NoSwapResolver) freeScratches(read ir.Location) {
	var free []ir.Location

	for _, s := range r.scratches {
		if s.OverlapsWith(read) && !r.IsBlockedByMoves(s) {
			free = append(free, s)
		}
	}

	for _, s := range free {
		r.e.FreeScratchLocation(s)
	}
}

// UpdateMoveSource makes moves reading from read to instead, after
// (from -> to) was performed. Since destinations are unique, (to -> X) can't
// be blocked while (from -> X) may be: with (0 -> 1) (1 -> 2) (1 -> 3),
// after (1 -> 2) the moves (0 -> 1) (2 -> 3) are independent.
// It's optional but saves scratch locations.
func (r *NoSwapResolver) UpdateMoveSource(from, to ir.Location) {
	for _, m := range r.moves {
		if !m.IsEliminated() && m.Source() == from {
			m.SetSource(to)
		}
	}
}

// IsBlockedByMoves reports whether any live or pending move reads loc.
func (r *NoSwapResolver) IsBlockedByMoves(loc ir.Location) bool {
	return moveList(r.pending).blocked(loc) || r.moves.blocked(loc)
}

// ScratchLocation finds a free location of the kind: a known scratch or
// the destination of a move yet to be performed. NoLocation if none.
func (r *NoSwapResolver) ScratchLocation(kind ir.Kind) ir.Location {
	for _, l := range r.scratches {
		if l.Kind() == kind && !r.IsBlockedByMoves(l) {
			return l
		}
	}

	for _, m := range r.moves {
		if m.State() != ir.MoveNormal {
			continue
		}

		l := m.Destination()

		if l.Kind() == kind && !r.IsBlockedByMoves(l) {
			return l
		}
	}

	return ir.NoLocation()
}

func (r *NoSwapResolver) AddScratchLocation(l ir.Location) {
	for _, s := range r.scratches {
		if s == l {
			panic(errors.New("scratch location %v added twice", l))
		}
	}

	r.scratches = append(r.scratches, l)
}

func (r *NoSwapResolver) RemoveScratchLocation(l ir.Location) {
	if r.IsBlockedByMoves(l) {
		panic(errors.New("remove scratch location: %v is in use", l))
	}

	for i, s := range r.scratches {
		if s == l {
			r.scratches = append(r.scratches[:i], r.scratches[i+1:]...)
			return
		}
	}
}

// Scratches returns scratch locations known in the current pass.
func (r *NoSwapResolver) Scratches() []ir.Location { return r.scratches }

func (r *NoSwapResolver) unblockedPendingMove(loc ir.Location) *ir.Move {
	for _, m := range r.pending {
		dst := m.Destination()

		// only moves writing loc could have been unblocked
		if dst.OverlapsWith(loc) && !r.IsBlockedByMoves(dst) {
			return m
		}
	}

	return nil
}

func (r *NoSwapResolver) deletePendingMove(m *ir.Move) {
	for i, p := range r.pending {
		if p == m {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}
