package back

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/tp"
)

type (
	// Resolver emits a sequence of moves with the effect of a parallel move.
	Resolver interface {
		Resolve(ctx context.Context, pm *ir.ParallelMove)
	}

	// SwapEmitter is what SwapResolver needs from an architecture.
	SwapEmitter interface {
		EmitMove(src, dst ir.Location, t tp.Type)
		EmitSwap(a, b ir.Location, t tp.Type)

		// SpillScratch saves reg to a temporary stack location,
		// RestoreScratch loads it back.
		SpillScratch(reg int)
		RestoreScratch(reg int)
	}

	// ScratchEmitter is what NoSwapResolver needs from an architecture.
	ScratchEmitter interface {
		EmitMove(src, dst ir.Location, t tp.Type)

		PrepareForEmitNativeCode()
		FinishEmitNativeCode()

		// AllocateScratchLocationFor returns a location of a compatible kind
		// no live move reads from.
		AllocateScratchLocationFor(kind ir.Kind) ir.Location
		FreeScratchLocation(loc ir.Location)
	}

	moveList []*ir.Move
)

// build fills the list with every move of pm which is not redundant.
func (l *moveList) build(pm *ir.ParallelMove) {
	for _, m := range pm.Moves {
		if m.IsRedundant() {
			continue
		}

		for _, o := range *l {
			if o.Destination().OverlapsWith(m.Destination()) {
				panic(errors.New("destination written twice: %v and %v", o, m))
			}
		}

		*l = append(*l, m)
	}
}

func (l *moveList) reset() {
	for i := range *l {
		(*l)[i] = nil
	}

	*l = (*l)[:0]
}

// blocked reports whether any live move in the list reads loc.
func (l moveList) blocked(loc ir.Location) bool {
	for _, m := range l {
		if m.Blocks(loc) {
			return true
		}
	}

	return false
}
