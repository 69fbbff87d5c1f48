package ir

import (
	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/tp"
)

type (
	// ParallelMove is a set of moves performed as if simultaneously.
	// Order only matters as the seed of resolution.
	ParallelMove struct {
		Moves []*Move
	}

	// Point is a program point that needs a parallel move.
	Point struct {
		Label string
		Move  *ParallelMove
	}

	Func struct {
		Name   string
		Points []Point
	}
)

func NewParallelMove() *ParallelMove {
	return &ParallelMove{Moves: make([]*Move, 0, 4)}
}

// AddMove appends a move. The register allocator never produces two moves
// writing overlapping destinations, so it panics on one.
func (p *ParallelMove) AddMove(src, dst Location, t tp.Type, instr any) *Move {
	if src.IsInvalid() || dst.IsInvalid() {
		panic(errors.New("add move: invalid location: %v -> %v", src, dst))
	}

	if !dst.IsUnallocated() {
		for _, m := range p.Moves {
			if m.dst.OverlapsWith(dst) {
				panic(errors.New("add move: overlapped destination: %v and %v -> %v", m, src, dst))
			}
		}
	}

	m := NewMove(src, dst, t, instr)
	p.Moves = append(p.Moves, m)

	return m
}

func (p *ParallelMove) Len() int { return len(p.Moves) }

func (p *ParallelMove) At(i int) *Move { return p.Moves[i] }
