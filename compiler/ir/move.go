package ir

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/pmove/compiler/tp"
)

type (
	MoveState uint8

	// Move is one edge of a parallel move graph.
	Move struct {
		src, dst Location
		typ      tp.Type
		state    MoveState

		// Instr is the instruction the move was created for, if any.
		Instr any
	}
)

const (
	MoveNormal MoveState = iota
	MovePending
	MoveEliminated
)

func NewMove(src, dst Location, t tp.Type, instr any) *Move {
	return &Move{src: src, dst: dst, typ: t, Instr: instr}
}

func (m *Move) Source() Location      { return m.src }
func (m *Move) Destination() Location { return m.dst }
func (m *Move) Type() tp.Type         { return m.typ }
func (m *Move) State() MoveState      { return m.state }

func (m *Move) SetSource(l Location)      { m.src = l }
func (m *Move) SetDestination(l Location) { m.dst = l }

// Is64Bit is decided by the data type, a 64-bit value held in a single
// register is still a 64-bit move.
func (m *Move) Is64Bit() bool { return m.typ.Is64Bit() }

// MarkPending flags the move as being resolved and returns its destination.
func (m *Move) MarkPending() Location {
	if m.state != MoveNormal {
		panic(errors.New("mark pending: move %v is %v", m, m.state))
	}

	m.state = MovePending

	return m.dst
}

func (m *Move) ClearPending(dst Location) {
	if m.state != MovePending {
		panic(errors.New("clear pending: move %v is %v", m, m.state))
	}

	m.state = MoveNormal
	m.dst = dst
}

func (m *Move) IsPending() bool { return m.state == MovePending }

func (m *Move) Eliminate() { m.state = MoveEliminated }

func (m *Move) IsEliminated() bool { return m.state == MoveEliminated }

// Blocks reports whether the move still has to read loc.
func (m *Move) Blocks(loc Location) bool {
	return m.state != MoveEliminated && m.src.OverlapsWith(loc)
}

// IsRedundant is true for eliminated moves, moves to nowhere and no-op moves.
func (m *Move) IsRedundant() bool {
	return m.state == MoveEliminated ||
		m.dst.IsInvalid() || m.dst.IsUnallocated() ||
		m.src == m.dst
}

func (m *Move) String() string {
	return fmt.Sprintf("%v -> %v %v", m.src, m.dst, m.typ)
}

func (m *Move) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, m.String())
}

func (s MoveState) String() string {
	switch s {
	case MoveNormal:
		return "normal"
	case MovePending:
		return "pending"
	case MoveEliminated:
		return "eliminated"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}
