package ast

type (
	Node interface {
	}

	Base struct {
		Pos int
		End int
	}

	Ident struct {
		Base `tlog:",embed"`
	}

	Int struct {
		Base `tlog:",embed"`
	}

	Float struct {
		Base `tlog:",embed"`
	}

	Type struct {
		Base `tlog:",embed"`
	}

	// Loc is a location. Kind is the leading char of its syntax:
	// r, f, s, d, q, # or ?.
	Loc struct {
		Base `tlog:",embed"`

		Kind byte

		Low  Int
		High *Int // pairs

		Value Node // constants: Int or Float
	}

	Move struct {
		Base `tlog:",embed"`

		Src Loc
		Dst Loc

		Type *Type
	}

	// Line holds a label, moves or both.
	Line struct {
		Base `tlog:",embed"`

		Label *Ident
		Moves []Move
	}

	File struct {
		Base `tlog:",embed"`

		Name  string
		Lines []Line
	}
)

func (l Loc) IsPair() bool { return l.High != nil }
