package parse

import (
	"bytes"
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ast"
)

type (
	// Loc is a location: r3, r0:r1, f3, f0:f1, s16, d32, q64, #-1, #1.5 or ?.
	Loc struct{}

	// Move is src -> dst with an optional type.
	Move struct{}

	// Line is [label:] [move {; move}] [// comment].
	Line struct{}

	File struct{}
)

func (p Loc) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	if st >= len(b) {
		return nil, st, errors.New("Loc expected")
	}

	l := ast.Loc{Kind: b[st]}
	i = st + 1

	switch l.Kind {
	case '?':
	case '#':
		l.Value, i, err = Num{}.Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "constant")
		}
	case 'r', 'f', 's', 'd', 'q':
		x, i, err = Int{}.Parse(ctx, b, i)
		if err != nil {
			return nil, st, errors.New("Loc expected")
		}

		l.Low = x.(ast.Int)

		// r0:r1
		if (l.Kind == 'r' || l.Kind == 'f') && bytes.HasPrefix(b[i:], []byte{':', l.Kind}) {
			x, i, err = Int{}.Parse(ctx, b, i+2)
			if err != nil {
				return nil, i, errors.Wrap(err, "pair high")
			}

			hi := x.(ast.Int)
			l.High = &hi
		}
	default:
		return nil, st, errors.New("Loc expected")
	}

	l.Base = ast.Base{Pos: st, End: i}

	return l, i, nil
}

func (p Move) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	r := AllOf{
		Loc{},
		Spaced(Const("->"), SpaceTab),
		Spaced(Loc{}, SpaceTab),
		Optional{Spaced(Type{}, SpaceTab)},
	}

	x, i, err = r.Parse(ctx, b, st)
	if err != nil {
		return
	}

	xt := x.([]ast.Node)

	m := ast.Move{
		Base: ast.Base{
			Pos: st,
			End: i,
		},
		Src: xt[0].(ast.Loc),
		Dst: xt[2].(ast.Loc),
	}

	if t, ok := xt[3].(ast.Type); ok {
		m.Type = &t
	}

	return m, i, nil
}

func (p Line) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = SpaceTab.Skip(b, st)

	l := ast.Line{}

	if lab, j, ok := label(ctx, b, i); ok {
		l.Label = &lab
		i = SpaceTab.Skip(b, j)
	}

	if x, j, err := (List{Of: Spaced(Move{}, SpaceTab), Sep: Spaced(Const(";"), SpaceTab)}).Parse(ctx, b, i); j != i {
		if err != nil {
			return nil, j, errors.Wrap(err, "moves")
		}

		for _, m := range x.([]ast.Node) {
			l.Moves = append(l.Moves, m.(ast.Move))
		}

		i = SpaceTab.Skip(b, j)
	}

	if _, j, err := (Comment{}).Parse(ctx, b, i); err == nil {
		i = j
	}

	l.Base = ast.Base{Pos: st, End: i}

	switch {
	case i == len(b):
	case b[i] == '\n':
		i++
	case b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n':
		i += 2
	default:
		return nil, i, errors.New("unexpected %q", b[i])
	}

	return l, i, nil
}

func (p File) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	f := ast.File{}

	for i = st; i < len(b); {
		x, i, err = Line{}.Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "line")
		}

		l := x.(ast.Line)

		if l.Label != nil || len(l.Moves) != 0 {
			f.Lines = append(f.Lines, l)
		}
	}

	f.Base = ast.Base{Pos: st, End: i}

	return f, i, nil
}

// label is an identifier followed by a colon and a space or the line end.
// It's not ambiguous with pairs: r0:r1.
func label(ctx context.Context, b []byte, st int) (_ ast.Ident, i int, ok bool) {
	x, i, err := Ident{}.Parse(ctx, b, st)
	if err != nil || i >= len(b) || b[i] != ':' {
		return ast.Ident{}, st, false
	}

	i++

	if i < len(b) && SpaceAll.Skip(b, i) == i && b[i] != '/' {
		return ast.Ident{}, st, false
	}

	return x.(ast.Ident), i, true
}
