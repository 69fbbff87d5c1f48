package parse

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ast"
)

type (
	// Num is an Int or a Float, optionally negative.
	Num struct{}

	// Int is a decimal or 0x prefixed hex number.
	Int struct {
		Signed bool
	}

	Float struct{}
)

func (p Num) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = st

	if i < len(b) && b[i] == '-' {
		i++
	}

	if isHex(b, i) {
		return Int{Signed: true}.Parse(ctx, b, st)
	}

	dst := i
	dot := false
	exp := false

loop:
	for ; i < len(b); i++ {
		switch {
		case b[i] >= '0' && b[i] <= '9':
		case !dot && !exp && b[i] == '.':
			dot = true
		case !exp && i != dst && (b[i] == 'e' || b[i] == 'E'):
			exp = true

			if i+1 < len(b) && (b[i+1] == '-' || b[i+1] == '+') {
				i++
			}
		default:
			break loop
		}
	}

	if i == dst || i == dst+1 && b[dst] == '.' {
		return nil, st, errors.New("Num expected")
	}

	base := ast.Base{
		Pos: st,
		End: i,
	}

	if dot || exp {
		return ast.Float{Base: base}, i, nil
	}

	return ast.Int{Base: base}, i, nil
}

func (p Int) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = st

	if p.Signed && i < len(b) && b[i] == '-' {
		i++
	}

	hex := isHex(b, i)
	if hex {
		i += 2
	}

	dst := i

	for i < len(b) && (b[i] >= '0' && b[i] <= '9' || hex && isHexLetter(b[i])) {
		i++
	}

	if i == dst {
		return nil, st, errors.New("Int expected")
	}

	return ast.Int{
		Base: ast.Base{
			Pos: st,
			End: i,
		},
	}, i, nil
}

func (p Float) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	x, i, err = Num{}.Parse(ctx, b, st)
	if err != nil {
		return nil, st, errors.New("Float expected")
	}

	if y, ok := x.(ast.Int); ok {
		x = ast.Float(y)
	}

	return
}

func isHex(b []byte, i int) bool {
	return i+1 < len(b) && b[i] == '0' && (b[i+1] == 'x' || b[i+1] == 'X')
}

func isHexLetter(c byte) bool {
	return c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
