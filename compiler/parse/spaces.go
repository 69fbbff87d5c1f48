package parse

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ast"
)

type (
	// Spaces is a set of characters below 64 to skip.
	Spaces uint64

	// Spacer parses Of after skipping Spaces.
	// Nothing is consumed if Of doesn't match.
	Spacer struct {
		Spaces Spaces
		Of     Parser
	}
)

var (
	Space    = NewSpaces(" ")
	SpaceTab = NewSpaces(" \t")
	SpaceAll = NewSpaces(" \t\r\n")
)

func NewSpaces(chars string) (s Spaces) {
	for _, c := range []byte(chars) {
		if c >= 64 {
			panic(errors.New("space char %q is not supported", c))
		}

		s |= 1 << c
	}

	return s
}

func (s Spaces) Has(c byte) bool {
	return c < 64 && s&(1<<c) != 0
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	for i = st; i < len(b) && s.Has(b[i]); i++ {
	}

	return i
}

func Spaced(p Parser, s Spaces) Spacer {
	return Spacer{Spaces: s, Of: p}
}

func (p Spacer) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	vst := p.Spaces.Skip(b, st)

	x, i, err = p.Of.Parse(ctx, b, vst)
	if err == nil {
		return x, i, nil
	}

	if i == vst {
		i = st
	}

	return nil, i, errors.Wrap(err, "%T", p.Of)
}
