package parse

import (
	"bytes"
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ast"
)

type (
	Const []byte

	// Ident is a letter or underscore followed by letters, digits and underscores.
	Ident struct{}

	// Type is a type name. It's checked by analyze.
	Type struct{}

	// Comment is // to the end of the line.
	Comment struct{}
)

func (p Const) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	if !bytes.HasPrefix(b[st:], p) {
		return nil, st, errors.New("%q expected", []byte(p))
	}

	return p, st + len(p), nil
}

func (p Ident) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = st

	for i < len(b) && (isLetter(b[i]) || i != st && isDigit(b[i])) {
		i++
	}

	if i == st {
		return nil, st, errors.New("Ident expected")
	}

	return ast.Ident{Base: ast.Base{Pos: st, End: i}}, i, nil
}

func (p Type) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	x, i, err = Ident{}.Parse(ctx, b, st)
	if err != nil {
		return nil, st, errors.New("Type expected")
	}

	return ast.Type(x.(ast.Ident)), i, nil
}

func (Comment) Parse(ctx context.Context, b []byte, st int) (_ ast.Node, i int, err error) {
	if !bytes.HasPrefix(b[st:], []byte("//")) {
		return nil, st, errors.New("Comment expected")
	}

	i = bytes.IndexByte(b[st:], '\n')
	if i < 0 {
		return Comment{}, len(b), nil
	}

	return Comment{}, st + i, nil
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
