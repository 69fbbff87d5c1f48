package parse

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ast"
)

type (
	// None is the result of an absent Optional.
	None struct{}

	Optional struct {
		Parser
	}

	// AllOf is a sequence. It returns []ast.Node.
	AllOf []Parser

	// AnyOf is the first alternative that matches.
	AnyOf []Parser

	// List is one or more Of separated by Sep. It returns []ast.Node.
	List struct {
		Of  Parser
		Sep Parser
	}
)

func (p Optional) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	x, i, err = p.Parser.Parse(ctx, b, st)
	if err != nil && i == st {
		return None{}, st, nil
	}

	return x, i, err
}

func (p AllOf) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	res := make([]ast.Node, len(p))

	i = st

	for j, sub := range p {
		res[j], i, err = sub.Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "%T (%d)", sub, j)
		}
	}

	return res, i, nil
}

// Parse returns the error of the alternative which went the farthest
// if none matches.
func (p AnyOf) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = st

	for _, sub := range p {
		x, j, e := sub.Parse(ctx, b, st)
		if e == nil {
			return x, j, nil
		}

		if j > i {
			i, err = j, errors.Wrap(e, "%T", sub)
		}
	}

	if err != nil {
		return nil, i, err
	}

	return nil, st, errors.New("expected %v", names(p))
}

func (p List) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	x, i, err = p.Of.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	res := []ast.Node{x}

	for {
		sep := i

		_, i, err = p.Sep.Parse(ctx, b, sep)
		if err != nil && i == sep {
			return res, sep, nil
		}
		if err != nil {
			return nil, i, errors.Wrap(err, "separator")
		}

		x, i, err = p.Of.Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "element %d", len(res))
		}

		res = append(res, x)
	}
}

func names(l []Parser) string {
	s := make([]string, len(l))

	for i, p := range l {
		s[i] = fmt.Sprintf("%T", p)
	}

	if len(s) < 2 {
		return strings.Join(s, "")
	}

	return strings.Join(s[:len(s)-1], ", ") + " or " + s[len(s)-1]
}
