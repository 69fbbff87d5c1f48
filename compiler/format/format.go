package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/pmove/compiler/ir"
)

// Format appends x in the move-set text syntax. Output parses back into
// the same moves.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Func:
		return formatFunc(ctx, b, x, d)
	case *ir.ParallelMove:
		return formatMoves(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatFunc(ctx context.Context, b []byte, x *ir.Func, d int) (_ []byte, err error) {
	b = app(b, d, "// %s\n", x.Name)

	for i, p := range x.Points {
		if i != 0 {
			b = append(b, '\n')
		}

		switch {
		case p.Label != "":
			b = app(b, d, "%s:\n", p.Label)
		case i != 0:
			// unlabeled lines would join the previous point
			b = app(b, d, "point%d:\n", i)
		}

		b, err = formatMoves(ctx, b, p.Move, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "point %d", i)
		}
	}

	return b, nil
}

func formatMoves(ctx context.Context, b []byte, x *ir.ParallelMove, d int) (_ []byte, err error) {
	for _, m := range x.Moves {
		b = app(b, d, "%v -> %v %v\n", m.Source(), m.Destination(), m.Type())
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
