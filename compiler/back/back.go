package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/asm"
	"github.com/slowlang/pmove/compiler/ir"
)

type (
	// Arch is a code generator backend. It owns a resolver of a strategy it
	// supports and accumulates emitted code until Flush.
	Arch interface {
		Resolver

		Name() string
		Flush(b []byte) []byte
	}

	Compiler struct{}
)

func New() *Compiler { return &Compiler{} }

func (c *Compiler) CompileFunc(ctx context.Context, a Arch, b []byte, f *ir.Func) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile func", "name", f.Name, "arch", a.Name(), "points", len(f.Points))
	defer tr.Finish("err", &err)

	b = fmt.Appendf(b, "// func %s, %s\n", f.Name, a.Name())

	for i, p := range f.Points {
		label := p.Label
		if label == "" {
			label = fmt.Sprintf("%s_%d", f.Name, i)
		}

		b = fmt.Appendf(b, "%s:\n", label)

		b, err = c.compilePoint(ctx, a, b, p)
		if err != nil {
			return b, errors.Wrap(err, "point %v", label)
		}
	}

	return b, nil
}

func (c *Compiler) compilePoint(ctx context.Context, a Arch, b []byte, p ir.Point) (_ []byte, err error) {
	if p.Move == nil || p.Move.Len() == 0 {
		return b, nil
	}

	// Emitters panic on locations they can't encode.
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		// drop code of the failed point
		_ = a.Flush(nil)

		if e, ok := r.(error); ok {
			err = e
		} else {
			err = errors.New("%v", r)
		}
	}()

	a.Resolve(ctx, p.Move)

	if tr := tlog.SpanFromContext(ctx); tr.If("dump") {
		if c, ok := a.(interface{ Code() *asm.Code }); ok {
			tr.Printw("resolved", "label", p.Label, "code", c.Code())
		} else {
			tr.Printw("resolved", "label", p.Label, "moves", p.Move.Len())
		}
	}

	return a.Flush(b), nil
}
