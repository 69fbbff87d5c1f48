package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/analyze"
	"github.com/slowlang/pmove/compiler/asm/amd64"
	"github.com/slowlang/pmove/compiler/asm/arm64"
	"github.com/slowlang/pmove/compiler/asm/trace"
	"github.com/slowlang/pmove/compiler/back"
	"github.com/slowlang/pmove/compiler/parse"
)

// Archs lists supported architectures.
var Archs = []string{"amd64", "arm64", "trace-swap", "trace-noswap"}

func NewArch(name string) (back.Arch, error) {
	switch name {
	case "amd64":
		return amd64.New(), nil
	case "arm64":
		return arm64.New(), nil
	case "trace-swap", "trace":
		return trace.NewSwap(), nil
	case "trace-noswap":
		return trace.NewNoSwap(), nil
	default:
		return nil, errors.New("unsupported arch: %v", name)
	}
}

func CompileFile(ctx context.Context, a back.Arch, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, a, name, text)
}

func Compile(ctx context.Context, a back.Arch, name string, text []byte) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "arch", a.Name())
	defer tr.Finish("err", &err)

	st := parse.New()

	st.AddFile(name, text)

	x, err := st.Parse(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	f, err := analyze.Analyze(ctx, st, x)
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	obj, err = back.New().CompileFunc(ctx, a, nil, f)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}
