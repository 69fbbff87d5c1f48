package main

import (
	"context"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler"
	"github.com/slowlang/pmove/compiler/analyze"
	"github.com/slowlang/pmove/compiler/format"
	"github.com/slowlang/pmove/compiler/parse"
)

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse move sets and print them back with inferred types",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	resolveCmd := &cli.Command{
		Name:        "resolve,compile",
		Description: "resolve parallel moves into sequential code",
		Action:      resolveAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("arch", env.Str("PMOVE_ARCH", "trace-swap"), "target: "+strings.Join(compiler.Archs, ", ")),
		},
	}

	app := &cli.Command{
		Name:        "pmove",
		Description: "pmove is a tool for resolving parallel moves",
		Before:      before,
		After:       after,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", env.Str("PMOVE_V", ""), "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			resolveCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

// logFile is the --log file, closed by after.
var logFile *os.File

func before(c *cli.Command) error {
	w := os.Stderr

	if name := c.String("log"); name != "" && name != "stderr" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}

		logFile = f
		w = f
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func after(c *cli.Command) error {
	if logFile == nil {
		return nil
	}

	err := logFile.Close()
	logFile = nil

	return errors.Wrap(err, "close log file")
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	var b []byte

	for _, a := range c.Args {
		st, x, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		f, err := analyze.Analyze(ctx, st, x)
		if err != nil {
			return errors.Wrap(err, "analyze %v", a)
		}

		b, err = format.Format(ctx, b[:0], f)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func resolveAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	a, err := compiler.NewArch(c.String("arch"))
	if err != nil {
		return err
	}

	for _, name := range c.Args {
		obj, err := compiler.CompileFile(ctx, a, name)
		if err != nil {
			return errors.Wrap(err, "compile %v", name)
		}

		_, err = os.Stdout.Write(obj)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}
