package parse

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/ast"
)

type (
	State struct {
		b []byte // all files concatenated

		Grammar Parser

		files []file
	}

	file struct {
		base int
		size int
		name string
	}

	Parser interface {
		Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error)
	}

	// Pos is a human readable position in a file.
	Pos struct {
		File string
		Line int
		Col  int
	}

	PartialReadError struct {
		End int
	}
)

func ParseFile(ctx context.Context, name string) (*State, ast.Node, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	s := New()

	s.AddFile(name, data)

	x, err := s.Parse(ctx)

	return s, x, err
}

func Parse(ctx context.Context, text []byte) (*State, ast.Node, error) {
	s := New()

	s.AddFile("", text)

	x, err := s.Parse(ctx)

	return s, x, err
}

func New() *State {
	return &State{
		Grammar: File{},
	}
}

func (s *State) Parse(ctx context.Context) (x ast.Node, err error) {
	x, i, err := s.Grammar.Parse(ctx, s.b, 0)
	if err != nil {
		return nil, errors.Wrap(err, "%v", s.Position(i))
	}

	i = SpaceAll.Skip(s.b, i)

	if i != len(s.b) {
		return x, PartialReadError{End: i}
	}

	if f, ok := x.(ast.File); ok && len(s.files) != 0 {
		f.Name = s.files[0].name
		x = f
	}

	return x, nil
}

func (s *State) AddFile(name string, text []byte) {
	f := file{
		name: name,
		base: len(s.b),
		size: len(text),
	}

	s.b = append(s.b, text...)

	s.files = append(s.files, f)
}

func (s *State) Text(pos, end int) []byte {
	return s.b[pos:end]
}

// Position converts an offset into file:line:col.
func (s *State) Position(off int) (p Pos) {
	base := 0

	for _, f := range s.files {
		if off >= f.base && off <= f.base+f.size {
			p.File = f.name
			base = f.base

			break
		}
	}

	if off > len(s.b) {
		off = len(s.b)
	}

	text := s.b[base:off]

	p.Line = 1 + bytes.Count(text, []byte{'\n'})
	p.Col = 1 + off - base - (bytes.LastIndexByte(text, '\n') + 1)

	return p
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}

	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

func (e PartialReadError) Error() string {
	return fmt.Sprintf("partial read: stopped at %d", e.End)
}
