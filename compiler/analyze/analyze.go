package analyze

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pmove/compiler/ast"
	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/parse"
	"github.com/slowlang/pmove/compiler/tp"
)

type (
	UnsupportedASTNodeError struct{ T ast.Node }

	// PosError is an error at a position of the source text.
	PosError struct {
		Pos parse.Pos
		Err error
	}
)

// Analyze converts a parsed move-set file into a function.
// A labeled line starts a new point, unlabeled lines add moves to the
// current one.
func Analyze(ctx context.Context, st *parse.State, x ast.Node) (f *ir.Func, err error) {
	file, ok := x.(ast.File)
	if !ok {
		return nil, NewUnsupportedASTNode(x)
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze", "file", file.Name, "lines", len(file.Lines))
	defer tr.Finish("err", &err)

	f = &ir.Func{Name: funcName(file.Name)}

	var p *ir.Point

	for _, l := range file.Lines {
		if l.Label != nil || p == nil {
			f.Points = append(f.Points, ir.Point{Move: ir.NewParallelMove()})
			p = &f.Points[len(f.Points)-1]
		}

		if l.Label != nil {
			p.Label = string(st.Text(l.Label.Pos, l.Label.End))
		}

		for _, m := range l.Moves {
			err = addMove(p.Move, st, m)
			if err != nil {
				return nil, err
			}
		}
	}

	if tr.If("dump") {
		for _, p := range f.Points {
			tr.Printw("point", "label", p.Label, "moves", p.Move.Moves)
		}
	}

	return f, nil
}

func addMove(pm *ir.ParallelMove, st *parse.State, m ast.Move) error {
	dst, err := location(st, m.Dst, tp.Void)
	if err != nil {
		return err
	}

	if dst.IsConstant() {
		return posErr(st, m.Dst.Pos, errors.New("constant destination"))
	}

	var t tp.Type

	if m.Type != nil {
		name := string(st.Text(m.Type.Pos, m.Type.End))

		t, err = tp.Parse(name)
		if err != nil {
			return posErr(st, m.Type.Pos, err)
		}
	}

	if t == tp.Void {
		t = inferType(m.Src, dst, st)
	}

	src, err := location(st, m.Src, t)
	if err != nil {
		return err
	}

	if src.IsUnallocated() {
		return posErr(st, m.Src.Pos, errors.New("unallocated source"))
	}

	if !dst.IsUnallocated() {
		for _, o := range pm.Moves {
			if o.Destination().OverlapsWith(dst) {
				return posErr(st, m.Dst.Pos, errors.New("destination %v overlaps with %v", dst, o))
			}
		}
	}

	pm.AddMove(src, dst, t, m)

	return nil
}

// location converts l. Constants are of type t.
func location(st *parse.State, l ast.Loc, t tp.Type) (ir.Location, error) {
	if l.Kind == '?' {
		return ir.Unallocated(), nil
	}

	if l.Kind == '#' {
		return constant(st, l, t)
	}

	lo, err := number(st, l.Low)
	if err != nil {
		return ir.NoLocation(), err
	}

	if l.IsPair() {
		hi, err := number(st, *l.High)
		if err != nil {
			return ir.NoLocation(), err
		}

		if hi == lo {
			return ir.NoLocation(), posErr(st, l.Pos, errors.New("pair of the same register"))
		}

		if l.Kind == 'f' {
			return ir.FpuRegisterPair(lo, hi), nil
		}

		return ir.RegisterPair(lo, hi), nil
	}

	switch l.Kind {
	case 'r':
		return ir.Register(lo), nil
	case 'f':
		return ir.FpuRegister(lo), nil
	case 's':
		return ir.StackSlot(lo), nil
	case 'd':
		return ir.DoubleStackSlot(lo), nil
	case 'q':
		return ir.SIMDStackSlot(lo), nil
	}

	return ir.NoLocation(), posErr(st, l.Pos, NewUnsupportedASTNode(l))
}

func constant(st *parse.State, l ast.Loc, t tp.Type) (ir.Location, error) {
	var text string
	var float bool

	switch v := l.Value.(type) {
	case ast.Int:
		text = string(st.Text(v.Pos, v.End))
	case ast.Float:
		text = string(st.Text(v.Pos, v.End))
		float = true
	default:
		return ir.NoLocation(), posErr(st, l.Pos, NewUnsupportedASTNode(l.Value))
	}

	if t.IsFloat() {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return ir.NoLocation(), posErr(st, l.Pos, errors.Wrap(err, "float constant"))
		}

		if t == tp.Float32 {
			return ir.FloatConstant(float32(v)), nil
		}

		return ir.DoubleConstant(v), nil
	}

	if float {
		return ir.NoLocation(), posErr(st, l.Pos, errors.New("float constant of %v type", t))
	}

	bits := 64
	if !t.Is64Bit() {
		bits = 32
	}

	v, err := parseInt(text, bits)
	if err != nil {
		return ir.NoLocation(), posErr(st, l.Pos, errors.Wrap(err, "int constant"))
	}

	if t.Is64Bit() {
		return ir.LongConstant(v), nil
	}

	return ir.Constant(t, int64(int32(v))), nil
}

// parseInt accepts signed and unsigned values of the size.
func parseInt(text string, bits int) (int64, error) {
	v, err := strconv.ParseInt(text, 0, bits)
	if err == nil {
		return v, nil
	}

	if strings.HasPrefix(text, "-") {
		return 0, err
	}

	u, uerr := strconv.ParseUint(text, 0, bits)
	if uerr != nil {
		return 0, err
	}

	return int64(u), nil
}

func number(st *parse.State, x ast.Int) (int, error) {
	v, err := strconv.ParseInt(string(st.Text(x.Pos, x.End)), 0, 32)
	if err != nil {
		return 0, posErr(st, x.Pos, errors.Wrap(err, "parse Int value"))
	}

	return int(v), nil
}

// inferType guesses the type of a move from its locations.
// Pairs and double slots are 64 bit, fpu registers and float literals are floats.
func inferType(src ast.Loc, dst ir.Location, st *parse.State) tp.Type {
	wide := dst.Is64Bit() || src.IsPair() || src.Kind == 'd'
	float := dst.IsFpuRegister() || dst.IsFpuRegisterPair() || src.Kind == 'f'

	if src.Kind == '#' {
		_, float = src.Value.(ast.Float)
		float = float || dst.IsFpuRegister() || dst.IsFpuRegisterPair()
	}

	if dst.IsSIMDStackSlot() || src.Kind == 'q' {
		return tp.Float64
	}

	switch {
	case wide && float:
		return tp.Float64
	case float:
		return tp.Float32
	case wide:
		return tp.Int64
	default:
		return tp.Int32
	}
}

func funcName(file string) string {
	if file == "" {
		return "moves"
	}

	base := filepath.Base(file)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func posErr(st *parse.State, pos int, err error) error {
	return PosError{Pos: st.Position(pos), Err: err}
}

func NewUnsupportedASTNode(x ast.Node) UnsupportedASTNodeError {
	return UnsupportedASTNodeError{
		T: x,
	}
}

func (e UnsupportedASTNodeError) Error() string {
	return fmt.Sprintf("unsupported node: %v", reflect.TypeOf(e.T))
}

func (e PosError) Error() string {
	return fmt.Sprintf("%v: %v", e.Pos, e.Err)
}

func (e PosError) Unwrap() error { return e.Err }
