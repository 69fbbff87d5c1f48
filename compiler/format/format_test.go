package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pmove/compiler/analyze"
	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/parse"
	"github.com/slowlang/pmove/compiler/tp"
)

func TestFormatFunc(t *testing.T) {
	ctx := context.Background()

	text := `
r0 -> r1; r1 -> r0
#5 -> s8 i32
loop:
	r0:r1 -> d16
r2 -> f0
`

	st, x, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err)

	f, err := analyze.Analyze(ctx, st, x)
	require.NoError(t, err)

	b, err := Format(ctx, nil, f)
	require.NoError(t, err)

	exp := `// moves
	r0 -> r1 i32
	r1 -> r0 i32
	#5 -> s8 i32

loop:
	r0:r1 -> d16 i64
	r2 -> f0 f32
`

	assert.Equal(t, exp, string(b))

	// formatted text parses into the same moves
	st, x, err = parse.Parse(ctx, b)
	require.NoError(t, err)

	f2, err := analyze.Analyze(ctx, st, x)
	require.NoError(t, err)

	b2, err := Format(ctx, nil, f2)
	require.NoError(t, err)

	assert.Equal(t, string(b), string(b2))
}

func TestFormatUnlabeledPoints(t *testing.T) {
	f := &ir.Func{Name: "f"}

	for i := 0; i < 2; i++ {
		pm := ir.NewParallelMove()
		pm.AddMove(ir.Register(i), ir.Register(i+1), tp.Int32, nil)

		f.Points = append(f.Points, ir.Point{Move: pm})
	}

	b, err := Format(context.Background(), nil, f)
	require.NoError(t, err)

	assert.Equal(t, "// f\n\tr0 -> r1 i32\n\npoint1:\n\tr1 -> r2 i32\n", string(b))
}

func TestFormatParallelMove(t *testing.T) {
	pm := ir.NewParallelMove()
	pm.AddMove(ir.DoubleConstant(0.5), ir.FpuRegister(1), tp.Float64, nil)
	pm.AddMove(ir.SIMDStackSlot(16), ir.SIMDStackSlot(32), tp.Float64, nil)

	b, err := Format(context.Background(), []byte("x\n"), pm)
	require.NoError(t, err)

	assert.Equal(t, "x\n#0.5 -> f1 f64\nq16 -> q32 f64\n", string(b))

	_, err = Format(context.Background(), nil, 3)
	assert.Error(t, err)
}
