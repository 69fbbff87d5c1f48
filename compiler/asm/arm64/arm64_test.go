package arm64

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pmove/compiler/ir"
	"github.com/slowlang/pmove/compiler/tp"
)

type mv struct {
	src, dst ir.Location
	t        tp.Type
}

func resolve(t *testing.T, a *Arch, moves ...mv) string {
	t.Helper()

	pm := ir.NewParallelMove()

	for _, m := range moves {
		pm.AddMove(m.src, m.dst, m.t, nil)
	}

	a.Resolve(context.Background(), pm)

	return string(a.Flush(nil))
}

func TestRegisterCycle(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.Register(0), ir.Register(1), tp.Int32},
		mv{ir.Register(1), ir.Register(0), tp.Int32},
	)

	assert.Equal(t, "\tMOV\tX16, X1\n\tMOV\tX1, X0\n\tMOV\tX0, X16\n", asm)

	assert.Equal(t, 0, a.core.held.Size())
	assert.Equal(t, 2, a.core.Len())
}

func TestCycleScratchFromDestination(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.Register(0), ir.Register(1), tp.Int32},
		mv{ir.Register(1), ir.Register(0), tp.Int32},
		mv{ir.Register(5), ir.Register(6), tp.Int32},
	)

	assert.Equal(t, "\tMOV\tX6, X1\n\tMOV\tX1, X0\n\tMOV\tX0, X6\n\tMOV\tX6, X5\n", asm)
}

func TestFpuCycle(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.FpuRegister(0), ir.FpuRegister(1), tp.Float64},
		mv{ir.FpuRegister(1), ir.FpuRegister(0), tp.Float64},
	)

	assert.Equal(t, "\tFMOV\tD31, D1\n\tFMOV\tD1, D0\n\tFMOV\tD0, D31\n", asm)
}

func TestStackCycle(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.StackSlot(0), ir.StackSlot(8), tp.Int32},
		mv{ir.StackSlot(8), ir.StackSlot(0), tp.Int32},
	)

	assert.Equal(t, "\tLDR\tW16, [SP, #8]\n"+
		"\tLDR\tS31, [SP]\n"+
		"\tSTR\tS31, [SP, #8]\n"+
		"\tSTR\tW16, [SP]\n", asm)
}

func TestConstants(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.IntConstant(0x12345678), ir.Register(2), tp.Int32},
		mv{ir.LongConstant(1 << 32), ir.Register(3), tp.Int64},
		mv{ir.IntConstant(0), ir.StackSlot(8), tp.Int32},
		mv{ir.IntConstant(0), ir.Register(4), tp.Int32},
		mv{ir.LongConstant(-2), ir.DoubleStackSlot(16), tp.Int64},
	)

	// W4 already holds zero when s8 is stored
	assert.Equal(t, "\tMOVZ\tW2, #22136\n"+
		"\tMOVK\tW2, #4660, LSL #16\n"+
		"\tMOVZ\tX3, #1, LSL #32\n"+
		"\tMOVZ\tW4, #0\n"+
		"\tSTR\tW4, [SP, #8]\n"+
		"\tMOVZ\tX16, #65534\n"+
		"\tMOVK\tX16, #65535, LSL #16\n"+
		"\tMOVK\tX16, #65535, LSL #32\n"+
		"\tMOVK\tX16, #65535, LSL #48\n"+
		"\tSTR\tX16, [SP, #16]\n", asm)
}

func TestFloatConstant(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.FloatConstant(1), ir.FpuRegister(3), tp.Float32},
		mv{ir.DoubleConstant(0), ir.FpuRegister(4), tp.Float64},
	)

	assert.Equal(t, "\tMOVZ\tW16, #16256, LSL #16\n"+
		"\tFMOV\tS3, W16\n"+
		"\tFMOV\tD4, XZR\n", asm)
}

func TestPairsUnsupported(t *testing.T) {
	a := New()

	assert.Panics(t, func() {
		resolve(t, a, mv{ir.RegisterPair(0, 1), ir.RegisterPair(2, 3), tp.Int64})
	})

	asm := resolve(t, a, mv{ir.Register(0), ir.Register(1), tp.Int32})
	assert.Equal(t, "\tMOV\tX1, X0\n", asm)
}

func TestPool(t *testing.T) {
	p := newPool(IP1, IP0)
	p.reset()

	r, ok := p.acquire()
	require.True(t, ok)
	assert.Equal(t, IP0, r)

	r, ok = p.acquire()
	require.True(t, ok)
	assert.Equal(t, IP1, r)

	_, ok = p.acquire()
	assert.False(t, ok)

	p.release(IP0)
	assert.Panics(t, func() { p.release(IP0) })

	r, ok = p.acquire()
	require.True(t, ok)
	assert.Equal(t, IP0, r)
}

func TestClosedPool(t *testing.T) {
	a := New()

	assert.Panics(t, func() { a.acquire(&a.core) })
}

func TestRegString(t *testing.T) {
	assert.Equal(t, "W3", Reg{N: 3, Kind: W}.String())
	assert.Equal(t, "XZR", Reg{N: ZR, Kind: X}.String())
	assert.Equal(t, "S31", Reg{N: 31, Kind: S}.String())
	assert.Equal(t, "Q2", Reg{N: 2, Kind: Q}.String())
	assert.Equal(t, "[SP, #24]", Addr(24).String())
}
