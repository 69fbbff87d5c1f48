package amd64

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

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

	assert.Equal(t, "\tmovq\t%rcx, %r11\n\tmovq\t%rax, %rcx\n\tmovq\t%r11, %rax\n", asm)
}

func TestConstants(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.IntConstant(0), ir.Register(0), tp.Int32},
		mv{ir.LongConstant(-1), ir.Register(1), tp.Int64},
		mv{ir.LongConstant(1 << 32), ir.Register(2), tp.Int64},
		mv{ir.IntConstant(7), ir.StackSlot(8), tp.Int32},
		mv{ir.DoubleConstant(1.5), ir.FpuRegister(1), tp.Float64},
		mv{ir.FloatConstant(0), ir.FpuRegister(2), tp.Float32},
	)

	assert.Equal(t, "\txorl\t%eax, %eax\n"+
		"\tmovq\t$-1, %rcx\n"+
		"\tmovabsq\t$4294967296, %rdx\n"+
		"\tmovl\t$7, 8(%rsp)\n"+
		"\tmovabsq\t$4609434218613702656, %r11\n"+
		"\tmovq\t%r11, %xmm1\n"+
		"\txorps\t%xmm2, %xmm2\n", asm)

	assert.Equal(t, int64(4609434218613702656), int64(math.Float64bits(1.5)))
}

func TestStackSwapSpilled(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.StackSlot(0), ir.StackSlot(4), tp.Int32},
		mv{ir.StackSlot(4), ir.StackSlot(0), tp.Int32},
	)

	assert.Equal(t, "\tpushq\t%rax\n"+
		"\tmovl\t8(%rsp), %r11d\n"+
		"\tmovl\t12(%rsp), %eax\n"+
		"\tmovl\t%r11d, 12(%rsp)\n"+
		"\tmovl\t%eax, 8(%rsp)\n"+
		"\tpopq\t%rax\n", asm)
}

func TestStackSwapScratchFromDestination(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.StackSlot(0), ir.StackSlot(4), tp.Int32},
		mv{ir.StackSlot(4), ir.StackSlot(0), tp.Int32},
		mv{ir.Register(3), ir.Register(2), tp.Int32},
	)

	// rdx is overwritten by the last move anyway
	assert.Equal(t, "\tmovl\t(%rsp), %r11d\n"+
		"\tmovl\t4(%rsp), %edx\n"+
		"\tmovl\t%r11d, 4(%rsp)\n"+
		"\tmovl\t%edx, (%rsp)\n"+
		"\tmovq\t%rbx, %rdx\n", asm)
}

func TestStackMoves(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.Register(0), ir.StackSlot(16), tp.Int32},
		mv{ir.StackSlot(4), ir.Register(1), tp.Int32},
		mv{ir.DoubleStackSlot(8), ir.DoubleStackSlot(24), tp.Int64},
	)

	assert.Equal(t, "\tmovq\t8(%rsp), %r11\n"+
		"\tmovq\t%r11, 24(%rsp)\n"+
		"\tmovl\t%eax, 16(%rsp)\n"+
		"\tmovl\t4(%rsp), %ecx\n", asm)
}

func TestFpuSwap(t *testing.T) {
	a := New()

	asm := resolve(t, a,
		mv{ir.FpuRegister(0), ir.FpuRegister(1), tp.Float64},
		mv{ir.FpuRegister(1), ir.FpuRegister(0), tp.Float64},
	)

	assert.Equal(t, "\tmovq\t%xmm1, %r11\n\tmovaps\t%xmm0, %xmm1\n\tmovq\t%r11, %xmm0\n", asm)
}

func TestUnsupported(t *testing.T) {
	a := New()

	assert.Panics(t, func() {
		resolve(t, a, mv{ir.RegisterPair(0, 1), ir.RegisterPair(2, 3), tp.Int64})
	})

	a.code.Body = a.code.Body[:0]

	// the resolver is usable after a panic
	asm := resolve(t, a, mv{ir.Register(0), ir.Register(1), tp.Int32})
	assert.Equal(t, "\tmovq\t%rax, %rcx\n", asm)
}

func TestInst(t *testing.T) {
	assert.Equal(t, "movl\t%r8d, -4(%rsp)", Inst{Op: "movl", W: 4, Args: []Operand{R8, Mem(-4)}}.String())
	assert.Equal(t, "pushq\t%r15", Inst{Op: "pushq", W: 8, Args: []Operand{R15}}.String())
	assert.Equal(t, "ret", Inst{Op: "ret"}.String())
}
