package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cycleText = `// two cycles
entry:
	r0 -> r1; r1 -> r0
	r2 -> r3; r3 -> r2
consts: #0 -> r6; r7 -> s16
`

func TestCompile(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		arch string
		exp  string
	}{
		{"trace-swap", "// func cycle, trace-swap\n" +
			"entry:\n" +
			"\t(1 <-> 0) (3 <-> 2)\n" +
			"consts:\n" +
			"\t(7 -> 16(sp)) (C -> 6)\n"},
		{"trace-noswap", "// func cycle, trace-noswap\n" +
			"entry:\n" +
			"\t(1 -> T0) (0 -> 1) (T0 -> 0) (3 -> T0) (2 -> 3) (T0 -> 2)\n" +
			"consts:\n" +
			"\t(7 -> 16(sp)) (C -> 6)\n"},
		{"amd64", "// func cycle, amd64\n" +
			"entry:\n" +
			"\tmovq\t%rcx, %r11\n" +
			"\tmovq\t%rax, %rcx\n" +
			"\tmovq\t%r11, %rax\n" +
			"\tmovq\t%rbx, %r11\n" +
			"\tmovq\t%rdx, %rbx\n" +
			"\tmovq\t%r11, %rdx\n" +
			"consts:\n" +
			"\tmovl\t%edi, 16(%rsp)\n" +
			"\txorl\t%esi, %esi\n"},
		{"arm64", "// func cycle, arm64\n" +
			"entry:\n" +
			"\tMOV\tX16, X1\n" +
			"\tMOV\tX1, X0\n" +
			"\tMOV\tX0, X16\n" +
			"\tMOV\tX16, X3\n" +
			"\tMOV\tX3, X2\n" +
			"\tMOV\tX2, X16\n" +
			"consts:\n" +
			"\tSTR\tW7, [SP, #16]\n" +
			"\tMOVZ\tW6, #0\n"},
	} {
		a, err := NewArch(tc.arch)
		require.NoError(t, err)

		obj, err := Compile(ctx, a, "cycle.moves", []byte(cycleText))
		require.NoError(t, err, "%v", tc.arch)

		assert.Equal(t, tc.exp, string(obj), "%v", tc.arch)
	}
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	a, err := NewArch("trace")
	require.NoError(t, err)

	_, err = Compile(ctx, a, "bad.moves", []byte("r0 -> r1 -> r2\n"))
	assert.ErrorContains(t, err, "parse")

	_, err = Compile(ctx, a, "bad.moves", []byte("r0 -> r1\nr2 -> r1\n"))
	assert.ErrorContains(t, err, "bad.moves:2:7")

	_, err = NewArch("mips")
	assert.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	ctx := context.Background()

	name := filepath.Join(t.TempDir(), "cycle.moves")

	err := os.WriteFile(name, []byte(cycleText), 0o644)
	require.NoError(t, err)

	a, err := NewArch("trace-swap")
	require.NoError(t, err)

	obj, err := CompileFile(ctx, a, name)
	require.NoError(t, err)
	assert.Contains(t, string(obj), "(1 <-> 0) (3 <-> 2)")

	_, err = CompileFile(ctx, a, filepath.Join(t.TempDir(), "missing.moves"))
	assert.Error(t, err)
}
