package amd64

import "fmt"

type (
	Reg int
	Xmm int

	// Mem is a stack location addressed off rsp.
	Mem int

	Imm int64

	Operand interface {
		// AppendOperand appends the operand of an instruction of width w bytes.
		AppendOperand(b []byte, w int) []byte
	}

	// Inst is an instruction with operands in AT&T order, source first.
	Inst struct {
		Op   string
		W    int
		Args []Operand
	}
)

var (
	names64 = [...]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	names32 = [...]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi", "r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
)

func (x Inst) AppendAsm(b []byte) []byte {
	b = append(b, x.Op...)

	for i, a := range x.Args {
		if i == 0 {
			b = append(b, '\t')
		} else {
			b = append(b, ", "...)
		}

		b = a.AppendOperand(b, x.W)
	}

	return b
}

func (x Inst) String() string { return string(x.AppendAsm(nil)) }

func (r Reg) AppendOperand(b []byte, w int) []byte {
	if w == 4 {
		return fmt.Appendf(b, "%%%s", names32[r])
	}

	return fmt.Appendf(b, "%%%s", names64[r])
}

func (r Reg) String() string { return names64[r] }

func (r Xmm) AppendOperand(b []byte, w int) []byte {
	return fmt.Appendf(b, "%%xmm%d", int(r))
}

func (m Mem) AppendOperand(b []byte, w int) []byte {
	if m == 0 {
		return append(b, "(%rsp)"...)
	}

	return fmt.Appendf(b, "%d(%%rsp)", int(m))
}

func (x Imm) AppendOperand(b []byte, w int) []byte {
	return fmt.Appendf(b, "$%d", int64(x))
}
