package asm

import (
	"tlog.app/go/tlog/tlwire"
)

type (
	// Instr is one machine instruction in assembly text form.
	Instr interface {
		AppendAsm(b []byte) []byte
	}

	// Code is a buffer of instructions emitted by a resolver.
	Code struct {
		Body []Instr
	}
)

func (c *Code) Add(x ...Instr) {
	c.Body = append(c.Body, x...)
}

func (c *Code) Len() int { return len(c.Body) }

// Flush appends the code one instruction per line and resets the buffer.
func (c *Code) Flush(b []byte) []byte {
	for i, x := range c.Body {
		b = append(b, '\t')
		b = x.AppendAsm(b)
		b = append(b, '\n')

		c.Body[i] = nil
	}

	c.Body = c.Body[:0]

	return b
}

func (c Code) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, len(c.Body))

	for _, x := range c.Body {
		b = e.AppendString(b, string(x.AppendAsm(nil)))
	}

	return b
}
