package ir

import (
	"fmt"
	"math"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/pmove/compiler/tp"
)

type (
	Kind uint8

	// Location is where a value lives: a register, a register pair,
	// a stack slot or a constant. It is a comparable value.
	Location struct {
		kind Kind
		typ  tp.Type // constants only
		v    int64   // reg, low reg of a pair, stack offset or constant bits
		hi   int32   // high reg of a pair
	}
)

const (
	KindInvalid Kind = iota
	KindUnallocated
	KindConstant
	KindRegister
	KindRegisterPair
	KindFpuRegister
	KindFpuRegisterPair
	KindStackSlot       // 32 bit
	KindDoubleStackSlot // 64 bit
	KindSIMDStackSlot   // 128 bit
)

// HighWordOffset is the byte distance between the halves of a double stack slot.
const HighWordOffset = 4

func NoLocation() Location { return Location{} }

func Unallocated() Location { return Location{kind: KindUnallocated} }

func Register(r int) Location { return Location{kind: KindRegister, v: int64(r)} }

func FpuRegister(r int) Location { return Location{kind: KindFpuRegister, v: int64(r)} }

func RegisterPair(low, high int) Location {
	return Location{kind: KindRegisterPair, v: int64(low), hi: int32(high)}
}

func FpuRegisterPair(low, high int) Location {
	return Location{kind: KindFpuRegisterPair, v: int64(low), hi: int32(high)}
}

func StackSlot(off int) Location { return Location{kind: KindStackSlot, v: int64(off)} }

func DoubleStackSlot(off int) Location { return Location{kind: KindDoubleStackSlot, v: int64(off)} }

func SIMDStackSlot(off int) Location { return Location{kind: KindSIMDStackSlot, v: int64(off)} }

// Constant is a constant of type t. Float bits are raw IEEE 754 bits.
func Constant(t tp.Type, bits int64) Location {
	return Location{kind: KindConstant, typ: t, v: bits}
}

func IntConstant(v int32) Location { return Constant(tp.Int32, int64(v)) }

func LongConstant(v int64) Location { return Constant(tp.Int64, v) }

func FloatConstant(v float32) Location {
	return Constant(tp.Float32, int64(math.Float32bits(v)))
}

func DoubleConstant(v float64) Location {
	return Constant(tp.Float64, int64(math.Float64bits(v)))
}

func (l Location) Kind() Kind { return l.kind }

func (l Location) IsValid() bool   { return l.kind != KindInvalid }
func (l Location) IsInvalid() bool { return l.kind == KindInvalid }

func (l Location) IsUnallocated() bool     { return l.kind == KindUnallocated }
func (l Location) IsConstant() bool        { return l.kind == KindConstant }
func (l Location) IsRegister() bool        { return l.kind == KindRegister }
func (l Location) IsFpuRegister() bool     { return l.kind == KindFpuRegister }
func (l Location) IsRegisterPair() bool    { return l.kind == KindRegisterPair }
func (l Location) IsFpuRegisterPair() bool { return l.kind == KindFpuRegisterPair }
func (l Location) IsStackSlot() bool       { return l.kind == KindStackSlot }
func (l Location) IsDoubleStackSlot() bool { return l.kind == KindDoubleStackSlot }
func (l Location) IsSIMDStackSlot() bool   { return l.kind == KindSIMDStackSlot }

func (l Location) IsPair() bool {
	return l.kind == KindRegisterPair || l.kind == KindFpuRegisterPair
}

func (l Location) IsRegisterKind() bool {
	switch l.kind {
	case KindRegister, KindFpuRegister, KindRegisterPair, KindFpuRegisterPair:
		return true
	}

	return false
}

func (l Location) IsStack() bool {
	switch l.kind {
	case KindStackSlot, KindDoubleStackSlot, KindSIMDStackSlot:
		return true
	}

	return false
}

// Is64Bit is true for locations made of two 32-bit halves.
func (l Location) Is64Bit() bool {
	return l.IsPair() || l.kind == KindDoubleStackSlot
}

func (l Location) Reg() int {
	if l.kind != KindRegister && l.kind != KindFpuRegister {
		panic(l)
	}

	return int(l.v)
}

func (l Location) Low() int {
	if !l.IsPair() {
		panic(l)
	}

	return int(l.v)
}

func (l Location) High() int {
	if !l.IsPair() {
		panic(l)
	}

	return int(l.hi)
}

func (l Location) StackIndex() int {
	if !l.IsStack() {
		panic(l)
	}

	return int(l.v)
}

func (l Location) HighStackIndex(wordSize int) int {
	if l.kind != KindDoubleStackSlot {
		panic(l)
	}

	return int(l.v) + wordSize
}

// ConstValue returns the constant type and raw bits.
func (l Location) ConstValue() (tp.Type, int64) {
	if l.kind != KindConstant {
		panic(l)
	}

	return l.typ, l.v
}

func (l Location) ToLow() Location {
	switch l.kind {
	case KindRegisterPair:
		return Register(int(l.v))
	case KindFpuRegisterPair:
		return FpuRegister(int(l.v))
	case KindDoubleStackSlot:
		return StackSlot(int(l.v))
	default:
		panic(l)
	}
}

func (l Location) ToHigh() Location {
	switch l.kind {
	case KindRegisterPair:
		return Register(int(l.hi))
	case KindFpuRegisterPair:
		return FpuRegister(int(l.hi))
	case KindDoubleStackSlot:
		return StackSlot(int(l.v) + HighWordOffset)
	default:
		panic(l)
	}
}

// LowOf is ToLow for pairs and double slots and NoLocation for the rest.
func LowOf(l Location) Location {
	if !l.Is64Bit() {
		return NoLocation()
	}

	return l.ToLow()
}

// HighOf is ToHigh for pairs and double slots and NoLocation for the rest.
func HighOf(l Location) Location {
	if !l.Is64Bit() {
		return NoLocation()
	}

	return l.ToHigh()
}

func (l Location) Equals(x Location) bool { return l == x }

func (l Location) Contains(x Location) bool {
	if l == x {
		return true
	}

	if l.Is64Bit() {
		return l.ToLow() == x || l.ToHigh() == x
	}

	return false
}

// OverlapsWith only detects the overlaps the register allocator can produce:
// identical locations and a pair against one of its halves.
func (l Location) OverlapsWith(x Location) bool {
	return l.Contains(x) || x.Contains(l)
}

func (l Location) String() string {
	return string(l.AppendText(nil))
}

func (l Location) AppendText(b []byte) []byte {
	switch l.kind {
	case KindInvalid:
		return append(b, '-')
	case KindUnallocated:
		return append(b, '?')
	case KindConstant:
		switch l.typ {
		case tp.Float32:
			return fmt.Appendf(b, "#%v", math.Float32frombits(uint32(l.v)))
		case tp.Float64:
			return fmt.Appendf(b, "#%v", math.Float64frombits(uint64(l.v)))
		default:
			return fmt.Appendf(b, "#%d", l.v)
		}
	case KindRegister:
		return fmt.Appendf(b, "r%d", l.v)
	case KindFpuRegister:
		return fmt.Appendf(b, "f%d", l.v)
	case KindRegisterPair:
		return fmt.Appendf(b, "r%d:r%d", l.v, l.hi)
	case KindFpuRegisterPair:
		return fmt.Appendf(b, "f%d:f%d", l.v, l.hi)
	case KindStackSlot:
		return fmt.Appendf(b, "s%d", l.v)
	case KindDoubleStackSlot:
		return fmt.Appendf(b, "d%d", l.v)
	case KindSIMDStackSlot:
		return fmt.Appendf(b, "q%d", l.v)
	default:
		return fmt.Appendf(b, "loc(%d)", l.kind)
	}
}

func (l Location) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, l.String())
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnallocated:
		return "unallocated"
	case KindConstant:
		return "constant"
	case KindRegister:
		return "register"
	case KindRegisterPair:
		return "register_pair"
	case KindFpuRegister:
		return "fpu_register"
	case KindFpuRegisterPair:
		return "fpu_register_pair"
	case KindStackSlot:
		return "stack_slot"
	case KindDoubleStackSlot:
		return "double_stack_slot"
	case KindSIMDStackSlot:
		return "simd_stack_slot"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}
