package tp

import "tlog.app/go/errors"

type (
	Type int8
)

const (
	Void Type = iota
	Bool
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
	Reference

	numTypes
)

var names = [numTypes]string{
	Void:      "void",
	Bool:      "bool",
	Uint8:     "u8",
	Int8:      "i8",
	Uint16:    "u16",
	Int16:     "i16",
	Uint32:    "u32",
	Int32:     "i32",
	Uint64:    "u64",
	Int64:     "i64",
	Float32:   "f32",
	Float64:   "f64",
	Reference: "ref",
}

func Parse(name string) (Type, error) {
	for t, n := range names {
		if n == name {
			return Type(t), nil
		}
	}

	return Void, errors.New("unknown type: %q", name)
}

func (t Type) Size() int {
	switch t {
	case Void:
		return 0
	case Bool, Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32, Reference:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		panic(t)
	}
}

// Is64Bit reports whether a value of the type takes two 32-bit slots.
func (t Type) Is64Bit() bool {
	return t == Int64 || t == Uint64 || t == Float64
}

func (t Type) IsFloat() bool {
	return t == Float32 || t == Float64
}

func (t Type) String() string {
	if t < 0 || t >= numTypes {
		return "type?"
	}

	return names[t]
}
