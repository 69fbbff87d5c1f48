package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a set of small non-negative ints, register numbers mostly.
	// The zero value is an empty set.
	Bitmap struct {
		w []uint64
	}
)

// Range makes a set of [l, r).
func Range(l, r int) (s Bitmap) {
	if r > l {
		s.w = make([]uint64, (r+63)/64)
	}

	for x := l; x < r; x++ {
		s.Set(x)
	}

	return s
}

func (s *Bitmap) Set(x int) {
	i := x / 64

	for i >= len(s.w) {
		s.w = append(s.w, 0)
	}

	s.w[i] |= 1 << (x % 64)
}

func (s *Bitmap) Clear(x int) {
	if i := x / 64; i < len(s.w) {
		s.w[i] &^= 1 << (x % 64)
	}
}

func (s *Bitmap) IsSet(x int) bool {
	i := x / 64

	return i < len(s.w) && s.w[i]&(1<<(x%64)) != 0
}

func (s *Bitmap) Size() (n int) {
	if s == nil {
		return 0
	}

	for _, w := range s.w {
		n += bits.OnesCount64(w)
	}

	return n
}

// Range calls f for each member in ascending order until f returns false.
func (s *Bitmap) Range(f func(x int) bool) {
	for i, w := range s.w {
		for ; w != 0; w &= w - 1 {
			if !f(i*64 + bits.TrailingZeros64(w)) {
				return
			}
		}
	}
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, s.Size())

	s.Range(func(x int) bool {
		b = e.AppendInt(b, x)
		return true
	})

	return b
}
