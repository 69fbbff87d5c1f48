package tp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for typ := Void; typ < numTypes; typ++ {
		x, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, x)
	}

	_, err := Parse("i128")
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	assert.Equal(t, 0, Void.Size())
	assert.Equal(t, 1, Bool.Size())
	assert.Equal(t, 2, Int16.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Uint64.Size())

	assert.True(t, Float64.Is64Bit())
	assert.False(t, Reference.Is64Bit())
	assert.True(t, Float32.IsFloat())
	assert.False(t, Int64.IsFloat())

	assert.Equal(t, "type?", Type(100).String())
}
