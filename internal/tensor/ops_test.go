package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipByValue(t *testing.T) {
	a, err := FromFloat32([]float32{-3, -0.5, 0, 0.5, 3}, Shape{5})
	require.NoError(t, err)

	clipped := ClipByValue(a, -1, 1)
	assert.Equal(t, []float32{-1, -0.5, 0, 0.5, 1}, clipped.AsFloat32())
	// Source untouched.
	assert.Equal(t, float32(-3), a.AsFloat32()[0])
}

func TestClipIdempotent(t *testing.T) {
	a, _ := FromFloat32([]float32{-7, 2, 0.25, 9, -0.1, 4}, Shape{2, 3})

	once := ClipByValue(a, -2, 2)
	twice := ClipByValue(once, -2, 2)
	assert.True(t, once.Equal(twice))

	ClipInplace(a, -2, 2)
	ClipInplace(a, -2, 2)
	assert.True(t, a.Equal(once))
}

func TestFlatten(t *testing.T) {
	a, _ := FromFloat32([]float32{1, 2}, Shape{2})
	b, _ := FromFloat32([]float32{3, 4, 5, 6}, Shape{2, 2})
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, Flatten(a, b))
	assert.Empty(t, Flatten())
}

func TestPenaltySums(t *testing.T) {
	a, _ := FromFloat32([]float32{-1, 2, -3}, Shape{3})
	assert.InDelta(t, 6.0, SumAbs(a), 1e-9)
	assert.InDelta(t, 14.0, SumSquares(a), 1e-9)
}
