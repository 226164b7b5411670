package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	r, err := NewRaw(Shape{2, 3}, Float32)
	require.NoError(t, err)
	assert.Equal(t, 6, r.NumElements())
	assert.Equal(t, 24, r.ByteSize())
	for _, v := range r.AsFloat32() {
		assert.Zero(t, v)
	}

	_, err = NewRaw(Shape{2, 0}, Float32)
	require.Error(t, err)

	_, err = NewRaw(Shape{2}, Float16)
	require.Error(t, err)
}

func TestFromFloat32LengthMismatch(t *testing.T) {
	_, err := FromFloat32([]float32{1, 2, 3}, Shape{2, 2})
	require.Error(t, err)
}

func TestScalar(t *testing.T) {
	s := Scalar(42)
	assert.Equal(t, Int64, s.DType())
	assert.Equal(t, 1, s.NumElements())
	assert.Equal(t, int64(42), s.AsInt64()[0])
}

func TestCopyIsDeep(t *testing.T) {
	a, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)

	b := a.Copy()
	b.AsFloat32()[0] = 100

	assert.Equal(t, float32(1), a.AsFloat32()[0])
	assert.Equal(t, float32(100), b.AsFloat32()[0])
}

func TestAssign(t *testing.T) {
	dst := Zeros(Shape{2, 2})
	src, _ := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})

	require.NoError(t, dst.Assign(src))
	assert.True(t, dst.Equal(src))

	other := Zeros(Shape{4})
	err := dst.Assign(other)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFromBytesWrapsBuffer(t *testing.T) {
	src, _ := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	buf := src.Data()
	wrapped, err := FromBytes(buf, Shape{4}, Float32)
	require.NoError(t, err)
	wrapped.AsFloat32()[3] = -1
	assert.Equal(t, float32(-1), src.AsFloat32()[3], "buffer is shared")

	_, err = FromBytes(buf[:8], Shape{4}, Float32)
	require.Error(t, err)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "(32, 32, 3)", Shape{32, 32, 3}.String())
	assert.Equal(t, "(10,)", Shape{10}.String())
	assert.Equal(t, "()", Shape{}.String())
}

func TestShapeWithBatch(t *testing.T) {
	s := Shape{32, 32, 3}
	assert.Equal(t, Shape{8, 32, 32, 3}, s.WithBatch(8))
	assert.Equal(t, Shape{32, 32, 3}, s)
}

func TestParseDataType(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64, Uint8, Bool, Float16} {
		got, ok := ParseDataType(dt.String())
		require.True(t, ok)
		assert.Equal(t, dt, got)
	}
	_, ok := ParseDataType("complex64")
	assert.False(t, ok)
}
