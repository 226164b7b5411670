package tensor

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrShapeMismatch is returned when two tensors must have equal shapes and do not.
var ErrShapeMismatch = errors.New("shape mismatch")

// RawTensor is the low-level tensor representation: a contiguous row-major byte
// buffer plus shape and dtype. Weights, activations and optimizer slots are all
// RawTensors.
type RawTensor struct {
	data  []byte
	shape Shape
	dtype DataType
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if dtype == Float16 {
		return nil, fmt.Errorf("float16 tensors are not supported for storage")
	}

	return &RawTensor{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// Zeros allocates a float32 tensor filled with zeros. It panics on an invalid shape,
// which is always a programming error at the call sites that use it.
func Zeros(shape Shape) *RawTensor {
	t, err := NewRaw(shape, Float32)
	if err != nil {
		panic(err)
	}
	return t
}

// Full allocates a float32 tensor filled with value.
func Full(shape Shape, value float32) *RawTensor {
	t := Zeros(shape)
	t.Fill(value)
	return t
}

// FromFloat32 copies data into a new float32 tensor of the given shape.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	t, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat32(), data)
	return t, nil
}

// FromBytes wraps an existing byte buffer. The buffer is not copied.
func FromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	if want := shape.NumElements() * dtype.Size(); len(data) != want {
		return nil, fmt.Errorf("buffer has %d bytes, shape %v of %s needs %d", len(data), shape, dtype, want)
	}
	return &RawTensor{data: data, shape: shape.Clone(), dtype: dtype}, nil
}

// Scalar creates a rank-0 int64 tensor, used for counters such as optimizer iterations.
func Scalar(v int64) *RawTensor {
	t, _ := NewRaw(Shape{}, Int64)
	t.AsInt64()[0] = v
	return t
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Copy returns a deep copy with its own buffer.
func (r *RawTensor) Copy() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{data: data, shape: r.shape.Clone(), dtype: r.dtype}
}

// Assign copies src's contents into r. Shapes and dtypes must match exactly.
func (r *RawTensor) Assign(src *RawTensor) error {
	if !r.shape.Equal(src.shape) {
		return fmt.Errorf("%w: %v != %v", ErrShapeMismatch, r.shape, src.shape)
	}
	if r.dtype != src.dtype {
		return fmt.Errorf("dtype mismatch: %s != %s", r.dtype, src.dtype)
	}
	copy(r.data, src.data)
	return nil
}

// Fill sets every float32 element to value.
func (r *RawTensor) Fill(value float32) {
	data := r.AsFloat32()
	for i := range data {
		data[i] = value
	}
}

// Equal reports whether both tensors have the same shape, dtype and bytes.
func (r *RawTensor) Equal(other *RawTensor) bool {
	if r.dtype != other.dtype || !r.shape.Equal(other.shape) {
		return false
	}
	for i := range r.data {
		if r.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String returns a short description, not the contents.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(shape=%v, dtype=%s)", r.shape, r.dtype)
}
