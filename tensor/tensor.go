// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/trainkit/internal/tensor"

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// DataType identifies the element type of a tensor.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
	Float16 = tensor.Float16
)

// RawTensor is a shaped, typed byte buffer.
type RawTensor = tensor.RawTensor

// ErrShapeMismatch is returned when tensor shapes are incompatible.
var ErrShapeMismatch = tensor.ErrShapeMismatch

// NewRaw allocates a zeroed tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// Zeros returns a float32 tensor of zeros.
func Zeros(shape Shape) *RawTensor {
	return tensor.Zeros(shape)
}

// Full returns a float32 tensor filled with value.
func Full(shape Shape, value float32) *RawTensor {
	return tensor.Full(shape, value)
}

// FromFloat32 copies data into a new float32 tensor.
//
// Example:
//
//	labels, err := tensor.FromFloat32([]float32{3, 1, 4}, tensor.Shape{3})
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}

// ClipByValue returns a copy of t with every element bounded by [low, high].
func ClipByValue(t *RawTensor, low, high float32) *RawTensor {
	return tensor.ClipByValue(t, low, high)
}

// Flatten concatenates the float32 elements of every tensor.
func Flatten(ts ...*RawTensor) []float32 {
	return tensor.Flatten(ts...)
}
