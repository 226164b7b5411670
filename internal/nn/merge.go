package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Add sums two or more inputs of identical shape.
type Add struct {
	base
}

// NewAdd creates an element-wise sum layer.
func NewAdd() *Add { return &Add{} }

// Kind implements Layer.
func (a *Add) Kind() string { return "Add" }

// Build implements Layer.
func (a *Add) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("add %s: need at least 2 inputs, got %d", a.name, len(inputs))
	}
	for _, s := range inputs[1:] {
		if !s.Equal(inputs[0]) {
			return nil, fmt.Errorf("add %s: %w: %v vs %v", a.name, tensor.ErrShapeMismatch, inputs[0], s)
		}
	}
	return inputs[0].Clone(), nil
}

// Forward implements Layer.
func (a *Add) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	out := inputs[0].Copy()
	dst := out.AsFloat32()
	for _, x := range inputs[1:] {
		if !x.Shape().Equal(out.Shape()) {
			return nil, fmt.Errorf("add %s: %w: %v vs %v", a.name, tensor.ErrShapeMismatch, out.Shape(), x.Shape())
		}
		for i, v := range x.AsFloat32() {
			dst[i] += v
		}
	}
	return out, nil
}

// Weights implements Layer.
func (a *Add) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (a *Add) Clone() Layer { return &Add{base: a.base} }

func (a *Add) String() string { return "Add()" }

// Concatenate joins inputs along the last axis. All other dimensions must match.
type Concatenate struct {
	base
}

// NewConcatenate creates a last-axis concatenation layer.
func NewConcatenate() *Concatenate { return &Concatenate{} }

// Kind implements Layer.
func (c *Concatenate) Kind() string { return "Concatenate" }

// Build implements Layer.
func (c *Concatenate) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("concatenate %s: need at least 2 inputs, got %d", c.name, len(inputs))
	}
	first := inputs[0]
	if len(first) == 0 {
		return nil, fmt.Errorf("concatenate %s: scalar inputs are not supported", c.name)
	}
	out := first.Clone()
	for _, s := range inputs[1:] {
		if len(s) != len(first) || !s[:len(s)-1].Equal(first[:len(first)-1]) {
			return nil, fmt.Errorf("concatenate %s: %w: %v vs %v", c.name, tensor.ErrShapeMismatch, first, s)
		}
		out[len(out)-1] += s.Last()
	}
	return out, nil
}

// Forward implements Layer.
func (c *Concatenate) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	first := inputs[0].Shape()
	rows := first.NumElements() / first.Last()
	total := 0
	for _, x := range inputs {
		total += x.Shape().Last()
	}

	shape := first.Clone()
	shape[len(shape)-1] = total
	out := tensor.Zeros(shape)
	dst := out.AsFloat32()

	off := 0
	for _, x := range inputs {
		w := x.Shape().Last()
		if x.NumElements()/w != rows {
			return nil, fmt.Errorf("concatenate %s: %w: %v vs %v", c.name, tensor.ErrShapeMismatch, first, x.Shape())
		}
		src := x.AsFloat32()
		for r := 0; r < rows; r++ {
			copy(dst[r*total+off:][:w], src[r*w:][:w])
		}
		off += w
	}
	return out, nil
}

// Weights implements Layer.
func (c *Concatenate) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (c *Concatenate) Clone() Layer { return &Concatenate{base: c.base} }

func (c *Concatenate) String() string { return "Concatenate(axis=-1)" }
