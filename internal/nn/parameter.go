package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Parameter represents a named weight of a layer.
//
// Trainable parameters (kernels, biases, BN gamma/beta) are updated by optimizers.
// Non-trainable ones (BN moving statistics) are updated by the layer itself during
// training-mode forward passes.
//
// Example:
//
//	kernel := nn.NewParameter("conv2d/kernel:0", t, true)
//	kernel.SetRegularizer(nn.L1L2(0, 2e-4))
type Parameter struct {
	name        string
	tensor      *tensor.RawTensor
	trainable   bool
	regularizer Regularizer
}

// NewParameter creates a new parameter wrapping t.
func NewParameter(name string, t *tensor.RawTensor, trainable bool) *Parameter {
	return &Parameter{
		name:      name,
		tensor:    t,
		trainable: trainable,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.tensor.Shape()
}

// Trainable reports whether optimizers update this parameter.
func (p *Parameter) Trainable() bool {
	return p.trainable
}

// Regularizer returns the attached penalty, or nil.
func (p *Parameter) Regularizer() Regularizer {
	return p.regularizer
}

// SetRegularizer attaches a penalty. nil removes it.
func (p *Parameter) SetRegularizer(r Regularizer) {
	p.regularizer = r
}

// Assign copies src into the parameter. Shapes must match.
func (p *Parameter) Assign(src *tensor.RawTensor) error {
	if err := p.tensor.Assign(src); err != nil {
		return fmt.Errorf("assign %s: %w", p.name, err)
	}
	return nil
}

// String returns a short description.
func (p *Parameter) String() string {
	return fmt.Sprintf("%s %v", p.name, p.tensor.Shape())
}
