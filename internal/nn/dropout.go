package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Dropout randomly zeroes inputs with probability Rate during training and
// scales the survivors by 1/(1-Rate). It is the identity at inference.
type Dropout struct {
	base
	rate float32
}

// NewDropout creates a dropout layer. Rate must be in [0, 1).
func NewDropout(rate float32) *Dropout {
	return &Dropout{rate: rate}
}

// Kind implements Layer.
func (d *Dropout) Kind() string { return "Dropout" }

// Rate returns the drop probability.
func (d *Dropout) Rate() float32 { return d.rate }

// Build implements Layer.
func (d *Dropout) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("dropout %s: expected one input, got %d", d.name, len(inputs))
	}
	if d.rate < 0 || d.rate >= 1 {
		return nil, fmt.Errorf("dropout %s: rate %g outside [0, 1)", d.name, d.rate)
	}
	return inputs[0].Clone(), nil
}

// Forward implements Layer.
func (d *Dropout) Forward(inputs []*tensor.RawTensor, training bool) (*tensor.RawTensor, error) {
	x := inputs[0]
	if !training || d.rate == 0 {
		return x.Copy(), nil
	}
	out := tensor.Zeros(x.Shape())
	dst := out.AsFloat32()
	scale := 1 / (1 - d.rate)
	for i, v := range x.AsFloat32() {
		if randUniform(0, 1) >= float64(d.rate) {
			dst[i] = v * scale
		}
	}
	return out, nil
}

// Weights implements Layer.
func (d *Dropout) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (d *Dropout) Clone() Layer {
	return &Dropout{base: d.base, rate: d.rate}
}

func (d *Dropout) String() string {
	return fmt.Sprintf("Dropout(rate=%g)", d.rate)
}
