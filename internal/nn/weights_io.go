package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/trainkit/internal/serialization"
)

// ErrMissingWeight is returned when a weight file lacks one of the model's weights.
var ErrMissingWeight = errors.New("weight not found in file")

// NamedWeights returns the model weights as an ordered tensor list.
// The tensors are shared with the model, not copied.
func (m *Model) NamedWeights() []serialization.NamedTensor {
	params := m.Weights()
	out := make([]serialization.NamedTensor, len(params))
	for i, p := range params {
		out[i] = serialization.NamedTensor{Name: p.Name(), Tensor: p.Tensor()}
	}
	return out
}

// SaveWeights writes every weight of m to path in .born format.
func (m *Model) SaveWeights(path string, metadata map[string]string) error {
	header := serialization.Header{
		Kind:      serialization.KindWeights,
		ModelName: m.name,
		Metadata:  metadata,
	}
	if err := serialization.WriteFile(path, header, m.NamedWeights()); err != nil {
		return fmt.Errorf("save weights of %s: %w", m.name, err)
	}
	return nil
}

// LoadWeights reads path and assigns weights by name. Every model weight must be
// present with the same shape; extra tensors in the file are ignored.
func (m *Model) LoadWeights(path string) error {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load weights into %s: %w", m.name, err)
	}
	return m.SetWeightsFrom(f)
}

// SetWeightsFrom assigns weights from a decoded file. The model is left
// unchanged when any weight is missing or mismatched.
func (m *Model) SetWeightsFrom(f *serialization.File) error {
	params := m.Weights()
	for _, p := range params {
		src, ok := f.Lookup(p.Name())
		if !ok {
			return fmt.Errorf("load weights into %s: %w: %s", m.name, ErrMissingWeight, p.Name())
		}
		if !src.Shape().Equal(p.Shape()) || src.DType() != p.Tensor().DType() {
			return fmt.Errorf("load weights into %s: %s: file has %v %s, model has %v %s", m.name, p.Name(),
				src.Shape(), src.DType(), p.Shape(), p.Tensor().DType())
		}
	}
	for _, p := range params {
		src, _ := f.Lookup(p.Name())
		if err := p.Assign(src); err != nil {
			return fmt.Errorf("load weights into %s: %w", m.name, err)
		}
	}
	return nil
}
