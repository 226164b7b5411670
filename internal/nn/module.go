// Package nn implements the layer graph used to describe and run image classifiers.
//
// This package provides:
//   - Layer interface: Base interface for all graph components
//   - Parameter: Named weight tensors, trainable or not
//   - Layers: Conv2D, BatchNormalization, Dense, Activation, Dropout,
//     GlobalAveragePooling2D, GlobalMaxPooling2D, Add, Concatenate, ZeroPadShortcut
//   - Graph: Functional builder connecting layers into a DAG
//   - Model: Built graph with weights, forward pass and weight files
//
// Tensors are channels-last: images are [batch, height, width, channels].
// Shapes passed to Build exclude the batch dimension.
package nn

import (
	"github.com/born-ml/trainkit/internal/tensor"
)

// Layer is the base interface for all graph components.
//
// A layer is configured at construction, receives its input shapes exactly once in
// Build (which creates its weights) and can then run Forward any number of times.
type Layer interface {
	// Name returns the unique name assigned within the graph (e.g. "conv2d_3").
	Name() string

	// SetName overrides the name. The graph calls it for unnamed layers.
	SetName(name string)

	// Kind returns the layer type (e.g. "Conv2D").
	Kind() string

	// Build validates input shapes (without batch), creates weights and returns
	// the output shape (without batch).
	Build(inputs []tensor.Shape) (tensor.Shape, error)

	// Forward computes the output for a batch. training selects batch statistics
	// for normalization and enables dropout.
	Forward(inputs []*tensor.RawTensor, training bool) (*tensor.RawTensor, error)

	// Weights returns all weights in declaration order. Empty before Build.
	Weights() []*Parameter

	// Clone returns an unbuilt layer with the same configuration and name.
	Clone() Layer
}

// base carries the name shared by every layer implementation.
type base struct {
	name string
}

func (b *base) Name() string { return b.name }

func (b *base) SetName(name string) { b.name = name }

// weightName formats Keras-style variable names: "<layer>/<weight>:0".
func weightName(layer, weight string) string {
	return layer + "/" + weight + ":0"
}
