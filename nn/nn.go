// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import "github.com/born-ml/trainkit/internal/nn"

// Layer is the interface implemented by all layers.
type Layer = nn.Layer

// Parameter is a named weight tensor.
type Parameter = nn.Parameter

// Graph records layer applications; Model freezes it.
type Graph = nn.Graph

// Node is a symbolic tensor in a Graph.
type Node = nn.Node

// Model is a built functional model.
type Model = nn.Model

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return nn.NewGraph()
}

// Errors.
var (
	ErrLayerReused   = nn.ErrLayerReused
	ErrMissingWeight = nn.ErrMissingWeight
)

// Layers

// Conv2D is a 2D convolution over channels-last inputs.
type Conv2D = nn.Conv2D

// Conv2DConfig configures a Conv2D layer.
type Conv2DConfig = nn.Conv2DConfig

// Padding modes for Conv2D.
type Padding = nn.Padding

// Padding values.
const (
	PaddingSame  = nn.PaddingSame
	PaddingValid = nn.PaddingValid
)

// NewConv2D creates a convolution layer.
func NewConv2D(cfg Conv2DConfig) *Conv2D {
	return nn.NewConv2D(cfg)
}

// Dense is a fully connected layer.
type Dense = nn.Dense

// DenseConfig configures a Dense layer.
type DenseConfig = nn.DenseConfig

// NewDense creates a fully connected layer.
func NewDense(cfg DenseConfig) *Dense {
	return nn.NewDense(cfg)
}

// BatchNormalization normalizes over the channel axis.
type BatchNormalization = nn.BatchNormalization

// BatchNormConfig configures BatchNormalization.
type BatchNormConfig = nn.BatchNormConfig

// NewBatchNormalization creates a batch norm layer.
func NewBatchNormalization(cfg BatchNormConfig) *BatchNormalization {
	return nn.NewBatchNormalization(cfg)
}

// Activation applies a named element-wise function.
type Activation = nn.Activation

// NewActivation creates an activation layer: linear, relu, relu6, tanh, sigmoid or swish.
func NewActivation(name string) (*Activation, error) {
	return nn.NewActivation(name)
}

// MustActivation is NewActivation that panics on unknown names.
func MustActivation(name string) *Activation {
	return nn.MustActivation(name)
}

// Dropout zeroes a fraction of its inputs during training.
type Dropout = nn.Dropout

// NewDropout creates a dropout layer.
func NewDropout(rate float32) *Dropout {
	return nn.NewDropout(rate)
}

// GlobalPooling2D reduces the spatial axes.
type GlobalPooling2D = nn.GlobalPooling2D

// NewGlobalAveragePooling2D averages over height and width.
func NewGlobalAveragePooling2D() *GlobalPooling2D {
	return nn.NewGlobalAveragePooling2D()
}

// NewGlobalMaxPooling2D takes the maximum over height and width.
func NewGlobalMaxPooling2D() *GlobalPooling2D {
	return nn.NewGlobalMaxPooling2D()
}

// NewAdd sums inputs of equal shape.
func NewAdd() *nn.Add {
	return nn.NewAdd()
}

// NewConcatenate joins inputs along the channel axis.
func NewConcatenate() *nn.Concatenate {
	return nn.NewConcatenate()
}

// NewZeroPadShortcut creates a parameter-free residual shortcut.
func NewZeroPadShortcut(filters, strides int) *nn.ZeroPadShortcut {
	return nn.NewZeroPadShortcut(filters, strides)
}

// Initialization and regularization

// Initializer produces initial weight values.
type Initializer = nn.Initializer

// Registered initializers.
var (
	HeUniform     = nn.HeUniform
	HeNormal      = nn.HeNormal
	GlorotUniform = nn.GlorotUniform
	GlorotNormal  = nn.GlorotNormal
)

// InitializerByName looks up an initializer such as "he_uniform".
func InitializerByName(name string) (Initializer, error) {
	return nn.InitializerByName(name)
}

// SetSeed reseeds weight initialization and dropout.
func SetSeed(seed int64) {
	nn.SetSeed(seed)
}

// Regularizer computes a weight penalty.
type Regularizer = nn.Regularizer

// L1L2 returns an L1/L2 penalty, nil when both factors are zero.
func L1L2(l1, l2 float64) Regularizer {
	return nn.L1L2(l1, l2)
}
