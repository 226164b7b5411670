package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/tensor"
)

// DenseConfig configures a Dense layer.
type DenseConfig struct {
	Units             int
	NoBias            bool
	KernelInitializer Initializer // Default: glorot_uniform
	KernelRegularizer Regularizer
	BiasRegularizer   Regularizer
}

// Dense implements a fully connected layer: y = x @ W + b.
//
// Input shape:  [batch, in_features]
// Kernel shape: [in_features, units]
// Bias shape:   [units]
// Output shape: [batch, units]
type Dense struct {
	base
	cfg DenseConfig

	inFeatures int
	kernel     *Parameter
	bias       *Parameter
}

// NewDense creates an unbuilt dense layer.
func NewDense(cfg DenseConfig) *Dense {
	if cfg.KernelInitializer == nil {
		cfg.KernelInitializer = GlorotUniform
	}
	return &Dense{cfg: cfg}
}

// Kind implements Layer.
func (d *Dense) Kind() string { return "Dense" }

// Config returns the layer configuration.
func (d *Dense) Config() DenseConfig { return d.cfg }

// Kernel returns the weight matrix parameter.
func (d *Dense) Kernel() *Parameter { return d.kernel }

// Bias returns the bias parameter, nil when NoBias is set.
func (d *Dense) Bias() *Parameter { return d.bias }

// Build implements Layer.
func (d *Dense) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 || len(inputs[0]) != 1 {
		return nil, fmt.Errorf("dense %s: expected one flat input, got %v", d.name, inputs)
	}
	if d.cfg.Units <= 0 {
		return nil, fmt.Errorf("dense %s: invalid units %d", d.name, d.cfg.Units)
	}
	d.inFeatures = inputs[0][0]

	d.kernel = NewParameter(weightName(d.name, "kernel"),
		d.cfg.KernelInitializer.Initialize(tensor.Shape{d.inFeatures, d.cfg.Units}), true)
	d.kernel.SetRegularizer(d.cfg.KernelRegularizer)
	if !d.cfg.NoBias {
		d.bias = NewParameter(weightName(d.name, "bias"), tensor.Zeros(tensor.Shape{d.cfg.Units}), true)
		d.bias.SetRegularizer(d.cfg.BiasRegularizer)
	}
	return tensor.Shape{d.cfg.Units}, nil
}

// Forward implements Layer.
func (d *Dense) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	if d.kernel == nil {
		return nil, fmt.Errorf("dense %s: not built", d.name)
	}
	x := inputs[0]
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != d.inFeatures {
		return nil, fmt.Errorf("dense %s: expected input [N, %d], got %v", d.name, d.inFeatures, shape)
	}

	batch, units := shape[0], d.cfg.Units
	out := tensor.Zeros(tensor.Shape{batch, units})
	in := x.AsFloat32()
	w := d.kernel.Tensor().AsFloat32()
	dst := out.AsFloat32()

	for n := 0; n < batch; n++ {
		row := dst[n*units : (n+1)*units]
		if d.bias != nil {
			copy(row, d.bias.Tensor().AsFloat32())
		}
		for i, v := range in[n*d.inFeatures : (n+1)*d.inFeatures] {
			for u, wv := range w[i*units : (i+1)*units] {
				row[u] += v * wv
			}
		}
	}
	return out, nil
}

// Weights implements Layer.
func (d *Dense) Weights() []*Parameter {
	if d.kernel == nil {
		return nil
	}
	if d.bias != nil {
		return []*Parameter{d.kernel, d.bias}
	}
	return []*Parameter{d.kernel}
}

// Clone implements Layer.
func (d *Dense) Clone() Layer {
	clone := NewDense(d.cfg)
	clone.name = d.name
	return clone
}

func (d *Dense) String() string {
	return fmt.Sprintf("Dense(units=%d, bias=%v)", d.cfg.Units, !d.cfg.NoBias)
}
