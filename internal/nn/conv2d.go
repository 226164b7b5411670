package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/parallel"
	"github.com/born-ml/trainkit/internal/tensor"
)

// Padding selects how convolution borders are handled.
type Padding string

// Padding modes.
const (
	PaddingSame  Padding = "same"  // out = ceil(in / stride), zero padding split evenly (extra at the end)
	PaddingValid Padding = "valid" // out = floor((in - kernel) / stride) + 1, no padding
)

// Conv2DConfig configures a Conv2D layer.
type Conv2DConfig struct {
	Filters           int
	KernelSize        int // Square kernel
	Strides           int // Default: 1
	Padding           Padding
	UseBias           bool
	KernelInitializer Initializer // Default: glorot_uniform
	KernelRegularizer Regularizer
	BiasRegularizer   Regularizer
}

// Conv2D is a 2D convolutional layer.
//
// Input shape:  [batch, height, width, in_channels]
// Kernel shape: [kernel_h, kernel_w, in_channels, filters]
// Bias shape:   [filters]
// Output shape: [batch, out_h, out_w, filters]
//
// Example:
//
//	conv := nn.NewConv2D(nn.Conv2DConfig{Filters: 16, KernelSize: 3, Padding: nn.PaddingSame})
//	x = g.Apply(conv, x) // (32, 32, 3) -> (32, 32, 16)
type Conv2D struct {
	base
	cfg Conv2DConfig

	inShape  tensor.Shape
	outShape tensor.Shape
	padTop   int
	padLeft  int

	kernel *Parameter
	bias   *Parameter

	par parallel.Config
}

// NewConv2D creates an unbuilt convolution layer.
func NewConv2D(cfg Conv2DConfig) *Conv2D {
	if cfg.Strides == 0 {
		cfg.Strides = 1
	}
	if cfg.Padding == "" {
		cfg.Padding = PaddingValid
	}
	if cfg.KernelInitializer == nil {
		cfg.KernelInitializer = GlorotUniform
	}
	return &Conv2D{cfg: cfg, par: parallel.DefaultConfig()}
}

// Kind implements Layer.
func (c *Conv2D) Kind() string { return "Conv2D" }

// Config returns the layer configuration.
func (c *Conv2D) Config() Conv2DConfig { return c.cfg }

// Kernel returns the kernel parameter. Nil before Build.
func (c *Conv2D) Kernel() *Parameter { return c.kernel }

// Bias returns the bias parameter, nil when UseBias is false.
func (c *Conv2D) Bias() *Parameter { return c.bias }

// Build implements Layer.
func (c *Conv2D) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 || len(inputs[0]) != 3 {
		return nil, fmt.Errorf("conv2d %s: expected one (h, w, c) input, got %v", c.name, inputs)
	}
	if c.cfg.Filters <= 0 || c.cfg.KernelSize <= 0 || c.cfg.Strides <= 0 {
		return nil, fmt.Errorf("conv2d %s: invalid config filters=%d kernel=%d strides=%d",
			c.name, c.cfg.Filters, c.cfg.KernelSize, c.cfg.Strides)
	}
	in := inputs[0]
	outH, padTop, err := convOutput(in[0], c.cfg.KernelSize, c.cfg.Strides, c.cfg.Padding)
	if err != nil {
		return nil, fmt.Errorf("conv2d %s: %w", c.name, err)
	}
	outW, padLeft, err := convOutput(in[1], c.cfg.KernelSize, c.cfg.Strides, c.cfg.Padding)
	if err != nil {
		return nil, fmt.Errorf("conv2d %s: %w", c.name, err)
	}

	c.inShape = in.Clone()
	c.outShape = tensor.Shape{outH, outW, c.cfg.Filters}
	c.padTop, c.padLeft = padTop, padLeft

	kernelShape := tensor.Shape{c.cfg.KernelSize, c.cfg.KernelSize, in[2], c.cfg.Filters}
	c.kernel = NewParameter(weightName(c.name, "kernel"), c.cfg.KernelInitializer.Initialize(kernelShape), true)
	c.kernel.SetRegularizer(c.cfg.KernelRegularizer)
	if c.cfg.UseBias {
		c.bias = NewParameter(weightName(c.name, "bias"), tensor.Zeros(tensor.Shape{c.cfg.Filters}), true)
		c.bias.SetRegularizer(c.cfg.BiasRegularizer)
	}
	return c.outShape.Clone(), nil
}

// convOutput returns the output size and leading pad for one spatial dimension.
func convOutput(in, kernel, stride int, padding Padding) (out, padBefore int, err error) {
	switch padding {
	case PaddingSame:
		out = (in + stride - 1) / stride
		padTotal := max((out-1)*stride+kernel-in, 0)
		return out, padTotal / 2, nil
	case PaddingValid:
		if in < kernel {
			return 0, 0, fmt.Errorf("input size %d smaller than kernel %d", in, kernel)
		}
		return (in-kernel)/stride + 1, 0, nil
	default:
		return 0, 0, fmt.Errorf("unknown padding %q", padding)
	}
}

// Forward implements Layer.
func (c *Conv2D) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	if c.kernel == nil {
		return nil, fmt.Errorf("conv2d %s: not built", c.name)
	}
	x := inputs[0]
	shape := x.Shape()
	if len(shape) != 4 || !tensor.Shape(shape[1:]).Equal(c.inShape) {
		return nil, fmt.Errorf("conv2d %s: expected input [N%v], got %v", c.name, c.inShape, shape)
	}

	batch := shape[0]
	h, w, ch := c.inShape[0], c.inShape[1], c.inShape[2]
	outH, outW, filters := c.outShape[0], c.outShape[1], c.outShape[2]
	k, stride := c.cfg.KernelSize, c.cfg.Strides

	out := tensor.Zeros(c.outShape.WithBatch(batch))
	in := x.AsFloat32()
	kern := c.kernel.Tensor().AsFloat32()
	dst := out.AsFloat32()
	var bias []float32
	if c.bias != nil {
		bias = c.bias.Tensor().AsFloat32()
	}

	parallel.ForBatch(batch, outH, func(n, oh int) {
		for ow := 0; ow < outW; ow++ {
			acc := dst[((n*outH+oh)*outW+ow)*filters:][:filters]
			if bias != nil {
				copy(acc, bias)
			}
			for kh := 0; kh < k; kh++ {
				ih := oh*stride - c.padTop + kh
				if ih < 0 || ih >= h {
					continue
				}
				for kw := 0; kw < k; kw++ {
					iw := ow*stride - c.padLeft + kw
					if iw < 0 || iw >= w {
						continue
					}
					src := in[((n*h+ih)*w+iw)*ch:][:ch]
					kbase := (kh*k + kw) * ch * filters
					for ci, v := range src {
						if v == 0 {
							continue
						}
						row := kern[kbase+ci*filters:][:filters]
						for f, kv := range row {
							acc[f] += v * kv
						}
					}
				}
			}
		}
	}, c.par)

	return out, nil
}

// Weights implements Layer.
func (c *Conv2D) Weights() []*Parameter {
	if c.kernel == nil {
		return nil
	}
	if c.bias != nil {
		return []*Parameter{c.kernel, c.bias}
	}
	return []*Parameter{c.kernel}
}

// Clone implements Layer.
func (c *Conv2D) Clone() Layer {
	clone := NewConv2D(c.cfg)
	clone.name = c.name
	return clone
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(filters=%d, kernel_size=(%d, %d), strides=%d, padding=%s, bias=%v)",
		c.cfg.Filters, c.cfg.KernelSize, c.cfg.KernelSize, c.cfg.Strides, c.cfg.Padding, c.cfg.UseBias)
}
