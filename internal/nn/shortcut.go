package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/tensor"
)

// ZeroPadShortcut is the parameter-free residual shortcut used when a block
// changes resolution or width without a projection convolution.
//
// The first H/s x W/s spatial positions are kept (a crop, not a strided
// subsample) and Filters-C zero channels are prepended.
//
// Input shape:  [batch, H, W, C]
// Output shape: [batch, H/s, W/s, Filters]
type ZeroPadShortcut struct {
	base
	filters int
	strides int

	in  tensor.Shape
	out tensor.Shape
}

// NewZeroPadShortcut creates a shortcut producing filters channels at the given stride.
func NewZeroPadShortcut(filters, strides int) *ZeroPadShortcut {
	if strides == 0 {
		strides = 1
	}
	return &ZeroPadShortcut{filters: filters, strides: strides}
}

// Kind implements Layer.
func (z *ZeroPadShortcut) Kind() string { return "ZeroPadShortcut" }

// Build implements Layer.
func (z *ZeroPadShortcut) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 || len(inputs[0]) != 3 {
		return nil, fmt.Errorf("zero_pad_shortcut %s: expected one (h, w, c) input, got %v", z.name, inputs)
	}
	in := inputs[0]
	if z.filters < in[2] {
		return nil, fmt.Errorf("zero_pad_shortcut %s: cannot shrink %d channels to %d", z.name, in[2], z.filters)
	}
	z.in = in.Clone()
	z.out = tensor.Shape{
		in[0] / z.strides,
		in[1] / z.strides,
		z.filters,
	}
	return z.out.Clone(), nil
}

// Forward implements Layer.
func (z *ZeroPadShortcut) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	if z.out == nil {
		return nil, fmt.Errorf("zero_pad_shortcut %s: not built", z.name)
	}
	x := inputs[0]
	shape := x.Shape()
	if len(shape) != 4 || !tensor.Shape(shape[1:]).Equal(z.in) {
		return nil, fmt.Errorf("zero_pad_shortcut %s: expected input [N%v], got %v", z.name, z.in, shape)
	}
	batch := shape[0]
	w, c := z.in[1], z.in[2]
	oh, ow, f := z.out[0], z.out[1], z.out[2]
	pad := f - c

	out := tensor.Zeros(z.out.WithBatch(batch))
	src := x.AsFloat32()
	dst := out.AsFloat32()
	for n := 0; n < batch; n++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				from := src[((n*z.in[0]+i)*w+j)*c:][:c]
				copy(dst[((n*oh+i)*ow+j)*f+pad:][:c], from)
			}
		}
	}
	return out, nil
}

// Weights implements Layer.
func (z *ZeroPadShortcut) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (z *ZeroPadShortcut) Clone() Layer {
	return &ZeroPadShortcut{base: z.base, filters: z.filters, strides: z.strides}
}

func (z *ZeroPadShortcut) String() string {
	return fmt.Sprintf("ZeroPadShortcut(filters=%d, strides=%d)", z.filters, z.strides)
}
