package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/trainkit/internal/tensor"
)

// GlobalPooling2D reduces the spatial axes of a channels-last feature map.
//
// Input shape:  [batch, height, width, channels]
// Output shape: [batch, channels]
type GlobalPooling2D struct {
	base
	max bool
}

// NewGlobalAveragePooling2D averages over height and width.
func NewGlobalAveragePooling2D() *GlobalPooling2D { return &GlobalPooling2D{} }

// NewGlobalMaxPooling2D takes the maximum over height and width.
func NewGlobalMaxPooling2D() *GlobalPooling2D { return &GlobalPooling2D{max: true} }

// Kind implements Layer.
func (p *GlobalPooling2D) Kind() string {
	if p.max {
		return "GlobalMaxPooling2D"
	}
	return "GlobalAveragePooling2D"
}

// Build implements Layer.
func (p *GlobalPooling2D) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 || len(inputs[0]) != 3 {
		return nil, fmt.Errorf("%s %s: expected one (h, w, c) input, got %v", p.Kind(), p.name, inputs)
	}
	return tensor.Shape{inputs[0][2]}, nil
}

// Forward implements Layer.
func (p *GlobalPooling2D) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	shape := inputs[0].Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("%s %s: expected 4D input, got %v", p.Kind(), p.name, shape)
	}
	batch, spatial, ch := shape[0], shape[1]*shape[2], shape[3]
	in := inputs[0].AsFloat32()
	out := tensor.Zeros(tensor.Shape{batch, ch})
	dst := out.AsFloat32()

	for n := 0; n < batch; n++ {
		row := dst[n*ch : (n+1)*ch]
		if p.max {
			for c := range row {
				row[c] = float32(math.Inf(-1))
			}
		}
		for s := 0; s < spatial; s++ {
			for c, v := range in[(n*spatial+s)*ch:][:ch] {
				if p.max {
					if v > row[c] {
						row[c] = v
					}
				} else {
					row[c] += v
				}
			}
		}
		if !p.max {
			for c := range row {
				row[c] /= float32(spatial)
			}
		}
	}
	return out, nil
}

// Weights implements Layer.
func (p *GlobalPooling2D) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (p *GlobalPooling2D) Clone() Layer {
	return &GlobalPooling2D{base: p.base, max: p.max}
}

func (p *GlobalPooling2D) String() string { return p.Kind() + "()" }
