package nn

import (
	"fmt"
	"math"
	"sort"

	"github.com/born-ml/trainkit/internal/tensor"
)

// ActivationFunc is an element-wise nonlinearity.
type ActivationFunc func(x float32) float32

var activations = map[string]ActivationFunc{
	"linear": func(x float32) float32 { return x },
	"relu": func(x float32) float32 {
		if x < 0 {
			return 0
		}
		return x
	},
	"relu6": func(x float32) float32 {
		return float32(math.Min(math.Max(float64(x), 0), 6))
	},
	"tanh": func(x float32) float32 { return float32(math.Tanh(float64(x))) },
	"sigmoid": func(x float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(x))))
	},
	"swish": func(x float32) float32 {
		return x * float32(1/(1+math.Exp(-float64(x))))
	},
}

// ActivationByName looks up a registered activation function.
func ActivationByName(name string) (ActivationFunc, error) {
	if f, ok := activations[name]; ok {
		return f, nil
	}
	names := make([]string, 0, len(activations))
	for n := range activations {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown activation %q (available: %v)", name, names)
}

// Activation applies a named element-wise function.
//
// Example:
//
//	act, _ := nn.NewActivation("relu")
//	x = g.Apply(act, x) // negatives become 0
type Activation struct {
	base
	fn     string
	apply  ActivationFunc
	result tensor.Shape
}

// NewActivation creates an activation layer. Returns an error for unknown names.
func NewActivation(name string) (*Activation, error) {
	f, err := ActivationByName(name)
	if err != nil {
		return nil, err
	}
	return &Activation{fn: name, apply: f}, nil
}

// MustActivation is NewActivation for names known to be registered. It panics otherwise.
func MustActivation(name string) *Activation {
	a, err := NewActivation(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Kind implements Layer.
func (a *Activation) Kind() string { return "Activation" }

// Function returns the activation name.
func (a *Activation) Function() string { return a.fn }

// Build implements Layer.
func (a *Activation) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("activation %s: expected one input, got %d", a.name, len(inputs))
	}
	a.result = inputs[0].Clone()
	return a.result.Clone(), nil
}

// Forward implements Layer.
func (a *Activation) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	x := inputs[0]
	out := tensor.Zeros(x.Shape())
	dst := out.AsFloat32()
	for i, v := range x.AsFloat32() {
		dst[i] = a.apply(v)
	}
	return out, nil
}

// Weights implements Layer.
func (a *Activation) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (a *Activation) Clone() Layer {
	return &Activation{base: a.base, fn: a.fn, apply: a.apply}
}

func (a *Activation) String() string {
	return fmt.Sprintf("Activation(%s)", a.fn)
}
