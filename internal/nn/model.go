package nn

import (
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Model is a built layer graph with fixed input and output shapes.
//
// Layers are stored in topological order. Weights are enumerated in layer
// order, each layer contributing its weights in declaration order.
type Model struct {
	name    string
	nodes   []*Node
	inputs  []*Node
	outputs []*Node
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Layers returns all layers, inputs included, in topological order.
func (m *Model) Layers() []Layer {
	layers := make([]Layer, len(m.nodes))
	for i, n := range m.nodes {
		layers[i] = n.layer
	}
	return layers
}

// Layer returns the layer with the given name.
func (m *Model) Layer(name string) (Layer, bool) {
	for _, n := range m.nodes {
		if n.layer.Name() == name {
			return n.layer, true
		}
	}
	return nil, false
}

// InputShapes returns the input shapes without batch.
func (m *Model) InputShapes() []tensor.Shape {
	shapes := make([]tensor.Shape, len(m.inputs))
	for i, n := range m.inputs {
		shapes[i] = n.Shape()
	}
	return shapes
}

// InputShape returns the shape of the first input.
func (m *Model) InputShape() tensor.Shape { return m.inputs[0].Shape() }

// OutputShapes returns the output shapes without batch.
func (m *Model) OutputShapes() []tensor.Shape {
	shapes := make([]tensor.Shape, len(m.outputs))
	for i, n := range m.outputs {
		shapes[i] = n.Shape()
	}
	return shapes
}

// Weights returns every weight of the model.
func (m *Model) Weights() []*Parameter {
	var params []*Parameter
	for _, n := range m.nodes {
		params = append(params, n.layer.Weights()...)
	}
	return params
}

// TrainableWeights returns the weights updated by optimizers.
func (m *Model) TrainableWeights() []*Parameter {
	var params []*Parameter
	for _, p := range m.Weights() {
		if p.Trainable() {
			params = append(params, p)
		}
	}
	return params
}

// NonTrainableWeights returns weights updated only by forward passes.
func (m *Model) NonTrainableWeights() []*Parameter {
	var params []*Parameter
	for _, p := range m.Weights() {
		if !p.Trainable() {
			params = append(params, p)
		}
	}
	return params
}

// Weight returns the weight with the given full name.
func (m *Model) Weight(name string) (*Parameter, bool) {
	for _, p := range m.Weights() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// CountParams returns total and trainable scalar counts.
func (m *Model) CountParams() (total, trainable int) {
	for _, p := range m.Weights() {
		n := p.Shape().NumElements()
		total += n
		if p.Trainable() {
			trainable += n
		}
	}
	return total, trainable
}

// RegularizationLoss sums the penalties of all regularized weights.
func (m *Model) RegularizationLoss() float64 {
	var loss float64
	for _, p := range m.Weights() {
		if r := p.Regularizer(); r != nil {
			loss += r.Penalty(p.Tensor())
		}
	}
	return loss
}

// Call runs the graph on batched inputs, one tensor per model input.
// training selects batch statistics in normalization and enables dropout.
func (m *Model) Call(inputs []*tensor.RawTensor, training bool) ([]*tensor.RawTensor, error) {
	if len(inputs) != len(m.inputs) {
		return nil, fmt.Errorf("model %s: expected %d inputs, got %d", m.name, len(m.inputs), len(inputs))
	}

	values := make(map[*Node]*tensor.RawTensor, len(m.nodes))
	for i, n := range m.inputs {
		shape := inputs[i].Shape()
		if len(shape) != len(n.shape)+1 || !tensor.Shape(shape[1:]).Equal(n.shape) {
			return nil, fmt.Errorf("model %s: input %d: %w: expected [N%v], got %v",
				m.name, i, tensor.ErrShapeMismatch, n.shape, shape)
		}
		values[n] = inputs[i]
	}

	for _, n := range m.nodes {
		if _, ok := values[n]; ok {
			continue
		}
		args := make([]*tensor.RawTensor, len(n.inputs))
		for i, in := range n.inputs {
			args[i] = values[in]
		}
		out, err := n.layer.Forward(args, training)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.name, err)
		}
		values[n] = out
	}

	outs := make([]*tensor.RawTensor, len(m.outputs))
	for i, n := range m.outputs {
		outs[i] = values[n]
	}
	return outs, nil
}

// Predict runs a single-input model in inference mode.
func (m *Model) Predict(x *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return m.Call([]*tensor.RawTensor{x}, false)
}

// Clone rebuilds the same architecture with freshly initialized weights.
// Layer names, and therefore weight names, are preserved.
func (m *Model) Clone() (*Model, error) {
	g := NewGraph()
	mapped := make(map[*Node]*Node, len(m.nodes))
	for _, n := range m.nodes {
		layer := n.layer.Clone()
		inputs := make([]*Node, len(n.inputs))
		for i, in := range n.inputs {
			inputs[i] = mapped[in]
		}
		mapped[n] = g.add(layer, inputs...)
		if g.err != nil {
			return nil, fmt.Errorf("clone %s: %w", m.name, g.err)
		}
	}

	inputs := make([]*Node, len(m.inputs))
	for i, n := range m.inputs {
		inputs[i] = mapped[n]
	}
	outputs := make([]*Node, len(m.outputs))
	for i, n := range m.outputs {
		outputs[i] = mapped[n]
	}
	return g.Model(m.name, inputs, outputs...)
}

// Summary writes a Keras-style layer table.
func (m *Model) Summary(w io.Writer) {
	line := strings.Repeat("_", 78)
	fmt.Fprintf(w, "Model: %q\n%s\n", m.name, line)
	fmt.Fprintf(w, "%-36s %-22s %10s\n%s\n", "Layer (type)", "Output Shape", "Param #", strings.Repeat("=", 78))
	for _, n := range m.nodes {
		params := 0
		for _, p := range n.layer.Weights() {
			params += p.Shape().NumElements()
		}
		label := fmt.Sprintf("%s (%s)", n.layer.Name(), n.layer.Kind())
		fmt.Fprintf(w, "%-36s %-22s %10d\n", label, "(None, "+strings.Trim(n.shape.String(), "(,)")+")", params)
	}
	total, trainable := m.CountParams()
	fmt.Fprintf(w, "%s\nTotal params: %d\nTrainable params: %d\nNon-trainable params: %d\n%s\n",
		strings.Repeat("=", 78), total, trainable, total-trainable, line)
}
