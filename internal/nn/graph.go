package nn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/born-ml/trainkit/internal/tensor"
)

// ErrLayerReused is returned when the same layer instance is applied twice.
var ErrLayerReused = errors.New("layer already applied in this graph")

// Node is the output of a layer inside a Graph.
type Node struct {
	id     int
	layer  Layer
	inputs []*Node
	shape  tensor.Shape
}

// Layer returns the layer producing this node.
func (n *Node) Layer() Layer { return n.layer }

// Shape returns the output shape without the batch dimension.
func (n *Node) Shape() tensor.Shape { return n.shape.Clone() }

// InputLayer is the placeholder for a model input.
type InputLayer struct {
	base
	shape tensor.Shape
}

// Kind implements Layer.
func (i *InputLayer) Kind() string { return "InputLayer" }

// Build implements Layer.
func (i *InputLayer) Build(_ []tensor.Shape) (tensor.Shape, error) { return i.shape.Clone(), nil }

// Forward implements Layer.
func (i *InputLayer) Forward(inputs []*tensor.RawTensor, _ bool) (*tensor.RawTensor, error) {
	return inputs[0], nil
}

// Weights implements Layer.
func (i *InputLayer) Weights() []*Parameter { return nil }

// Clone implements Layer.
func (i *InputLayer) Clone() Layer { return &InputLayer{base: i.base, shape: i.shape.Clone()} }

// Graph builds a layer DAG in the functional style.
//
// Errors are sticky: after the first failure every Apply returns nil and the
// error is reported by Err and Model. This keeps builders free of per-call checks.
//
// Example:
//
//	g := nn.NewGraph()
//	in := g.Input(tensor.Shape{32, 32, 3})
//	x := g.Apply(nn.NewConv2D(nn.Conv2DConfig{Filters: 16, KernelSize: 3}), in)
//	x = g.Apply(nn.NewGlobalAveragePooling2D(), x)
//	out := g.Apply(nn.NewDense(nn.DenseConfig{Units: 10}), x)
//	model, err := g.Model("net", []*nn.Node{in}, out)
type Graph struct {
	nodes   []*Node
	names   map[string]bool
	counter map[string]int
	applied map[Layer]bool
	err     error
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		names:   make(map[string]bool),
		counter: make(map[string]int),
		applied: make(map[Layer]bool),
	}
}

// Err returns the first error encountered while building.
func (g *Graph) Err() error { return g.err }

// Input adds a model input of the given shape (without batch).
func (g *Graph) Input(shape tensor.Shape) *Node {
	if g.err != nil {
		return nil
	}
	if err := shape.Validate(); err != nil {
		g.err = fmt.Errorf("input: %w", err)
		return nil
	}
	return g.add(&InputLayer{shape: shape.Clone()})
}

// Apply connects layer to inputs, builds it and returns its output node.
// Unnamed layers get a unique snake_case name derived from their kind.
func (g *Graph) Apply(layer Layer, inputs ...*Node) *Node {
	if g.err != nil {
		return nil
	}
	if len(inputs) == 0 {
		g.err = fmt.Errorf("apply %s: no inputs", layer.Kind())
		return nil
	}
	for _, in := range inputs {
		if in == nil {
			g.err = fmt.Errorf("apply %s: nil input node", layer.Kind())
			return nil
		}
	}
	return g.add(layer, inputs...)
}

func (g *Graph) add(layer Layer, inputs ...*Node) *Node {
	if g.applied[layer] {
		g.err = fmt.Errorf("apply %s: %w", layer.Name(), ErrLayerReused)
		return nil
	}

	name := layer.Name()
	if name == "" {
		name = g.uniqueName(layer.Kind())
		layer.SetName(name)
	}
	if g.names[name] {
		g.err = fmt.Errorf("apply %s: duplicate layer name", name)
		return nil
	}

	shapes := make([]tensor.Shape, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.shape
	}
	out, err := layer.Build(shapes)
	if err != nil {
		g.err = err
		return nil
	}

	g.names[name] = true
	g.applied[layer] = true
	n := &Node{id: len(g.nodes), layer: layer, inputs: inputs, shape: out}
	g.nodes = append(g.nodes, n)
	return n
}

// uniqueName returns prefix, prefix_1, prefix_2, ... skipping taken names.
// Inputs start at input_1.
func (g *Graph) uniqueName(kind string) string {
	prefix := snakeCase(kind)
	if prefix == "input_layer" {
		prefix = "input"
	}
	for {
		idx := g.counter[prefix]
		g.counter[prefix]++
		name := prefix
		if prefix == "input" {
			name += "_" + strconv.Itoa(idx+1)
		} else if idx > 0 {
			name += "_" + strconv.Itoa(idx)
		}
		if !g.names[name] {
			return name
		}
	}
}

// snakeCase converts layer kinds: "Conv2D" -> "conv2d", "GlobalAveragePooling2D" ->
// "global_average_pooling2d", "BatchNormalization" -> "batch_normalization".
func snakeCase(kind string) string {
	var b strings.Builder
	runes := []rune(kind)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && unicode.IsLower(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Model finalizes the graph. Only nodes reachable from outputs are kept.
func (g *Graph) Model(name string, inputs []*Node, outputs ...*Node) (*Model, error) {
	if g.err != nil {
		return nil, fmt.Errorf("model %s: %w", name, g.err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s: need at least one input and one output", name)
	}
	for _, n := range append(append([]*Node{}, inputs...), outputs...) {
		if n == nil {
			return nil, fmt.Errorf("model %s: nil node", name)
		}
	}

	reachable := make(map[*Node]bool)
	var visit func(n *Node)
	visit = func(n *Node) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		for _, in := range n.inputs {
			visit(in)
		}
	}
	for _, out := range outputs {
		visit(out)
	}

	for _, in := range inputs {
		if _, ok := in.layer.(*InputLayer); !ok {
			return nil, fmt.Errorf("model %s: %s is not an input", name, in.layer.Name())
		}
		reachable[in] = true
	}
	for n := range reachable {
		if _, ok := n.layer.(*InputLayer); ok && !containsNode(inputs, n) {
			return nil, fmt.Errorf("model %s: output depends on input %s not listed as model input",
				name, n.layer.Name())
		}
	}

	nodes := make([]*Node, 0, len(reachable))
	for _, n := range g.nodes {
		if reachable[n] {
			nodes = append(nodes, n)
		}
	}
	return &Model{name: name, nodes: nodes, inputs: inputs, outputs: outputs}, nil
}

func containsNode(nodes []*Node, n *Node) bool {
	for _, m := range nodes {
		if m == n {
			return true
		}
	}
	return false
}
