// Package optim implements optimization algorithms with exportable state.
//
// This package provides:
//   - Optimizer interface: gradient application plus positional state export
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - Schedule: constant, exponential and piecewise learning rates
//
// Gradients are supplied by the caller. An optimizer is built lazily by its first
// ApplyGradients call, which fixes the parameter list and allocates slots.
//
// State layout (Weights):
//
//	[iterations (int64 scalar), slot tensors...]
//
// SGD with momentum has one "momentum" slot per parameter; Adam has all "m" slots
// followed by all "v" slots. Unbuilt optimizers have no state.
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: optim.Constant(1e-3)})
//	for step := range steps {
//	    grads := computeGrads(model, batch)
//	    if err := opt.ApplyGradients(grads, model.TrainableWeights()); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/tensor"
)

// Errors.
var (
	ErrStateMismatch    = errors.New("optimizer state does not match")
	ErrUnknownOptimizer = errors.New("unknown optimizer")
)

// Optimizer updates parameters from gradients and exposes its state for persistence.
type Optimizer interface {
	// Name returns the registry name ("sgd", "adam").
	Name() string

	// ApplyGradients updates params in place. grads[i] belongs to params[i];
	// nil gradients are skipped. The first call builds the optimizer.
	ApplyGradients(grads []*tensor.RawTensor, params []*nn.Parameter) error

	// Weights returns the state: iterations followed by slot tensors.
	// Empty before the optimizer is built.
	Weights() []*tensor.RawTensor

	// WeightNames returns names parallel to Weights.
	WeightNames() []string

	// SetWeights restores state produced by Weights. Returns ErrStateMismatch
	// when the count or any shape differs.
	SetWeights(weights []*tensor.RawTensor) error

	// Iterations returns the number of applied steps.
	Iterations() int64

	// LR returns the learning rate for the next step.
	LR() float32

	// Schedule returns the learning rate schedule.
	Schedule() Schedule
}

// state is the bookkeeping shared by all optimizers.
type state struct {
	schedule Schedule
	iter     *tensor.RawTensor // int64 scalar, nil until built
	params   []*nn.Parameter
}

func newState(s Schedule, defaultLR float32) state {
	if s == nil {
		s = Constant(defaultLR)
	}
	return state{schedule: s}
}

func (s *state) built() bool { return s.iter != nil }

func (s *state) Iterations() int64 {
	if s.iter == nil {
		return 0
	}
	return s.iter.AsInt64()[0]
}

func (s *state) LR() float32 { return s.schedule.LR(s.Iterations()) }

func (s *state) Schedule() Schedule { return s.schedule }

// bind validates arguments and, on the first call, records the parameter list.
func (s *state) bind(grads []*tensor.RawTensor, params []*nn.Parameter) (first bool, err error) {
	if len(grads) != len(params) {
		return false, fmt.Errorf("got %d gradients for %d parameters", len(grads), len(params))
	}
	for i, p := range params {
		if !p.Trainable() {
			return false, fmt.Errorf("parameter %s is not trainable", p.Name())
		}
		if g := grads[i]; g != nil && !g.Shape().Equal(p.Shape()) {
			return false, fmt.Errorf("gradient for %s: %w: %v != %v", p.Name(), tensor.ErrShapeMismatch, g.Shape(), p.Shape())
		}
	}
	if !s.built() {
		s.params = append([]*nn.Parameter(nil), params...)
		s.iter = tensor.Scalar(0)
		return true, nil
	}
	if len(params) != len(s.params) {
		return false, fmt.Errorf("optimizer was built for %d parameters, got %d", len(s.params), len(params))
	}
	for i, p := range params {
		if !p.Shape().Equal(s.params[i].Shape()) {
			return false, fmt.Errorf("parameter %d (%s): %w: %v != %v",
				i, p.Name(), tensor.ErrShapeMismatch, p.Shape(), s.params[i].Shape())
		}
	}
	return false, nil
}

func (s *state) step() { s.iter.AsInt64()[0]++ }

// slotName formats "<optimizer>/<param>/<slot>:0", dropping the ":0" of the param name.
func slotName(opt string, p *nn.Parameter, slot string) string {
	return opt + "/" + strings.TrimSuffix(p.Name(), ":0") + "/" + slot + ":0"
}

// restore checks weights against the current layout and copies them in.
func restore(current, weights []*tensor.RawTensor) error {
	if len(current) != len(weights) {
		return fmt.Errorf("%w: got %d arrays, optimizer expects %d", ErrStateMismatch, len(weights), len(current))
	}
	for i, w := range weights {
		if w == nil || !w.Shape().Equal(current[i].Shape()) || w.DType() != current[i].DType() {
			return fmt.Errorf("%w: array %d has %v, optimizer expects %v %s",
				ErrStateMismatch, i, describe(w), current[i].Shape(), current[i].DType())
		}
	}
	for i, w := range weights {
		if err := current[i].Assign(w); err != nil {
			return err
		}
	}
	return nil
}

func describe(t *tensor.RawTensor) string {
	if t == nil {
		return "nil"
	}
	return fmt.Sprintf("%v %s", t.Shape(), t.DType())
}

// Constructor builds an optimizer with the given schedule.
type Constructor func(schedule Schedule) Optimizer

var registry = map[string]Constructor{
	"sgd":  func(s Schedule) Optimizer { return NewSGD(SGDConfig{LR: s}) },
	"adam": func(s Schedule) Optimizer { return NewAdam(AdamConfig{LR: s}) },
}

// New creates a registered optimizer with default hyperparameters.
func New(name string, schedule Schedule) (Optimizer, error) {
	c, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownOptimizer, name, Names())
	}
	return c(schedule), nil
}

// Names returns the registered optimizer names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
