package optim

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity - lr * gradient
//	param = param + velocity
//
// With Nesterov the lookahead form is used:
//
//	param = param + momentum * velocity - lr * gradient
//
// Example:
//
//	opt := optim.NewSGD(optim.SGDConfig{
//	    LR:       optim.Constant(0.1),
//	    Momentum: 0.9,
//	})
type SGD struct {
	state
	momentum   float32
	nesterov   bool
	velocities []*tensor.RawTensor
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR       Schedule // Default: Constant(0.01)
	Momentum float32  // Range [0, 1)
	Nesterov bool
}

// NewSGD creates a new SGD optimizer.
func NewSGD(cfg SGDConfig) *SGD {
	return &SGD{
		state:    newState(cfg.LR, 0.01),
		momentum: cfg.Momentum,
		nesterov: cfg.Nesterov,
	}
}

// Name implements Optimizer.
func (s *SGD) Name() string { return "sgd" }

// Momentum returns the momentum factor.
func (s *SGD) Momentum() float32 { return s.momentum }

// ApplyGradients implements Optimizer.
func (s *SGD) ApplyGradients(grads []*tensor.RawTensor, params []*nn.Parameter) error {
	first, err := s.bind(grads, params)
	if err != nil {
		return fmt.Errorf("sgd: %w", err)
	}
	if first && s.momentum != 0 {
		s.velocities = make([]*tensor.RawTensor, len(params))
		for i, p := range params {
			s.velocities[i] = tensor.Zeros(p.Shape())
		}
	}

	lr := s.LR()
	for i, p := range params {
		if grads[i] == nil {
			continue
		}
		g := grads[i].AsFloat32()
		w := p.Tensor().AsFloat32()
		if s.momentum == 0 {
			for j := range w {
				w[j] -= lr * g[j]
			}
			continue
		}
		v := s.velocities[i].AsFloat32()
		for j := range w {
			v[j] = s.momentum*v[j] - lr*g[j]
			if s.nesterov {
				w[j] += s.momentum*v[j] - lr*g[j]
			} else {
				w[j] += v[j]
			}
		}
	}
	s.step()
	return nil
}

// Weights implements Optimizer.
func (s *SGD) Weights() []*tensor.RawTensor {
	if !s.built() {
		return nil
	}
	return append([]*tensor.RawTensor{s.iter}, s.velocities...)
}

// WeightNames implements Optimizer.
func (s *SGD) WeightNames() []string {
	if !s.built() {
		return nil
	}
	names := []string{"sgd/iter:0"}
	if s.velocities != nil {
		for _, p := range s.params {
			names = append(names, slotName("sgd", p, "momentum"))
		}
	}
	return names
}

// SetWeights implements Optimizer.
func (s *SGD) SetWeights(weights []*tensor.RawTensor) error {
	if err := restore(s.Weights(), weights); err != nil {
		return fmt.Errorf("sgd: %w", err)
	}
	return nil
}

func (s *SGD) String() string {
	return fmt.Sprintf("SGD(lr=%s, momentum=%g, nesterov=%v)", s.schedule, s.momentum, s.nesterov)
}
