package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{
//	    LR:    optim.Constant(0.001),
//	    Betas: [2]float32{0.9, 0.999},
//	})
type Adam struct {
	state
	beta1 float32
	beta2 float32
	eps   float32
	m     []*tensor.RawTensor
	v     []*tensor.RawTensor
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    Schedule   // Default: Constant(0.001)
	Betas [2]float32 // Default: [0.9, 0.999]
	Eps   float32    // Default: 1e-7
}

// NewAdam creates a new Adam optimizer. Zero fields take their defaults.
func NewAdam(cfg AdamConfig) *Adam {
	if cfg.Betas[0] == 0 {
		cfg.Betas[0] = 0.9
	}
	if cfg.Betas[1] == 0 {
		cfg.Betas[1] = 0.999
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-7
	}
	return &Adam{
		state: newState(cfg.LR, 0.001),
		beta1: cfg.Betas[0],
		beta2: cfg.Betas[1],
		eps:   cfg.Eps,
	}
}

// Name implements Optimizer.
func (a *Adam) Name() string { return "adam" }

// ApplyGradients implements Optimizer.
func (a *Adam) ApplyGradients(grads []*tensor.RawTensor, params []*nn.Parameter) error {
	first, err := a.bind(grads, params)
	if err != nil {
		return fmt.Errorf("adam: %w", err)
	}
	if first {
		a.m = make([]*tensor.RawTensor, len(params))
		a.v = make([]*tensor.RawTensor, len(params))
		for i, p := range params {
			a.m[i] = tensor.Zeros(p.Shape())
			a.v[i] = tensor.Zeros(p.Shape())
		}
	}

	lr := a.LR()
	t := float64(a.Iterations() + 1)
	biasCorrection1 := float32(1 - math.Pow(float64(a.beta1), t))
	biasCorrection2 := float32(1 - math.Pow(float64(a.beta2), t))

	for i, p := range params {
		if grads[i] == nil {
			continue
		}
		g := grads[i].AsFloat32()
		m := a.m[i].AsFloat32()
		v := a.v[i].AsFloat32()
		w := p.Tensor().AsFloat32()
		for j := range w {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			mHat := m[j] / biasCorrection1
			vHat := v[j] / biasCorrection2
			w[j] -= lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
	a.step()
	return nil
}

// Weights implements Optimizer.
func (a *Adam) Weights() []*tensor.RawTensor {
	if !a.built() {
		return nil
	}
	out := make([]*tensor.RawTensor, 0, 1+2*len(a.m))
	out = append(out, a.iter)
	out = append(out, a.m...)
	return append(out, a.v...)
}

// WeightNames implements Optimizer.
func (a *Adam) WeightNames() []string {
	if !a.built() {
		return nil
	}
	names := make([]string, 0, 1+2*len(a.params))
	names = append(names, "adam/iter:0")
	for _, p := range a.params {
		names = append(names, slotName("adam", p, "m"))
	}
	for _, p := range a.params {
		names = append(names, slotName("adam", p, "v"))
	}
	return names
}

// SetWeights implements Optimizer.
func (a *Adam) SetWeights(weights []*tensor.RawTensor) error {
	if err := restore(a.Weights(), weights); err != nil {
		return fmt.Errorf("adam: %w", err)
	}
	return nil
}

func (a *Adam) String() string {
	return fmt.Sprintf("Adam(lr=%s, betas=(%g, %g), eps=%g)", a.schedule, a.beta1, a.beta2, a.eps)
}
