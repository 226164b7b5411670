// Package device tracks the compute devices visible to training and the global
// floating point precision policy.
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/tensor"
)

// ErrUnknownPrecision is returned by SetPrecision for unsupported bit widths.
var ErrUnknownPrecision = errors.New("unknown precision")

// Policy is a mixed precision policy: layers compute in Compute and keep their
// variables in Variable.
type Policy struct {
	Name     string
	Compute  tensor.DataType
	Variable tensor.DataType
}

// Predefined policies.
var (
	MixedFloat16 = Policy{Name: "mixed_float16", Compute: tensor.Float16, Variable: tensor.Float32}
	Float32      = Policy{Name: "float32", Compute: tensor.Float32, Variable: tensor.Float32}
	Float64      = Policy{Name: "float64", Compute: tensor.Float64, Variable: tensor.Float64}
)

var (
	policyMu sync.RWMutex
	policy   = Float32
)

// PolicyForBits maps 16, 32 and 64 to their policies.
func PolicyForBits(bits int) (Policy, error) {
	switch bits {
	case 16:
		return MixedFloat16, nil
	case 32:
		return Float32, nil
	case 64:
		return Float64, nil
	default:
		return Policy{}, fmt.Errorf("%w: %d (available: 16, 32, 64)", ErrUnknownPrecision, bits)
	}
}

// SetPrecision installs the policy for bits as the global policy.
func SetPrecision(bits int) (Policy, error) {
	p, err := PolicyForBits(bits)
	if err != nil {
		return Policy{}, err
	}

	policyMu.Lock()
	policy = p
	policyMu.Unlock()

	logging.Info("Set precision policy", logging.Device, "policy", p.Name)
	return p, nil
}

// GlobalPolicy returns the current global policy. Defaults to float32.
func GlobalPolicy() Policy {
	policyMu.RLock()
	defer policyMu.RUnlock()
	return policy
}

func (p Policy) String() string {
	return fmt.Sprintf("%s (compute %s, variables %s)", p.Name, p.Compute, p.Variable)
}
