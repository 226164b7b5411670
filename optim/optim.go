// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import "github.com/born-ml/trainkit/internal/optim"

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Errors.
var (
	ErrStateMismatch    = optim.ErrStateMismatch
	ErrUnknownOptimizer = optim.ErrUnknownOptimizer
)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
func NewSGD(cfg SGDConfig) *SGD {
	return optim.NewSGD(cfg)
}

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: optim.Constant(3e-4)})
func NewAdam(cfg AdamConfig) *Adam {
	return optim.NewAdam(cfg)
}

// New creates a registered optimizer ("sgd", "adam") with default settings.
func New(name string, schedule Schedule) (Optimizer, error) {
	return optim.New(name, schedule)
}

// Schedules

// Schedule maps the iteration count to a learning rate.
type Schedule = optim.Schedule

// ExponentialDecay computes Initial * DecayRate^(step/DecaySteps).
type ExponentialDecay = optim.ExponentialDecay

// PiecewiseConstant switches rates at step boundaries.
type PiecewiseConstant = optim.PiecewiseConstant

// Constant returns a fixed learning rate schedule.
func Constant(lr float32) Schedule {
	return optim.Constant(lr)
}

// NewPiecewiseConstant validates and creates a piecewise constant schedule.
func NewPiecewiseConstant(boundaries []int64, values []float32) (PiecewiseConstant, error) {
	return optim.NewPiecewiseConstant(boundaries, values)
}

// IsDecaying reports whether s changes the rate over time.
func IsDecaying(s Schedule) bool {
	return optim.IsDecaying(s)
}
