// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers with exportable state for checkpointing.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum and Nesterov updates
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Schedules: constant, exponential decay and piecewise constant rates
//
// Gradients are computed by the caller. Optimizers apply them in place and
// expose their state as a list of tensors: the iteration count followed by
// slot tensors.
//
// # Basic Usage
//
//	opt := optim.NewSGD(optim.SGDConfig{
//	    LR:       optim.ExponentialDecay{Initial: 0.1, DecaySteps: 1000, DecayRate: 0.9},
//	    Momentum: 0.9,
//	})
//	for step := range steps {
//	    grads := computeGrads(model, batch)
//	    if err := opt.ApplyGradients(grads, model.TrainableWeights()); err != nil {
//	        return err
//	    }
//	}
package optim
