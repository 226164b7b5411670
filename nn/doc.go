// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers and the functional graph used to build
// image classifiers.
//
// # Overview
//
// This package contains:
//   - Layers: Conv2D, Dense, BatchNormalization, Dropout, Activation
//   - Pooling and merging: global average/max pooling, Add, Concatenate
//   - ZeroPadShortcut: parameter-free residual shortcut
//   - Graph and Model: Keras-style functional models with named weights
//   - Initializers and L1/L2 regularizers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/trainkit/nn"
//	    "github.com/born-ml/trainkit/tensor"
//	)
//
//	func main() {
//	    g := nn.NewGraph()
//	    in := g.Input(tensor.Shape{28, 28, 1})
//	    x := g.Apply(nn.NewConv2D(nn.Conv2DConfig{Filters: 8, KernelSize: 3, Padding: nn.PaddingSame}), in)
//	    x = g.Apply(nn.MustActivation("relu"), x)
//	    x = g.Apply(nn.NewGlobalAveragePooling2D(), x)
//	    out := g.Apply(nn.NewDense(nn.DenseConfig{Units: 10}), x)
//
//	    model, err := g.Model("tiny", []*nn.Node{in}, out)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    model.Summary(os.Stdout)
//	}
//
// # Naming
//
// Layers are named after their kind in snake case, numbered from the second
// instance on: conv2d, conv2d_1, ... Inputs are input_1, input_2, ...
// Weights are named "<layer>/<weight>:0", e.g. "dense/kernel:0".
//
// # Weight Files
//
// Model.SaveWeights and Model.LoadWeights use the .born v2 format: a 64-byte
// fixed header with a SHA-256 checksum, a JSON header and 64-byte aligned data.
package nn
