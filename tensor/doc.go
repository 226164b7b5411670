// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensor storage used by trainkit layers,
// optimizers and weight files.
//
// # Overview
//
// Tensors are contiguous, row-major buffers with a shape and a data type.
// Images are laid out channels-last: (batch, height, width, channels).
//
// # Basic Usage
//
//	import "github.com/born-ml/trainkit/tensor"
//
//	func main() {
//	    x := tensor.Full(tensor.Shape{2, 32, 32, 3}, 0.5)
//	    clipped := tensor.ClipByValue(x, -1, 1)
//	    fmt.Println(clipped.Shape()) // (2, 32, 32, 3)
//	}
//
// Shapes passed to layers and models exclude the batch dimension.
package tensor
