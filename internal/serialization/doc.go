// Package serialization implements the .born container used for model weights and
// optimizer state.
//
// A file holds an ordered list of named tensors plus a JSON header:
//
//	Format Structure (v2):
//	  0x00 [4 bytes:  Magic "BORN"]
//	  0x04 [4 bytes:  Version (uint32 LE) = 2]
//	  0x08 [4 bytes:  Flags (uint32 LE)]
//	  0x0C [4 bytes:  Reserved]
//	  0x10 [8 bytes:  Header size (uint64 LE)]
//	  0x18 [8 bytes:  Data size (uint64 LE)]
//	  0x20 [32 bytes: SHA-256 of the data section]
//	  0x40 [Header: JSON]
//	       [Padding to 64 bytes]
//	       [Tensor data: raw little-endian bytes, in header order]
//
// Order is significant: optimizer state is positional, so tensors are written and
// read back in the order given.
//
// Example usage:
//
//	err := serialization.WriteFile("ckpt/model_10.born", serialization.Header{
//	    Kind:      serialization.KindWeights,
//	    ModelName: "resnet",
//	}, tensors)
//
//	f, err := serialization.ReadFile("ckpt/model_10.born")
//	kernel, ok := f.Lookup("conv2d/kernel:0")
package serialization
