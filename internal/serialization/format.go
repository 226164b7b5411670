package serialization

import (
	"time"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Format constants.
const (
	MagicBytes       = "BORN"
	FormatVersion    = 2    // v2: fixed header with SHA-256 checksum
	HeaderAlignment  = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize  = 64   // 0x40 bytes
	ChecksumSize     = 32   // SHA-256
	ChecksumOffset   = 0x20 // Checksum position in the fixed header
	ProducerVersion  = "trainkit/0.3.0"
	headerSizeOffset = 0x10
	dataSizeOffset   = 0x18
)

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // bit 1: file holds optimizer state
	FlagHasMetadata  uint32 = 1 << 2 // bit 2: custom metadata included
)

// Kinds of payload.
const (
	KindWeights   = "weights"
	KindOptimizer = "optimizer"
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Producer      string            `json:"producer"`             // Library version that wrote the file
	Kind          string            `json:"kind"`                 // KindWeights or KindOptimizer
	ModelName     string            `json:"model_name,omitempty"` // Name of the source model
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "conv2d/kernel:0"
	DType  string `json:"dtype"`  // e.g. "float32"
	Shape  []int  `json:"shape"`  // Empty for scalars
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Bytes
}

// NamedTensor pairs a tensor with its name.
type NamedTensor struct {
	Name   string
	Tensor *tensor.RawTensor
}

// File is a decoded .born file.
type File struct {
	Header  Header
	Tensors []NamedTensor
}

// Lookup returns the tensor with the given name.
func (f *File) Lookup(name string) (*tensor.RawTensor, bool) {
	for _, nt := range f.Tensors {
		if nt.Name == name {
			return nt.Tensor, true
		}
	}
	return nil, false
}

// RawTensors returns the tensors in file order.
func (f *File) RawTensors() []*tensor.RawTensor {
	out := make([]*tensor.RawTensor, len(f.Tensors))
	for i, nt := range f.Tensors {
		out[i] = nt.Tensor
	}
	return out
}

func alignedOffset(pos int64) int64 {
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
