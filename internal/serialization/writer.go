package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Write encodes tensors in order as a v2 .born stream.
//
// FormatVersion, Producer, Tensors and (when zero) CreatedAt are filled in by
// Write; Kind, ModelName and Metadata are taken from header.
func Write(w io.Writer, header Header, tensors []NamedTensor) error {
	header.FormatVersion = FormatVersion
	header.Producer = ProducerVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	var offset int64
	header.Tensors = make([]TensorMeta, 0, len(tensors))
	for _, nt := range tensors {
		if nt.Tensor == nil {
			return fmt.Errorf("tensor %s is nil", nt.Name)
		}
		if nt.Tensor.DType() == tensor.Float16 {
			return fmt.Errorf("tensor %s: %w: %s", nt.Name, ErrUnsupportedDType, nt.Tensor.DType())
		}
		size := int64(nt.Tensor.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   nt.Name,
			DType:  nt.Tensor.DType().String(),
			Shape:  []int(nt.Tensor.Shape().Clone()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	if err := ValidateHeader(&header, offset); err != nil {
		return fmt.Errorf("invalid tensor list: %w", err)
	}

	// Checksum is streamed over the same bytes that are written.
	h := sha256.New()
	for _, nt := range tensors {
		h.Write(nt.Tensor.Data())
	}
	var checksum [ChecksumSize]byte
	copy(checksum[:], h.Sum(nil))

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flagsFor(header))
	binary.LittleEndian.PutUint64(fixed[headerSizeOffset:], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[dataSizeOffset:], uint64(offset)) //nolint:gosec // offset is a sum of byte sizes
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	pos := int64(FixedHeaderSize + len(headerJSON))
	if pad := alignedOffset(pos) - pos; pad > 0 {
		if _, err := bw.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	for _, nt := range tensors {
		if _, err := bw.Write(nt.Tensor.Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", nt.Name, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes a .born file, creating parent directories as needed.
func WriteFile(path string, header Header, tensors []NamedTensor) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return Write(f, header, tensors)
}

func flagsFor(h Header) uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if h.Kind == KindOptimizer {
		flags |= FlagHasOptimizer
	}
	return flags
}
