package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/trainkit/internal/tensor"
)

// ReaderOptions configures decoding.
type ReaderOptions struct {
	SkipChecksumValidation bool // Faster, but corrupted data goes unnoticed
}

// fixedHeader is the decoded 64-byte prefix.
type fixedHeader struct {
	flags      uint32
	headerSize uint64
	dataSize   int64
	checksum   [ChecksumSize]byte
}

func readFixedHeader(r io.Reader) (fixedHeader, error) {
	var fh fixedHeader
	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fh, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(buf[0:4]) != MagicBytes {
		return fh, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != FormatVersion {
		return fh, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	fh.flags = binary.LittleEndian.Uint32(buf[8:12])
	fh.headerSize = binary.LittleEndian.Uint64(buf[headerSizeOffset:])
	dataSize := binary.LittleEndian.Uint64(buf[dataSizeOffset:])
	copy(fh.checksum[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])
	if fh.headerSize > MaxHeaderSize {
		return fh, ErrHeaderTooLarge
	}
	if dataSize > math.MaxInt64 {
		return fh, fmt.Errorf("%w: %d bytes", ErrDataSizeInvalid, dataSize)
	}
	fh.dataSize = int64(dataSize)
	return fh, nil
}

// dataOffset is where the aligned data section starts.
func (fh fixedHeader) dataOffset() int64 {
	//nolint:gosec // G115: bounded by MaxHeaderSize
	return alignedOffset(int64(FixedHeaderSize) + int64(fh.headerSize))
}

func readJSONHeader(r io.Reader, fh fixedHeader) (Header, error) {
	var header Header
	raw := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return header, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return header, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&header, fh.dataSize); err != nil {
		return header, fmt.Errorf("validation failed: %w", err)
	}
	return header, nil
}

// Read decodes a complete .born stream.
func Read(r io.Reader, opts ReaderOptions) (*File, error) {
	return read(r, opts, -1)
}

// read decodes a stream of fileSize bytes; a negative fileSize means unknown.
func read(r io.Reader, opts ReaderOptions, fileSize int64) (*File, error) {
	fh, err := readFixedHeader(r)
	if err != nil {
		return nil, err
	}
	if fileSize >= 0 && fh.dataSize > fileSize-fh.dataOffset() {
		return nil, fmt.Errorf("%w: header claims %d bytes, file has %d after offset %d",
			ErrDataSizeInvalid, fh.dataSize, fileSize-fh.dataOffset(), fh.dataOffset())
	}
	header, err := readJSONHeader(r, fh)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: bounded by MaxHeaderSize
	pos := int64(FixedHeaderSize) + int64(fh.headerSize)
	if pad := fh.dataOffset() - pos; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, pad); err != nil {
			return nil, fmt.Errorf("failed to read padding: %w", err)
		}
	}

	// The buffer grows with what the stream delivers, so a corrupted size
	// cannot force a huge allocation up front.
	var buf bytes.Buffer
	if n, err := io.CopyN(&buf, r, fh.dataSize); err != nil {
		return nil, fmt.Errorf("failed to read tensor data (%d of %d bytes): %w", n, fh.dataSize, err)
	}
	data := buf.Bytes()
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), fh.checksum); err != nil {
			return nil, err
		}
	}

	f := &File{Header: header, Tensors: make([]NamedTensor, 0, len(header.Tensors))}
	for _, meta := range header.Tensors {
		t, err := decodeTensor(meta, data[meta.Offset:meta.Offset+meta.Size])
		if err != nil {
			return nil, err
		}
		f.Tensors = append(f.Tensors, NamedTensor{Name: meta.Name, Tensor: t})
	}
	return f, nil
}

func decodeTensor(meta TensorMeta, data []byte) (*tensor.RawTensor, error) {
	dtype, ok := tensor.ParseDataType(meta.DType)
	if !ok || dtype == tensor.Float16 {
		return nil, fmt.Errorf("tensor %s: %w: %s", meta.Name, ErrUnsupportedDType, meta.DType)
	}
	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}
	if len(data) != shape.NumElements()*dtype.Size() {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  meta.Name,
			Details: fmt.Sprintf("%d bytes for shape %v of %s", len(data), shape, dtype),
		}
	}
	raw, err := tensor.FromBytes(bytes.Clone(data), shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor %s: %w", meta.Name, err)
	}
	return raw, nil
}

// ReadFile decodes the .born file at path.
func ReadFile(path string) (*File, error) {
	return ReadFileWithOptions(path, ReaderOptions{})
}

// ReadFileWithOptions is ReadFile with custom options.
func ReadFileWithOptions(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	file, err := read(bufio.NewReader(f), opts, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return file, nil
}

// ReadHeader decodes only the JSON header of the file at path, without
// touching or verifying the data section.
func ReadHeader(path string) (Header, error) {
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	fh, err := readFixedHeader(f)
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", path, err)
	}
	header, err := readJSONHeader(f, fh)
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", path, err)
	}
	return header, nil
}
