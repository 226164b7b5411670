// Package toolkit holds the training-loop utilities around nn models: weight
// cloning and resetting, clipping, checkpoint callbacks, optimizer state
// persistence, loss lookup, experiment records and model statistics.
package toolkit

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/trainkit/internal/device"
	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/serialization"
	"github.com/born-ml/trainkit/internal/tensor"
)

// SetAllWeightsFromModel copies src's weights into dst, pairing them by position.
// A pair whose shapes differ is skipped with a warning. Returns the skip count.
func SetAllWeightsFromModel(dst, src *nn.Model) int {
	dstWeights, srcWeights := dst.Weights(), src.Weights()
	if len(dstWeights) != len(srcWeights) {
		logging.Warn("Weight count differs, extra weights are ignored", logging.Toolkit,
			"dst", len(dstWeights), "src", len(srcWeights))
	}

	skipped := 0
	for i := 0; i < len(dstWeights) && i < len(srcWeights); i++ {
		d, s := dstWeights[i], srcWeights[i]
		if !d.Shape().Equal(s.Shape()) {
			logging.Warn("Skipping "+d.Name()+": "+d.Shape().String()+" != "+s.Shape().String(), logging.Toolkit)
			skipped++
			continue
		}
		if err := d.Assign(s.Tensor()); err != nil {
			logging.Warn("Skipping weight", logging.Toolkit, "name", d.Name(), "error", err)
			skipped++
		}
	}
	return skipped
}

// CloneModel duplicates m's architecture, with the same layer names, and copies
// its weights into the new instance.
func CloneModel(m *nn.Model) (*nn.Model, error) {
	clone, err := m.Clone()
	if err != nil {
		return nil, errors.Wrapf(err, "clone model %s", m.Name())
	}
	SetAllWeightsFromModel(clone, m)
	return clone, nil
}

// ResetWeightsToCheckpoint overwrites m's weights with a fresh initialization or,
// when ckp is non-empty, with the weights stored at ckp. Weights whose name
// contains skipKeyword keep their current values. Returns the number skipped.
func ResetWeightsToCheckpoint(m *nn.Model, ckp, skipKeyword string) (int, error) {
	fresh, err := m.Clone()
	if err != nil {
		return 0, errors.Wrapf(err, "clone model %s", m.Name())
	}
	if ckp != "" {
		if err := fresh.LoadWeights(ckp); err != nil {
			return 0, errors.Wrapf(err, "load checkpoint %s", ckp)
		}
	}

	skipped := 0
	freshWeights := fresh.Weights()
	for i, w := range m.Weights() {
		if skipKeyword != "" && strings.Contains(w.Name(), skipKeyword) {
			skipped++
			continue
		}
		if err := w.Assign(freshWeights[i].Tensor()); err != nil {
			return skipped, errors.Wrap(err, "reset weights")
		}
	}
	logging.Info("Reset weights", logging.Toolkit,
		"model", m.Name(), "checkpoint", ckp, "skip_keyword", skipKeyword, "skipped", skipped)
	return skipped, nil
}

// ClipOptions bounds ClipMany. Low defaults to -High.
type ClipOptions struct {
	High    *float32
	Low     *float32
	Inplace bool
}

// Float32 returns a pointer to v, for ClipOptions literals.
func Float32(v float32) *float32 { return &v }

// ClipMany clips every tensor into [low, high]. With Inplace the tensors are
// modified and returned; otherwise new tensors are returned.
func ClipMany(values []*tensor.RawTensor, opts ClipOptions) ([]*tensor.RawTensor, error) {
	if opts.High == nil {
		return nil, errors.New("clip: high bound is required")
	}
	high := *opts.High
	low := -high
	if opts.Low != nil {
		low = *opts.Low
	}
	if low > high {
		return nil, errors.Errorf("clip: low %g exceeds high %g", low, high)
	}

	out := make([]*tensor.RawTensor, len(values))
	for i, v := range values {
		if opts.Inplace {
			tensor.ClipInplace(v, low, high)
			out[i] = v
			continue
		}
		out[i] = tensor.ClipByValue(v, low, high)
	}
	return out, nil
}

// ConcatenateFlattened flattens every tensor and joins them.
func ConcatenateFlattened(values []*tensor.RawTensor) []float32 {
	return tensor.Flatten(values...)
}

// Kernels returns the convolution and dense kernels ("<layer>/kernel:0"), in model order.
func Kernels(m *nn.Model) []*nn.Parameter {
	var out []*nn.Parameter
	for _, w := range m.Weights() {
		if isKernel(w.Name()) {
			out = append(out, w)
		}
	}
	return out
}

// WeightTensors returns the tensors behind params.
func WeightTensors(params []*nn.Parameter) []*tensor.RawTensor {
	out := make([]*tensor.RawTensor, len(params))
	for i, p := range params {
		out[i] = p.Tensor()
	}
	return out
}

// SaveModel writes m's weights to path, creating parent directories. The global
// precision policy is recorded in the file metadata.
func SaveModel(m *nn.Model, path string, metadata map[string]string) error {
	meta := map[string]string{"precision": device.GlobalPolicy().Name}
	for k, v := range metadata {
		meta[k] = v
	}
	if err := m.SaveWeights(path, meta); err != nil {
		return errors.Wrapf(err, "save model to %s", path)
	}
	return nil
}

// LoadModelWeights reads a weights file into m.
func LoadModelWeights(m *nn.Model, path string) error {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "load model weights from %s", path)
	}
	if f.Header.Kind != serialization.KindWeights {
		return errors.Errorf("%s holds %q data, not model weights", path, f.Header.Kind)
	}
	if err := m.SetWeightsFrom(f); err != nil {
		return errors.Wrapf(err, "load model weights from %s", path)
	}
	return nil
}

func isKernel(name string) bool { return strings.HasSuffix(name, "/kernel:0") }
