package toolkit

import (
	"github.com/pkg/errors"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/optim"
	"github.com/born-ml/trainkit/internal/serialization"
	"github.com/born-ml/trainkit/internal/tensor"
)

// SaveOptimizer writes the optimizer state to path, creating parent directories.
// An unbuilt optimizer produces a file with no tensors.
func SaveOptimizer(opt optim.Optimizer, path string) error {
	weights, names := opt.Weights(), opt.WeightNames()
	tensors := make([]serialization.NamedTensor, len(weights))
	for i, w := range weights {
		tensors[i] = serialization.NamedTensor{Name: names[i], Tensor: w}
	}

	header := serialization.Header{
		Kind: serialization.KindOptimizer,
		Metadata: map[string]string{
			"optimizer": opt.Name(),
			"schedule":  opt.Schedule().String(),
		},
	}
	if err := serialization.WriteFile(path, header, tensors); err != nil {
		return errors.Wrapf(err, "save optimizer to %s", path)
	}
	return nil
}

// UpdateOptimizer restores optimizer state from path. State that does not fit
// the optimizer, as when restoring into an unbuilt one, is logged and ignored.
func UpdateOptimizer(opt optim.Optimizer, path string) error {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "update optimizer from %s", path)
	}
	if f.Header.Kind != serialization.KindOptimizer {
		return errors.Errorf("%s holds %q data, not optimizer state", path, f.Header.Kind)
	}

	err = opt.SetWeights(f.RawTensors())
	if errors.Is(err, optim.ErrStateMismatch) {
		logging.Warn("Tried to load optimizer state that does not fit, is the optimizer built?", logging.Optimizer,
			"path", path, "error", err)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "update optimizer from %s", path)
	}
	logging.Info("Restored optimizer", logging.Optimizer, "path", path, "iterations", opt.Iterations())
	return nil
}

// BuildOptimizer applies zero gradients to every trainable weight of m so the
// optimizer allocates its slots. The iteration count advances by one.
func BuildOptimizer(m *nn.Model, opt optim.Optimizer) error {
	params := m.TrainableWeights()
	grads := make([]*tensor.RawTensor, len(params))
	for i, p := range params {
		grads[i] = tensor.Zeros(p.Shape())
	}
	if err := opt.ApplyGradients(grads, params); err != nil {
		return errors.Wrapf(err, "build optimizer %s", opt.Name())
	}
	return nil
}
