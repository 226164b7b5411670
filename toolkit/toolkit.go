// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package toolkit provides training-loop utilities: weight cloning and
// resetting, clipping, checkpoint callbacks, optimizer state files, losses,
// experiment records and precision/device setup.
//
// # Basic Usage
//
//	ckp := toolkit.NewCheckpointAfterEpoch(
//	    map[int]string{10: "ckp/model_10.born"},
//	    map[int]string{10: "ckp/optimizer_10.born"},
//	)
//	history, err := toolkit.Fit(model, opt, 10, trainEpoch, ckp)
//	if err != nil {
//	    return err
//	}
//	exp, err := toolkit.LogFromHistory(history, toolkit.NewExperiment("resnet20", nil))
package toolkit

import (
	"io"

	"github.com/born-ml/trainkit/internal/device"
	"github.com/born-ml/trainkit/internal/toolkit"
	"github.com/born-ml/trainkit/nn"
	"github.com/born-ml/trainkit/optim"
	"github.com/born-ml/trainkit/tensor"
)

// Weights

// SetAllWeightsFromModel copies src's weights into dst by position, skipping
// mismatched shapes. Returns the skip count.
func SetAllWeightsFromModel(dst, src *nn.Model) int {
	return toolkit.SetAllWeightsFromModel(dst, src)
}

// CloneModel duplicates m, weights included.
func CloneModel(m *nn.Model) (*nn.Model, error) {
	return toolkit.CloneModel(m)
}

// ResetWeightsToCheckpoint reinitializes m, or loads ckp when non-empty,
// keeping weights whose name contains skipKeyword.
func ResetWeightsToCheckpoint(m *nn.Model, ckp, skipKeyword string) (int, error) {
	return toolkit.ResetWeightsToCheckpoint(m, ckp, skipKeyword)
}

// ClipOptions bounds ClipMany.
type ClipOptions = toolkit.ClipOptions

// Float32 returns a pointer to v, for ClipOptions literals.
func Float32(v float32) *float32 { return toolkit.Float32(v) }

// ClipMany clips every tensor into [Low, High].
//
// Example:
//
//	clipped, err := toolkit.ClipMany(grads, toolkit.ClipOptions{High: toolkit.Float32(1)})
func ClipMany(values []*tensor.RawTensor, opts ClipOptions) ([]*tensor.RawTensor, error) {
	return toolkit.ClipMany(values, opts)
}

// ConcatenateFlattened flattens and joins tensors.
func ConcatenateFlattened(values []*tensor.RawTensor) []float32 {
	return toolkit.ConcatenateFlattened(values)
}

// Kernels returns the convolution and dense kernels of m.
func Kernels(m *nn.Model) []*nn.Parameter {
	return toolkit.Kernels(m)
}

// SaveModel writes m's weights to path.
func SaveModel(m *nn.Model, path string, metadata map[string]string) error {
	return toolkit.SaveModel(m, path, metadata)
}

// LoadModelWeights reads a weights file into m.
func LoadModelWeights(m *nn.Model, path string) error {
	return toolkit.LoadModelWeights(m, path)
}

// Optimizer state

// SaveOptimizer writes the optimizer state to path.
func SaveOptimizer(opt optim.Optimizer, path string) error {
	return toolkit.SaveOptimizer(opt, path)
}

// UpdateOptimizer restores optimizer state, warning instead of failing when
// the state does not fit.
func UpdateOptimizer(opt optim.Optimizer, path string) error {
	return toolkit.UpdateOptimizer(opt, path)
}

// BuildOptimizer allocates optimizer slots by applying zero gradients.
func BuildOptimizer(m *nn.Model, opt optim.Optimizer) error {
	return toolkit.BuildOptimizer(m, opt)
}

// Training loop

// Logs are one epoch of metrics.
type Logs = toolkit.Logs

// History collects metrics per epoch.
type History = toolkit.History

// Callback is notified after every epoch.
type Callback = toolkit.Callback

// Trainer holds a callback's model and optimizer.
type Trainer = toolkit.Trainer

// StepFunc runs one training epoch.
type StepFunc = toolkit.StepFunc

// CheckpointAfterEpoch saves checkpoints after selected one-based epochs.
type CheckpointAfterEpoch = toolkit.CheckpointAfterEpoch

// NewCheckpointAfterEpoch creates the checkpoint callback.
func NewCheckpointAfterEpoch(modelPaths, optimizerPaths map[int]string) *CheckpointAfterEpoch {
	return toolkit.NewCheckpointAfterEpoch(modelPaths, optimizerPaths)
}

// Fit runs epochs of step and notifies callbacks.
func Fit(m *nn.Model, opt optim.Optimizer, epochs int, step StepFunc, callbacks ...Callback) (History, error) {
	return toolkit.Fit(m, opt, epochs, step, callbacks...)
}

// Losses and metrics

// LossFunc reduces predictions and labels to a scalar.
type LossFunc = toolkit.LossFunc

// ErrUnknownLossAlias is returned by LossFromAlias.
var ErrUnknownLossAlias = toolkit.ErrUnknownLossAlias

// LossFromAlias returns a named loss. "crossentropy" is sparse categorical
// cross-entropy on logits.
func LossFromAlias(alias string) (LossFunc, error) {
	return toolkit.LossFromAlias(alias)
}

// SparseCategoricalAccuracy returns the fraction of rows whose arg max is the label.
func SparseCategoricalAccuracy(logits, labels *tensor.RawTensor) (float32, error) {
	return toolkit.SparseCategoricalAccuracy(logits, labels)
}

// LRMetric reports opt's learning rate when its schedule decays.
func LRMetric(opt optim.Optimizer) (func() float32, bool) {
	return toolkit.LRMetric(opt)
}

// Experiments

// Experiment is the record of a training run.
type Experiment = toolkit.Experiment

// NewExperiment creates a record with a random ID.
func NewExperiment(name string, params map[string]any) *Experiment {
	return toolkit.NewExperiment(name, params)
}

// LogFromHistory fills exp from h and writes summary events.
func LogFromHistory(h History, exp *Experiment) (*Experiment, error) {
	return toolkit.LogFromHistory(h, exp)
}

// ModelInfo summarizes parameter counts.
type ModelInfo = toolkit.ModelInfo

// Info computes m's parameter breakdown.
func Info(m *nn.Model) ModelInfo {
	return toolkit.Info(m)
}

// PrintModelInfo writes m's parameter breakdown to w.
func PrintModelInfo(w io.Writer, m *nn.Model) {
	toolkit.PrintModelInfo(w, m)
}

// Devices and precision

// Policy is a mixed precision policy.
type Policy = device.Policy

// ErrUnknownPrecision is returned by SetPrecision.
var ErrUnknownPrecision = device.ErrUnknownPrecision

// SetPrecision installs the global policy: 16 for mixed_float16, 32 or 64.
func SetPrecision(bits int) (Policy, error) {
	return device.SetPrecision(bits)
}

// SetVisibleGPUs restricts the GPUs used by the process.
func SetVisibleGPUs(indices ...int) error {
	return device.SetVisibleDevices(indices...)
}

// SetMemoryGrowth enables on-demand allocation on every visible GPU.
func SetMemoryGrowth() int {
	return device.SetMemoryGrowth()
}
