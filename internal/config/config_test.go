package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainkit/internal/config"
	"github.com/born-ml/trainkit/internal/device"
	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/optim"
	"github.com/born-ml/trainkit/internal/tensor"
)

const testYaml = `
model:
  dataset: cifar100
  version: 1
  head_classes: [100, 20]
  dropout: 0.25
  shortcut_projection: false
optimizer:
  name: sgd
  lr: 0.1
  momentum: 0.9
  boundaries: [100, 200]
  values: [0.1, 0.01, 0.001]
training:
  epochs: 30
  checkpoint_dir: /tmp/ckp
  checkpoint_epochs: [10, 30]
device:
  precision: 16
logging:
  level: debug
`

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Model.Version)
	assert.Equal(t, [3]int{16, 32, 64}, cfg.Model.Features)
	assert.True(t, *cfg.Model.RegularizeBias)
	assert.True(t, *cfg.Model.ShortcutProjection)
	assert.Equal(t, 2e-4, *cfg.Model.L2)
	assert.Equal(t, "adam", cfg.Optimizer.Name)
	assert.Equal(t, "crossentropy", cfg.Training.Loss)
	assert.Equal(t, 32, cfg.Device.Precision)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadYaml(t *testing.T) {
	cfg, err := config.Load(rawbytes.Provider([]byte(testYaml)))
	require.NoError(t, err)

	assert.Equal(t, "cifar100", cfg.Model.Dataset)
	assert.Equal(t, 1, cfg.Model.Version)
	assert.Equal(t, []int{100, 20}, cfg.Model.HeadClasses)
	assert.Equal(t, float32(0.25), cfg.Model.Dropout)
	assert.False(t, *cfg.Model.ShortcutProjection)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Model.BlocksInGroup)
	assert.Equal(t, "he_uniform", cfg.Model.Initializer)

	assert.Equal(t, 30, cfg.Training.Epochs)
	assert.Equal(t, 16, cfg.Device.Precision)
	assert.Equal(t, "debug", cfg.Logging.Level)

	opt, err := cfg.Optimizer.Build()
	require.NoError(t, err)
	sgd, ok := opt.(*optim.SGD)
	require.True(t, ok)
	assert.Equal(t, float32(0.9), sgd.Momentum())
	assert.True(t, optim.IsDecaying(opt.Schedule()))
	assert.Equal(t, float32(0.1), opt.LR())

	model, optimizer := cfg.Training.CheckpointPaths()
	assert.Equal(t, map[int]string{10: "/tmp/ckp/model_10.born", 30: "/tmp/ckp/model_30.born"}, model)
	assert.Equal(t, "/tmp/ckp/optimizer_30.born", optimizer[30])
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRAINKIT_MODEL__CLASSES", "7")
	t.Setenv("TRAINKIT_OPTIMIZER__NAME", "sgd")
	t.Setenv("TRAINKIT_TRAINING__EPOCHS", "12")

	cfg, err := config.Load(rawbytes.Provider([]byte(testYaml)))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Model.Classes)
	assert.Equal(t, "sgd", cfg.Optimizer.Name)
	assert.Equal(t, 12, cfg.Training.Epochs)
	assert.Equal(t, "cifar100", cfg.Model.Dataset)
}

func TestValidation(t *testing.T) {
	_, err := config.Load(rawbytes.Provider([]byte("device:\n  precision: 8\n")))
	assert.ErrorIs(t, err, device.ErrUnknownPrecision)

	_, err = config.Load(rawbytes.Provider([]byte("optimizer:\n  boundaries: [10]\n  values: [0.1]\n")))
	assert.Error(t, err, "piecewise needs one more value than boundaries")

	_, err = config.Load(rawbytes.Provider([]byte("optimizer:\n  lr: 0\n  decay_steps: 10\n")))
	assert.Error(t, err)

	_, err = config.Load(rawbytes.Provider([]byte("training:\n  epochs: -1\n")))
	assert.Error(t, err)

	_, err = config.Load(rawbytes.Provider([]byte("model: [")))
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Optimizer.Name = "rmsprop"
	_, err = cfg.Optimizer.Build()
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
}

func TestSchedules(t *testing.T) {
	s, err := config.OptimizerConfig{LR: 0.1, DecaySteps: 10, DecayRate: 0.5}.Schedule()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, s.LR(10), 1e-7)

	s, err = config.OptimizerConfig{LR: 0.1}.Schedule()
	require.NoError(t, err)
	assert.False(t, optim.IsDecaying(s))

	s, err = config.OptimizerConfig{}.Schedule()
	require.NoError(t, err)
	assert.Nil(t, s)

	opt, err := config.OptimizerConfig{Name: "adam"}.Build()
	require.NoError(t, err)
	assert.InDelta(t, 0.001, opt.LR(), 1e-9)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := config.Load(rawbytes.Provider([]byte(testYaml)))
	require.NoError(t, err)
	cfg.Model.InputShape = tensor.Shape{16, 16, 3}

	out, err := cfg.Marshal()
	require.NoError(t, err)

	again, err := config.Load(rawbytes.Provider(out))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{16, 16, 3}, again.Model.InputShape)
	assert.Equal(t, cfg.Model.HeadClasses, again.Model.HeadClasses)
	assert.Equal(t, cfg.Model.Features, again.Model.Features)
	assert.Equal(t, cfg.Model.BatchNormMomentum, again.Model.BatchNormMomentum)
	assert.False(t, *again.Model.ShortcutProjection)
	assert.Equal(t, 2e-4, *again.Model.L2)
	assert.Equal(t, cfg.Optimizer.Boundaries, again.Optimizer.Boundaries)
	assert.Equal(t, cfg.Optimizer.Values, again.Optimizer.Values)
	assert.Equal(t, cfg.Training.CheckpointEpochs, again.Training.CheckpointEpochs)
	assert.Equal(t, cfg.Logging, again.Logging)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYaml), 0o600))

	var cfg config.Config
	var err error
	logging.WithNoopLogger(func() {
		cfg, err = config.LoadFile(path)
	})
	require.NoError(t, err)
	assert.Equal(t, "cifar100", cfg.Model.Dataset)

	_, err = config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = config.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Optimizer, cfg.Optimizer)
}

func TestDeviceApply(t *testing.T) {
	defer func() {
		_, _ = device.SetPrecision(32)
	}()

	rt := device.NewRuntime()
	logging.WithNoopLogger(func() {
		require.NoError(t, config.DeviceConfig{Precision: 64}.Apply(rt))
		assert.Equal(t, device.Float64, device.GlobalPolicy())

		err := config.DeviceConfig{Precision: 32, VisibleGPUs: []int{99}}.Apply(rt)
		assert.ErrorIs(t, err, device.ErrUnknownDevice)
	})
}
