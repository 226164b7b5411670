// Package config loads trainkit settings from YAML and TRAINKIT_ environment
// variables on top of built-in defaults.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/born-ml/trainkit/internal/device"
	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/models"
	"github.com/born-ml/trainkit/internal/optim"
)

// EnvPrefix marks environment overrides. A double underscore separates levels:
// TRAINKIT_MODEL__CLASSES=5 sets model.classes.
const EnvPrefix = "TRAINKIT_"

// Config is the full settings tree.
type Config struct {
	Model     models.Config   `koanf:"model"`
	Optimizer OptimizerConfig `koanf:"optimizer"`
	Training  TrainingConfig  `koanf:"training"`
	Device    DeviceConfig    `koanf:"device"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// OptimizerConfig selects the optimizer and its learning rate schedule.
// Boundaries and Values select a piecewise constant rate, DecaySteps an
// exponential decay from LR, otherwise LR is constant.
type OptimizerConfig struct {
	Name       string    `koanf:"name"`
	LR         float32   `koanf:"lr"`
	Momentum   float32   `koanf:"momentum"`
	Nesterov   bool      `koanf:"nesterov"`
	DecaySteps int64     `koanf:"decay_steps"`
	DecayRate  float32   `koanf:"decay_rate"`
	Staircase  bool      `koanf:"staircase"`
	Boundaries []int64   `koanf:"boundaries"`
	Values     []float32 `koanf:"values"`
}

// TrainingConfig holds the epoch loop settings.
type TrainingConfig struct {
	Epochs           int    `koanf:"epochs"`
	Loss             string `koanf:"loss"`
	CheckpointDir    string `koanf:"checkpoint_dir"`
	CheckpointEpochs []int  `koanf:"checkpoint_epochs"`
	SummaryDir       string `koanf:"summary_dir"`
}

// DeviceConfig holds the precision and GPU settings.
type DeviceConfig struct {
	Precision    int   `koanf:"precision"`
	VisibleGPUs  []int `koanf:"visible_gpus"` // Empty keeps every GPU visible
	MemoryGrowth bool  `koanf:"memory_growth"`
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Model: models.DefaultConfig(),
		Optimizer: OptimizerConfig{
			Name: "adam",
			LR:   1e-3,
		},
		Training: TrainingConfig{
			Epochs: 1,
			Loss:   "crossentropy",
		},
		Device: DeviceConfig{
			Precision: 32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load merges, in order: defaults, provider parsed as YAML (skipped when nil)
// and TRAINKIT_ environment variables.
func Load(provider koanf.Provider) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, errors.Wrap(err, "load defaults")
	}
	if provider != nil {
		if err := k.Load(provider, yaml.Parser()); err != nil {
			return Config{}, errors.Wrap(err, "load config")
		}
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, errors.Wrap(err, "load env")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile is Load with a YAML file. An empty path loads defaults and env only.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Load(nil)
	}
	cfg, err := Load(file.Provider(path))
	if err != nil {
		return Config{}, errors.Wrapf(err, "config file %s", path)
	}
	logging.Info("Loaded config", logging.Config, "path", path)
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(c, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	out, err := k.Marshal(yaml.Parser())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config")
	}
	return out, nil
}

// Validate checks the settings that are not validated by the packages using them.
func (c Config) Validate() error {
	if c.Training.Epochs < 0 {
		return errors.Errorf("training.epochs must not be negative, got %d", c.Training.Epochs)
	}
	if _, err := device.PolicyForBits(c.Device.Precision); err != nil {
		return errors.Wrap(err, "device.precision")
	}
	if _, err := c.Optimizer.Schedule(); err != nil {
		return errors.Wrap(err, "optimizer")
	}
	return nil
}

// Schedule builds the learning rate schedule. A nil schedule with a nil error
// leaves the optimizer default in place.
func (o OptimizerConfig) Schedule() (optim.Schedule, error) {
	switch {
	case len(o.Boundaries) > 0 || len(o.Values) > 0:
		s, err := optim.NewPiecewiseConstant(o.Boundaries, o.Values)
		if err != nil {
			return nil, err
		}
		return s, nil
	case o.DecaySteps > 0:
		if o.LR <= 0 {
			return nil, errors.New("exponential decay needs a positive lr")
		}
		rate := o.DecayRate
		if rate == 0 {
			rate = 1
		}
		return optim.ExponentialDecay{Initial: o.LR, DecaySteps: o.DecaySteps, DecayRate: rate, Staircase: o.Staircase}, nil
	case o.LR < 0:
		return nil, errors.Errorf("lr must not be negative, got %g", o.LR)
	case o.LR == 0:
		return nil, nil
	default:
		return optim.Constant(o.LR), nil
	}
}

// Build creates the configured optimizer.
func (o OptimizerConfig) Build() (optim.Optimizer, error) {
	s, err := o.Schedule()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(o.Name, "sgd") {
		return optim.NewSGD(optim.SGDConfig{LR: s, Momentum: o.Momentum, Nesterov: o.Nesterov}), nil
	}
	opt, err := optim.New(o.Name, s)
	if err != nil {
		return nil, errors.Wrap(err, "build optimizer")
	}
	return opt, nil
}

// CheckpointPaths maps every checkpoint epoch to model and optimizer files in
// CheckpointDir. Both maps are nil when no directory is set.
func (t TrainingConfig) CheckpointPaths() (model, optimizer map[int]string) {
	if t.CheckpointDir == "" || len(t.CheckpointEpochs) == 0 {
		return nil, nil
	}
	model = make(map[int]string, len(t.CheckpointEpochs))
	optimizer = make(map[int]string, len(t.CheckpointEpochs))
	for _, e := range t.CheckpointEpochs {
		model[e] = filepath.Join(t.CheckpointDir, fmt.Sprintf("model_%d.born", e))
		optimizer[e] = filepath.Join(t.CheckpointDir, fmt.Sprintf("optimizer_%d.born", e))
	}
	return model, optimizer
}

// Apply installs the precision policy and GPU settings on rt.
func (d DeviceConfig) Apply(rt *device.Runtime) error {
	if _, err := device.SetPrecision(d.Precision); err != nil {
		return err
	}
	if len(d.VisibleGPUs) > 0 {
		if err := rt.SetVisibleDevices(d.VisibleGPUs...); err != nil {
			return errors.Wrap(err, "device.visible_gpus")
		}
	}
	if d.MemoryGrowth {
		rt.SetMemoryGrowth()
	}
	return nil
}

// Setup installs the default logger writing to w.
func (l LoggingConfig) Setup(w io.Writer) {
	logging.Setup(w, l.Format, logging.ParseLevel(l.Level))
}
