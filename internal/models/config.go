// Package models builds image classification networks on top of the nn graph.
package models

import (
	"errors"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Errors returned by ResNet for invalid configurations.
var (
	ErrMissingInputShape = errors.New("input shape is required when no known dataset is given")
	ErrMissingClasses    = errors.New("class count is required when no known dataset is given")
	ErrUnknownAlias      = errors.New("unknown model alias")
	ErrUnknownVersion    = errors.New("unknown resnet version")
	ErrUnknownPooling    = errors.New("unknown final pooling")
)

// Pooling modes for the classifier head.
const (
	PoolingAvg = "avgpool"
	PoolingMax = "maxpool"
	PoolingCat = "catpool" // Concatenation of max and average pooling, in that order
)

// Config describes a ResNet. Zero values and nil pointers fall back to
// DefaultConfig; set the pointer fields with Bool and Float64.
type Config struct {
	// Dataset selects the input shape and class count: cifar, cifar10, cifar100, mnist.
	Dataset string `koanf:"dataset"`

	// Alias selects a named architecture. "WRN-16-8" overrides BlocksInGroup and Features.
	Alias string `koanf:"alias"`

	// InputShape without batch, required when Dataset is not a known name.
	InputShape tensor.Shape `koanf:"input_shape"`

	// Classes is the width of the single output head.
	Classes int `koanf:"classes"`

	// HeadClasses builds one dense output per entry. Takes precedence over Classes.
	HeadClasses []int `koanf:"head_classes"`

	Version       int    `koanf:"version"`         // 1 (post-activation) or 2 (pre-activation)
	Features      [3]int `koanf:"features"`        // Filters per group
	BlocksInGroup int    `koanf:"blocks_in_group"` // Residual blocks per group

	L1             float64  `koanf:"l1"`
	L2             *float64 `koanf:"l2"`              // Default 2e-4
	RegularizeBias *bool    `koanf:"regularize_bias"` // Also regularize biases and batch norm gamma/beta. Default true

	Initializer  string `koanf:"initializer"`
	Activation   string `koanf:"activation"`
	FinalPooling string `koanf:"final_pooling"`

	BatchNormMomentum float32 `koanf:"batch_norm_momentum"`
	BatchNormEpsilon  float32 `koanf:"batch_norm_epsilon"`

	// Dropout rate between the two convolutions of every block. 0 disables it.
	Dropout float32 `koanf:"dropout"`

	// ShortcutProjection uses a strided 1x1 convolution on shortcuts that change
	// shape. When false a zero-padded crop is used instead. Default true.
	ShortcutProjection *bool `koanf:"shortcut_projection"`
}

// Bool returns a pointer to v, for the optional Config fields.
func Bool(v bool) *bool { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// DefaultConfig returns the defaults for a CIFAR-style ResNet v2.
func DefaultConfig() Config {
	return Config{
		Version:            2,
		Features:           [3]int{16, 32, 64},
		BlocksInGroup:      3,
		L1:                 0,
		L2:                 Float64(2e-4),
		RegularizeBias:     Bool(true),
		Initializer:        "he_uniform",
		Activation:         "relu",
		FinalPooling:       PoolingAvg,
		BatchNormMomentum:  0.997,
		BatchNormEpsilon:   1e-5,
		ShortcutProjection: Bool(true),
	}
}

// dataset describes a known input pipeline.
type dataset struct {
	shape   tensor.Shape
	classes int
}

var datasets = map[string]dataset{
	"cifar":    {tensor.Shape{32, 32, 3}, 10},
	"cifar10":  {tensor.Shape{32, 32, 3}, 10},
	"cifar100": {tensor.Shape{32, 32, 3}, 100},
	"mnist":    {tensor.Shape{28, 28, 1}, 10},
}

// wideResNet returns blocks per group and features for WRN-depth-width.
func wideResNet(depth, width int) (int, [3]int) {
	return (depth - 4) / 6, [3]int{16 * width, 32 * width, 64 * width}
}

// resolve applies dataset, alias and zero-value defaults, returning the
// effective config and the list of head widths.
func (c Config) resolve() (Config, []int, error) {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Features == [3]int{} {
		c.Features = def.Features
	}
	if c.BlocksInGroup == 0 {
		c.BlocksInGroup = def.BlocksInGroup
	}
	if c.Initializer == "" {
		c.Initializer = def.Initializer
	}
	if c.Activation == "" {
		c.Activation = def.Activation
	}
	if c.FinalPooling == "" {
		c.FinalPooling = def.FinalPooling
	}
	if c.BatchNormMomentum == 0 {
		c.BatchNormMomentum = def.BatchNormMomentum
	}
	if c.BatchNormEpsilon == 0 {
		c.BatchNormEpsilon = def.BatchNormEpsilon
	}
	if c.L2 == nil {
		c.L2 = def.L2
	}
	if c.RegularizeBias == nil {
		c.RegularizeBias = def.RegularizeBias
	}
	if c.ShortcutProjection == nil {
		c.ShortcutProjection = def.ShortcutProjection
	}

	if ds, ok := datasets[c.Dataset]; ok {
		c.InputShape = ds.shape.Clone()
		c.Classes = ds.classes
	}

	switch c.Alias {
	case "":
	case "WRN-16-8":
		c.BlocksInGroup, c.Features = wideResNet(16, 8)
	default:
		return c, nil, ErrUnknownAlias
	}

	if c.Version != 1 && c.Version != 2 {
		return c, nil, ErrUnknownVersion
	}
	switch c.FinalPooling {
	case PoolingAvg, PoolingMax, PoolingCat:
	default:
		return c, nil, ErrUnknownPooling
	}

	if len(c.InputShape) == 0 {
		return c, nil, ErrMissingInputShape
	}
	heads := c.HeadClasses
	if len(heads) == 0 {
		if c.Classes <= 0 {
			return c, nil, ErrMissingClasses
		}
		heads = []int{c.Classes}
	}
	return c, heads, nil
}
