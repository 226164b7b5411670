package models

import (
	"fmt"
	"strings"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/nn"
)

// ResNet builds a CIFAR-style residual network.
//
// Layout: a 3x3 stem convolution with 16 filters, three groups of BlocksInGroup
// basic blocks with strides 1, 2, 2 and Features filters, then the classifier
// head. Version 1 uses post-activation blocks, version 2 pre-activation blocks
// followed by a final batch norm and relu.
//
// Example:
//
//	cfg := models.DefaultConfig()
//	cfg.Dataset = "cifar10"
//	model, err := models.ResNet(cfg) // (32, 32, 3) -> (10,)
func ResNet(cfg Config) (*nn.Model, error) {
	cfg, heads, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	b, err := newBuilder(cfg)
	if err != nil {
		return nil, err
	}

	in := b.g.Input(cfg.InputShape)
	x := b.conv(in, 16, 3, 1)

	strides := [3]int{1, 2, 2}
	switch cfg.Version {
	case 1:
		x = b.bnActivate(x, true)
		for group, filters := range cfg.Features {
			x = b.block1(x, filters, strides[group])
			for i := 1; i < cfg.BlocksInGroup; i++ {
				x = b.block1(x, filters, 1)
			}
		}
	case 2:
		for group, filters := range cfg.Features {
			x = b.block2(x, filters, strides[group], true)
			for i := 1; i < cfg.BlocksInGroup; i++ {
				x = b.block2(x, filters, 1, false)
			}
		}
		x = b.bnActivate(x, false)
		x = b.g.Apply(nn.MustActivation("relu"), x)
	}

	if err := b.g.Err(); err != nil {
		return nil, fmt.Errorf("build resnet: %w", err)
	}
	outs, err := Classifier(b.g, x, HeadConfig{
		Classes:         heads,
		Pooling:         cfg.FinalPooling,
		Initializer:     b.init,
		Regularizer:     b.reg,
		BiasRegularizer: b.biasReg,
	})
	if err != nil {
		return nil, fmt.Errorf("build resnet head: %w", err)
	}

	model, err := b.g.Model(modelName(cfg), []*nn.Node{in}, outs...)
	if err != nil {
		return nil, err
	}
	total, trainable := model.CountParams()
	logging.Info("Built model", logging.Models,
		"name", model.Name(), "version", cfg.Version, "input", cfg.InputShape.String(),
		"heads", heads, "params", total, "trainable", trainable)
	return model, nil
}

func modelName(cfg Config) string {
	if cfg.Alias != "" {
		return strings.ToLower(strings.ReplaceAll(cfg.Alias, "-", "_"))
	}
	return fmt.Sprintf("resnet%d_v%d", 6*cfg.BlocksInGroup+2, cfg.Version)
}

// builder holds the per-model layer factories.
type builder struct {
	g       *nn.Graph
	cfg     Config
	init    nn.Initializer
	reg     nn.Regularizer
	biasReg nn.Regularizer
}

func newBuilder(cfg Config) (*builder, error) {
	initializer, err := nn.InitializerByName(cfg.Initializer)
	if err != nil {
		return nil, err
	}
	if _, err := nn.ActivationByName(cfg.Activation); err != nil {
		return nil, err
	}
	b := &builder{g: nn.NewGraph(), cfg: cfg, init: initializer}
	b.reg = nn.L1L2(cfg.L1, *cfg.L2)
	if *cfg.RegularizeBias {
		b.biasReg = b.reg
	}
	return b, nil
}

// activate applies the configured activation, validated in newBuilder.
func (b *builder) activate(x *nn.Node) *nn.Node {
	return b.g.Apply(nn.MustActivation(b.cfg.Activation), x)
}

func (b *builder) conv(x *nn.Node, filters, kernel, strides int) *nn.Node {
	return b.g.Apply(nn.NewConv2D(nn.Conv2DConfig{
		Filters:           filters,
		KernelSize:        kernel,
		Strides:           strides,
		Padding:           nn.PaddingSame,
		KernelInitializer: b.init,
		KernelRegularizer: b.reg,
		BiasRegularizer:   b.biasReg,
	}), x)
}

func (b *builder) shortcut(x *nn.Node, filters, strides int) *nn.Node {
	if !*b.cfg.ShortcutProjection {
		return b.g.Apply(nn.NewZeroPadShortcut(filters, strides), x)
	}
	return b.g.Apply(nn.NewConv2D(nn.Conv2DConfig{
		Filters:           filters,
		KernelSize:        1,
		Strides:           strides,
		Padding:           nn.PaddingValid,
		KernelInitializer: b.init,
		KernelRegularizer: b.reg,
	}), x)
}

func (b *builder) bnActivate(x *nn.Node, activate bool) *nn.Node {
	x = b.g.Apply(nn.NewBatchNormalization(nn.BatchNormConfig{
		Momentum:         b.cfg.BatchNormMomentum,
		Epsilon:          b.cfg.BatchNormEpsilon,
		GammaRegularizer: b.biasReg,
		BetaRegularizer:  b.biasReg,
	}), x)
	if !activate {
		return x
	}
	return b.activate(x)
}

func (b *builder) dropout(x *nn.Node) *nn.Node {
	if b.cfg.Dropout <= 0 {
		return x
	}
	return b.g.Apply(nn.NewDropout(b.cfg.Dropout), x)
}

func (b *builder) needsShortcut(x *nn.Node, filters, strides int) bool {
	if x == nil {
		return false
	}
	return x.Shape().Last() != filters || strides != 1
}

// block1 is the post-activation basic block.
func (b *builder) block1(x *nn.Node, filters, strides int) *nn.Node {
	shortcut := x
	if b.needsShortcut(x, filters, strides) {
		shortcut = b.shortcut(x, filters, strides)
		shortcut = b.bnActivate(shortcut, false)
	}

	x = b.conv(x, filters, 3, strides)
	x = b.bnActivate(x, true)
	x = b.dropout(x)
	x = b.conv(x, filters, 3, 1)
	x = b.bnActivate(x, false)
	x = b.g.Apply(nn.NewAdd(), x, shortcut)
	return b.activate(x)
}

// block2 is the pre-activation basic block. The first block of a group feeds
// the activated flow to its shortcut.
func (b *builder) block2(x *nn.Node, filters, strides int, activateShortcut bool) *nn.Node {
	shortcut := x
	x = b.bnActivate(x, true)
	if activateShortcut {
		shortcut = x
	}
	if b.needsShortcut(x, filters, strides) {
		shortcut = b.shortcut(shortcut, filters, strides)
	}

	x = b.conv(x, filters, 3, strides)
	x = b.bnActivate(x, true)
	x = b.dropout(x)
	x = b.conv(x, filters, 3, 1)
	return b.g.Apply(nn.NewAdd(), x, shortcut)
}
