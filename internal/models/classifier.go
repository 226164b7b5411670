package models

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/nn"
)

// HeadConfig configures a classification head.
type HeadConfig struct {
	Classes         []int  // One dense output per entry
	Pooling         string // avgpool, maxpool or catpool
	Initializer     nn.Initializer
	Regularizer     nn.Regularizer
	BiasRegularizer nn.Regularizer
}

// Classifier appends global pooling and one logits layer per class count to x.
func Classifier(g *nn.Graph, x *nn.Node, cfg HeadConfig) ([]*nn.Node, error) {
	if len(cfg.Classes) == 0 {
		return nil, ErrMissingClasses
	}

	switch cfg.Pooling {
	case PoolingCat:
		maxp := g.Apply(nn.NewGlobalMaxPooling2D(), x)
		avgp := g.Apply(nn.NewGlobalAveragePooling2D(), x)
		x = g.Apply(nn.NewConcatenate(), maxp, avgp)
	case PoolingAvg, "":
		x = g.Apply(nn.NewGlobalAveragePooling2D(), x)
	case PoolingMax:
		x = g.Apply(nn.NewGlobalMaxPooling2D(), x)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPooling, cfg.Pooling)
	}

	outs := make([]*nn.Node, len(cfg.Classes))
	for i, classes := range cfg.Classes {
		outs[i] = g.Apply(nn.NewDense(nn.DenseConfig{
			Units:             classes,
			KernelInitializer: cfg.Initializer,
			KernelRegularizer: cfg.Regularizer,
			BiasRegularizer:   cfg.BiasRegularizer,
		}), x)
	}
	return outs, g.Err()
}
