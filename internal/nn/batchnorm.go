package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/trainkit/internal/tensor"
)

// BatchNormConfig configures a BatchNormalization layer.
type BatchNormConfig struct {
	Momentum         float32 // Moving average decay (default: 0.99)
	Epsilon          float32 // Variance floor (default: 1e-3)
	GammaRegularizer Regularizer
	BetaRegularizer  Regularizer
}

// BatchNormalization normalizes the last (channel) axis.
//
// Formula: y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// In training mode mean/var come from the batch and the moving statistics are
// updated as moving = moving*momentum + batch*(1-momentum). In inference mode the
// moving statistics are used.
//
// Weights, in order: gamma, beta (trainable), moving_mean, moving_variance.
type BatchNormalization struct {
	base
	cfg BatchNormConfig

	channels int
	shape    tensor.Shape

	gamma          *Parameter
	beta           *Parameter
	movingMean     *Parameter
	movingVariance *Parameter
}

// NewBatchNormalization creates an unbuilt batch normalization layer.
func NewBatchNormalization(cfg BatchNormConfig) *BatchNormalization {
	if cfg.Momentum == 0 {
		cfg.Momentum = 0.99
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-3
	}
	return &BatchNormalization{cfg: cfg}
}

// Kind implements Layer.
func (b *BatchNormalization) Kind() string { return "BatchNormalization" }

// Config returns the layer configuration.
func (b *BatchNormalization) Config() BatchNormConfig { return b.cfg }

// Gamma returns the scale parameter.
func (b *BatchNormalization) Gamma() *Parameter { return b.gamma }

// Beta returns the shift parameter.
func (b *BatchNormalization) Beta() *Parameter { return b.beta }

// Build implements Layer.
func (b *BatchNormalization) Build(inputs []tensor.Shape) (tensor.Shape, error) {
	if len(inputs) != 1 || len(inputs[0]) == 0 {
		return nil, fmt.Errorf("batch_normalization %s: expected one input, got %v", b.name, inputs)
	}
	b.shape = inputs[0].Clone()
	b.channels = b.shape.Last()

	c := tensor.Shape{b.channels}
	b.gamma = NewParameter(weightName(b.name, "gamma"), tensor.Full(c, 1), true)
	b.gamma.SetRegularizer(b.cfg.GammaRegularizer)
	b.beta = NewParameter(weightName(b.name, "beta"), tensor.Zeros(c), true)
	b.beta.SetRegularizer(b.cfg.BetaRegularizer)
	b.movingMean = NewParameter(weightName(b.name, "moving_mean"), tensor.Zeros(c), false)
	b.movingVariance = NewParameter(weightName(b.name, "moving_variance"), tensor.Full(c, 1), false)

	return b.shape.Clone(), nil
}

// Forward implements Layer.
func (b *BatchNormalization) Forward(inputs []*tensor.RawTensor, training bool) (*tensor.RawTensor, error) {
	if b.gamma == nil {
		return nil, fmt.Errorf("batch_normalization %s: not built", b.name)
	}
	x := inputs[0]
	if x.Shape().Last() != b.channels {
		return nil, fmt.Errorf("batch_normalization %s: expected %d channels, got shape %v",
			b.name, b.channels, x.Shape())
	}

	in := x.AsFloat32()
	rows := len(in) / b.channels
	mean := b.movingMean.Tensor().AsFloat32()
	variance := b.movingVariance.Tensor().AsFloat32()

	if training {
		mean, variance = channelMoments(in, b.channels)
		mm := b.movingMean.Tensor().AsFloat32()
		mv := b.movingVariance.Tensor().AsFloat32()
		m := b.cfg.Momentum
		for c := range mm {
			mm[c] = mm[c]*m + mean[c]*(1-m)
			mv[c] = mv[c]*m + variance[c]*(1-m)
		}
	}

	gamma := b.gamma.Tensor().AsFloat32()
	beta := b.beta.Tensor().AsFloat32()
	scale := make([]float32, b.channels)
	shift := make([]float32, b.channels)
	for c := range scale {
		scale[c] = gamma[c] / float32(math.Sqrt(float64(variance[c]+b.cfg.Epsilon)))
		shift[c] = beta[c] - mean[c]*scale[c]
	}

	out := tensor.Zeros(x.Shape())
	dst := out.AsFloat32()
	for r := 0; r < rows; r++ {
		off := r * b.channels
		for c := 0; c < b.channels; c++ {
			dst[off+c] = in[off+c]*scale[c] + shift[c]
		}
	}
	return out, nil
}

// channelMoments returns per-channel mean and (biased) variance of a channels-last buffer.
func channelMoments(data []float32, channels int) (mean, variance []float32) {
	rows := len(data) / channels
	sum := make([]float64, channels)
	sumSq := make([]float64, channels)
	for r := 0; r < rows; r++ {
		for c, v := range data[r*channels : (r+1)*channels] {
			sum[c] += float64(v)
			sumSq[c] += float64(v) * float64(v)
		}
	}
	mean = make([]float32, channels)
	variance = make([]float32, channels)
	for c := range mean {
		m := sum[c] / float64(rows)
		mean[c] = float32(m)
		variance[c] = float32(math.Max(sumSq[c]/float64(rows)-m*m, 0))
	}
	return mean, variance
}

// Weights implements Layer.
func (b *BatchNormalization) Weights() []*Parameter {
	if b.gamma == nil {
		return nil
	}
	return []*Parameter{b.gamma, b.beta, b.movingMean, b.movingVariance}
}

// Clone implements Layer.
func (b *BatchNormalization) Clone() Layer {
	clone := NewBatchNormalization(b.cfg)
	clone.name = b.name
	return clone
}

func (b *BatchNormalization) String() string {
	return fmt.Sprintf("BatchNormalization(momentum=%g, epsilon=%g)", b.cfg.Momentum, b.cfg.Epsilon)
}
