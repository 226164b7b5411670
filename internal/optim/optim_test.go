package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/optim"
	"github.com/born-ml/trainkit/internal/tensor"
)

func param(t *testing.T, name string, values ...float32) *nn.Parameter {
	t.Helper()
	x, err := tensor.FromFloat32(values, tensor.Shape{len(values)})
	require.NoError(t, err)
	return nn.NewParameter(name, x, true)
}

func grad(t *testing.T, values ...float32) *tensor.RawTensor {
	t.Helper()
	g, err := tensor.FromFloat32(values, tensor.Shape{len(values)})
	require.NoError(t, err)
	return g
}

func TestSGDSimpleUpdate(t *testing.T) {
	p := param(t, "x:0", 2)
	opt := optim.NewSGD(optim.SGDConfig{LR: optim.Constant(0.1)})

	require.NoError(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1)}, []*nn.Parameter{p}))

	// 2.0 - 0.1 * 1.0
	assert.InDelta(t, 1.9, p.Tensor().AsFloat32()[0], 1e-6)
	assert.Equal(t, int64(1), opt.Iterations())
	assert.Len(t, opt.Weights(), 1, "no momentum slots")
}

func TestSGDWithMomentum(t *testing.T) {
	p := param(t, "x:0", 1)
	opt := optim.NewSGD(optim.SGDConfig{LR: optim.Constant(0.1), Momentum: 0.9})
	params := []*nn.Parameter{p}

	require.NoError(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1)}, params))
	// v = -0.1, x = 0.9
	assert.InDelta(t, 0.9, p.Tensor().AsFloat32()[0], 1e-6)

	require.NoError(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1)}, params))
	// v = 0.9*-0.1 - 0.1 = -0.19, x = 0.71
	assert.InDelta(t, 0.71, p.Tensor().AsFloat32()[0], 1e-6)

	assert.Equal(t, []string{"sgd/iter:0", "sgd/x/momentum:0"}, opt.WeightNames())
}

func TestAdamFirstStep(t *testing.T) {
	p := param(t, "w:0", 1, -1)
	opt := optim.NewAdam(optim.AdamConfig{LR: optim.Constant(0.01)})

	require.NoError(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 0.5, -2)}, []*nn.Parameter{p}))

	// After bias correction the first step moves each weight by ~lr*sign(g).
	w := p.Tensor().AsFloat32()
	assert.InDelta(t, 0.99, w[0], 1e-4)
	assert.InDelta(t, -0.99, w[1], 1e-4)
}

func TestAdamStateLayout(t *testing.T) {
	a := param(t, "dense/kernel:0", 1, 2, 3)
	b := param(t, "dense/bias:0", 0)
	opt := optim.NewAdam(optim.AdamConfig{})

	assert.Empty(t, opt.Weights(), "unbuilt optimizer has no state")
	assert.Empty(t, opt.WeightNames())

	require.NoError(t, opt.ApplyGradients(
		[]*tensor.RawTensor{grad(t, 1, 1, 1), grad(t, 1)},
		[]*nn.Parameter{a, b},
	))

	assert.Equal(t, []string{
		"adam/iter:0",
		"adam/dense/kernel/m:0",
		"adam/dense/bias/m:0",
		"adam/dense/kernel/v:0",
		"adam/dense/bias/v:0",
	}, opt.WeightNames())
	ws := opt.Weights()
	require.Len(t, ws, 5)
	assert.Equal(t, tensor.Int64, ws[0].DType())
	assert.Equal(t, tensor.Shape{3}, ws[1].Shape())
}

func TestSetWeightsRoundTrip(t *testing.T) {
	params := []*nn.Parameter{param(t, "a:0", 1, 2), param(t, "b:0", 3)}
	grads := []*tensor.RawTensor{grad(t, 0.1, 0.2), grad(t, 0.3)}

	src := optim.NewAdam(optim.AdamConfig{})
	for n := 0; n < 3; n++ {
		require.NoError(t, src.ApplyGradients(grads, params))
	}

	dstParams := []*nn.Parameter{param(t, "a:0", 1, 2), param(t, "b:0", 3)}
	dst := optim.NewAdam(optim.AdamConfig{})
	require.NoError(t, dst.ApplyGradients([]*tensor.RawTensor{nil, nil}, dstParams))

	require.NoError(t, dst.SetWeights(src.Weights()))
	assert.Equal(t, int64(3), dst.Iterations())
	for i, w := range src.Weights() {
		assert.True(t, w.Equal(dst.Weights()[i]))
	}
}

func TestSetWeightsMismatch(t *testing.T) {
	params := []*nn.Parameter{param(t, "a:0", 1, 2)}
	src := optim.NewAdam(optim.AdamConfig{})
	require.NoError(t, src.ApplyGradients([]*tensor.RawTensor{grad(t, 1, 1)}, params))

	unbuilt := optim.NewAdam(optim.AdamConfig{})
	require.ErrorIs(t, unbuilt.SetWeights(src.Weights()), optim.ErrStateMismatch)

	other := optim.NewAdam(optim.AdamConfig{})
	require.NoError(t, other.ApplyGradients([]*tensor.RawTensor{nil}, []*nn.Parameter{param(t, "a:0", 1, 2, 3)}))
	require.ErrorIs(t, other.SetWeights(src.Weights()), optim.ErrStateMismatch)
	assert.Equal(t, int64(1), other.Iterations(), "failed restore leaves state unchanged")
}

func TestApplyGradientsValidation(t *testing.T) {
	p := param(t, "x:0", 1, 2)
	opt := optim.NewSGD(optim.SGDConfig{})

	assert.Error(t, opt.ApplyGradients(nil, []*nn.Parameter{p}))
	assert.ErrorIs(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1)}, []*nn.Parameter{p}), tensor.ErrShapeMismatch)

	frozen := nn.NewParameter("moving_mean:0", tensor.Zeros(tensor.Shape{2}), false)
	assert.Error(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1, 1)}, []*nn.Parameter{frozen}))

	require.NoError(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1, 1)}, []*nn.Parameter{p}))
	assert.Error(t, opt.ApplyGradients(
		[]*tensor.RawTensor{grad(t, 1, 1), grad(t, 1)},
		[]*nn.Parameter{p, param(t, "y:0", 0)},
	), "parameter list is fixed after the first step")
}

func TestSchedules(t *testing.T) {
	c := optim.Constant(0.1)
	assert.Equal(t, float32(0.1), c.LR(1000))
	assert.False(t, optim.IsDecaying(c))

	e := optim.ExponentialDecay{Initial: 1, DecaySteps: 10, DecayRate: 0.5}
	assert.InDelta(t, 1, e.LR(0), 1e-7)
	assert.InDelta(t, 0.5, e.LR(10), 1e-7)
	assert.InDelta(t, 0.70710678, e.LR(5), 1e-6)
	e.Staircase = true
	assert.InDelta(t, 1, e.LR(9), 1e-7)
	assert.True(t, optim.IsDecaying(e))

	pw, err := optim.NewPiecewiseConstant([]int64{10, 20}, []float32{1, 0.1, 0.01})
	require.NoError(t, err)
	assert.Equal(t, float32(1), pw.LR(10))
	assert.Equal(t, float32(0.1), pw.LR(11))
	assert.Equal(t, float32(0.01), pw.LR(21))
	assert.True(t, optim.IsDecaying(pw))

	_, err = optim.NewPiecewiseConstant([]int64{10}, []float32{1})
	assert.Error(t, err)

	assert.Zero(t, optim.PiecewiseConstant{}.LR(5))
	short := optim.PiecewiseConstant{Boundaries: []int64{10, 20}, Values: []float32{1, 0.1}}
	assert.Equal(t, float32(0.1), short.LR(25))
}

func TestOptimizerUsesSchedule(t *testing.T) {
	pw, err := optim.NewPiecewiseConstant([]int64{0}, []float32{1, 0.5})
	require.NoError(t, err)
	opt := optim.NewSGD(optim.SGDConfig{LR: pw})
	assert.Equal(t, float32(1), opt.LR())

	p := param(t, "x:0", 0)
	require.NoError(t, opt.ApplyGradients([]*tensor.RawTensor{grad(t, 1)}, []*nn.Parameter{p}))
	assert.Equal(t, float32(0.5), opt.LR())
	assert.InDelta(t, -1, p.Tensor().AsFloat32()[0], 1e-7)
}

func TestRegistry(t *testing.T) {
	opt, err := optim.New("Adam", nil)
	require.NoError(t, err)
	assert.Equal(t, "adam", opt.Name())
	assert.Equal(t, float32(0.001), opt.LR())

	_, err = optim.New("lamb", nil)
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
	assert.Equal(t, []string{"adam", "sgd"}, optim.Names())
}
