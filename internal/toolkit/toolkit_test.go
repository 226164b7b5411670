package toolkit

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/optim"
	"github.com/born-ml/trainkit/internal/serialization"
	"github.com/born-ml/trainkit/internal/tensor"
)

// smallModel: conv(3, bias) -> bn -> relu -> gap -> dropout -> dense(units).
// Weights: 54+3 conv, 4x3 bn, 3*units+units dense.
func smallModel(t *testing.T, units int) *nn.Model {
	t.Helper()
	g := nn.NewGraph()
	in := g.Input(tensor.Shape{4, 4, 2})
	x := g.Apply(nn.NewConv2D(nn.Conv2DConfig{
		Filters:    3,
		KernelSize: 3,
		Padding:    nn.PaddingSame,
		UseBias:    true,
	}), in)
	x = g.Apply(nn.NewBatchNormalization(nn.BatchNormConfig{}), x)
	x = g.Apply(nn.MustActivation("relu"), x)
	x = g.Apply(nn.NewGlobalAveragePooling2D(), x)
	x = g.Apply(nn.NewDropout(0.5), x)
	out := g.Apply(nn.NewDense(nn.DenseConfig{Units: units}), x)
	m, err := g.Model("small", []*nn.Node{in}, out)
	require.NoError(t, err)
	return m
}

func assertSameWeights(t *testing.T, a, b *nn.Model) {
	t.Helper()
	aw, bw := a.Weights(), b.Weights()
	require.Len(t, bw, len(aw))
	for i := range aw {
		assert.Equal(t, aw[i].Name(), bw[i].Name())
		assert.True(t, aw[i].Tensor().Equal(bw[i].Tensor()), "weight %s differs", aw[i].Name())
	}
}

func TestCloneOfCloneIsIdentical(t *testing.T) {
	m := smallModel(t, 2)
	c1, err := CloneModel(m)
	require.NoError(t, err)
	c2, err := CloneModel(c1)
	require.NoError(t, err)

	assertSameWeights(t, m, c1)
	assertSameWeights(t, m, c2)

	// Clones own their tensors.
	c2.Weights()[0].Tensor().Fill(3)
	assert.False(t, m.Weights()[0].Tensor().Equal(c2.Weights()[0].Tensor()))
}

func TestSetAllWeightsSkipsMismatch(t *testing.T) {
	dst, src := smallModel(t, 2), smallModel(t, 3)
	var skipped int
	logging.WithNoopLogger(func() {
		skipped = SetAllWeightsFromModel(dst, src)
	})
	assert.Equal(t, 2, skipped, "dense kernel and bias differ")

	conv, _ := dst.Weight("conv2d/kernel:0")
	srcConv, _ := src.Weight("conv2d/kernel:0")
	assert.True(t, conv.Tensor().Equal(srcConv.Tensor()))
	dense, _ := dst.Weight("dense/kernel:0")
	assert.Equal(t, tensor.Shape{3, 2}, dense.Shape())
}

func TestResetWeightsToCheckpoint(t *testing.T) {
	m := smallModel(t, 2)
	path := filepath.Join(t.TempDir(), "ckp", "model.born")

	logging.WithNoopLogger(func() {
		require.NoError(t, SaveModel(m, path, nil))
		saved, err := CloneModel(m)
		require.NoError(t, err)

		for _, w := range m.Weights() {
			w.Tensor().Fill(7)
		}
		skipped, err := ResetWeightsToCheckpoint(m, path, "dense")
		require.NoError(t, err)
		assert.Equal(t, 2, skipped)

		conv, _ := m.Weight("conv2d/kernel:0")
		savedConv, _ := saved.Weight("conv2d/kernel:0")
		assert.True(t, conv.Tensor().Equal(savedConv.Tensor()))
		dense, _ := m.Weight("dense/bias:0")
		assert.Equal(t, []float32{7, 7}, dense.Tensor().AsFloat32())

		// Without a checkpoint the weights are reinitialized.
		skipped, err = ResetWeightsToCheckpoint(m, "", "")
		require.NoError(t, err)
		assert.Zero(t, skipped)
		dense, _ = m.Weight("dense/bias:0")
		assert.Equal(t, []float32{0, 0}, dense.Tensor().AsFloat32())
		gamma, _ := m.Weight("batch_normalization/gamma:0")
		assert.Equal(t, []float32{1, 1, 1}, gamma.Tensor().AsFloat32())

		_, err = ResetWeightsToCheckpoint(m, filepath.Join(t.TempDir(), "missing.born"), "")
		assert.Error(t, err)
	})
}

func TestSaveModelRecordsPrecision(t *testing.T) {
	m := smallModel(t, 2)
	path := filepath.Join(t.TempDir(), "m.born")
	require.NoError(t, SaveModel(m, path, map[string]string{"epoch": "3"}))

	header, err := serialization.ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, "float32", header.Metadata["precision"])
	assert.Equal(t, "3", header.Metadata["epoch"])
	assert.Equal(t, "small", header.ModelName)

	loaded := smallModel(t, 2)
	require.NoError(t, LoadModelWeights(loaded, path))
	assertSameWeights(t, m, loaded)

	opt := optim.NewSGD(optim.SGDConfig{})
	optPath := filepath.Join(t.TempDir(), "opt.born")
	require.NoError(t, SaveOptimizer(opt, optPath))
	assert.Error(t, LoadModelWeights(loaded, optPath), "optimizer files are not weights")
}

func TestClipMany(t *testing.T) {
	a, err := tensor.FromFloat32([]float32{-3, -0.5, 0, 0.5, 3}, tensor.Shape{5})
	require.NoError(t, err)
	b, err := tensor.FromFloat32([]float32{10, -10}, tensor.Shape{2})
	require.NoError(t, err)

	out, err := ClipMany([]*tensor.RawTensor{a, b}, ClipOptions{High: Float32(1)})
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -0.5, 0, 0.5, 1}, out[0].AsFloat32())
	assert.Equal(t, []float32{1, -1}, out[1].AsFloat32())
	assert.Equal(t, float32(-3), a.AsFloat32()[0], "input untouched")

	twice, err := ClipMany(out, ClipOptions{High: Float32(1)})
	require.NoError(t, err)
	for i := range out {
		assert.True(t, out[i].Equal(twice[i]), "clipping is idempotent")
	}

	inplace, err := ClipMany([]*tensor.RawTensor{a}, ClipOptions{High: Float32(2), Low: Float32(0), Inplace: true})
	require.NoError(t, err)
	assert.Same(t, a, inplace[0])
	assert.Equal(t, []float32{0, 0, 0, 0.5, 2}, a.AsFloat32())

	_, err = ClipMany([]*tensor.RawTensor{a}, ClipOptions{})
	assert.Error(t, err)
	_, err = ClipMany([]*tensor.RawTensor{a}, ClipOptions{High: Float32(1), Low: Float32(2)})
	assert.Error(t, err)
}

func TestKernelsAndFlatten(t *testing.T) {
	m := smallModel(t, 2)
	kernels := Kernels(m)
	require.Len(t, kernels, 2)
	assert.Equal(t, "conv2d/kernel:0", kernels[0].Name())
	assert.Equal(t, "dense/kernel:0", kernels[1].Name())

	flat := ConcatenateFlattened(WeightTensors(kernels))
	assert.Len(t, flat, 54+6)
	assert.Equal(t, kernels[1].Tensor().AsFloat32()[5], flat[59])
}

func TestIsKernel(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"conv2d/kernel:0", true},
		{"dense_3/kernel:0", true},
		{"kernel_head/bias:0", false},
		{"dense/kernel_constraint:0", false},
		{"kernel:0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isKernel(tt.name), tt.name)
	}
}

func TestModelInfo(t *testing.T) {
	m := smallModel(t, 2)
	info := Info(m)
	assert.Equal(t, map[string]int{"Conv2D": 1, "BatchNorm": 1, "Dropout": 1, "Dense": 1}, info.LayerCounts)
	assert.Equal(t, 71, info.TrainableWeights)
	assert.Equal(t, 60, info.Kernels)
	assert.Equal(t, 5, info.Biases)
	assert.Equal(t, 6, info.BatchNorm)

	var buf bytes.Buffer
	PrintModelInfo(&buf, m)
	out := buf.String()
	assert.Contains(t, out, "Layer counts: BatchNorm=1 Conv2D=1 Dense=1 Dropout=1")
	assert.Contains(t, out, "Trainable weights: 71")
	assert.Contains(t, out, "Kernels: 60 ( 84.51%)")
}

func TestBuildAndRestoreOptimizer(t *testing.T) {
	m := smallModel(t, 2)
	dir := t.TempDir()

	logging.WithNoopLogger(func() {
		opt := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
		require.NoError(t, BuildOptimizer(m, opt))
		assert.Equal(t, int64(1), opt.Iterations())
		// iterations + one momentum slot per trainable weight
		assert.Len(t, opt.Weights(), 1+len(m.TrainableWeights()))

		path := filepath.Join(dir, "nested", "opt.born")
		require.NoError(t, SaveOptimizer(opt, path))

		restored := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
		require.NoError(t, BuildOptimizer(m, restored))
		restored.Weights()[0].AsInt64()[0] = 0
		require.NoError(t, UpdateOptimizer(restored, path))
		assert.Equal(t, int64(1), restored.Iterations())

		// Unbuilt optimizer: warning only.
		empty := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
		require.NoError(t, UpdateOptimizer(empty, path))
		assert.Zero(t, empty.Iterations())

		// Shape mismatch: warning only.
		other := smallModel(t, 3)
		mismatched := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
		require.NoError(t, BuildOptimizer(other, mismatched))
		require.NoError(t, UpdateOptimizer(mismatched, path))
		assert.Equal(t, int64(1), mismatched.Iterations())

		assert.Error(t, UpdateOptimizer(restored, filepath.Join(dir, "missing.born")))

		weightsPath := filepath.Join(dir, "weights.born")
		require.NoError(t, SaveModel(m, weightsPath, nil))
		assert.Error(t, UpdateOptimizer(restored, weightsPath))
	})
}

func TestCheckpointAfterEpoch(t *testing.T) {
	m := smallModel(t, 2)
	opt := optim.NewSGD(optim.SGDConfig{})
	dir := t.TempDir()
	p1 := filepath.Join(dir, "model_1.born")
	p3 := filepath.Join(dir, "model_3.born")
	o2 := filepath.Join(dir, "opt_2.born")

	ckp := NewCheckpointAfterEpoch(
		map[int]string{1: p1, 3: p3, 5: filepath.Join(dir, "model_5.born")},
		map[int]string{2: o2},
	)

	steps := 0
	step := func(epoch int) (Logs, error) {
		steps++
		if err := BuildOptimizer(m, opt); err != nil {
			return nil, err
		}
		return Logs{"loss": 1 / float64(epoch+1)}, nil
	}

	var history History
	var err error
	logging.WithNoopLogger(func() {
		history, err = Fit(m, opt, 3, step, ckp)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)
	assert.Equal(t, []float64{1, 0.5, 1.0 / 3}, history["loss"])
	assert.NotContains(t, history, "lr", "constant rate is not tracked")

	assert.Equal(t, []string{p1, p3}, ckp.CreatedModel)
	assert.Equal(t, []string{o2}, ckp.CreatedOptimizer)
	for _, p := range []string{p1, p3, o2} {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	_, err = os.Stat(filepath.Join(dir, "model_5.born"))
	assert.True(t, os.IsNotExist(err))

	// Reporting an epoch again does not save twice.
	logging.WithNoopLogger(func() {
		require.NoError(t, ckp.OnEpochEnd(0, nil))
	})
	assert.Len(t, ckp.CreatedModel, 2)

	var buf bytes.Buffer
	ckp.ListCreatedCheckpoints(&buf)
	assert.Equal(t, "Created model checkpoints:\n"+p1+"\n"+p3+"\n"+
		"Created optimizer checkpoints:\n"+o2+"\n", buf.String())
}

func TestCheckpointRequiresBinding(t *testing.T) {
	ckp := NewCheckpointAfterEpoch(map[int]string{1: filepath.Join(t.TempDir(), "m.born")}, nil)
	assert.Error(t, ckp.OnEpochEnd(0, nil))
	assert.NoError(t, ckp.OnEpochEnd(4, nil), "no key, nothing to do")
}

func TestCheckpointRetriesAfterFailure(t *testing.T) {
	m := smallModel(t, 2)
	opt := optim.NewSGD(optim.SGDConfig{})
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "m.born")
	optPath := filepath.Join(dir, "o.born")
	ckp := NewCheckpointAfterEpoch(map[int]string{1: modelPath}, map[int]string{1: optPath})

	require.Error(t, ckp.OnEpochEnd(0, nil), "nothing bound yet")
	_, err := os.Stat(modelPath)
	assert.True(t, os.IsNotExist(err), "a missing optimizer blocks the whole epoch")

	// A file in place of the directory makes the optimizer save fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0o600))
	ckp.OptimizerPaths[1] = filepath.Join(blocked, "o.born")
	ckp.Bind(m, opt)
	logging.WithNoopLogger(func() {
		require.Error(t, ckp.OnEpochEnd(0, nil))
	})
	assert.Equal(t, []string{modelPath}, ckp.CreatedModel)
	assert.Empty(t, ckp.CreatedOptimizer)

	ckp.OptimizerPaths[1] = optPath
	logging.WithNoopLogger(func() {
		require.NoError(t, ckp.OnEpochEnd(0, nil))
		require.NoError(t, ckp.OnEpochEnd(0, nil))
	})
	assert.Equal(t, []string{modelPath}, ckp.CreatedModel, "model is not saved twice")
	assert.Equal(t, []string{optPath}, ckp.CreatedOptimizer)
	for _, p := range []string{modelPath, optPath} {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}
