package toolkit

import (
	"bufio"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/optim"
	"github.com/born-ml/trainkit/internal/tensor"
)

func TestLossFromAlias(t *testing.T) {
	loss, err := LossFromAlias("crossentropy")
	require.NoError(t, err)

	logits, err := tensor.FromFloat32([]float32{0, 0, 2, 1, 0, 0, 0, 5}, tensor.Shape{2, 4})
	require.NoError(t, err)
	labels, err := tensor.FromFloat32([]float32{0, 3}, tensor.Shape{2})
	require.NoError(t, err)

	got, err := loss(logits, labels)
	require.NoError(t, err)
	row0 := math.Log(2+math.Exp(2)+math.Exp(1)) - 0
	row1 := math.Log(3+math.Exp(5)) - 5
	assert.InDelta(t, (row0+row1)/2, got, 1e-5)

	acc, err := SparseCategoricalAccuracy(logits, labels)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, acc, 1e-6, "row 0 predicts class 2")

	_, err = LossFromAlias("hinge")
	assert.ErrorIs(t, err, ErrUnknownLossAlias)
}

func TestCrossentropyValidation(t *testing.T) {
	logits := tensor.Zeros(tensor.Shape{2, 3})

	bad, err := tensor.FromFloat32([]float32{0, 3}, tensor.Shape{2})
	require.NoError(t, err)
	_, err = SparseCategoricalCrossentropy(logits, bad)
	assert.Error(t, err, "label out of range")

	short, err := tensor.FromFloat32([]float32{0}, tensor.Shape{1})
	require.NoError(t, err)
	_, err = SparseCategoricalCrossentropy(logits, short)
	assert.Error(t, err)

	_, err = SparseCategoricalCrossentropy(tensor.Zeros(tensor.Shape{6}), short)
	assert.Error(t, err)

	ids, err := tensor.NewRaw(tensor.Shape{2}, tensor.Int64)
	require.NoError(t, err)
	ids.AsInt64()[1] = 2
	got, err := SparseCategoricalCrossentropy(logits, ids)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(3), got, 1e-6)
}

func TestLRMetric(t *testing.T) {
	_, ok := LRMetric(optim.NewSGD(optim.SGDConfig{LR: optim.Constant(0.1)}))
	assert.False(t, ok)

	opt := optim.NewSGD(optim.SGDConfig{LR: optim.ExponentialDecay{Initial: 0.1, DecaySteps: 10, DecayRate: 0.5}})
	lr, ok := LRMetric(opt)
	require.True(t, ok)
	assert.InDelta(t, 0.1, lr(), 1e-7)
}

func testHistory() History {
	return History{
		"loss":         {2.0, 1.5, 1.2},
		"accuracy":     {0.3, 0.5, 0.6},
		"val_loss":     {2.1, 1.4, 1.6},
		"val_accuracy": {0.25, 0.55, 0.5},
	}
}

func TestLogFromHistory(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	exp := NewExperiment("resnet20", map[string]any{"epochs": 3})
	var err error
	logging.WithNoopLogger(func() {
		exp, err = LogFromHistory(testHistory(), exp)
	})
	require.NoError(t, err)
	assert.Equal(t, "2024.03.09 14:05", exp.Time)
	assert.InDelta(t, 0.55, exp.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, exp.FinalAccuracy, 1e-9)
	assert.InDelta(t, 1.4, exp.ValidLoss, 1e-9)
	assert.InDelta(t, 0.6, exp.TrainAccuracy, 1e-9)
	assert.InDelta(t, 1.2, exp.TrainLoss, 1e-9)

	text, err := exp.YAML()
	require.NoError(t, err)
	assert.Contains(t, text, "id: "+exp.ID.String())
	assert.Contains(t, text, "acc: 0.55")
}

func TestLogFromHistoryMissingMetric(t *testing.T) {
	h := testHistory()
	delete(h, "val_accuracy")
	_, err := LogFromHistory(h, NewExperiment("x", nil))
	assert.True(t, errors.Is(err, ErrIncompleteHistory))
}

func TestLogFromHistoryWritesSummary(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	exp := NewExperiment("resnet20", nil)
	exp.SummaryDir = filepath.Join(t.TempDir(), "tb")
	var err error
	logging.WithNoopLogger(func() {
		_, err = LogFromHistory(testHistory(), exp)
	})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(exp.SummaryDir, "events.1700000000.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var events []SummaryEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var ev SummaryEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	require.Len(t, events, 4*3+1)

	// Keys are sorted: accuracy comes first.
	assert.Equal(t, "accuracy", events[0].Tag)
	assert.Equal(t, 1, events[0].Step)
	require.NotNil(t, events[0].Scalar)
	assert.InDelta(t, 0.3, *events[0].Scalar, 1e-9)
	assert.Equal(t, 3, events[2].Step)

	last := events[len(events)-1]
	assert.Equal(t, "experiment", last.Tag)
	assert.Zero(t, last.Step)
	assert.Nil(t, last.Scalar)
	assert.True(t, strings.Contains(last.Text, "name: resnet20"))
}

func TestReadHistory(t *testing.T) {
	h, err := ReadHistory(strings.NewReader("loss: [1.0, 0.5]\nval_loss: [2]\n"))
	require.NoError(t, err)
	assert.Equal(t, History{"loss": {1, 0.5}, "val_loss": {2}}, h)
	assert.Equal(t, []string{"loss", "val_loss"}, h.Keys())

	out, err := yaml.Marshal(h)
	require.NoError(t, err)
	again, err := ReadHistory(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, h, again)

	_, err = ReadHistory(strings.NewReader("loss: nope"))
	assert.Error(t, err)
}

type recordingCallback struct {
	Trainer
	epochs []int
	failAt int
}

func (r *recordingCallback) OnEpochEnd(epoch int, logs Logs) error {
	r.epochs = append(r.epochs, epoch)
	if epoch == r.failAt {
		return errors.New("stop")
	}
	return nil
}

func TestFit(t *testing.T) {
	m := smallModel(t, 2)
	opt := optim.NewSGD(optim.SGDConfig{LR: optim.ExponentialDecay{Initial: 0.1, DecaySteps: 1, DecayRate: 0.5}})
	cb := &recordingCallback{failAt: -1}

	step := func(epoch int) (Logs, error) {
		if err := BuildOptimizer(m, opt); err != nil {
			return nil, err
		}
		return Logs{"loss": float64(epoch)}, nil
	}
	var history History
	var err error
	logging.WithNoopLogger(func() {
		history, err = Fit(m, opt, 3, step, cb)
	})
	require.NoError(t, err)

	assert.Same(t, m, cb.Model())
	assert.Equal(t, opt, cb.Optimizer())
	assert.Equal(t, []int{0, 1, 2}, cb.epochs)
	assert.Equal(t, []float64{0, 1, 2}, history["loss"])
	require.Len(t, history["lr"], 3)
	assert.InDelta(t, 0.05, history["lr"][0], 1e-7, "rate after the first step")
	assert.InDelta(t, 0.0125, history["lr"][2], 1e-7)
}

func TestFitStops(t *testing.T) {
	m := smallModel(t, 2)
	opt := optim.NewSGD(optim.SGDConfig{})

	cb := &recordingCallback{failAt: 1}
	history, err := Fit(m, opt, 5, func(int) (Logs, error) { return Logs{"loss": 1}, nil }, cb)
	assert.Error(t, err)
	assert.Equal(t, []int{0, 1}, cb.epochs)
	assert.Len(t, history["loss"], 2)

	boom := errors.New("boom")
	_, err = Fit(m, opt, 5, func(epoch int) (Logs, error) {
		if epoch == 2 {
			return nil, boom
		}
		return nil, nil
	})
	assert.ErrorIs(t, err, boom)
}
