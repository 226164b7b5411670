package toolkit

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/trainkit/internal/optim"
	"github.com/born-ml/trainkit/internal/tensor"
)

// ErrUnknownLossAlias is returned by LossFromAlias.
var ErrUnknownLossAlias = errors.New("unknown loss alias")

// LossFunc reduces a batch of predictions against labels to a scalar loss.
type LossFunc func(logits, labels *tensor.RawTensor) (float32, error)

// LossFromAlias returns the loss registered under alias. "crossentropy" is
// sparse categorical cross-entropy on logits.
func LossFromAlias(alias string) (LossFunc, error) {
	switch alias {
	case "crossentropy":
		return SparseCategoricalCrossentropy, nil
	default:
		return nil, errors.Wrapf(ErrUnknownLossAlias, "%q", alias)
	}
}

// SparseCategoricalCrossentropy computes the mean over the batch of
// -log softmax(logits)[label]. logits is (batch, classes); labels holds batch
// integer class ids as int32, int64 or float32.
func SparseCategoricalCrossentropy(logits, labels *tensor.RawTensor) (float32, error) {
	batch, classes, ids, err := classificationArgs(logits, labels)
	if err != nil {
		return 0, err
	}

	data := logits.AsFloat32()
	var total float64
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		maxLogit := float64(row[0])
		for _, v := range row[1:] {
			maxLogit = math.Max(maxLogit, float64(v))
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - maxLogit)
		}
		total += maxLogit + math.Log(sum) - float64(row[ids[b]])
	}
	return float32(total / float64(batch)), nil
}

// SparseCategoricalAccuracy returns the fraction of rows whose arg max matches the label.
func SparseCategoricalAccuracy(logits, labels *tensor.RawTensor) (float32, error) {
	batch, classes, ids, err := classificationArgs(logits, labels)
	if err != nil {
		return 0, err
	}

	data := logits.AsFloat32()
	correct := 0
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		best := 0
		for i, v := range row {
			if v > row[best] {
				best = i
			}
		}
		if best == ids[b] {
			correct++
		}
	}
	return float32(correct) / float32(batch), nil
}

func classificationArgs(logits, labels *tensor.RawTensor) (batch, classes int, ids []int, err error) {
	shape := logits.Shape()
	if len(shape) != 2 || shape[0] == 0 || shape[1] == 0 {
		return 0, 0, nil, errors.Errorf("logits must be (batch, classes), got %v", shape)
	}
	if logits.DType() != tensor.Float32 {
		return 0, 0, nil, errors.Errorf("logits must be float32, got %s", logits.DType())
	}
	batch, classes = shape[0], shape[1]
	if labels.NumElements() != batch {
		return 0, 0, nil, errors.Errorf("got %d labels for batch %d", labels.NumElements(), batch)
	}

	ids = make([]int, batch)
	for i := range ids {
		switch labels.DType() {
		case tensor.Int32:
			ids[i] = int(labels.AsInt32()[i])
		case tensor.Int64:
			ids[i] = int(labels.AsInt64()[i])
		case tensor.Float32:
			ids[i] = int(labels.AsFloat32()[i])
		default:
			return 0, 0, nil, errors.Errorf("unsupported label dtype %s", labels.DType())
		}
		if ids[i] < 0 || ids[i] >= classes {
			return 0, 0, nil, errors.Errorf("label %d out of range [0, %d)", ids[i], classes)
		}
	}
	return batch, classes, ids, nil
}

// LRMetric returns a function reporting opt's current learning rate. It is
// only available when the schedule decays; a constant rate is not worth logging.
func LRMetric(opt optim.Optimizer) (func() float32, bool) {
	if !optim.IsDecaying(opt.Schedule()) {
		return nil, false
	}
	return opt.LR, true
}
