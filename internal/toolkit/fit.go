package toolkit

import (
	"github.com/pkg/errors"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/optim"
)

// StepFunc runs one epoch of training and returns its metrics. The caller
// computes gradients and applies them through the optimizer.
type StepFunc func(epoch int) (Logs, error)

// Fit runs epochs of step, collecting the returned logs into a history. A
// decaying learning rate is recorded as "lr". After every epoch each callback
// is notified; the first callback error stops training.
func Fit(m *nn.Model, opt optim.Optimizer, epochs int, step StepFunc, callbacks ...Callback) (History, error) {
	for _, cb := range callbacks {
		if b, ok := cb.(Binder); ok {
			b.Bind(m, opt)
		}
	}
	lr, trackLR := LRMetric(opt)

	history := make(History)
	for epoch := 0; epoch < epochs; epoch++ {
		logs, err := step(epoch)
		if err != nil {
			logging.Error("Epoch failed", logging.Toolkit, "model", m.Name(), "epoch", epoch+1, "error", err)
			return history, errors.Wrapf(err, "epoch %d", epoch+1)
		}
		if logs == nil {
			logs = make(Logs)
		}
		if trackLR {
			logs["lr"] = float64(lr())
		}
		history.Append(logs)
		logging.Debug("Epoch finished", logging.Toolkit, "model", m.Name(), "epoch", epoch+1, "logs", logs)

		for _, cb := range callbacks {
			if err := cb.OnEpochEnd(epoch, logs); err != nil {
				return history, errors.Wrapf(err, "epoch %d callback", epoch+1)
			}
		}
	}
	return history, nil
}
