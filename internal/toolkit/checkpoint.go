package toolkit

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/born-ml/trainkit/internal/logging"
	"github.com/born-ml/trainkit/internal/nn"
	"github.com/born-ml/trainkit/internal/optim"
)

// Logs are the metrics reported for one epoch, e.g. "loss" or "val_accuracy".
type Logs map[string]float64

// Callback is notified at the end of every epoch. epoch is zero-based.
type Callback interface {
	OnEpochEnd(epoch int, logs Logs) error
}

// Binder is implemented by callbacks that need the model and optimizer under
// training. Fit binds them before the first epoch.
type Binder interface {
	Bind(model *nn.Model, opt optim.Optimizer)
}

// Trainer holds the model and optimizer a callback acts on. Embed it to
// implement Binder.
type Trainer struct {
	model *nn.Model
	opt   optim.Optimizer
}

// Bind implements Binder.
func (t *Trainer) Bind(model *nn.Model, opt optim.Optimizer) {
	t.model = model
	t.opt = opt
}

// SetModel binds only the model.
func (t *Trainer) SetModel(model *nn.Model) { t.model = model }

// Model returns the bound model, nil if unbound.
func (t *Trainer) Model() *nn.Model { return t.model }

// Optimizer returns the bound optimizer, nil if unbound.
func (t *Trainer) Optimizer() optim.Optimizer { return t.opt }

// CheckpointAfterEpoch saves the model and optimizer after selected epochs.
// Map keys are one-based epoch numbers: key 1 fires after the first epoch.
type CheckpointAfterEpoch struct {
	Trainer

	ModelPaths     map[int]string
	OptimizerPaths map[int]string

	CreatedModel     []string
	CreatedOptimizer []string

	fired      map[int]bool
	modelSaved map[int]bool
}

// NewCheckpointAfterEpoch creates the callback. Either map may be nil.
func NewCheckpointAfterEpoch(modelPaths, optimizerPaths map[int]string) *CheckpointAfterEpoch {
	return &CheckpointAfterEpoch{ModelPaths: modelPaths, OptimizerPaths: optimizerPaths}
}

// OnEpochEnd implements Callback. Each epoch key is saved at most once, even
// if the same epoch is reported again. A failed save is retried on the next call.
func (c *CheckpointAfterEpoch) OnEpochEnd(epoch int, _ Logs) error {
	next := epoch + 1
	if c.fired[next] {
		return nil
	}

	modelPath, saveModel := c.ModelPaths[next]
	optPath, saveOpt := c.OptimizerPaths[next]
	if !saveModel && !saveOpt {
		return nil
	}
	if saveModel && c.model == nil {
		return errors.New("checkpoint: no model bound")
	}
	if saveOpt && c.opt == nil {
		return errors.New("checkpoint: no optimizer bound")
	}
	if c.fired == nil {
		c.fired = make(map[int]bool)
		c.modelSaved = make(map[int]bool)
	}

	if saveModel && !c.modelSaved[next] {
		if err := SaveModel(c.model, modelPath, map[string]string{"epoch": strconv.Itoa(next)}); err != nil {
			return errors.Wrapf(err, "checkpoint epoch %d", next)
		}
		c.modelSaved[next] = true
		c.CreatedModel = append(c.CreatedModel, modelPath)
		logging.Info("Saved model checkpoint", logging.Checkpoint, "epoch", next, "path", modelPath)
	}

	if saveOpt {
		if err := SaveOptimizer(c.opt, optPath); err != nil {
			return errors.Wrapf(err, "checkpoint epoch %d", next)
		}
		c.CreatedOptimizer = append(c.CreatedOptimizer, optPath)
		logging.Info("Saved optimizer checkpoint", logging.Checkpoint, "epoch", next, "path", optPath)
	}
	c.fired[next] = true
	return nil
}

// ListCreatedCheckpoints prints the checkpoint paths written so far.
func (c *CheckpointAfterEpoch) ListCreatedCheckpoints(w io.Writer) {
	fmt.Fprintln(w, "Created model checkpoints:")
	for _, p := range c.CreatedModel {
		fmt.Fprintln(w, p)
	}
	fmt.Fprintln(w, "Created optimizer checkpoints:")
	for _, p := range c.CreatedOptimizer {
		fmt.Fprintln(w, p)
	}
}
