package toolkit

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/trainkit/internal/logging"
)

// ErrIncompleteHistory is returned when a history lacks a required metric.
var ErrIncompleteHistory = errors.New("history is missing a required metric")

// TimeFormat is the layout of Experiment.Time.
const TimeFormat = "2006.01.02 15:04"

// requiredMetrics must be present in a history passed to LogFromHistory.
var requiredMetrics = []string{"loss", "accuracy", "val_loss", "val_accuracy"}

var now = time.Now

// History maps a metric name to its per-epoch values.
type History map[string][]float64

// Append adds one epoch of logs.
func (h History) Append(logs Logs) {
	for k, v := range logs {
		h[k] = append(h[k], v)
	}
}

// Keys returns the metric names, sorted.
func (h History) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadHistory decodes a YAML mapping of metric name to value list.
func ReadHistory(r io.Reader) (History, error) {
	var h History
	if err := yaml.NewDecoder(r).Decode(&h); err != nil {
		return nil, errors.Wrap(err, "decode history")
	}
	return h, nil
}

// Experiment is the record of one training run.
type Experiment struct {
	ID         uuid.UUID      `yaml:"id"`
	Name       string         `yaml:"name,omitempty"`
	Params     map[string]any `yaml:"params,omitempty"`
	SummaryDir string         `yaml:"summary_dir,omitempty"`

	// Filled by LogFromHistory.
	Time          string  `yaml:"time,omitempty"`
	Accuracy      float64 `yaml:"acc"`
	FinalAccuracy float64 `yaml:"final_accu"`
	ValidLoss     float64 `yaml:"valid_loss"`
	TrainAccuracy float64 `yaml:"train_accu"`
	TrainLoss     float64 `yaml:"train_loss"`
}

// NewExperiment creates a record with a random ID.
func NewExperiment(name string, params map[string]any) *Experiment {
	return &Experiment{ID: uuid.New(), Name: name, Params: params}
}

// YAML renders the record as YAML text.
func (e *Experiment) YAML() (string, error) {
	b, err := yaml.Marshal(e)
	if err != nil {
		return "", errors.Wrap(err, "marshal experiment")
	}
	return string(b), nil
}

// LogFromHistory fills exp with the best and final statistics of h. When
// exp.SummaryDir is set every history value is also written as a summary event.
func LogFromHistory(h History, exp *Experiment) (*Experiment, error) {
	for _, k := range requiredMetrics {
		if len(h[k]) == 0 {
			return nil, errors.Wrapf(ErrIncompleteHistory, "%q", k)
		}
	}

	valAcc := h["val_accuracy"]
	exp.Time = now().Format(TimeFormat)
	exp.Accuracy = maxOf(valAcc)
	exp.FinalAccuracy = valAcc[len(valAcc)-1]
	exp.ValidLoss = minOf(h["val_loss"])
	exp.TrainAccuracy = maxOf(h["accuracy"])
	exp.TrainLoss = minOf(h["loss"])

	logging.Info("Best accuracy", logging.Toolkit, "experiment", exp.ID, "accuracy", exp.Accuracy)

	if exp.SummaryDir != "" {
		path, err := writeSummary(h, exp)
		if err != nil {
			return nil, err
		}
		logging.Info("Wrote summary", logging.Toolkit, "path", path)
	}
	return exp, nil
}

// SummaryEvent is one line of an events file.
type SummaryEvent struct {
	WallTime float64  `json:"wall_time"`
	Step     int      `json:"step"`
	Tag      string   `json:"tag"`
	Scalar   *float64 `json:"scalar,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// writeSummary writes events.<unix>.jsonl into exp.SummaryDir: each history
// value at step index+1, then the experiment text at step 0.
func writeSummary(h History, exp *Experiment) (path string, err error) {
	if err := os.MkdirAll(exp.SummaryDir, 0o750); err != nil {
		return "", errors.Wrap(err, "create summary dir")
	}

	t := now()
	path = filepath.Join(exp.SummaryDir, fmt.Sprintf("events.%d.jsonl", t.Unix()))
	f, err := os.Create(path) //nolint:gosec // G304: path is built from the caller's summary dir
	if err != nil {
		return "", errors.Wrap(err, "create summary file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close summary file")
		}
	}()

	wall := float64(t.UnixNano()) / 1e9
	enc := json.NewEncoder(f)
	for _, key := range h.Keys() {
		for idx, v := range h[key] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			value := v
			if err := enc.Encode(SummaryEvent{WallTime: wall, Step: idx + 1, Tag: key, Scalar: &value}); err != nil {
				return "", errors.Wrap(err, "write summary")
			}
		}
	}

	text, err := exp.YAML()
	if err != nil {
		return "", err
	}
	if err := enc.Encode(SummaryEvent{WallTime: wall, Step: 0, Tag: "experiment", Text: text}); err != nil {
		return "", errors.Wrap(err, "write summary")
	}
	return path, nil
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}
