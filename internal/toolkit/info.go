package toolkit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/born-ml/trainkit/internal/nn"
)

// countedKinds maps layer kinds to the names used in ModelInfo.LayerCounts.
var countedKinds = map[string]string{
	"Dense":              "Dense",
	"Conv2D":             "Conv2D",
	"BatchNormalization": "BatchNorm",
	"Dropout":            "Dropout",
}

// ModelInfo summarizes where a model's parameters live.
type ModelInfo struct {
	LayerCounts      map[string]int
	TrainableWeights int
	Kernels          int
	Biases           int
	BatchNorm        int // gamma and beta
}

// Info computes the statistics printed by PrintModelInfo.
func Info(m *nn.Model) ModelInfo {
	info := ModelInfo{LayerCounts: make(map[string]int)}
	for _, l := range m.Layers() {
		if name, ok := countedKinds[l.Kind()]; ok {
			info.LayerCounts[name]++
		}
	}
	for _, w := range m.TrainableWeights() {
		info.TrainableWeights += w.Shape().NumElements()
	}
	for _, w := range m.Weights() {
		n := w.Shape().NumElements()
		switch {
		case isKernel(w.Name()):
			info.Kernels += n
		case strings.HasSuffix(w.Name(), "/bias:0"):
			info.Biases += n
		case strings.HasSuffix(w.Name(), "/gamma:0"), strings.HasSuffix(w.Name(), "/beta:0"):
			info.BatchNorm += n
		}
	}
	return info
}

func (i ModelInfo) percent(n int) float64 {
	if i.TrainableWeights == 0 {
		return 0
	}
	return float64(n) / float64(i.TrainableWeights) * 100
}

// PrintModelInfo writes layer counts and the parameter breakdown of m to w.
func PrintModelInfo(w io.Writer, m *nn.Model) {
	info := Info(m)

	kinds := make([]string, 0, len(info.LayerCounts))
	for k := range info.LayerCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	counts := make([]string, len(kinds))
	for i, k := range kinds {
		counts[i] = fmt.Sprintf("%s=%d", k, info.LayerCounts[k])
	}

	fmt.Fprintf(w, "Model info: %s\n", m.Name())
	fmt.Fprintf(w, "Layer counts: %s\n", strings.Join(counts, " "))
	fmt.Fprintf(w, "Trainable weights: %d\n", info.TrainableWeights)
	fmt.Fprintf(w, "Kernels: %d (%6.2f%%), Biases: %d (%6.2f%%), BN: %d (%6.2f%%)\n",
		info.Kernels, info.percent(info.Kernels),
		info.Biases, info.percent(info.Biases),
		info.BatchNorm, info.percent(info.BatchNorm))
}
