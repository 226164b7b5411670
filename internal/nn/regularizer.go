package nn

import (
	"fmt"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Regularizer computes a penalty added to the training loss for one weight.
type Regularizer interface {
	Penalty(w *tensor.RawTensor) float64
	String() string
}

// L1L2Regularizer is the elastic-net penalty l1*sum(|w|) + l2*sum(w²).
type L1L2Regularizer struct {
	L1 float64
	L2 float64
}

// L1L2 returns a combined penalty, or nil when both factors are zero.
func L1L2(l1, l2 float64) Regularizer {
	if l1 == 0 && l2 == 0 {
		return nil
	}
	return L1L2Regularizer{L1: l1, L2: l2}
}

// Penalty implements Regularizer.
func (r L1L2Regularizer) Penalty(w *tensor.RawTensor) float64 {
	var p float64
	if r.L1 != 0 {
		p += r.L1 * tensor.SumAbs(w)
	}
	if r.L2 != 0 {
		p += r.L2 * tensor.SumSquares(w)
	}
	return p
}

func (r L1L2Regularizer) String() string {
	return fmt.Sprintf("L1L2(l1=%g, l2=%g)", r.L1, r.L2)
}
