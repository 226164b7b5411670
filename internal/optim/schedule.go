package optim

import (
	"fmt"
	"math"
)

// Schedule maps the optimizer iteration count to a learning rate.
type Schedule interface {
	LR(step int64) float32
	String() string
}

// Decaying is implemented by schedules whose rate changes over time.
type Decaying interface {
	Schedule
	Decays() bool
}

// ConstantSchedule always returns the same rate.
type ConstantSchedule float32

// Constant returns a fixed learning rate schedule.
func Constant(lr float32) Schedule { return ConstantSchedule(lr) }

// LR implements Schedule.
func (c ConstantSchedule) LR(int64) float32 { return float32(c) }

func (c ConstantSchedule) String() string { return fmt.Sprintf("Constant(%g)", float32(c)) }

// ExponentialDecay computes initial * rate^(step/decaySteps).
//
// With Staircase the exponent is floored, giving discrete drops every DecaySteps.
type ExponentialDecay struct {
	Initial    float32
	DecaySteps int64
	DecayRate  float32
	Staircase  bool
}

// LR implements Schedule.
func (e ExponentialDecay) LR(step int64) float32 {
	if e.DecaySteps <= 0 {
		return e.Initial
	}
	p := float64(step) / float64(e.DecaySteps)
	if e.Staircase {
		p = math.Floor(p)
	}
	return e.Initial * float32(math.Pow(float64(e.DecayRate), p))
}

// Decays implements Decaying.
func (e ExponentialDecay) Decays() bool { return e.DecayRate != 1 && e.DecaySteps > 0 }

func (e ExponentialDecay) String() string {
	return fmt.Sprintf("ExponentialDecay(initial=%g, steps=%d, rate=%g, staircase=%v)",
		e.Initial, e.DecaySteps, e.DecayRate, e.Staircase)
}

// PiecewiseConstant returns Values[i] for steps in (Boundaries[i-1], Boundaries[i]].
// len(Values) must be len(Boundaries)+1.
type PiecewiseConstant struct {
	Boundaries []int64
	Values     []float32
}

// NewPiecewiseConstant validates the boundaries and values.
func NewPiecewiseConstant(boundaries []int64, values []float32) (PiecewiseConstant, error) {
	if len(values) != len(boundaries)+1 {
		return PiecewiseConstant{}, fmt.Errorf("piecewise schedule needs %d values for %d boundaries, got %d",
			len(boundaries)+1, len(boundaries), len(values))
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return PiecewiseConstant{}, fmt.Errorf("piecewise boundaries must increase: %v", boundaries)
		}
	}
	return PiecewiseConstant{Boundaries: boundaries, Values: values}, nil
}

// LR implements Schedule. A schedule without values yields 0; missing trailing
// values repeat the last one.
func (p PiecewiseConstant) LR(step int64) float32 {
	if len(p.Values) == 0 {
		return 0
	}
	i := 0
	for i < len(p.Boundaries) && step > p.Boundaries[i] {
		i++
	}
	return p.Values[min(i, len(p.Values)-1)]
}

// Decays implements Decaying.
func (p PiecewiseConstant) Decays() bool { return len(p.Boundaries) > 0 }

func (p PiecewiseConstant) String() string {
	return fmt.Sprintf("PiecewiseConstant(boundaries=%v, values=%v)", p.Boundaries, p.Values)
}

// IsDecaying reports whether s changes the rate over time.
func IsDecaying(s Schedule) bool {
	d, ok := s.(Decaying)
	return ok && d.Decays()
}
