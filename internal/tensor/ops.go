package tensor

// ClipByValue returns a new float32 tensor with every element bounded to [low, high].
func ClipByValue(t *RawTensor, low, high float32) *RawTensor {
	out := t.Copy()
	ClipInplace(out, low, high)
	return out
}

// ClipInplace bounds every element of t to [low, high].
func ClipInplace(t *RawTensor, low, high float32) {
	data := t.AsFloat32()
	for i, v := range data {
		switch {
		case v < low:
			data[i] = low
		case v > high:
			data[i] = high
		}
	}
}

// Flatten concatenates the float32 contents of all tensors into one slice.
func Flatten(ts ...*RawTensor) []float32 {
	n := 0
	for _, t := range ts {
		n += t.NumElements()
	}
	out := make([]float32, 0, n)
	for _, t := range ts {
		out = append(out, t.AsFloat32()...)
	}
	return out
}

// SumAbs returns the sum of absolute values, used by L1 penalties.
func SumAbs(t *RawTensor) float64 {
	var s float64
	for _, v := range t.AsFloat32() {
		if v < 0 {
			s -= float64(v)
		} else {
			s += float64(v)
		}
	}
	return s
}

// SumSquares returns the sum of squared values, used by L2 penalties.
func SumSquares(t *RawTensor) float64 {
	var s float64
	for _, v := range t.AsFloat32() {
		s += float64(v) * float64(v)
	}
	return s
}
