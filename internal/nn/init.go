package nn

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/born-ml/trainkit/internal/tensor"
)

// Initializer fills a newly created weight tensor.
type Initializer interface {
	// Name returns the registry name (e.g. "he_uniform").
	Name() string

	// Initialize allocates a float32 tensor of the given shape.
	Initialize(shape tensor.Shape) *tensor.RawTensor
}

var (
	rngMu sync.Mutex
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	rng = rand.New(rand.NewSource(1))
)

// SetSeed reseeds the generator used by initializers and dropout.
func SetSeed(seed int64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	rng = rand.New(rand.NewSource(seed))
}

func randUniform(low, high float64) float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return low + rng.Float64()*(high-low)
}

func randNormal() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.NormFloat64()
}

// computeFans follows the Keras convention: the last two dimensions are
// (input, output) features, anything before them is the receptive field.
func computeFans(shape tensor.Shape) (fanIn, fanOut int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	case 2:
		return shape[0], shape[1]
	default:
		receptive := 1
		for _, d := range shape[:len(shape)-2] {
			receptive *= d
		}
		return shape[len(shape)-2] * receptive, shape[len(shape)-1] * receptive
	}
}

type varianceScaling struct {
	name    string
	scale   float64
	mode    string // fan_in, fan_avg
	uniform bool
}

func (v varianceScaling) Name() string { return v.name }

func (v varianceScaling) Initialize(shape tensor.Shape) *tensor.RawTensor {
	fanIn, fanOut := computeFans(shape)
	n := float64(fanIn)
	if v.mode == "fan_avg" {
		n = float64(fanIn+fanOut) / 2
	}
	variance := v.scale / math.Max(1, n)

	t := tensor.Zeros(shape)
	data := t.AsFloat32()
	if v.uniform {
		limit := math.Sqrt(3 * variance)
		for i := range data {
			data[i] = float32(randUniform(-limit, limit))
		}
		return t
	}

	// Truncated normal; 0.8796... is the stddev of a unit normal truncated at ±2.
	stddev := math.Sqrt(variance) / 0.87962566103423978
	for i := range data {
		x := randNormal()
		for math.Abs(x) > 2 {
			x = randNormal()
		}
		data[i] = float32(x * stddev)
	}
	return t
}

type constant struct {
	name  string
	value float32
}

func (c constant) Name() string { return c.name }

func (c constant) Initialize(shape tensor.Shape) *tensor.RawTensor {
	return tensor.Full(shape, c.value)
}

// Registered initializers.
var (
	HeUniform     Initializer = varianceScaling{name: "he_uniform", scale: 2, mode: "fan_in", uniform: true}
	HeNormal      Initializer = varianceScaling{name: "he_normal", scale: 2, mode: "fan_in"}
	GlorotUniform Initializer = varianceScaling{name: "glorot_uniform", scale: 1, mode: "fan_avg", uniform: true}
	GlorotNormal  Initializer = varianceScaling{name: "glorot_normal", scale: 1, mode: "fan_avg"}
	Zeros         Initializer = constant{name: "zeros", value: 0}
	Ones          Initializer = constant{name: "ones", value: 1}
)

var initializers = map[string]Initializer{}

func init() {
	for _, i := range []Initializer{HeUniform, HeNormal, GlorotUniform, GlorotNormal, Zeros, Ones} {
		initializers[i.Name()] = i
	}
}

// InitializerByName looks up a registered initializer.
func InitializerByName(name string) (Initializer, error) {
	if i, ok := initializers[name]; ok {
		return i, nil
	}
	names := make([]string, 0, len(initializers))
	for n := range initializers {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown initializer %q (available: %v)", name, names)
}
