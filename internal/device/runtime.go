package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/born-ml/trainkit/internal/logging"
)

// ErrUnknownDevice is returned when a device index is out of range.
var ErrUnknownDevice = errors.New("unknown device")

// Kind is a device class.
type Kind string

// Device kinds.
const (
	CPU Kind = "CPU"
	GPU Kind = "GPU"
)

// Device describes one physical device.
type Device struct {
	Kind         Kind
	Index        int
	Description  string
	Features     []string
	MemoryGrowth bool
}

// Name returns "<kind>:<index>", e.g. "GPU:0".
func (d Device) Name() string {
	return fmt.Sprintf("%s:%d", d.Kind, d.Index)
}

func (d Device) String() string {
	if d.Description == "" {
		return d.Name()
	}
	return d.Name() + " " + d.Description
}

// simdFeatures are the CPU features worth reporting for tensor kernels.
var simdFeatures = []cpuid.FeatureID{
	cpuid.SSE4, cpuid.AVX, cpuid.AVX2, cpuid.FMA3,
	cpuid.AVX512F, cpuid.AVX512DQ, cpuid.AVX512BW, cpuid.ASIMD,
}

func cpuDevice() Device {
	var features []string
	for _, f := range simdFeatures {
		if cpuid.CPU.Supports(f) {
			features = append(features, f.String())
		}
	}
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	return Device{
		Kind:        CPU,
		Description: fmt.Sprintf("%s, %d logical cores", brand, runtime.NumCPU()),
		Features:    features,
	}
}

// Runtime holds the device inventory and which GPUs are visible.
// It is safe for concurrent use.
type Runtime struct {
	mu      sync.Mutex
	cpu     Device
	gpus    []Device
	visible []int
}

// NewRuntime probes the host for devices. GPU probing failures are logged and
// leave a CPU-only runtime.
func NewRuntime() *Runtime {
	gpus, err := listGPUs()
	if err != nil {
		logging.Warn("GPU probe failed, using CPU only", logging.Device, "error", err)
	}
	return newRuntime(cpuDevice(), gpus)
}

func newRuntime(cpu Device, gpus []Device) *Runtime {
	r := &Runtime{cpu: cpu, gpus: gpus}
	for i := range gpus {
		r.gpus[i].Kind = GPU
		r.gpus[i].Index = i
		r.visible = append(r.visible, i)
	}
	return r
}

// PhysicalDevices returns every device, CPU first.
func (r *Runtime) PhysicalDevices() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.gpus)+1)
	out = append(out, r.cpu)
	return append(out, r.gpus...)
}

// VisibleDevices returns the CPU and the visible GPUs.
func (r *Runtime) VisibleDevices() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.visible)+1)
	out = append(out, r.cpu)
	for _, i := range r.visible {
		out = append(out, r.gpus[i])
	}
	return out
}

// SetVisibleDevices restricts the visible GPUs to indices. No indices hides
// every GPU.
func (r *Runtime) SetVisibleDevices(indices ...int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]bool, len(indices))
	visible := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(r.gpus) {
			return fmt.Errorf("%w: GPU:%d (%d available)", ErrUnknownDevice, i, len(r.gpus))
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		visible = append(visible, i)
	}
	r.visible = visible
	logging.Info("Set visible devices", logging.Device, "gpus", visible)
	return nil
}

// SetMemoryGrowth enables on-demand memory allocation on every visible GPU.
// Returns the number of GPUs affected.
func (r *Runtime) SetMemoryGrowth() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, i := range r.visible {
		r.gpus[i].MemoryGrowth = true
	}
	logging.Info("Set memory growth", logging.Device, "gpus", len(r.visible))
	return len(r.visible)
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the process-wide runtime, probing on first use.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = NewRuntime()
	})
	return defaultRuntime
}

// SetVisibleDevices calls SetVisibleDevices on the default runtime.
func SetVisibleDevices(indices ...int) error {
	return Default().SetVisibleDevices(indices...)
}

// SetMemoryGrowth calls SetMemoryGrowth on the default runtime.
func SetMemoryGrowth() int {
	return Default().SetMemoryGrowth()
}

// VisibleDevices calls VisibleDevices on the default runtime.
func VisibleDevices() []Device {
	return Default().VisibleDevices()
}
