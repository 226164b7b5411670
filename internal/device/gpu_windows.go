//go:build windows

package device

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"
)

// listGPUs reports the default WebGPU adapter. WebGPU has no adapter
// enumeration, so at most one GPU is found.
func listGPUs() (gpus []Device, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			gpus = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		return nil, fmt.Errorf("webgpu: no adapters available: %w", adapterErr)
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	return []Device{{
		Kind:        GPU,
		Description: fmt.Sprintf("%s (%s, %v)", info.Device, info.Vendor, info.BackendType),
	}}, nil
}
