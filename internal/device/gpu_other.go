//go:build !windows

package device

// listGPUs finds no GPUs: the WebGPU bindings are only wired on Windows.
func listGPUs() ([]Device, error) {
	return nil, nil
}
