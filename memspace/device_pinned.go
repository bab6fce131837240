package memspace

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"
)

// hostMemoryModes are OCCA backends whose "host" allocations are
// page-locked and registered with the driver. Serial and OpenMP share the
// host address space, so their host allocations gain nothing over mlock.
var hostMemoryModes = map[string]bool{
	"CUDA":   true,
	"HIP":    true,
	"OpenCL": true,
	"Metal":  true,
}

// UsesDeviceHostMemory reports whether AllocDevicePinned takes its memory
// from device's runtime rather than from mlock
func UsesDeviceHostMemory(device *gocca.OCCADevice) bool {
	return device != nil && hostMemoryModes[device.Mode()]
}

// AllocDevicePinned allocates n float64 values of pinned host memory for
// transfers to device. On accelerator backends the device runtime owns the
// allocation; otherwise it falls back to AllocPinned.
func AllocDevicePinned(device *gocca.OCCADevice, n int) (*PinnedBuffer, error) {
	if !UsesDeviceHostMemory(device) || n <= 0 {
		return AllocPinned(n)
	}

	bytes := int64(n) * float64Size
	props := gocca.JsonParse(`{"host": true}`)
	defer props.Free()

	mem := device.Malloc(bytes, nil, props)
	if mem == nil || !mem.IsInitialized() {
		if mem != nil {
			mem.Free()
		}
		return nil, fmt.Errorf("%w: %s host allocation of %d bytes", ErrPinnedAlloc,
			device.Mode(), bytes)
	}
	ptr := mem.Ptr()
	if ptr == nil {
		mem.Free()
		return nil, fmt.Errorf("%w: %s host allocation of %d bytes has no host pointer",
			ErrPinnedAlloc, device.Mode(), bytes)
	}

	return &PinnedBuffer{
		host: mem,
		vals: unsafe.Slice((*float64)(ptr), n),
	}, nil
}
