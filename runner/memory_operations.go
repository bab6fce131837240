package runner

import (
	"errors"
	"fmt"
	"github.com/notargets/SlidingWindow/runner/builder"
	"github.com/notargets/gocca"
	"unsafe"
)

// ErrDeviceAlloc is wrapped by every device allocation failure
var ErrDeviceAlloc = errors.New("device allocation failed")

// Malloc allocates an uninitialized device array of length elements
func (kr *Runner) Malloc(name string, length int, dataType builder.DataType) error {
	return kr.allocate(name, length, dataType, nil)
}

// MallocFrom allocates a float64 device array initialized from host
func (kr *Runner) MallocFrom(name string, host []float64) error {
	if len(host) == 0 {
		return fmt.Errorf("%w: %s has no elements", ErrDeviceAlloc, name)
	}
	return kr.allocate(name, len(host), builder.Float64, unsafe.Pointer(&host[0]))
}

// allocate is the single path through which device arrays enter the pool
func (kr *Runner) allocate(name string, length int, dataType builder.DataType,
	src unsafe.Pointer) error {
	if length <= 0 {
		return fmt.Errorf("%w: %s has length %d", ErrDeviceAlloc, name, length)
	}

	kr.mu.Lock()
	defer kr.mu.Unlock()

	if _, exists := kr.PooledMemory[name]; exists {
		return fmt.Errorf("array %s already allocated", name)
	}

	bytes := int64(length) * SizeOfType(dataType)
	mem, err := kr.malloc(bytes, src)
	if err != nil {
		return fmt.Errorf("%w: %s (%d bytes): %v", ErrDeviceAlloc, name, bytes, err)
	}

	kr.PooledMemory[name] = mem
	kr.arrayMetadata[name] = ArrayMetadata{
		Length:   length,
		DataType: dataType,
	}
	return nil
}

// deviceMalloc allocates on kr.Device. OCCA reports a failed allocation as
// an uninitialized handle, never as nil.
func (kr *Runner) deviceMalloc(bytes int64, src unsafe.Pointer) (*gocca.OCCAMemory, error) {
	mem := kr.Device.Malloc(bytes, src, nil)
	if mem == nil {
		return nil, fmt.Errorf("%s returned no memory", kr.Device.Mode())
	}
	if !mem.IsInitialized() {
		mem.Free()
		return nil, fmt.Errorf("%s memory handle is uninitialized", kr.Device.Mode())
	}
	return mem, nil
}

// checkFloat64Array validates that name is a float64 array of at least length
func (kr *Runner) checkFloat64Array(name string, length int) (*gocca.OCCAMemory, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	meta, exists := kr.arrayMetadata[name]
	if !exists {
		return nil, fmt.Errorf("array %s not found", name)
	}
	if meta.DataType != builder.Float64 {
		return nil, fmt.Errorf("type mismatch: array %s is %s, requested double",
			name, TypeName(meta.DataType))
	}
	if length > meta.Length {
		return nil, fmt.Errorf("array %s holds %d elements, %d requested",
			name, meta.Length, length)
	}
	return kr.PooledMemory[name], nil
}

// CopyToDevice copies host into the front of device array name
func (kr *Runner) CopyToDevice(name string, host []float64) error {
	if len(host) == 0 {
		return nil
	}
	mem, err := kr.checkFloat64Array(name, len(host))
	if err != nil {
		return fmt.Errorf("failed to copy %s to device: %w", name, err)
	}
	mem.CopyFrom(unsafe.Pointer(&host[0]), int64(len(host)*8))
	return nil
}

// CopyFromDevice fills host from the front of device array name
func (kr *Runner) CopyFromDevice(name string, host []float64) error {
	if len(host) == 0 {
		return nil
	}
	mem, err := kr.checkFloat64Array(name, len(host))
	if err != nil {
		return fmt.Errorf("failed to copy %s from device: %w", name, err)
	}
	mem.CopyTo(unsafe.Pointer(&host[0]), int64(len(host)*8))
	return nil
}
