package runner

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/notargets/SlidingWindow/runner/builder"
	"github.com/notargets/gocca"
)

// ArrayMetadata stores information about allocated arrays
type ArrayMetadata struct {
	Length   int
	DataType builder.DataType
}

// Runner orchestrates kernel compilation, device memory and execution
type Runner struct {
	*builder.Builder
	Device        *gocca.OCCADevice
	Kernels       map[string]*gocca.OCCAKernel
	PooledMemory  map[string]*gocca.OCCAMemory
	arrayMetadata map[string]ArrayMetadata
	mu            sync.Mutex

	// malloc backs every pooled allocation; deviceMalloc outside tests
	malloc func(bytes int64, src unsafe.Pointer) (*gocca.OCCAMemory, error)
}

// NewRunner creates a new Runner instance
func NewRunner(device *gocca.OCCADevice, Config builder.Config) (kr *Runner) {
	if device == nil {
		panic("NewRunner requires a non-nil Device")
	}
	bld := builder.NewBuilder(Config)
	bld.GeneratePreamble()

	kr = &Runner{
		Builder:       bld,
		Device:        device,
		Kernels:       make(map[string]*gocca.OCCAKernel),
		PooledMemory:  make(map[string]*gocca.OCCAMemory),
		arrayMetadata: make(map[string]ArrayMetadata),
	}
	kr.malloc = kr.deviceMalloc
	return
}

// BuildKernel compiles and registers a kernel with the preamble prepended.
// A kernel already registered under kernelName is returned as is.
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	if kernel, exists := kr.Kernels[kernelName]; exists {
		return kernel, nil
	}

	// Combine preamble with kernel source
	fullSource := kr.KernelPreamble + "\n" + kernelSource

	var kernel *gocca.OCCAKernel
	var err error

	if kr.Device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		// Other devices work correctly with default flags
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}

	kr.Kernels[kernelName] = kernel
	return kernel, nil
}

// RunKernel launches a compiled kernel and blocks until the device is idle,
// so results are complete before any copy back.
func (kr *Runner) RunKernel(kernelName string, args ...interface{}) error {
	kr.mu.Lock()
	kernel, exists := kr.Kernels[kernelName]
	kr.mu.Unlock()
	if !exists {
		return fmt.Errorf("kernel %s not compiled - use BuildKernel first", kernelName)
	}

	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}

	kr.Device.Finish()
	return nil
}

// IntArg converts v to the Go type matching int_t
func (kr *Runner) IntArg(v int) interface{} {
	if kr.IntType == builder.INT32 {
		return int32(v)
	}
	return int64(v)
}

// GetMemory returns the device memory for a named array
func (kr *Runner) GetMemory(arrayName string) *gocca.OCCAMemory {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return kr.PooledMemory[arrayName]
}

// GetArrayMetadata returns metadata for a named array
func (kr *Runner) GetArrayMetadata(arrayName string) (ArrayMetadata, bool) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	meta, exists := kr.arrayMetadata[arrayName]
	return meta, exists
}

// GetAllocatedArrays returns a sorted list of allocated array names
func (kr *Runner) GetAllocatedArrays() []string {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	arrays := make([]string, 0, len(kr.arrayMetadata))
	for name := range kr.arrayMetadata {
		arrays = append(arrays, name)
	}
	SortStrings(arrays)
	return arrays
}

// Release frees one named array. Releasing an unknown name is a no-op.
func (kr *Runner) Release(arrayName string) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	if mem, exists := kr.PooledMemory[arrayName]; exists {
		mem.Free()
		delete(kr.PooledMemory, arrayName)
	}
	delete(kr.arrayMetadata, arrayName)
}

// Free releases all resources
func (kr *Runner) Free() {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	// Free Kernels
	for name, kernel := range kr.Kernels {
		kernel.Free()
		delete(kr.Kernels, name)
	}

	// Free memory
	for name, mem := range kr.PooledMemory {
		mem.Free()
		delete(kr.PooledMemory, name)
	}
	kr.arrayMetadata = make(map[string]ArrayMetadata)
}
