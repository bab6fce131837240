package window

import (
	"github.com/notargets/SlidingWindow/memspace"
	"github.com/notargets/SlidingWindow/runner"
	"github.com/notargets/SlidingWindow/runner/builder"
	"go.uber.org/zap"
)

// DeviceSeries is an owning handle on a series resident in device memory.
// It belongs to the Engine that uploaded it and must be released with Free.
type DeviceSeries struct {
	engine *Engine
	runner *runner.Runner
	name   string
	n      int
}

// Len returns the number of values in the series
func (ds *DeviceSeries) Len() int {
	return ds.n
}

// live reports whether the series' memory still exists: it is not freed
// and its engine has not been closed since the upload
func (ds *DeviceSeries) live() bool {
	if ds == nil || ds.runner == nil {
		return false
	}
	ds.engine.mu.Lock()
	defer ds.engine.mu.Unlock()
	return ds.runner == ds.engine.runner
}

// ToHost copies the series into a new host slice
func (ds *DeviceSeries) ToHost() ([]float64, error) {
	if !ds.live() {
		return nil, newError(Execution, "ToHost", "series freed or engine closed", nil)
	}
	vals, err := runner.CopyArrayToHost[float64](ds.runner, ds.name)
	if err != nil {
		return nil, newError(Execution, "ToHost", ds.name, err)
	}
	return vals, nil
}

// Free releases the device memory. Calling Free twice is a no-op.
func (ds *DeviceSeries) Free() {
	if ds == nil || ds.runner == nil {
		return
	}
	ds.runner.Release(ds.name)
	ds.runner = nil
}

// Upload copies vals into a new device-resident series
func (e *Engine) Upload(vals []float64) (*DeviceSeries, error) {
	kr, err := e.deviceRunner()
	if err != nil {
		return nil, err
	}
	return e.upload(kr, vals)
}

// UploadPinned copies a page-locked host buffer into a new device-resident
// series. p stays owned by the caller.
func (e *Engine) UploadPinned(p *memspace.PinnedBuffer) (*DeviceSeries, error) {
	if p == nil || p.Len() == 0 {
		return nil, newError(AllocationFailure, "UploadPinned", "pinned buffer is empty or freed", nil)
	}
	kr, err := e.deviceRunner()
	if err != nil {
		return nil, err
	}

	name := e.arrayName("vals")
	if err := kr.Malloc(name, p.Len(), builder.Float64); err != nil {
		return nil, allocationError("UploadPinned", "allocating device input", err)
	}
	if err := kr.CopyToDevice(name, p.Float64s()); err != nil {
		kr.Release(name)
		return nil, newError(Execution, "UploadPinned", "copying pinned input", err)
	}
	return &DeviceSeries{engine: e, runner: kr, name: name, n: p.Len()}, nil
}

func (e *Engine) upload(kr *runner.Runner, vals []float64) (*DeviceSeries, error) {
	name := e.arrayName("vals")
	if err := kr.MallocFrom(name, vals); err != nil {
		return nil, allocationError("Upload", "allocating device input", err)
	}
	return &DeviceSeries{engine: e, runner: kr, name: name, n: len(vals)}, nil
}

// ComputeDevice runs algo over a series already resident on the device and
// copies the sums back to host memory. ds is left untouched.
func (e *Engine) ComputeDevice(ds *DeviceSeries, window int, algo Algorithm) ([]float64, error) {
	if ds == nil || ds.runner == nil {
		return nil, newError(Execution, "ComputeDevice", "series is nil or freed", nil)
	}
	if ds.engine != e {
		return nil, newError(Unsupported, "ComputeDevice",
			"series was uploaded by a different engine", nil)
	}
	if !ds.live() {
		return nil, newError(Execution, "ComputeDevice", "engine closed since the series was uploaded", nil)
	}
	if err := Validate(ds.n, window); err != nil {
		return nil, err
	}
	if algo != Naive && algo != Incremental {
		return nil, newError(Unsupported, "ComputeDevice", algo.String(), nil)
	}
	if NumSums(ds.n, window) == 0 {
		return []float64{}, nil
	}
	return e.computeOnDevice(ds.runner, ds, window, algo)
}

// computeOnDevice allocates the accumulator, launches the kernel compiled
// by deviceRunner, waits for it and copies the result back. The
// accumulator is released on every path before returning.
func (e *Engine) computeOnDevice(kr *runner.Runner, ds *DeviceSeries, window int,
	algo Algorithm) ([]float64, error) {
	numSums := NumSums(ds.n, window)

	sumsName := e.arrayName("sums")
	if err := kr.Malloc(sumsName, numSums, builder.Float64); err != nil {
		return nil, allocationError("ComputeDevice", "allocating device sums", err)
	}
	defer kr.Release(sumsName)

	vals, sumsMem := kr.GetMemory(ds.name), kr.GetMemory(sumsName)
	if vals == nil || sumsMem == nil {
		return nil, newError(Execution, "ComputeDevice", "device arrays released during compute", nil)
	}

	var err error
	switch algo {
	case Naive:
		err = kr.RunKernel(builder.NaiveKernelName,
			kr.IntArg(numSums), kr.IntArg(window), vals, sumsMem)
	case Incremental:
		err = kr.RunKernel(builder.IncrementalKernelName,
			kr.IntArg(numSums), kr.IntArg(window), kr.IntArg(e.reseed), vals, sumsMem)
	}
	if err != nil {
		return nil, newError(Execution, "ComputeDevice", algo.String(), err)
	}

	sums := make([]float64, numSums)
	if err := kr.CopyFromDevice(sumsName, sums); err != nil {
		return nil, newError(Execution, "ComputeDevice", "copying sums to host", err)
	}

	tailStart, tailEnd := kr.PartitionRange(numSums, kr.NumPartitions(numSums)-1)
	e.logger.Debug("device compute finished",
		zap.String("algorithm", algo.String()),
		zap.String("mode", kr.Device.Mode()),
		zap.Int("partitions", kr.NumPartitions(numSums)),
		zap.Int("tail_partition_outputs", tailEnd-tailStart))
	return sums, nil
}
