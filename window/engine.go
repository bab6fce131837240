package window

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/notargets/SlidingWindow/memspace"
	"github.com/notargets/SlidingWindow/runner"
	"github.com/notargets/SlidingWindow/runner/builder"
	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// Engine computes windowed sums for any (Algorithm, Space) variant. Host
// variants need no setup; device variants need WithDevice. An Engine
// compiles its device kernels once and reuses them; device arrays live
// only for the call that allocated them.
type Engine struct {
	device    *gocca.OCCADevice
	logger    *zap.Logger
	kernel    HostKernel
	reseed    int
	blockSize int
	intType   builder.DataType

	mu     sync.Mutex
	runner *runner.Runner
	seq    atomic.Uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithDevice enables the pinned and device variants on device. The caller
// keeps ownership of device and frees it after Close.
func WithDevice(device *gocca.OCCADevice) Option {
	return func(e *Engine) { e.device = device }
}

// WithLogger sets the logger for per-call debug output
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithReseedInterval recomputes every interval-th incremental output
// directly. This changes the incremental results and is off (0) by default.
func WithReseedInterval(interval int) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.reseed = interval
		}
	}
}

// WithHostKernel selects the elementwise add of the host naive variant
func WithHostKernel(kernel HostKernel) Option {
	return func(e *Engine) {
		if kernel != nil {
			e.kernel = kernel
		}
	}
}

// WithBlockSize sets the outputs per device partition
func WithBlockSize(blockSize int) Option {
	return func(e *Engine) { e.blockSize = blockSize }
}

// WithIntType selects 32 or 64 bit device indices
func WithIntType(intType builder.DataType) Option {
	return func(e *Engine) { e.intType = intType }
}

// NewEngine creates an Engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:    zap.NewNop(),
		kernel:    GonumKernel{},
		blockSize: builder.DefaultBlockSize,
		intType:   builder.INT64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasDevice reports whether device variants can run
func (e *Engine) HasDevice() bool {
	return e.device != nil
}

// ReseedInterval returns the configured reseed interval, 0 when disabled
func (e *Engine) ReseedInterval() int {
	return e.reseed
}

// Close releases compiled kernels and any device arrays still pooled
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runner != nil {
		e.runner.Free()
		e.runner = nil
	}
}

// Compute returns sums[i] = sum(vals[i:i+window]) for i in [0, len(vals)-window)
// using algo with the input staged in space. vals is never modified. For
// the pinned and device spaces the returned series is a fresh host copy.
func (e *Engine) Compute(vals []float64, window int, algo Algorithm,
	space memspace.Space) ([]float64, error) {
	if err := Validate(len(vals), window); err != nil {
		return nil, err
	}
	if algo != Naive && algo != Incremental {
		return nil, newError(Unsupported, "Compute", algo.String(), nil)
	}

	e.logger.Debug("compute",
		zap.String("algorithm", algo.String()),
		zap.String("space", space.String()),
		zap.Int("n", len(vals)),
		zap.Int("window", window))

	switch space {
	case memspace.HostPlain:
		return e.computeHost(vals, window, algo)
	case memspace.HostPinned:
		return e.computePinned(vals, window, algo)
	case memspace.Device:
		return e.computeDeviceFromHost(vals, window, algo)
	default:
		return nil, newError(Unsupported, "Compute", space.String(), nil)
	}
}

func (e *Engine) computeHost(vals []float64, window int, algo Algorithm) ([]float64, error) {
	if algo == Naive {
		return naiveSum(e.kernel, vals, window)
	}
	return incrementalSum(vals, window, e.reseed)
}

// computePinned stages vals in page-locked memory and uploads from there
func (e *Engine) computePinned(vals []float64, window int, algo Algorithm) (sums []float64, err error) {
	kr, err := e.deviceRunner()
	if err != nil {
		return nil, err
	}
	if NumSums(len(vals), window) == 0 {
		return []float64{}, nil
	}

	pinned, err := memspace.StagePinnedFor(kr.Device, vals)
	if err != nil {
		return nil, newError(AllocationFailure, "Compute", "staging pinned input", err)
	}
	defer func() {
		if freeErr := pinned.Free(); freeErr != nil && err == nil {
			err = newError(Execution, "Compute", "releasing pinned input", freeErr)
		}
	}()

	e.logger.Debug("staged pinned input", zap.String("source", pinned.Source()))

	ds, err := e.UploadPinned(pinned)
	if err != nil {
		return nil, err
	}
	defer ds.Free()

	return e.computeOnDevice(kr, ds, window, algo)
}

func (e *Engine) computeDeviceFromHost(vals []float64, window int, algo Algorithm) ([]float64, error) {
	kr, err := e.deviceRunner()
	if err != nil {
		return nil, err
	}
	if NumSums(len(vals), window) == 0 {
		return []float64{}, nil
	}

	ds, err := e.upload(kr, vals)
	if err != nil {
		return nil, err
	}
	defer ds.Free()

	return e.computeOnDevice(kr, ds, window, algo)
}

// deviceRunner returns the shared runner, creating it on first use
func (e *Engine) deviceRunner() (*runner.Runner, error) {
	if e.device == nil {
		return nil, newError(DeviceUnavailable, "Compute",
			"no device configured; use WithDevice", nil)
	}
	if e.blockSize <= 0 || e.blockSize > builder.MaxBlockSize {
		return nil, newError(Unsupported, "Compute",
			fmt.Sprintf("block size %d outside [1, %d]", e.blockSize, builder.MaxBlockSize), nil)
	}
	if e.intType != builder.INT32 && e.intType != builder.INT64 {
		return nil, newError(Unsupported, "Compute",
			fmt.Sprintf("device index type %s", runner.TypeName(e.intType)), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runner == nil {
		kr := runner.NewRunner(e.device, builder.Config{
			BlockSize: e.blockSize,
			IntType:   e.intType,
		})
		// Compile up front so no timed compute pays for the JIT build
		if err := buildWindowKernels(kr); err != nil {
			kr.Free()
			return nil, newError(Execution, "Compute", "building device kernels", err)
		}
		e.runner = kr
	}
	return e.runner, nil
}

func buildWindowKernels(kr *runner.Runner) error {
	if _, err := kr.BuildKernel(kr.NaiveWindowKernel(), builder.NaiveKernelName); err != nil {
		return err
	}
	_, err := kr.BuildKernel(kr.IncrementalWindowKernel(), builder.IncrementalKernelName)
	return err
}

// arrayName returns a pool name unique for this engine
func (e *Engine) arrayName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, e.seq.Add(1))
}

// allocationError classifies a runner failure
func allocationError(op, message string, err error) error {
	if errors.Is(err, runner.ErrDeviceAlloc) {
		return newError(AllocationFailure, op, message, err)
	}
	return newError(Execution, op, message, err)
}
