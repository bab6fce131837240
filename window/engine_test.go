package window

import (
	"fmt"
	"testing"

	"github.com/notargets/SlidingWindow/memspace"
	"github.com/notargets/SlidingWindow/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEngine_HostPlainMatchesFunctions(t *testing.T) {
	vals := uniform(2000, 9)
	e := NewEngine(WithLogger(zaptest.NewLogger(t)))
	defer e.Close()

	naive, err := e.Compute(vals, 20, Naive, memspace.HostPlain)
	require.NoError(t, err)
	expected, err := NaiveSum(vals, 20)
	require.NoError(t, err)
	assertBitIdentical(t, expected, naive)

	incremental, err := e.Compute(vals, 20, Incremental, memspace.HostPlain)
	require.NoError(t, err)
	expected, err = IncrementalSum(vals, 20)
	require.NoError(t, err)
	assertBitIdentical(t, expected, incremental)
}

func TestEngine_Options(t *testing.T) {
	e := NewEngine(
		WithReseedInterval(-5),
		WithHostKernel(nil),
		WithLogger(nil),
	)
	assert.Equal(t, 0, e.ReseedInterval())
	assert.False(t, e.HasDevice())

	e = NewEngine(WithReseedInterval(32), WithHostKernel(VecmathKernel{}))
	assert.Equal(t, 32, e.ReseedInterval())

	vals := uniform(500, 1)
	sums, err := e.Compute(vals, 10, Incremental, memspace.HostPlain)
	require.NoError(t, err)
	expected, err := IncrementalSumReseeded(vals, 10, 32)
	require.NoError(t, err)
	assertBitIdentical(t, expected, sums)
}

func TestEngine_RejectsInvalidWindowInEverySpace(t *testing.T) {
	e := NewEngine()
	vals := []float64{1, 2, 3}
	for _, space := range []memspace.Space{memspace.HostPlain, memspace.HostPinned, memspace.Device} {
		for _, algo := range []Algorithm{Naive, Incremental} {
			t.Run(algo.String()+"/"+space.String(), func(t *testing.T) {
				_, err := e.Compute(vals, 0, algo, space)
				assert.ErrorIs(t, err, ErrInvalidWindow)
				_, err = e.Compute(vals, 4, algo, space)
				assert.ErrorIs(t, err, ErrInvalidWindow)
			})
		}
	}
}

func TestEngine_DeviceUnavailable(t *testing.T) {
	e := NewEngine()
	vals := []float64{1, 2, 3, 4}

	for _, space := range []memspace.Space{memspace.HostPinned, memspace.Device} {
		_, err := e.Compute(vals, 2, Naive, space)
		assert.ErrorIs(t, err, ErrDeviceUnavailable, space.String())
	}

	_, err := e.Upload(vals)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	_, err = e.ComputeDevice(nil, 2, Naive)
	assert.ErrorIs(t, err, ErrExecution)
}

func TestEngine_Unsupported(t *testing.T) {
	e := NewEngine()
	vals := []float64{1, 2, 3, 4}

	_, err := e.Compute(vals, 2, Algorithm(9), memspace.HostPlain)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = e.Compute(vals, 2, Naive, memspace.Space(9))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestError_Formatting(t *testing.T) {
	err := Validate(3, 5)
	require.Error(t, err)
	assert.Equal(t, "window: InvalidWindow in Validate: window 5 exceeds series length 3", err.Error())
	assert.Equal(t, "window: AllocationFailure", ErrAllocation.Error())
	assert.NotErrorIs(t, err, ErrAllocation)
	assert.Equal(t, ErrorKind(0), KindOf(assert.AnError))
	assert.Equal(t, "Unknown", ErrorKind(0).String())
}

func TestEngine_UploadPinnedRejectsEmpty(t *testing.T) {
	_, err := NewEngine().UploadPinned(nil)
	assert.ErrorIs(t, err, ErrAllocation)
}

// A series whose runner is not the engine's current one was released by Close
func TestEngine_StaleSeriesIsRejected(t *testing.T) {
	e := NewEngine()
	ds := &DeviceSeries{engine: e, runner: &runner.Runner{}, name: "vals_1", n: 4}

	_, err := e.ComputeDevice(ds, 2, Naive)
	assert.ErrorIs(t, err, ErrExecution)
	_, err = ds.ToHost()
	assert.ErrorIs(t, err, ErrExecution)
}

func TestAllocationError_Classification(t *testing.T) {
	err := allocationError("Upload", "allocating device input",
		fmt.Errorf("%w: vals_1 (32 bytes): uninitialized", runner.ErrDeviceAlloc))
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, runner.ErrDeviceAlloc)

	err = allocationError("Upload", "allocating device input", fmt.Errorf("array vals_1 already allocated"))
	assert.ErrorIs(t, err, ErrExecution)
}
