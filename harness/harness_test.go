package harness

import (
	"testing"

	"github.com/notargets/SlidingWindow/memspace"
	"github.com/notargets/SlidingWindow/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestVariant_NameRoundTrip(t *testing.T) {
	variants := AllVariants()
	require.Len(t, variants, 6)
	for _, v := range variants {
		parsed, err := ParseVariant(v.Name())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
	assert.Equal(t, "naive/pinned", Variant{window.Naive, memspace.HostPinned}.Name())

	for _, bad := range []string{"naive", "fft/host", "naive/texture"} {
		_, err := ParseVariant(bad)
		assert.Error(t, err, bad)
	}
}

func TestUniformSeries(t *testing.T) {
	vals := UniformSeries(10000, 7)
	require.Len(t, vals, 10000)
	for _, v := range vals {
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
	assert.Equal(t, vals, UniformSeries(10000, 7))
	assert.NotEqual(t, vals, UniformSeries(10000, 8))
}

func TestHarness_RunHostVariants(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := New(zap.New(core), DefaultTolerance())

	vals := UniformSeries(20000, 1)
	engine := window.NewEngine()
	variants := []Variant{
		{window.Naive, memspace.HostPlain},
		{window.Incremental, memspace.HostPlain},
	}

	report := h.Run(vals, 500, engine, variants)
	require.NoError(t, report.Err())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"naive/host", "incremental/host"}, report.Order)
	assert.Equal(t, "naive/host", report.Reference)
	assert.Equal(t, DefaultTolerance(), report.Tolerance)
	assert.False(t, report.Diverged())
	for _, name := range report.Order {
		assert.GreaterOrEqual(t, report.Timings[name], 0.0)
		assert.Len(t, report.Results[name], len(vals)-500)
	}

	assert.Equal(t, 1, logs.FilterMessage("input preview").Len())
	assert.Equal(t, 2, logs.FilterMessage("variant finished").Len())
	assert.Equal(t, 1, logs.FilterMessage("variants agree").Len())
	preview := logs.FilterMessage("input preview").All()[0].ContextMap()["vals"]
	assert.Len(t, preview, DefaultPreviewLen)
}

func TestHarness_FailuresDoNotStopRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := New(zap.New(core), DefaultTolerance())

	// No device configured: device variants fail, host variants still run
	report := h.Run([]float64{1, 2, 3, 4, 5}, 2, window.NewEngine(), AllVariants())

	assert.Len(t, report.Order, 6)
	assert.Len(t, report.Timings, 6)
	assert.Len(t, report.Results, 2)
	assert.Len(t, report.Errors, 4)
	for name, err := range report.Errors {
		assert.ErrorIs(t, err, window.ErrDeviceUnavailable, name)
	}
	assert.ErrorIs(t, report.Err(), window.ErrDeviceUnavailable)
	assert.Equal(t, []float64{3, 5, 7}, report.Results["incremental/host"])
	assert.Equal(t, 4, logs.FilterMessage("variant failed").Len())
}

func TestHarness_ReportsDivergence(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := New(zap.New(core), Tolerance{})

	// Large alternating values make the recurrence drift from the re-sum
	vals := make([]float64, 4000)
	for i := range vals {
		if i%2 == 0 {
			vals[i] = 1e16
		} else {
			vals[i] = 1.0 + float64(i%5)
		}
	}
	variants := []Variant{
		{window.Naive, memspace.HostPlain},
		{window.Incremental, memspace.HostPlain},
	}
	report := h.Run(vals, 3, window.NewEngine(), variants)

	require.NoError(t, report.Err())
	require.True(t, report.Diverged())
	div := report.Divergences[0]
	assert.Equal(t, "naive/host", div.Reference)
	assert.Equal(t, "incremental/host", div.Variant)
	require.NotNil(t, div.Result.First)
	idx := div.Result.First.Index
	assert.Equal(t, report.Results["incremental/host"][idx], div.Result.First.ValueA)
	assert.Equal(t, report.Results["naive/host"][idx], div.Result.First.ValueB)
	assert.Equal(t, 1, logs.FilterMessage("numeric divergence").Len())
}

func TestHarness_SkipsRepeatedVariant(t *testing.T) {
	h := New(nil, DefaultTolerance())
	v := Variant{window.Naive, memspace.HostPlain}
	report := h.Run([]float64{1, 2, 3}, 1, window.NewEngine(), []Variant{v, v})
	assert.Equal(t, []string{"naive/host"}, report.Order)
	assert.Empty(t, report.Divergences)
}

func TestHarness_InvalidWindowReportedPerVariant(t *testing.T) {
	h := New(nil, DefaultTolerance())
	report := h.Run([]float64{1, 2, 3}, 0, window.NewEngine(),
		[]Variant{{window.Naive, memspace.HostPlain}})
	assert.ErrorIs(t, report.Errors["naive/host"], window.ErrInvalidWindow)
	assert.Empty(t, report.Reference)
}
