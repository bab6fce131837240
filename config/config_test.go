package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/SlidingWindow/harness"
	"github.com/notargets/SlidingWindow/memspace"
	"github.com/notargets/SlidingWindow/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1_000_000, cfg.NumVals)
	assert.Equal(t, 4000, cfg.Window)
	assert.False(t, cfg.Strict)
	assert.Equal(t, harness.DefaultTolerance(), cfg.Tolerance())

	variants, err := cfg.ParsedVariants()
	require.NoError(t, err)
	assert.Equal(t, []harness.Variant{
		{Algorithm: window.Naive, Space: memspace.HostPlain},
		{Algorithm: window.Incremental, Space: memspace.HostPlain},
		{Algorithm: window.Naive, Space: memspace.HostPinned},
	}, variants)
	assert.True(t, cfg.NeedsDevice())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
num_vals: 5000
window: 50
variants: [naive/host, incremental/device]
reseed_interval: 128
atol: 1.0e-9
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.NumVals)
	assert.Equal(t, 50, cfg.Window)
	assert.Equal(t, []string{"naive/host", "incremental/device"}, cfg.Variants)
	assert.Equal(t, 128, cfg.ReseedInterval)
	assert.Equal(t, 1e-9, cfg.Atol)
	// untouched keys keep defaults
	assert.Equal(t, Default().Rtol, cfg.Rtol)
	assert.Equal(t, "gonum", cfg.HostKernel)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestRegisterFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-n", "1000", "-window", "10",
		"-variants", "naive/host, naive/device",
		"-device", `{"mode": "Serial"}`,
		"-host-kernel", "vecmath", "-reseed", "64", "-log-level", "debug", "-strict",
	}))
	assert.True(t, cfg.Strict)
	assert.Equal(t, 1000, cfg.NumVals)
	assert.Equal(t, 10, cfg.Window)
	assert.Equal(t, []string{"naive/host", "naive/device"}, cfg.Variants)
	assert.Equal(t, []string{`{"mode": "Serial"}`}, cfg.DeviceProps)
	assert.Equal(t, "vecmath", cfg.HostKernel)
	assert.Equal(t, 64, cfg.ReseedInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"window_zero", func(c *Config) { c.Window = 0 }},
		{"window_too_large", func(c *Config) { c.Window = c.NumVals + 1 }},
		{"no_variants", func(c *Config) { c.Variants = nil }},
		{"bad_variant", func(c *Config) { c.Variants = []string{"naive/gpu"} }},
		{"bad_host_kernel", func(c *Config) { c.HostKernel = "blas" }},
		{"block_too_large", func(c *Config) { c.BlockSize = 4096 }},
		{"negative_reseed", func(c *Config) { c.ReseedInterval = -1 }},
		{"negative_tolerance", func(c *Config) { c.Atol = -1 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Window = 0
	assert.ErrorIs(t, cfg.Validate(), window.ErrInvalidWindow)
}

func TestParsedVariants_All(t *testing.T) {
	cfg := Default()
	cfg.Variants = []string{"all"}
	variants, err := cfg.ParsedVariants()
	require.NoError(t, err)
	assert.Equal(t, harness.AllVariants(), variants)

	cfg.Variants = []string{"naive/host", "incremental/host"}
	assert.False(t, cfg.NeedsDevice())
}
