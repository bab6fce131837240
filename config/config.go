// Package config holds the run parameters for the sliding-window driver.
// Values start from Default, are overlaid by an optional YAML file and
// finally by command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/notargets/SlidingWindow/harness"
	"github.com/notargets/SlidingWindow/runner/builder"
	"github.com/notargets/SlidingWindow/window"
	"gopkg.in/yaml.v3"
)

// Config describes one harness run
type Config struct {
	NumVals int    `yaml:"num_vals"`
	Window  int    `yaml:"window"`
	Seed    uint64 `yaml:"seed"`

	// Variants are "algorithm/space" names, e.g. "naive/pinned"
	Variants []string `yaml:"variants"`
	// DeviceProps are OCCA property strings tried in order; empty means
	// the default backend list
	DeviceProps []string `yaml:"device_props"`

	ReseedInterval int    `yaml:"reseed_interval"`
	HostKernel     string `yaml:"host_kernel"`
	BlockSize      int    `yaml:"block_size"`

	Atol float64 `yaml:"atol"`
	Rtol float64 `yaml:"rtol"`

	LogLevel string `yaml:"log_level"`
	// Strict turns a numeric divergence between variants into a failed run
	Strict bool `yaml:"strict"`
}

// Default returns the parameters of the reference benchmark run
func Default() Config {
	tol := harness.DefaultTolerance()
	return Config{
		NumVals:    1_000_000,
		Window:     4000,
		Seed:       1,
		Variants:   []string{"naive/host", "incremental/host", "naive/pinned"},
		HostKernel: "gonum",
		BlockSize:  builder.DefaultBlockSize,
		Atol:       tol.Atol,
		Rtol:       tol.Rtol,
		LogLevel:   "info",
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags binds cfg's fields to fs; parse fs after loading any file
// so flags take precedence
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&cfg.NumVals, "n", cfg.NumVals, "number of input values")
	fs.IntVar(&cfg.Window, "window", cfg.Window, "window length")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the input series")
	fs.Func("variants", "comma separated algorithm/space list, or \"all\"", func(s string) error {
		cfg.Variants = splitList(s)
		return nil
	})
	fs.Func("device", "comma separated OCCA device properties to try", func(s string) error {
		cfg.DeviceProps = splitList(s)
		return nil
	})
	fs.IntVar(&cfg.ReseedInterval, "reseed", cfg.ReseedInterval,
		"recompute every k-th incremental sum directly (0 disables)")
	fs.StringVar(&cfg.HostKernel, "host-kernel", cfg.HostKernel, "gonum or vecmath")
	fs.IntVar(&cfg.BlockSize, "block", cfg.BlockSize, "outputs per device partition")
	fs.Float64Var(&cfg.Atol, "atol", cfg.Atol, "absolute comparison tolerance")
	fs.Float64Var(&cfg.Rtol, "rtol", cfg.Rtol, "relative comparison tolerance")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "exit non-zero when variants diverge")
}

// Validate checks the values a run depends on
func (cfg Config) Validate() error {
	if err := window.Validate(cfg.NumVals, cfg.Window); err != nil {
		return err
	}
	if len(cfg.Variants) == 0 {
		return fmt.Errorf("no variants selected")
	}
	if _, err := cfg.ParsedVariants(); err != nil {
		return err
	}
	if _, err := window.ParseHostKernel(cfg.HostKernel); err != nil {
		return err
	}
	if cfg.BlockSize <= 0 || cfg.BlockSize > builder.MaxBlockSize {
		return fmt.Errorf("block size %d outside [1, %d]", cfg.BlockSize, builder.MaxBlockSize)
	}
	if cfg.ReseedInterval < 0 {
		return fmt.Errorf("reseed interval must not be negative, got %d", cfg.ReseedInterval)
	}
	if cfg.Atol < 0 || cfg.Rtol < 0 {
		return fmt.Errorf("tolerances must not be negative")
	}
	return nil
}

// ParsedVariants resolves the variant names; "all" selects every variant
func (cfg Config) ParsedVariants() ([]harness.Variant, error) {
	if len(cfg.Variants) == 1 && strings.EqualFold(cfg.Variants[0], "all") {
		return harness.AllVariants(), nil
	}
	variants := make([]harness.Variant, 0, len(cfg.Variants))
	for _, name := range cfg.Variants {
		v, err := harness.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// NeedsDevice reports whether any selected variant runs on the device
func (cfg Config) NeedsDevice() bool {
	variants, err := cfg.ParsedVariants()
	if err != nil {
		return false
	}
	for _, v := range variants {
		if v.Space.IsDevice() {
			return true
		}
	}
	return false
}

// Tolerance returns the comparison bound
func (cfg Config) Tolerance() harness.Tolerance {
	return harness.Tolerance{Atol: cfg.Atol, Rtol: cfg.Rtol}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
