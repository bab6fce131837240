package window

import (
	"fmt"
	"strings"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// Algorithm selects how windowed sums are computed
type Algorithm int

const (
	// Naive re-sums every window: W elementwise passes over the output
	// range, O(N*W) additions.
	Naive Algorithm = iota
	// Incremental derives each sum from its predecessor with one
	// subtraction and one addition, O(N). Rounding error is never
	// corrected and can grow along the sequence.
	Incremental
)

// String returns the short name used in variant labels
func (a Algorithm) String() string {
	switch a {
	case Naive:
		return "naive"
	case Incremental:
		return "incremental"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm is the inverse of String
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "naive":
		return Naive, nil
	case "incremental", "alt":
		return Incremental, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", name)
	}
}

// HostKernel provides the elementwise add used by the naive passes.
// Implementations must add element by element so results do not depend
// on the kernel chosen.
type HostKernel interface {
	Name() string
	AddInPlace(dst, src []float64)
}

// GonumKernel adds with gonum's floats package
type GonumKernel struct{}

// Name implements HostKernel
func (GonumKernel) Name() string { return "gonum" }

// AddInPlace implements HostKernel: dst[i] += src[i]
func (GonumKernel) AddInPlace(dst, src []float64) { floats.Add(dst, src) }

// VecmathKernel adds with algo-vecmath's AVX2/NEON dispatch
type VecmathKernel struct{}

// Name implements HostKernel
func (VecmathKernel) Name() string { return "vecmath" }

// AddInPlace implements HostKernel: dst[i] += src[i]
func (VecmathKernel) AddInPlace(dst, src []float64) { vecmath.AddBlockInPlace(dst, src) }

// ParseHostKernel maps a kernel name to its implementation
func ParseHostKernel(name string) (HostKernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gonum":
		return GonumKernel{}, nil
	case "vecmath", "simd":
		return VecmathKernel{}, nil
	default:
		return nil, fmt.Errorf("unknown host kernel %q", name)
	}
}

// Validate checks 1 <= window <= n
func Validate(n, window int) error {
	if window <= 0 {
		return newError(InvalidWindow, "Validate",
			fmt.Sprintf("window must be positive, got %d", window), nil)
	}
	if window > n {
		return newError(InvalidWindow, "Validate",
			fmt.Sprintf("window %d exceeds series length %d", window, n), nil)
	}
	return nil
}

// NumSums returns the output length for a valid (n, window): n - window.
// window == n therefore yields an empty series.
func NumSums(n, window int) int {
	return n - window
}

// Total returns the sum of the whole series
func Total(vals []float64) float64 {
	return floats.Sum(vals)
}

// NaiveSum computes sums[i] = sum(vals[i:i+window]) for i in [0, n-window)
// by adding the shifted slice vals[k:k+n-window] into a zeroed
// accumulator for every k in [0, window).
func NaiveSum(vals []float64, window int) ([]float64, error) {
	return naiveSum(GonumKernel{}, vals, window)
}

// IncrementalSum computes the same sums as NaiveSum with the recurrence
// sums[i] = sums[i-1] - vals[i-1] + vals[i+window-1].
func IncrementalSum(vals []float64, window int) ([]float64, error) {
	return incrementalSum(vals, window, 0)
}

// IncrementalSumReseeded is IncrementalSum with every reseed-th output
// recomputed directly, bounding drift. reseed <= 0 disables reseeding.
func IncrementalSumReseeded(vals []float64, window, reseed int) ([]float64, error) {
	return incrementalSum(vals, window, reseed)
}

func naiveSum(kernel HostKernel, vals []float64, window int) ([]float64, error) {
	if err := Validate(len(vals), window); err != nil {
		return nil, err
	}
	numSums := NumSums(len(vals), window)
	sums := make([]float64, numSums)
	if numSums == 0 {
		return sums, nil
	}
	for k := 0; k < window; k++ {
		kernel.AddInPlace(sums, vals[k:k+numSums])
	}
	return sums, nil
}

func incrementalSum(vals []float64, window, reseed int) ([]float64, error) {
	if err := Validate(len(vals), window); err != nil {
		return nil, err
	}
	numSums := NumSums(len(vals), window)
	sums := make([]float64, numSums)
	if numSums == 0 {
		return sums, nil
	}

	sums[0] = directSum(vals[:window])
	for i := 1; i < numSums; i++ {
		if reseed > 0 && i%reseed == 0 {
			sums[i] = directSum(vals[i : i+window])
			continue
		}
		sums[i] = sums[i-1] - vals[i-1] + vals[i+window-1]
	}
	return sums, nil
}

// directSum adds left to right; the device kernels seed in the same order
func directSum(x []float64) float64 {
	var acc float64
	for _, v := range x {
		acc += v
	}
	return acc
}
