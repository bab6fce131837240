package harness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tolerance bounds elementwise disagreement: |a-b| <= Atol + Rtol*|b|
type Tolerance struct {
	Atol float64 `yaml:"atol"`
	Rtol float64 `yaml:"rtol"`
}

// DefaultTolerance is the bound naive and incremental sums must meet on
// well-conditioned input
func DefaultTolerance() Tolerance {
	return Tolerance{Atol: 1e-6, Rtol: 1e-5}
}

// Close reports whether a is within tolerance of b. NaN is never close.
func (tol Tolerance) Close(a, b float64) bool {
	return math.Abs(a-b) <= tol.Atol+tol.Rtol*math.Abs(b)
}

// Mismatch locates the first disagreeing element. A value missing because
// the series are of different lengths is NaN.
type Mismatch struct {
	Index  int
	ValueA float64
	ValueB float64
}

// MatchResult is the outcome of Compare
type MatchResult struct {
	Match bool
	// First is nil when Match is true
	First *Mismatch
	// Count of elements outside tolerance, including unpaired ones
	Count int
	// MaxAbsDiff over the paired elements
	MaxAbsDiff float64
}

// String formats the result for reports
func (r MatchResult) String() string {
	if r.Match {
		return fmt.Sprintf("match (max |a-b| = %g)", r.MaxAbsDiff)
	}
	return fmt.Sprintf("mismatch at index %d: %v vs %v (%d elements, max |a-b| = %g)",
		r.First.Index, r.First.ValueA, r.First.ValueB, r.Count, r.MaxAbsDiff)
}

// Compare checks a against b elementwise with tol and reports the first
// offending position
func Compare(a, b []float64, tol Tolerance) MatchResult {
	paired := min(len(a), len(b))
	result := MatchResult{Match: true}

	if paired > 0 {
		result.MaxAbsDiff = floats.Distance(a[:paired], b[:paired], math.Inf(1))
	}

	for i := 0; i < paired; i++ {
		if tol.Close(a[i], b[i]) {
			continue
		}
		result.Count++
		if result.First == nil {
			result.First = &Mismatch{Index: i, ValueA: a[i], ValueB: b[i]}
		}
	}

	if len(a) != len(b) {
		result.Count += max(len(a), len(b)) - paired
		if result.First == nil {
			result.First = &Mismatch{Index: paired, ValueA: valueAt(a, paired), ValueB: valueAt(b, paired)}
		}
	}

	result.Match = result.First == nil
	return result
}

func valueAt(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return math.NaN()
}
