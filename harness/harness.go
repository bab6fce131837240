// Package harness runs windowed-sum variants on one input, times each one
// and cross-checks their outputs. Disagreement is reported, never fatal.
package harness

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/notargets/SlidingWindow/memspace"
	"github.com/notargets/SlidingWindow/utils"
	"github.com/notargets/SlidingWindow/window"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultPreviewLen is how many leading values are logged per series
const DefaultPreviewLen = 10

// Variant is one (algorithm, memory space) instantiation of the engine
type Variant struct {
	Algorithm window.Algorithm
	Space     memspace.Space
}

// Name labels the variant, e.g. "naive/host"
func (v Variant) Name() string {
	return v.Algorithm.String() + "/" + v.Space.String()
}

// ParseVariant is the inverse of Name
func ParseVariant(name string) (Variant, error) {
	algoName, spaceName, ok := strings.Cut(name, "/")
	if !ok {
		return Variant{}, fmt.Errorf("variant %q is not algorithm/space", name)
	}
	algo, err := window.ParseAlgorithm(algoName)
	if err != nil {
		return Variant{}, err
	}
	space, err := memspace.ParseSpace(spaceName)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Algorithm: algo, Space: space}, nil
}

// AllVariants lists the six instantiations, host first
func AllVariants() []Variant {
	var variants []Variant
	for _, space := range []memspace.Space{memspace.HostPlain, memspace.HostPinned, memspace.Device} {
		for _, algo := range []window.Algorithm{window.Naive, window.Incremental} {
			variants = append(variants, Variant{Algorithm: algo, Space: space})
		}
	}
	return variants
}

// Divergence records a variant that disagreed with the reference
type Divergence struct {
	Reference string
	Variant   string
	Result    MatchResult
}

// Report collects everything one Run observed
type Report struct {
	RunID  string
	N      int
	Window int
	// Order lists variant names in the order they ran
	Order []string
	// Timings maps variant name to elapsed milliseconds, failures included
	Timings map[string]float64
	Results map[string][]float64
	Errors  map[string]error
	// Reference is the variant every other result was compared against
	Reference   string
	Tolerance   Tolerance
	Divergences []Divergence
}

// Err combines the per-variant errors in run order; nil when all ran
func (r *Report) Err() error {
	var err error
	for _, name := range r.Order {
		if e, ok := r.Errors[name]; ok {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, e))
		}
	}
	return err
}

// Diverged reports whether any variant disagreed with the reference
func (r *Report) Diverged() bool {
	return len(r.Divergences) > 0
}

// Harness runs and cross-checks engine variants
type Harness struct {
	logger     *zap.Logger
	tol        Tolerance
	previewLen int
}

// New creates a Harness; a nil logger discards output
func New(logger *zap.Logger, tol Tolerance) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{logger: logger, tol: tol, previewLen: DefaultPreviewLen}
}

// Run executes every variant on vals, timing each one, then compares all
// successful results with the first successful one. A failing or
// divergent variant does not stop the others.
func (h *Harness) Run(vals []float64, w int, engine *window.Engine, variants []Variant) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		N:         len(vals),
		Window:    w,
		Timings:   make(map[string]float64),
		Results:   make(map[string][]float64),
		Errors:    make(map[string]error),
		Tolerance: h.tol,
	}
	logger := h.logger.With(zap.String("run_id", report.RunID))

	logger.Info("starting run",
		zap.Int("n", len(vals)),
		zap.Int("window", w),
		zap.Int("variants", len(variants)),
		zap.Bool("device", engine.HasDevice()),
		zap.Int("reseed_interval", engine.ReseedInterval()),
		zap.String("host", utils.HostFeatures()))
	logger.Info("input preview", zap.Float64s("vals", h.preview(vals)))

	for _, v := range variants {
		name := v.Name()
		if _, seen := report.Timings[name]; seen {
			logger.Warn("skipping repeated variant", zap.String("variant", name))
			continue
		}
		report.Order = append(report.Order, name)

		sums, timing, err := TimeAndRun(name, func() ([]float64, error) {
			return engine.Compute(vals, w, v.Algorithm, v.Space)
		})
		report.Timings[name] = timing.Milliseconds()

		if err != nil {
			report.Errors[name] = err
			logger.Error("variant failed",
				zap.String("variant", name),
				zap.Float64("elapsed_ms", timing.Milliseconds()),
				zap.String("kind", window.KindOf(err).String()),
				zap.Error(err))
			continue
		}
		report.Results[name] = sums
		logger.Info("variant finished",
			zap.String("variant", name),
			zap.Float64("elapsed_ms", timing.Milliseconds()),
			zap.Int("sums", len(sums)),
			zap.Float64s("preview", h.preview(sums)))
	}

	h.crossCheck(logger, report)
	return report
}

// crossCheck compares each result with the first successful variant
func (h *Harness) crossCheck(logger *zap.Logger, report *Report) {
	for _, name := range report.Order {
		if _, ok := report.Results[name]; ok {
			report.Reference = name
			break
		}
	}
	if report.Reference == "" {
		return
	}
	ref := report.Results[report.Reference]

	for _, name := range report.Order {
		sums, ok := report.Results[name]
		if !ok || name == report.Reference {
			continue
		}
		result := Compare(sums, ref, h.tol)
		if result.Match {
			logger.Info("variants agree",
				zap.String("reference", report.Reference),
				zap.String("variant", name),
				zap.Float64("max_abs_diff", result.MaxAbsDiff))
			continue
		}
		report.Divergences = append(report.Divergences, Divergence{
			Reference: report.Reference,
			Variant:   name,
			Result:    result,
		})
		logger.Warn("numeric divergence",
			zap.String("reference", report.Reference),
			zap.String("variant", name),
			zap.Int("index", result.First.Index),
			zap.Float64("value", result.First.ValueA),
			zap.Float64("reference_value", result.First.ValueB),
			zap.Int("count", result.Count),
			zap.Float64("max_abs_diff", result.MaxAbsDiff))
	}
}

func (h *Harness) preview(vals []float64) []float64 {
	if len(vals) > h.previewLen {
		return vals[:h.previewLen]
	}
	return vals
}

// UniformSeries returns n values drawn uniformly from [0, 1)
func UniformSeries(n int, seed uint64) []float64 {
	dist := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, seed+1)}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = dist.Rand()
	}
	return vals
}
