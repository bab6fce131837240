package builder

import (
	"fmt"
	"strings"
)

// KernelArg describes one parameter of a generated kernel
type KernelArg struct {
	Name    string
	Type    string // real_t*, int_t
	IsConst bool
}

// Kernel names generated by this package
const (
	NaiveKernelName       = "naiveWindowSum"
	IncrementalKernelName = "incrementalWindowSum"
)

// naiveArgs and incrementalArgs fix the launch order used by the runner
var (
	naiveArgs = []KernelArg{
		{Name: "numSums", Type: "int_t", IsConst: true},
		{Name: "window", Type: "int_t", IsConst: true},
		{Name: "vals", Type: "real_t*", IsConst: true},
		{Name: "sums", Type: "real_t*"},
	}
	incrementalArgs = []KernelArg{
		{Name: "numSums", Type: "int_t", IsConst: true},
		{Name: "window", Type: "int_t", IsConst: true},
		{Name: "reseed", Type: "int_t", IsConst: true},
		{Name: "vals", Type: "real_t*", IsConst: true},
		{Name: "sums", Type: "real_t*"},
	}
)

// GenerateKernelSignature generates the parameter list for a kernel
func GenerateKernelSignature(args []KernelArg) string {
	params := make([]string, 0, len(args))
	for _, karg := range args {
		constStr := ""
		if karg.IsConst {
			constStr = "const "
		}
		params = append(params, fmt.Sprintf("%s%s %s", constStr, karg.Type, karg.Name))
	}
	return strings.Join(params, ",\n\t")
}

// GenerateKernelDeclaration generates a complete kernel function declaration
func GenerateKernelDeclaration(kernelName string, args []KernelArg) string {
	return fmt.Sprintf("@kernel void %s(\n\t%s\n)",
		kernelName,
		GenerateKernelSignature(args))
}

// NaiveWindowKernel generates the re-summation kernel. Each output lane
// accumulates vals[idx+0], vals[idx+1], ... in order from REAL_ZERO, which
// is the same rounding sequence as the host accumulator passes.
func (kb *Builder) NaiveWindowKernel() string {
	var sb strings.Builder
	sb.WriteString(GenerateKernelDeclaration(NaiveKernelName, naiveArgs))
	sb.WriteString(` {
	for (int part = 0; part < NPART(numSums); ++part; @outer) {
		for (int lane = 0; lane < BLOCK; ++lane; @inner) {
			const int_t idx = OUTPUT_INDEX(part, lane);
			if (idx < numSums) {
				real_t acc = REAL_ZERO;
				for (int_t k = 0; k < window; ++k) {
					acc += vals[idx + k];
				}
				sums[idx] = acc;
			}
		}
	}
}
`)
	return sb.String()
}

// IncrementalWindowKernel generates the sliding-update kernel. The
// recurrence is a strict dependency chain, so it runs in one work-item.
// reseed > 0 recomputes every reseed-th output directly.
func (kb *Builder) IncrementalWindowKernel() string {
	var sb strings.Builder
	sb.WriteString(GenerateKernelDeclaration(IncrementalKernelName, incrementalArgs))
	sb.WriteString(` {
	for (int part = 0; part < 1; ++part; @outer) {
		for (int lane = 0; lane < 1; ++lane; @inner) {
			if (numSums > 0) {
				real_t acc = REAL_ZERO;
				for (int_t k = 0; k < window; ++k) {
					acc += vals[k];
				}
				sums[0] = acc;
				for (int_t j = 1; j < numSums; ++j) {
					if (reseed > 0 && j % reseed == 0) {
						acc = REAL_ZERO;
						for (int_t k = 0; k < window; ++k) {
							acc += vals[j + k];
						}
					} else {
						acc = acc - vals[j - 1] + vals[j + window - 1];
					}
					sums[j] = acc;
				}
			}
		}
	}
}
`)
	return sb.String()
}
