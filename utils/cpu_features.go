package utils

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// HostFeatures summarises the SIMD extensions the host kernels can use,
// e.g. "amd64: sse4 avx avx2 fma"
func HostFeatures() string {
	var features []string
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 || cpu.X86.HasSSE42 {
			features = append(features, "sse4")
		}
		if cpu.X86.HasAVX {
			features = append(features, "avx")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "avx2")
		}
		if cpu.X86.HasFMA {
			features = append(features, "fma")
		}
		if cpu.X86.HasAVX512F {
			features = append(features, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "neon")
		}
		if cpu.ARM64.HasSVE {
			features = append(features, "sve")
		}
	}
	if len(features) == 0 {
		return runtime.GOARCH + ": scalar"
	}
	return runtime.GOARCH + ": " + strings.Join(features, " ")
}
