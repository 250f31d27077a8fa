//go:build amd64

package simd

import "golang.org/x/sys/cpu"

// HasAVX2 reports whether the running CPU supports AVX2. Scan itself
// is pure Go on every architecture (see package doc) and does not
// consult it; this is kept so callers that log capability info still
// see accurate hardware facts.
func HasAVX2() bool {
	return cpu.X86.HasAVX2
}
