//go:build !amd64

package simd

// HasAVX2 always reports false on non-AMD64 architectures.
func HasAVX2() bool {
	return false
}
