// Package simd provides structural-byte scanning for the JSONL
// decoder (spec.md §4.6): locating quotes, braces/brackets, and line
// breaks in a byte buffer so the decoder can skip straight to the
// next token boundary instead of parsing byte-by-byte through an
// intermediate object.
//
// Grounded on the teacher's simd package, which produced quote/comma/
// newline bitmaps for CSV scanning one word (64 bytes) at a time; this
// package generalizes the bitmap contract to JSON's structural bytes
// (quote, `{`, `}`, `[`, `]`, newline) in place of CSV's comma. The
// teacher's AMD64 path called into hand-written AVX2/SSE4.2 assembly
// (scan_amd64.go's scanAVX2/scanSSE42); no corresponding .s file
// exists anywhere in the reference pack, so that path is not carried
// forward — every architecture uses the same pure-Go bitmap builder
// below, which visits the input one byte at a time. The CPU-capability probe the teacher's
// dispatch relied on is kept (HasAVX2, in cpu_amd64.go/cpu_generic.go)
// so callers can still log or branch on it, but it no longer gates a
// different scan implementation.
package simd

import "math/bits"

// Bitmaps is the set of structural-byte position bitmaps Scan
// produces: one bit per input byte, set if that byte matches.
type Bitmaps struct {
	Quotes   []uint64
	Braces   []uint64 // '{' or '}'
	Brackets []uint64 // '[' or ']'
	Newlines []uint64
}

// NewBitmaps allocates bitmaps sized for an input of n bytes.
func NewBitmaps(n int) Bitmaps {
	words := (n + 63) / 64
	return Bitmaps{
		Quotes:   make([]uint64, words),
		Braces:   make([]uint64, words),
		Brackets: make([]uint64, words),
		Newlines: make([]uint64, words),
	}
}

// Scan populates bm from input. bm must have been sized by
// NewBitmaps(len(input)) or larger.
func Scan(input []byte, bm Bitmaps) {
	for i, b := range input {
		word, bit := i/64, uint(i%64)
		switch b {
		case '"':
			bm.Quotes[word] |= 1 << bit
		case '{', '}':
			bm.Braces[word] |= 1 << bit
		case '[', ']':
			bm.Brackets[word] |= 1 << bit
		case '\n':
			bm.Newlines[word] |= 1 << bit
		}
	}
}

// NextNewline returns the index of the next '\n' at or after start,
// or -1 if none remains, scanning word-at-a-time via the precomputed
// newline bitmap rather than a byte-by-byte loop.
func NextNewline(bm Bitmaps, start, length int) int {
	word := start / 64
	for ; word < len(bm.Newlines); word++ {
		w := bm.Newlines[word]
		lo := 0
		if word*64 < start {
			lo = start - word*64
		}
		w &^= (uint64(1) << uint(lo)) - 1
		if w == 0 {
			continue
		}
		pos := word*64 + bits.TrailingZeros64(w)
		if pos >= length {
			return -1
		}
		return pos
	}
	return -1
}
