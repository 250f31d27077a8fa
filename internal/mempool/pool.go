// Package mempool implements the segmented memory pool of spec.md
// §4.1: a backing store for opaque byte payloads addressed by
// monotonically increasing ref-id handles, supporting commit/read/
// release with latching and two-level compaction.
//
// Grounded on the teacher's binary-region bookkeeping discipline in
// cidx.BlockWriter/BlockReader (offset tracking, fixed headers, a
// single lock guarding shared mutable layout) and common.IndexRecord's
// fixed-size record style, generalized from "one CSV index file" to
// one in-memory segmented arena supporting in-place compaction.
package mempool

import (
	"fmt"
	"sync"

	"github.com/parqlite/qcore/internal/qerr"
)

// Segment describes one region of the pool: (start, length, latches,
// is_free) per spec.md §3. Length is the aligned capacity reserved;
// ActualLength (used segments only) is the caller's requested byte
// count, which Read returns — never the aligned padding.
type Segment struct {
	Start        int
	Length       int
	ActualLength int
	Latches      int
	IsFree       bool
}

// Config configures a Pool at construction, in the teacher's
// exported-config-struct-with-defaulting idiom (QueryConfig,
// IndexerConfig, DaemonConfig).
type Config struct {
	Size      int // initial pool size in bytes
	Alignment int // power-of-two allocation alignment; default 8
	AutoResize bool
}

// Pool is a single contiguous region of bytes sliced into free/used
// segments. All public operations acquire mu; internal helpers assume
// it is already held, which is how this module gets reentrant-lock
// behavior without a genuinely recursive mutex (Go has none):
// public methods never call another public, locking method while
// holding the lock.
type Pool struct {
	mu sync.Mutex

	buf        []byte
	segments   []*Segment // sorted by Start, partitions [0, len(buf))
	byRef      map[int64]*Segment
	nextRef    int64
	alignment  int
	autoResize bool

	failedCommits int64
}

// New creates a pool of the given configuration.
func New(cfg Config) *Pool {
	if cfg.Alignment <= 0 {
		cfg.Alignment = 8
	}
	if cfg.Size < 0 {
		cfg.Size = 0
	}
	p := &Pool{
		buf:        make([]byte, cfg.Size),
		alignment:  cfg.Alignment,
		autoResize: cfg.AutoResize,
		byRef:      make(map[int64]*Segment),
	}
	if cfg.Size > 0 {
		p.segments = []*Segment{{Start: 0, Length: cfg.Size, IsFree: true}}
	}
	return p
}

func (p *Pool) align(n int) int {
	a := p.alignment
	if a <= 1 {
		return n
	}
	return (n + a - 1) &^ (a - 1)
}

// Commit copies data into a best-fit free segment, compacting and
// (if enabled) growing the pool as needed. Returns -1 on failure per
// spec.md §4.1/§7's sentinel-return contract; invalid handles are the
// only condition that raises a hard error in this package.
func (p *Pool) Commit(data []byte) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(data) == 0 {
		return p.commitZeroLocked()
	}

	need := p.align(len(data))
	seg := p.findBestFitLocked(need)
	if seg == nil {
		p.mergeAdjacentFreeLocked() // L1
		seg = p.findBestFitLocked(need)
	}
	if seg == nil {
		p.compactL2Locked() // L2
		seg = p.findBestFitLocked(need)
	}
	if seg == nil && p.autoResize {
		p.growLocked(need)
		seg = p.findBestFitLocked(need)
	}
	if seg == nil {
		p.failedCommits++
		return -1
	}

	used := p.splitLocked(seg, need)
	used.ActualLength = len(data)
	copy(p.buf[used.Start:used.Start+len(data)], data)

	ref := p.nextRef
	p.nextRef++
	p.byRef[ref] = used
	return ref
}

// commitZeroLocked handles the zero-length commit special case: it
// always succeeds (spec.md §3: "A zero-length commit produces a valid
// handle whose read yields an empty buffer; such handles still obey
// release discipline") without consuming any byte range, so it never
// competes with other allocations for space.
func (p *Pool) commitZeroLocked() int64 {
	start := len(p.buf)
	if len(p.segments) > 0 {
		last := p.segments[len(p.segments)-1]
		start = last.Start + last.Length
	}
	seg := &Segment{Start: start, Length: 0, ActualLength: 0, IsFree: false}
	ref := p.nextRef
	p.nextRef++
	p.byRef[ref] = seg
	// Not inserted into p.segments: a zero-width segment would sort
	// ambiguously against a real segment sharing the same Start and
	// contributes nothing to the [0,size) partition invariant.
	return ref
}

// ReserveForWrite allocates and latches a segment, returning a
// writable view into the pool's backing buffer. The segment cannot be
// moved by compaction until FinalizeCommit unlatches it.
func (p *Pool) ReserveForWrite(size int) (ref int64, view []byte, capacity int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	need := p.align(size)
	seg := p.findBestFitLocked(need)
	if seg == nil {
		p.mergeAdjacentFreeLocked()
		seg = p.findBestFitLocked(need)
	}
	if seg == nil {
		p.compactL2Locked()
		seg = p.findBestFitLocked(need)
	}
	if seg == nil && p.autoResize {
		p.growLocked(need)
		seg = p.findBestFitLocked(need)
	}
	if seg == nil {
		p.failedCommits++
		return -1, nil, 0, fmt.Errorf("%w: reserve of %d bytes failed", qerr.ErrCapacityExceeded, size)
	}

	used := p.splitLocked(seg, need)
	used.Latches = 1

	ref = p.nextRef
	p.nextRef++
	p.byRef[ref] = used
	return ref, p.buf[used.Start : used.Start+used.Length], used.Length, nil
}

// FinalizeCommit records the actual length written via a prior
// ReserveForWrite and unlatches the segment.
func (p *Pool) FinalizeCommit(ref int64, actualLength int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, ok := p.byRef[ref]
	if !ok {
		return fmt.Errorf("%w: unknown ref %d", qerr.ErrInvalidHandle, ref)
	}
	if actualLength > seg.Length {
		actualLength = seg.Length
	}
	seg.ActualLength = actualLength
	if seg.Latches > 0 {
		seg.Latches--
	}
	return nil
}

// Read returns the bytes stored under ref. If zeroCopy is false, a
// fresh copy is returned; otherwise the returned slice aliases the
// pool's backing buffer and is only valid until the next mutating
// call unless latch is true, in which case it remains valid until a
// matching Unlatch.
func (p *Pool) Read(ref int64, zeroCopy bool, latch bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, ok := p.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ref %d", qerr.ErrInvalidHandle, ref)
	}
	if latch {
		seg.Latches++
	}

	view := p.buf[seg.Start : seg.Start+seg.ActualLength]
	if zeroCopy {
		return view, nil
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Release removes the used segment, marks it free, and merges
// adjacent free segments. Any outstanding latches are cleared; a
// later Unlatch against this ref fails with ErrInvalidHandle.
func (p *Pool) Release(ref int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, ok := p.byRef[ref]
	if !ok {
		return fmt.Errorf("%w: unknown ref %d", qerr.ErrInvalidHandle, ref)
	}
	delete(p.byRef, ref)

	if seg.Length == 0 {
		// The zero-length commit special case: never entered p.segments.
		return nil
	}

	seg.IsFree = true
	seg.Latches = 0
	seg.ActualLength = 0
	p.mergeAdjacentFreeLocked()
	return nil
}

// Unlatch decrements a segment's latch count. Fails if the segment is
// not currently latched (including if it was already released).
func (p *Pool) Unlatch(ref int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, ok := p.byRef[ref]
	if !ok || seg.Latches == 0 {
		return fmt.Errorf("%w: ref %d not latched", qerr.ErrInvalidHandle, ref)
	}
	seg.Latches--
	return nil
}

// AvailableSpace returns the total free bytes across all free segments.
func (p *Pool) AvailableSpace() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, s := range p.segments {
		if s.IsFree {
			total += s.Length
		}
	}
	return total
}

// Stats is the richer structured fragmentation/usage snapshot this
// module returns from GetStats, grounded on the teacher's multi-value
// stat-accumulation shape (Scanner.GetStats, Sorter's named counters)
// rather than collapsing everything into a single ratio.
type Stats struct {
	PoolSize        int
	FreeSegments    int
	UsedSegments    int
	TotalFree       int
	TotalUsed       int
	LargestFreeRun  int
	FailedCommits   int64
}

// GetStats returns a snapshot of pool usage and fragmentation.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Stats{PoolSize: len(p.buf), FailedCommits: p.failedCommits}
	for _, s := range p.segments {
		if s.IsFree {
			st.FreeSegments++
			st.TotalFree += s.Length
			if s.Length > st.LargestFreeRun {
				st.LargestFreeRun = s.Length
			}
		} else {
			st.UsedSegments++
			st.TotalUsed += s.Length
		}
	}
	return st
}

// GetFragmentation returns the fraction of free space that is not
// contained in the single largest free run: 0 means either no free
// space or all free space is one contiguous run (no fragmentation).
func (p *Pool) GetFragmentation() float64 {
	st := p.GetStats()
	if st.TotalFree == 0 {
		return 0
	}
	return 1 - float64(st.LargestFreeRun)/float64(st.TotalFree)
}

// --- internal helpers; callers must hold p.mu ---

func (p *Pool) findBestFitLocked(need int) *Segment {
	var best *Segment
	for _, s := range p.segments {
		if !s.IsFree || s.Length < need {
			continue
		}
		if best == nil || s.Length < best.Length {
			best = s
		}
	}
	return best
}

// splitLocked carves a used segment of exactly `need` bytes out of a
// free segment, leaving any excess as a new free segment immediately
// after it. Returns the new used segment.
func (p *Pool) splitLocked(free *Segment, need int) *Segment {
	if free.Length == need {
		free.IsFree = false
		return free
	}

	used := &Segment{Start: free.Start, Length: need, IsFree: false}
	remainder := &Segment{Start: free.Start + need, Length: free.Length - need, IsFree: true}

	idx := p.indexOfLocked(free)
	p.segments[idx] = used
	p.segments = append(p.segments, nil)
	copy(p.segments[idx+2:], p.segments[idx+1:len(p.segments)-1])
	p.segments[idx+1] = remainder
	return used
}

func (p *Pool) indexOfLocked(seg *Segment) int {
	for i, s := range p.segments {
		if s == seg {
			return i
		}
	}
	return -1
}

// mergeAdjacentFreeLocked implements L1 compaction: merges
// consecutive free segments in place, O(segments).
func (p *Pool) mergeAdjacentFreeLocked() {
	out := p.segments[:0]
	for _, s := range p.segments {
		if n := len(out); n > 0 && out[n-1].IsFree && s.IsFree && out[n-1].Start+out[n-1].Length == s.Start {
			out[n-1].Length += s.Length
			continue
		}
		out = append(out, s)
	}
	p.segments = out
}

// compactL2Locked implements L2 compaction: moves unlatched used
// segments toward the start, preserving relative order. Latched
// segments are pinned in place; the gap before a pinned segment
// cannot be eliminated (nothing may cross it without inverting order)
// so it is left as free space, per spec.md §4.1.
func (p *Pool) compactL2Locked() {
	cursor := 0
	out := make([]*Segment, 0, len(p.segments))

	for _, s := range p.segments {
		if s.IsFree {
			continue
		}
		if s.Latches > 0 {
			if cursor < s.Start {
				out = append(out, &Segment{Start: cursor, Length: s.Start - cursor, IsFree: true})
			}
			out = append(out, s)
			cursor = s.Start + s.Length
			continue
		}
		if s.Start != cursor {
			copy(p.buf[cursor:cursor+s.Length], p.buf[s.Start:s.Start+s.Length])
			s.Start = cursor
		}
		out = append(out, s)
		cursor += s.Length
	}

	if cursor < len(p.buf) {
		out = append(out, &Segment{Start: cursor, Length: len(p.buf) - cursor, IsFree: true})
	}

	p.segments = out
}

// growLocked doubles pool capacity until it can fit `need` bytes,
// appending the new space as a trailing free segment (merged with an
// existing trailing free segment, if any).
func (p *Pool) growLocked(need int) {
	base := len(p.buf)
	newSize := base
	if newSize == 0 {
		newSize = 1
	}
	for newSize-base < need {
		newSize *= 2
	}

	grown := make([]byte, newSize)
	copy(grown, p.buf)
	added := newSize - base
	p.buf = grown

	if n := len(p.segments); n > 0 && p.segments[n-1].IsFree {
		p.segments[n-1].Length += added
		return
	}
	p.segments = append(p.segments, &Segment{Start: newSize - added, Length: added, IsFree: true})
}
