package mempool

import (
	"bytes"
	"errors"
	"testing"

	"github.com/parqlite/qcore/internal/qerr"
)

func TestCommitReadRelease(t *testing.T) {
	p := New(Config{Size: 1024, Alignment: 1})

	r1 := p.Commit([]byte("ABCDEF"))
	r2 := p.Commit([]byte("XYZ"))
	if r1 < 0 || r2 < 0 {
		t.Fatalf("commits should succeed: r1=%d r2=%d", r1, r2)
	}

	v1, err := p.Read(r1, true, false)
	if err != nil || string(v1) != "ABCDEF" {
		t.Fatalf("read r1: %q, %v", v1, err)
	}
	v2, err := p.Read(r2, true, false)
	if err != nil || string(v2) != "XYZ" {
		t.Fatalf("read r2: %q, %v", v2, err)
	}

	if got := p.AvailableSpace(); got != 1024-9 {
		t.Fatalf("expected available space %d, got %d", 1024-9, got)
	}

	if err := p.Release(r1); err != nil {
		t.Fatalf("release r1: %v", err)
	}
	if _, err := p.Read(r1, true, false); err == nil {
		t.Fatal("expected InvalidHandle after release")
	} else if !errors.Is(err, qerr.ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}

	if got := p.AvailableSpace(); got < 1024-9+6 {
		t.Fatalf("expected merged free space >= %d, got %d", 1024-9+6, got)
	}
}

func TestZeroLengthCommit(t *testing.T) {
	p := New(Config{Size: 64})
	ref := p.Commit(nil)
	if ref < 0 {
		t.Fatal("zero-length commit must succeed")
	}
	v, err := p.Read(ref, false, false)
	if err != nil {
		t.Fatalf("read zero-length: %v", err)
	}
	if len(v) != 0 {
		t.Fatalf("expected empty buffer, got %v", v)
	}
	if err := p.Release(ref); err != nil {
		t.Fatalf("release zero-length: %v", err)
	}
}

func TestLatchPreventsMove(t *testing.T) {
	p := New(Config{Size: 256, Alignment: 1})

	ref, buf, capacity, err := p.ReserveForWrite(16)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if capacity < 16 {
		t.Fatalf("expected capacity >= 16, got %d", capacity)
	}
	copy(buf, []byte("0123456789abcdef"))

	before := p.byRef[ref].Start

	// Commit enough data elsewhere to force compaction attempts while
	// the reserved segment is still latched.
	for i := 0; i < 50; i++ {
		p.Commit(bytes.Repeat([]byte{'x'}, 4))
	}
	p.compactAll()

	if p.byRef[ref].Start != before {
		t.Fatalf("latched segment moved: was %d now %d", before, p.byRef[ref].Start)
	}

	if err := p.FinalizeCommit(ref, 16); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	v, err := p.Read(ref, true, false)
	if err != nil || string(v) != "0123456789abcdef" {
		t.Fatalf("read after finalize: %q %v", v, err)
	}
}

func TestUnlatchNotLatchedFails(t *testing.T) {
	p := New(Config{Size: 64})
	ref := p.Commit([]byte("hi"))
	if err := p.Unlatch(ref); err == nil {
		t.Fatal("expected error unlatching a non-latched segment")
	}
}

func TestCommitFailureReturnsSentinel(t *testing.T) {
	p := New(Config{Size: 4, Alignment: 1, AutoResize: false})
	if got := p.Commit([]byte("toolong")); got != -1 {
		t.Fatalf("expected -1 sentinel, got %d", got)
	}
	st := p.GetStats()
	if st.FailedCommits != 1 {
		t.Fatalf("expected 1 failed commit, got %d", st.FailedCommits)
	}
}

func TestAutoResizeGrowsPool(t *testing.T) {
	p := New(Config{Size: 4, Alignment: 1, AutoResize: true})
	ref := p.Commit([]byte("much longer than four bytes"))
	if ref < 0 {
		t.Fatal("expected auto-resize to allow commit")
	}
}

func TestPoolPartitionInvariant(t *testing.T) {
	p := New(Config{Size: 100, Alignment: 1})
	refs := make([]int64, 0)
	for i := 0; i < 10; i++ {
		refs = append(refs, p.Commit([]byte{byte(i)}))
	}
	for i, r := range refs {
		if i%2 == 0 {
			_ = p.Release(r)
		}
	}
	p.compactAll()

	p.mu.Lock()
	covered := 0
	for i, s := range p.segments {
		if s.Start != covered {
			t.Fatalf("segment %d starts at %d, expected %d (gap/overlap)", i, s.Start, covered)
		}
		covered += s.Length
	}
	if covered != len(p.buf) {
		t.Fatalf("segments cover %d bytes, pool is %d", covered, len(p.buf))
	}
	p.mu.Unlock()
}

// compactAll runs both compaction levels, exported for tests only via
// this same-package helper.
func (p *Pool) compactAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mergeAdjacentFreeLocked()
	p.compactL2Locked()
}

