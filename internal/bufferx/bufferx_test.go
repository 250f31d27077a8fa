package bufferx

import "testing"

func TestIntBufferGeometricGrowth(t *testing.T) {
	b := NewIntBuffer(2)
	for i := int64(0); i < 100; i++ {
		b.Append(i)
	}
	if b.Size() != 100 {
		t.Fatalf("expected size 100, got %d", b.Size())
	}
	view := b.AsBorrowedView()
	if len(view) != 100 || view[99] != 99 {
		t.Fatalf("unexpected view contents")
	}
}

func TestIntBufferAppendRepeated(t *testing.T) {
	b := NewIntBuffer(0)
	b.AppendRepeated(7, 5)
	arr := b.ToContiguousArray()
	if len(arr) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(arr))
	}
	for _, v := range arr {
		if v != 7 {
			t.Fatalf("expected all 7s, got %d", v)
		}
	}
}

func TestIntBufferToContiguousArrayIsCopy(t *testing.T) {
	b := NewIntBuffer(4)
	b.Append(1)
	arr := b.ToContiguousArray()
	arr[0] = 99
	if b.AsBorrowedView()[0] != 1 {
		t.Fatal("ToContiguousArray must return an independent copy")
	}
}

func TestInt32BufferExtend(t *testing.T) {
	b := NewInt32Buffer(0)
	b.Extend([]int32{1, 2, 3})
	b.ExtendFromContiguous([]int32{4, 5, 6}, 2)
	got := b.ToContiguousArray()
	want := []int32{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
