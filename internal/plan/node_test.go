package plan

import "testing"

func TestDeepCopyPreservesIdentifierButIndependentChildren(t *testing.T) {
	leaf := NewIdentifier("x")
	root := NewAnd(leaf)

	copy := root.DeepCopy()
	if !SameIdentity(root, copy) {
		t.Fatal("expected deep copy to preserve the root's identifier")
	}
	copiedLeaf := copy.ExprChildren()[0]
	if !SameIdentity(leaf, copiedLeaf) {
		t.Fatal("expected deep copy to preserve the leaf's identifier")
	}
	if copiedLeaf == leaf {
		t.Fatal("expected deep copy to produce an independent leaf node")
	}

	copiedLeaf.Set("column", "y")
	col, _ := leaf.Column()
	if col != "x" {
		t.Fatalf("expected original leaf untouched, got column=%q", col)
	}
}

func TestSetNilRemovesAttribute(t *testing.T) {
	n := NewLiteral(42)
	if _, ok := n.Get("value"); !ok {
		t.Fatal("expected value attribute present")
	}
	n.Set("value", nil)
	if _, ok := n.Get("value"); ok {
		t.Fatal("expected value attribute removed after setting nil")
	}
}

func TestInverseOp(t *testing.T) {
	cases := []struct {
		op   ComparisonOp
		want ComparisonOp
	}{
		{OpEq, OpNotEq},
		{OpLt, OpGtEq},
		{OpGt, OpLtEq},
		{OpGtEq, OpLt},
	}
	for _, c := range cases {
		got, ok := InverseOp(c.op)
		if !ok || got != c.want {
			t.Fatalf("InverseOp(%v) = %v,%v, want %v", c.op, got, ok, c.want)
		}
	}
	if _, ok := InverseOp(OpIn); ok {
		t.Fatal("expected OpIn to have no inverse")
	}
}

func TestValidateDetectsCycle(t *testing.T) {
	scan := NewScan("t")
	filter := NewFilter(scan, NewLiteral(true))
	// Introduce a cycle: scan's input attribute points back at filter.
	scan.Set("input", filter)

	if err := Validate(filter); err == nil {
		t.Fatal("expected cycle to be detected")
	}
}

func TestValidateAcceptsDAGWithSharedSubtree(t *testing.T) {
	scan := NewScan("t")
	filterA := NewFilter(scan, NewLiteral(true))
	filterB := NewFilter(scan, NewLiteral(false))
	join := NewJoin(JoinInner, filterA, filterB, NewLiteral(true))

	if err := Validate(join); err != nil {
		t.Fatalf("expected shared scan subtree to be valid, got %v", err)
	}
}

func TestEachNewNodeGetsDistinctID(t *testing.T) {
	a := NewIdentifier("a")
	b := NewIdentifier("b")
	if a.ID() == b.ID() {
		t.Fatal("expected distinct identifiers for distinct nodes")
	}
}
