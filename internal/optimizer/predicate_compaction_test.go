package optimizer

import (
	"testing"

	"github.com/parqlite/qcore/internal/plan"
)

func TestPredicateCompactionMergesRangeBounds(t *testing.T) {
	a := plan.NewIdentifier("x")
	lower := plan.NewComparison(plan.OpGt, a, plan.NewLiteral(int64(5)))
	upper := plan.NewComparison(plan.OpLtEq, plan.NewIdentifier("x"), plan.NewLiteral(int64(20)))
	expr := plan.NewAnd(lower, upper)
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, st := run(&PredicateCompaction{}, filter)
	pred := out.Predicate()
	if pred.Type() != plan.NodeAnd {
		t.Fatalf("expected regenerated AND of two bounds, got %v", pred.Type())
	}
	if len(pred.ExprChildren()) != 2 {
		t.Fatalf("expected 2 conjuncts (lower+upper), got %d", len(pred.ExprChildren()))
	}
	if st.Count("predicate_compaction_group") != 1 {
		t.Fatalf("expected 1 compacted group, got %d", st.Count("predicate_compaction_group"))
	}
}

func TestPredicateCompactionDetectsContradiction(t *testing.T) {
	gt := plan.NewComparison(plan.OpGt, plan.NewIdentifier("x"), plan.NewLiteral(int64(10)))
	lt := plan.NewComparison(plan.OpLt, plan.NewIdentifier("x"), plan.NewLiteral(int64(5)))
	expr := plan.NewAnd(gt, lt)
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, st := run(&PredicateCompaction{}, filter)
	if !isLiteralBool(out.Predicate(), false) {
		t.Fatalf("expected contradictory range to collapse to FALSE, got %v", out.Predicate().Type())
	}
	if st.Count("predicate_compaction_contradiction") != 1 {
		t.Fatalf("expected 1 contradiction detected, got %d", st.Count("predicate_compaction_contradiction"))
	}
}

func TestPredicateCompactionDetectsInconsistentEquality(t *testing.T) {
	eq5 := plan.NewComparison(plan.OpEq, plan.NewIdentifier("x"), plan.NewLiteral(int64(5)))
	eq7 := plan.NewComparison(plan.OpEq, plan.NewIdentifier("x"), plan.NewLiteral(int64(7)))
	expr := plan.NewAnd(eq5, eq7)
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, st := run(&PredicateCompaction{}, filter)
	if !isLiteralBool(out.Predicate(), false) {
		t.Fatalf("expected col=5 AND col=7 to collapse to FALSE, got %v", out.Predicate().Type())
	}
	if st.Count("predicate_compaction_contradiction") != 1 {
		t.Fatalf("expected 1 contradiction detected, got %d", st.Count("predicate_compaction_contradiction"))
	}
}

func TestPredicateCompactionEqualityCollapsesToSingleEq(t *testing.T) {
	ge := plan.NewComparison(plan.OpGtEq, plan.NewIdentifier("x"), plan.NewLiteral(int64(7)))
	le := plan.NewComparison(plan.OpLtEq, plan.NewIdentifier("x"), plan.NewLiteral(int64(7)))
	expr := plan.NewAnd(ge, le)
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, _ := run(&PredicateCompaction{}, filter)
	pred := out.Predicate()
	if pred.Type() != plan.NodeComparisonOperator {
		t.Fatalf("expected single Eq comparison, got %v", pred.Type())
	}
	op, _ := pred.Operator()
	if op != plan.OpEq {
		t.Fatalf("expected Eq, got %v", op)
	}
}

func TestPredicateCompactionLeavesUnrelatedConjunctsAlone(t *testing.T) {
	rangeOnX := plan.NewComparison(plan.OpGt, plan.NewIdentifier("x"), plan.NewLiteral(int64(1)))
	unrelated := plan.NewComparison(plan.OpEq, plan.NewIdentifier("y"), plan.NewLiteral("z"))
	expr := plan.NewAnd(rangeOnX, unrelated)
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, _ := run(&PredicateCompaction{}, filter)
	if len(out.Predicate().ExprChildren()) != 2 {
		t.Fatalf("expected both conjuncts retained, got %d", len(out.Predicate().ExprChildren()))
	}
}
