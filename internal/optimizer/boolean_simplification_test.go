package optimizer

import (
	"testing"

	"github.com/parqlite/qcore/internal/plan"
)

func run(strat Strategy, root *plan.Node) (*plan.Node, *Stats) {
	st := NewStats()
	return runStrategy(strat, root, st), st
}

// TestDoubleNegationOverComparison checks NOT(NOT(a=1)): since each
// NOT over a comparison inverts it in place, double negation nets out
// through two inversions (Eq -> NotEq -> Eq) to the original
// comparison rather than literally matching NOT(NOT(x)) as a single
// pattern — there is never a bare NOT node left for the dedicated
// not_not_elimination rule to fire on once its child is itself
// invertible.
func TestDoubleNegationOverComparison(t *testing.T) {
	x := plan.NewComparison(plan.OpEq, plan.NewIdentifier("a"), plan.NewLiteral(int64(1)))
	expr := plan.NewNot(plan.NewNot(x))
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, st := run(&BooleanSimplification{}, filter)
	pred := out.Predicate()
	if pred.Type() != plan.NodeComparisonOperator {
		t.Fatalf("expected double negation eliminated down to the comparison, got %v", pred.Type())
	}
	op, _ := pred.Operator()
	if op != plan.OpEq {
		t.Fatalf("expected the double inversion to net out to Eq, got %v", op)
	}
	if st.Count("not_comparison_inversion") != 2 {
		t.Fatalf("expected 2 inversions, got %d", st.Count("not_comparison_inversion"))
	}
}

// TestNotNotEliminationOverOpaqueExpression checks the dedicated
// not_not_elimination rule fires when the doubly-negated expression
// isn't itself invertible (e.g. a bare identifier used as a boolean
// column), which is the one shape simplifyNot can't fold via
// inversion and instead must match literally.
func TestNotNotEliminationOverOpaqueExpression(t *testing.T) {
	ident := plan.NewIdentifier("flag")
	expr := plan.NewNot(plan.NewNot(ident))
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, st := run(&BooleanSimplification{}, filter)
	if out.Predicate() != ident {
		t.Fatalf("expected NOT(NOT(flag)) eliminated down to flag, got %v", out.Predicate().Type())
	}
	if st.Count("not_not_elimination") != 1 {
		t.Fatalf("expected 1 not_not_elimination, got %d", st.Count("not_not_elimination"))
	}
}

func TestNotComparisonInversion(t *testing.T) {
	x := plan.NewComparison(plan.OpLt, plan.NewIdentifier("a"), plan.NewLiteral(int64(5)))
	filter := plan.NewFilter(plan.NewScan("t"), plan.NewNot(x))

	out, _ := run(&BooleanSimplification{}, filter)
	op, ok := out.Predicate().Operator()
	if !ok || op != plan.OpGtEq {
		t.Fatalf("expected NOT(a<5) -> a>=5, got %v", op)
	}
}

func TestDeMorganOrToAndNAry(t *testing.T) {
	a := plan.NewComparison(plan.OpEq, plan.NewIdentifier("a"), plan.NewLiteral(int64(1)))
	b := plan.NewComparison(plan.OpEq, plan.NewIdentifier("b"), plan.NewLiteral(int64(2)))
	c := plan.NewComparison(plan.OpEq, plan.NewIdentifier("c"), plan.NewLiteral(int64(3)))
	expr := plan.NewNot(plan.NewOr(a, b, c))
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, st := run(&BooleanSimplification{}, filter)
	if out.Predicate().Type() != plan.NodeAnd {
		t.Fatalf("expected top-level AND after De Morgan's, got %v", out.Predicate().Type())
	}
	if len(out.Predicate().ExprChildren()) != 3 {
		t.Fatalf("expected 3 AND children, got %d", len(out.Predicate().ExprChildren()))
	}
	for _, child := range out.Predicate().ExprChildren() {
		if child.Type() != plan.NodeComparisonOperator {
			t.Fatalf("expected each AND child to be an inverted comparison, got %v", child.Type())
		}
	}
	if st.Count("demorgan_or_to_and") != 1 {
		t.Fatalf("expected 1 demorgan_or_to_and, got %d", st.Count("demorgan_or_to_and"))
	}
}

func TestAndFalseAbsorption(t *testing.T) {
	a := plan.NewComparison(plan.OpEq, plan.NewIdentifier("a"), plan.NewLiteral(int64(1)))
	expr := plan.NewAnd(a, plan.NewLiteral(false))
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, _ := run(&BooleanSimplification{}, filter)
	if !isLiteralBool(out.Predicate(), false) {
		t.Fatalf("expected AND FALSE to absorb to FALSE, got %v", out.Predicate().Type())
	}
}

func TestAndTrueIdentityAndSelfIdempotence(t *testing.T) {
	a := plan.NewComparison(plan.OpEq, plan.NewIdentifier("a"), plan.NewLiteral(int64(1)))
	expr := plan.NewAnd(a, plan.NewLiteral(true), a)

	out, st := run(&BooleanSimplification{}, plan.NewFilter(plan.NewScan("t"), expr))
	if out.Predicate().Type() != plan.NodeComparisonOperator {
		t.Fatalf("expected collapse down to the single comparison, got %v", out.Predicate().Type())
	}
	if st.Count("and_true_identity") != 1 || st.Count("and_self_idempotence") != 1 {
		t.Fatalf("expected both identity and idempotence rules to fire, got %+v", st.counters)
	}
}

func TestOrTrueAbsorptionAndFalseIdentity(t *testing.T) {
	a := plan.NewComparison(plan.OpEq, plan.NewIdentifier("a"), plan.NewLiteral(int64(1)))
	expr := plan.NewOr(a, plan.NewLiteral(true))

	out, _ := run(&BooleanSimplification{}, plan.NewFilter(plan.NewScan("t"), expr))
	if !isLiteralBool(out.Predicate(), true) {
		t.Fatalf("expected OR TRUE to absorb to TRUE, got %v", out.Predicate().Type())
	}
}

// TestAllFalseOrChainStaysFalse checks OR's neutral element for an
// empty post-absorption chain is FALSE, not AND's TRUE: every disjunct
// of FALSE OR FALSE is dropped by or_false_identity, so the chain
// that's left to reassociate is empty and must net out to FALSE.
func TestAllFalseOrChainStaysFalse(t *testing.T) {
	expr := plan.NewOr(plan.NewLiteral(false), plan.NewLiteral(false))
	filter := plan.NewFilter(plan.NewScan("t"), expr)

	out, _ := run(&BooleanSimplification{}, filter)
	if !isLiteralBool(out.Predicate(), false) {
		t.Fatalf("expected FALSE OR FALSE to stay FALSE, got %v", out.Predicate().Type())
	}
}
