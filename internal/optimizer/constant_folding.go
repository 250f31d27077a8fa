package optimizer

import "github.com/parqlite/qcore/internal/plan"

// ConstantFolding implements spec.md §4.7's two constant-folding
// passes (the first before predicate rewriting exposes new literal
// comparisons, the second after join/operator rewrites may have
// introduced more): evaluates comparisons between two literals and
// NOT over a literal at rewrite time rather than leaving them for
// per-row evaluation.
//
// Grounded on the teacher's Condition.Evaluate, which already
// resolves a literal comparison per-row; this strategy hoists that
// same evaluation to plan-rewrite time when both operands are already
// literal.
type ConstantFolding struct {
	passName string
}

func (s *ConstantFolding) Name() string { return s.passName }

func (s *ConstantFolding) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *ConstantFolding) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return rewritePredicates(root, func(expr *plan.Node) *plan.Node {
		return foldConstants(expr, st)
	})
}

func foldConstants(expr *plan.Node, st *Stats) *plan.Node {
	if expr == nil {
		return nil
	}
	switch expr.Type() {
	case plan.NodeNot:
		child := foldConstants(expr.Child(), st)
		if child.Type() == plan.NodeLiteral {
			if b, ok := child.Literal().(bool); ok {
				bump(st, "constant_fold_not")
				return plan.NewLiteral(!b)
			}
		}
		return plan.NewNot(child)

	case plan.NodeAnd:
		kids := expr.ExprChildren()
		for i, k := range kids {
			kids[i] = foldConstants(k, st)
		}
		return plan.NewAnd(kids...)

	case plan.NodeOr:
		kids := expr.ExprChildren()
		for i, k := range kids {
			kids[i] = foldConstants(k, st)
		}
		return plan.NewOr(kids...)

	case plan.NodeComparisonOperator:
		left := foldConstants(expr.Left(), st)
		right := foldConstants(expr.Right(), st)
		op, _ := expr.Operator()
		if left.Type() == plan.NodeLiteral && right.Type() == plan.NodeLiteral {
			if result, ok := evalComparison(op, left.Literal(), right.Literal()); ok {
				bump(st, "constant_fold_comparison")
				return plan.NewLiteral(result)
			}
		}
		return plan.NewComparison(op, left, right)

	default:
		return expr
	}
}

// evalComparison evaluates a literal-literal comparison for the
// ordered scalar types spec.md's Relation Statistics also supports:
// int64, float64, and string. A float64 left operand also compares
// against an int64 or int right operand, and an int64 left operand
// against an int right operand; any other mixed or unsupported
// combination is left unfolded (ok=false).
func evalComparison(op plan.ComparisonOp, a, b any) (bool, bool) {
	cmp, ok := compareScalars(a, b)
	if !ok {
		return false, false
	}
	switch op {
	case plan.OpEq:
		return cmp == 0, true
	case plan.OpNotEq:
		return cmp != 0, true
	case plan.OpLt:
		return cmp < 0, true
	case plan.OpLtEq:
		return cmp <= 0, true
	case plan.OpGt:
		return cmp > 0, true
	case plan.OpGtEq:
		return cmp >= 0, true
	default:
		return false, false
	}
}

// compareScalars returns -1/0/1 for a<b, a==b, a>b, plus whether a
// and b were a supported, comparable combination.
func compareScalars(a, b any) (int, bool) {
	switch av := a.(type) {
	case int64:
		bv, ok := toInt64(b)
		if !ok {
			return 0, false
		}
		return cmpInt64(av, bv), true
	case float64:
		bv, ok := toFloat64(b)
		if !ok {
			return 0, false
		}
		return cmpFloat64(av, bv), true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
