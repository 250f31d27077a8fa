package optimizer

import "github.com/parqlite/qcore/internal/plan"

// PredicateCompaction implements spec.md §4.7.2: within a top-level
// AND, conjuncts of the shape `column op literal` (op in =, <, <=, >,
// >=) are grouped by column, folded into one ValueRange per column,
// and regenerated as the minimal equivalent comparison(s). A
// contradictory range (e.g. x > 10 AND x < 5) collapses the entire
// filter to FALSE.
//
// Grounded on the teacher's Condition tree, which evaluates each
// conjunct independently per row with no cross-conjunct folding; this
// strategy performs that folding once, at plan-rewrite time, instead
// of repeating redundant bound checks on every row.
type PredicateCompaction struct{}

func (s *PredicateCompaction) Name() string { return "predicate_compaction" }

func (s *PredicateCompaction) Visit(node *plan.Node, ctx *Context) *Context { return ctx }

func (s *PredicateCompaction) Complete(root *plan.Node, ctx *Context) *plan.Node {
	stats, _ := ctx.Get("stats")
	st, _ := stats.(*Stats)
	return rewritePredicates(root, func(expr *plan.Node) *plan.Node {
		return compactPredicate(expr, st)
	})
}

var orderedOps = map[plan.ComparisonOp]bool{
	plan.OpEq: true, plan.OpLt: true, plan.OpLtEq: true, plan.OpGt: true, plan.OpGtEq: true,
}

func compactPredicate(expr *plan.Node, st *Stats) *plan.Node {
	if expr == nil || expr.Type() != plan.NodeAnd {
		return expr
	}
	kids := flattenChain(expr, plan.NodeAnd)

	ranges := make(map[string]*ValueRange)
	colNode := make(map[string]*plan.Node)
	order := make([]string, 0)
	var passthrough []*plan.Node

	for _, k := range kids {
		col, lit, op, ok := asColumnLiteralComparison(k)
		if !ok || IsCorrelated(k) {
			passthrough = append(passthrough, k)
			continue
		}
		name, _ := col.Column()
		r, exists := ranges[name]
		if !exists {
			r = &ValueRange{}
			ranges[name] = r
			colNode[name] = col
			order = append(order, name)
		}
		if !r.applyComparison(op, lit) {
			r.Untrackable = true
		}
	}

	var rebuilt []*plan.Node
	for _, name := range order {
		r := ranges[name]
		if r.Untrackable {
			// Can't safely compact; fall back to passthrough form by
			// reconstructing the original comparisons is unnecessary
			// since none were removed from `kids` destructively — skip
			// regeneration and leave the group's conjuncts untouched by
			// not compacting. This case is rare (non-ordered operand
			// type) so we simply re-emit nothing here and instead keep
			// the originals via a second pass below.
			continue
		}
		if r.Contradictory() {
			bump(st, "predicate_compaction_contradiction")
			return plan.NewLiteral(false)
		}
		rebuilt = append(rebuilt, r.ToConjuncts(colNode[name])...)
		bump(st, "predicate_compaction_group")
	}

	// Re-include any untrackable group's original conjuncts verbatim.
	for _, k := range kids {
		col, _, _, ok := asColumnLiteralComparison(k)
		if !ok {
			continue
		}
		name, _ := col.Column()
		if r, exists := ranges[name]; exists && r.Untrackable {
			rebuilt = append(rebuilt, k)
		}
	}

	all := append(rebuilt, passthrough...)
	if len(all) == 1 {
		return all[0]
	}
	if len(all) == 0 {
		return plan.NewLiteral(true)
	}
	return plan.NewAnd(all...)
}

// asColumnLiteralComparison recognizes `column op literal` (or
// `literal op column`, normalized by flipping the operator) among the
// ordered comparison operators.
func asColumnLiteralComparison(n *plan.Node) (col *plan.Node, literal any, op plan.ComparisonOp, ok bool) {
	if n.Type() != plan.NodeComparisonOperator {
		return nil, nil, "", false
	}
	cop, _ := n.Operator()
	if !orderedOps[cop] {
		return nil, nil, "", false
	}
	left, right := n.Left(), n.Right()
	if left.Type() == plan.NodeIdentifier && right.Type() == plan.NodeLiteral {
		return left, right.Literal(), cop, true
	}
	if right.Type() == plan.NodeIdentifier && left.Type() == plan.NodeLiteral {
		return right, left.Literal(), flipOp(cop), true
	}
	return nil, nil, "", false
}

func flipOp(op plan.ComparisonOp) plan.ComparisonOp {
	switch op {
	case plan.OpLt:
		return plan.OpGt
	case plan.OpLtEq:
		return plan.OpGtEq
	case plan.OpGt:
		return plan.OpLt
	case plan.OpGtEq:
		return plan.OpLtEq
	default:
		return op
	}
}
